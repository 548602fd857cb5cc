package encoding

import (
	"reflect"
	"unsafe"
)

func decodeArray(typ reflect.Type, bs int) (handler, structSize) {
	count := typ.Len()
	elemType := typ.Elem()
	if !checkCustom(elemType, bs) {
		size := make(structSize, count)
		elemSize := int(elemType.Size())
		for i := range size {
			size[i] = elemSize
		}
		totalSize := size.Size()
		return func(stream Stream, ptr unsafe.Pointer) error {
			_, err := stream.Read(unsafe.Slice((*byte)(ptr), totalSize))
			return err
		}, size
	}
	unmarshal, elemSize := decode(elemType, bs)
	size := make(structSize, 0, count*len(elemSize))
	for i := 0; i < count; i++ {
		size = size.Add(elemSize)
	}
	return func(stream Stream, ptr unsafe.Pointer) error {
		for i := 0; i < count; i++ {
			err := unmarshal(stream, ptr)
			if err != nil {
				return err
			}
			ptr = unsafe.Add(ptr, elemType.Size())
		}
		return nil
	}, size
}

func decodeSlice(typ reflect.Type, bs int) (handler, structSize) {
	elemType := typ.Elem()
	if !checkCustom(elemType, bs) {
		elemSize := int(elemType.Size())
		return func(stream Stream, ptr unsafe.Pointer) error {
			subStream, err := stream.ReadStream()
			if err != nil {
				return err
			} else if subStream.Offset() == 0 {
				return nil
			}
			slice := (*sliceData)(ptr)
			_, err = subStream.Read(unsafe.Slice((*byte)(slice.Data), elemSize*slice.Len))
			return err
		}, structSize{bs}
	}
	unmarshal, _ := decode(elemType, bs)
	return func(stream Stream, ptr unsafe.Pointer) error {
		subStream, err := stream.ReadStream()
		if err != nil {
			return err
		} else if subStream.Offset() == 0 {
			return nil
		}
		slice := (*sliceData)(ptr)
		ptr = slice.Data
		for i := 0; i < slice.Len; i++ {
			err = unmarshal(subStream, ptr)
			if err != nil {
				return err
			}
			ptr = unsafe.Add(ptr, elemType.Size())
		}
		return nil
	}, structSize{bs}
}

func decodeString(bs int, wide bool) (handler, structSize) {
	return func(stream Stream, ptr unsafe.Pointer) error {
		subStream, err := stream.ReadStream()
		if err != nil {
			return err
		} else if subStream.Offset() == 0 {
			return nil
		}
		var str string
		if wide {
			str, err = subStream.ReadWideString()
		} else {
			str, err = subStream.ReadString()
		}
		if err != nil {
			return err
		}
		*(*string)(ptr) = str
		return nil
	}, structSize{bs}
}

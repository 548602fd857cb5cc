package host

import (
	"slices"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/exp/constraints"
)

const maxStringLength = 0x1000

type Pointer struct {
	h    Host
	addr uint64
}

func ToPointer(h Host, addr uint64) Pointer {
	return Pointer{h, addr}
}

func (p Pointer) Host() Host {
	return p.h
}

func (p Pointer) IsNil() bool {
	return p.addr == 0
}

func (p Pointer) Address() uint64 {
	return p.addr
}

func (p Pointer) Add(offset uint64) Pointer {
	return Pointer{p.h, p.addr + offset}
}

func (p Pointer) Sub(offset uint64) Pointer {
	return Pointer{p.h, p.addr - offset}
}

func (p Pointer) Index(i, size uint64) Pointer {
	return Pointer{p.h, p.addr + i*size}
}

// Untag clears the low tag bits selected by mask.
func (p Pointer) Untag(mask uint64) Pointer {
	return Pointer{p.h, p.addr &^ mask}
}

func (p Pointer) Tagged(mask uint64) bool {
	return p.addr&mask != 0
}

func (p Pointer) Readable(size uint64) bool {
	if p.addr == 0 {
		return false
	}
	_, err := p.h.MemRead(p.addr, size)
	return err == nil
}

func (p Pointer) MemRead(size uint64) ([]byte, error) {
	return p.h.MemRead(p.addr, size)
}

func (p Pointer) MemReadPointer() (Pointer, error) {
	size := p.h.PointerSize()
	data, err := p.h.MemRead(p.addr, size)
	if err != nil {
		return Pointer{}, err
	}
	var addr uint64
	switch size {
	case 4:
		addr = uint64(readRaw[uint32](data))
	default:
		addr = readRaw[uint64](data)
	}
	return Pointer{p.h, addr}, nil
}

func (p Pointer) MemReadPointers(count uint64) ([]Pointer, error) {
	words, err := p.MemReadWords(count, p.h.PointerSize())
	if err != nil {
		return nil, err
	}
	ptrs := make([]Pointer, count)
	for i, word := range words {
		ptrs[i] = Pointer{p.h, word}
	}
	return ptrs, nil
}

// MemReadWords reads count little endian words of 4 or 8 bytes, whatever the
// target pointer size.
func (p Pointer) MemReadWords(count, size uint64) ([]uint64, error) {
	if size != 4 {
		size = 8
	}
	data, err := p.h.MemRead(p.addr, size*count)
	if err != nil {
		return nil, err
	}
	words := make([]uint64, count)
	for i := range words {
		raw := data[uint64(i)*size:]
		if size == 4 {
			words[i] = uint64(readRaw[uint32](raw))
		} else {
			words[i] = readRaw[uint64](raw)
		}
	}
	return words, nil
}

// MemReadString reads a NUL terminated narrow string.
func (p Pointer) MemReadString() (string, error) {
	var data []byte
	const chunk = 0x10
	for begin := p.addr; len(data) < maxStringLength; begin += chunk {
		buf, err := p.h.MemRead(begin, chunk)
		if err != nil {
			if len(data) > 0 {
				break
			}
			return "", err
		}
		i := slices.Index(buf, 0)
		if i == -1 {
			data = append(data, buf...)
		} else {
			data = append(data, buf[:i]...)
			break
		}
	}
	return string(data), nil
}

// MemReadWideString reads count UTF-16 code units, or up to the terminator
// when count is negative.
func (p Pointer) MemReadWideString(count int) (string, error) {
	if count >= 0 {
		if count > maxStringLength {
			count = maxStringLength
		}
		data, err := p.h.MemRead(p.addr, uint64(count)*2)
		if err != nil {
			return "", err
		}
		return decodeUTF16(data), nil
	}
	var units []byte
	const chunk = 0x20
	for begin := p.addr; len(units) < maxStringLength*2; begin += chunk {
		buf, err := p.h.MemRead(begin, chunk)
		if err != nil {
			if len(units) > 0 {
				break
			}
			return "", err
		}
		end := -1
		for i := 0; i+1 < len(buf); i += 2 {
			if buf[i] == 0 && buf[i+1] == 0 {
				end = i
				break
			}
		}
		if end == -1 {
			units = append(units, buf...)
		} else {
			units = append(units, buf[:end]...)
			break
		}
	}
	return decodeUTF16(units), nil
}

func (p Pointer) ReadAt(b []byte, off int64) (n int, err error) {
	data, err := p.h.MemRead(p.addr+uint64(off), uint64(len(b)))
	if err != nil {
		return 0, err
	}
	return copy(b, data), nil
}

func Read[V constraints.Integer | constraints.Float](p Pointer) (V, error) {
	var v V
	data, err := p.h.MemRead(p.addr, uint64(unsafe.Sizeof(v)))
	if err != nil {
		return v, err
	}
	return readRaw[V](data), nil
}

func readRaw[V any](raw []byte) V {
	var v V
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v)), raw)
	return v
}

func decodeUTF16(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(units))
}

package snapshot

import (
	"math"
	"unicode/utf16"

	"github.com/wnxd/xamldbg/encoding"
	"github.com/wnxd/xamldbg/host"
)

type memStream struct {
	s    *Snapshot
	addr uint64
}

func (ms *memStream) BlockSize() int {
	return int(ms.s.PtrSize)
}

func (ms *memStream) Offset() uint64 {
	return ms.addr
}

func (ms *memStream) Skip(n int) error {
	ms.addr += uint64(n)
	return nil
}

func (ms *memStream) Read(b []byte) (int, error) {
	data, err := ms.s.MemRead(ms.addr, uint64(len(b)))
	if err != nil {
		return 0, err
	}
	n := copy(b, data)
	ms.addr += uint64(n)
	return n, nil
}

func (ms *memStream) ReadFloat() (float32, error) {
	v, err := host.Read[uint32](host.ToPointer(ms.s, ms.addr))
	if err == nil {
		ms.addr += 4
	}
	return math.Float32frombits(v), err
}

func (ms *memStream) ReadDouble() (float64, error) {
	v, err := host.Read[uint64](host.ToPointer(ms.s, ms.addr))
	if err == nil {
		ms.addr += 8
	}
	return math.Float64frombits(v), err
}

func (ms *memStream) ReadString() (string, error) {
	str, err := host.ToPointer(ms.s, ms.addr).MemReadString()
	if err == nil {
		ms.addr += uint64(len(str) + 1)
	}
	return str, err
}

func (ms *memStream) ReadWideString() (string, error) {
	str, err := host.ToPointer(ms.s, ms.addr).MemReadWideString(-1)
	if err == nil {
		ms.addr += uint64(len(utf16.Encode([]rune(str)))+1) * 2
	}
	return str, err
}

func (ms *memStream) ReadStream() (encoding.Stream, error) {
	ptr, err := host.ToPointer(ms.s, ms.addr).MemReadPointer()
	if err != nil {
		return nil, err
	}
	ms.addr += ms.s.PtrSize
	return &memStream{s: ms.s, addr: ptr.Address()}, nil
}

func (ms *memStream) Write(b []byte) (int, error) {
	ms.s.Write(ms.addr, b)
	ms.addr += uint64(len(b))
	return len(b), nil
}

func (ms *memStream) WriteFloat(f float32) error {
	ms.s.WriteF32(ms.addr, f)
	ms.addr += 4
	return nil
}

func (ms *memStream) WriteDouble(d float64) error {
	ms.s.WriteU64(ms.addr, math.Float64bits(d))
	ms.addr += 8
	return nil
}

func (ms *memStream) WriteString(str string) error {
	_, err := ms.Write(append([]byte(str), 0))
	return err
}

func (ms *memStream) WriteWideString(str string) error {
	for _, u := range utf16.Encode([]rune(str)) {
		ms.s.WriteU16(ms.addr, u)
		ms.addr += 2
	}
	ms.s.WriteU16(ms.addr, 0)
	ms.addr += 2
	return nil
}

func (ms *memStream) WriteStream(size int) (encoding.Stream, error) {
	addr := ms.s.Alloc(uint64(size))
	ms.s.WritePointer(ms.addr, addr)
	ms.addr += ms.s.PtrSize
	return &memStream{s: ms.s, addr: addr}, nil
}

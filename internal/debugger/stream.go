package debugger

import (
	"errors"
	"math"
	"unicode/utf16"

	"github.com/wnxd/xamldbg/encoding"
	"github.com/wnxd/xamldbg/host"
)

var ErrReadOnly = errors.New("target memory is read only")

type pointerStream struct {
	ptr  host.Pointer
	size int
}

// PointerStream decodes target memory starting at ptr. Writes are rejected.
func PointerStream(ptr host.Pointer, size int) encoding.Stream {
	return &pointerStream{ptr, size}
}

func (ps *pointerStream) BlockSize() int {
	return ps.size
}

func (ps *pointerStream) Offset() uint64 {
	return ps.ptr.Address()
}

func (ps *pointerStream) Skip(n int) error {
	ps.ptr = ps.ptr.Add(uint64(n))
	return nil
}

func (ps *pointerStream) Read(b []byte) (int, error) {
	n, err := ps.ptr.ReadAt(b, 0)
	if err == nil {
		ps.Skip(n)
	}
	return n, err
}

func (ps *pointerStream) ReadFloat() (float32, error) {
	v, err := host.Read[uint32](ps.ptr)
	if err == nil {
		ps.Skip(4)
	}
	return math.Float32frombits(v), err
}

func (ps *pointerStream) ReadDouble() (float64, error) {
	v, err := host.Read[uint64](ps.ptr)
	if err == nil {
		ps.Skip(8)
	}
	return math.Float64frombits(v), err
}

func (ps *pointerStream) ReadString() (string, error) {
	str, err := ps.ptr.MemReadString()
	if err == nil {
		ps.Skip(len(str) + 1)
	}
	return str, err
}

func (ps *pointerStream) ReadWideString() (string, error) {
	str, err := ps.ptr.MemReadWideString(-1)
	if err == nil {
		ps.Skip((len(utf16.Encode([]rune(str))) + 1) * 2)
	}
	return str, err
}

func (ps *pointerStream) ReadStream() (encoding.Stream, error) {
	ptr, err := ps.ptr.MemReadPointer()
	if err != nil {
		return nil, err
	}
	ps.Skip(ps.size)
	return PointerStream(ptr, ps.size), nil
}

func (ps *pointerStream) Write([]byte) (int, error) {
	return 0, ErrReadOnly
}

func (ps *pointerStream) WriteFloat(float32) error {
	return ErrReadOnly
}

func (ps *pointerStream) WriteDouble(float64) error {
	return ErrReadOnly
}

func (ps *pointerStream) WriteString(string) error {
	return ErrReadOnly
}

func (ps *pointerStream) WriteWideString(string) error {
	return ErrReadOnly
}

func (ps *pointerStream) WriteStream(int) (encoding.Stream, error) {
	return nil, ErrReadOnly
}

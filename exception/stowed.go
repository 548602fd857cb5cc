package exception

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/wnxd/xamldbg/debugger"
)

const (
	SignatureV1 = 0x53453031 // 'SE01'
	SignatureV2 = 0x53453032 // 'SE02'

	NestedCLR    = 0x4C453031 // 'LE01'
	NestedXAML   = 0x58414D4C // 'XAML'
	NestedStowed = 0x53544F57 // 'STOW'
	NestedWin32  = 0x57333245 // 'W32E'
)

type stowedHeader struct {
	Size      uint32
	Signature uint32
}

type stowedV1 struct {
	Size               uint32
	Signature          uint32
	ResultCode         uint32
	FormThread         uint32
	ExceptionAddress   uintptr
	StackTraceWordSize uint32
	StackTraceWords    uint32
	StackTrace         uintptr
}

type stowedV2 struct {
	stowedV1
	NestedExceptionType uint32
	NestedException     uintptr
}

// Tag renders a four character code the way it reads in source.
func Tag(v uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return string(b[:])
}

// StowedArray decodes the array of stowed exception pointers a stowed exception
// record carries.
func (d *Decoder) StowedArray(array, count uint64) []*Report {
	if count == 0 {
		return nil
	}
	ptrs, err := d.dbg.ToPointer(array).MemReadPointers(min(count, maxStowedCount))
	if err != nil {
		return []*Report{unavailable(KindStowed, array, err)}
	}
	reports := make([]*Report, len(ptrs))
	for i, p := range ptrs {
		reports[i] = d.StowedAt(p.Address())
	}
	return reports
}

func (d *Decoder) StowedAt(addr uint64) *Report {
	return d.stowed(addr, 0)
}

func (d *Decoder) stowed(addr uint64, depth int) *Report {
	var hdr stowedHeader
	if err := d.dbg.MemExtract(addr, &hdr); err != nil {
		return unavailable(KindStowed, addr, err)
	}
	var v2 stowedV2
	switch hdr.Signature {
	case SignatureV1:
		if err := d.dbg.MemExtract(addr, &v2.stowedV1); err != nil {
			return unavailable(KindStowed, addr, err)
		}
	case SignatureV2:
		if err := d.dbg.MemExtract(addr, &v2); err != nil {
			return unavailable(KindStowed, addr, err)
		}
	default:
		return &Report{Kind: KindStowed, Addr: addr, Err: errors.Wrapf(ErrSignatureUnknown, "%#08x", hdr.Signature)}
	}
	r := &Report{
		Kind:      KindStowed,
		Addr:      addr,
		Signature: Tag(hdr.Signature),
		Form:      Form(v2.FormThread & 3),
		ThreadID:  v2.FormThread >> 2,
		HResult:   v2.ResultCode,
	}
	switch r.Form {
	case FormBinary:
		d.stowedStack(r, &v2.stowedV1)
	case FormText:
		text, err := d.dbg.ToPointer(uint64(v2.ExceptionAddress)).MemReadWideString(-1)
		if err != nil {
			text = debugger.Placeholder(err)
		}
		r.Message = text
	}
	if hdr.Signature == SignatureV2 && v2.NestedException != 0 {
		r.NestedType = Tag(v2.NestedExceptionType)
		r.Nested = d.nested(v2.NestedExceptionType, uint64(v2.NestedException), depth+1)
	}
	return r
}

func (d *Decoder) stowedStack(r *Report, v1 *stowedV1) {
	words := uint64(min(v1.StackTraceWords, maxStackWords))
	if words == 0 || v1.StackTrace == 0 {
		if v1.ExceptionAddress != 0 {
			d.withStack(r, []uint64{uint64(v1.ExceptionAddress)})
		}
		return
	}
	size := uint64(v1.StackTraceWordSize)
	if size != 4 && size != 8 {
		size = d.dbg.PointerSize()
	}
	addrs, err := d.dbg.ToPointer(uint64(v1.StackTrace)).MemReadWords(words, size)
	if err != nil {
		r.Err = err
	}
	d.withStack(r, addrs)
}

func (d *Decoder) nested(tag uint32, addr uint64, depth int) *Report {
	if depth > d.MaxDepth {
		return unavailable(KindStowed, addr, ErrNestingTooDeep)
	}
	switch tag {
	case NestedCLR:
		return d.clrReport(addr, depth)
	case NestedXAML:
		return d.errorContextAt(addr)
	case NestedStowed:
		return d.stowed(addr, depth)
	case NestedWin32:
		return d.win32(addr, depth)
	}
	return &Report{Addr: addr, Err: errors.Wrapf(ErrSignatureUnknown, "nested %s", Tag(tag))}
}

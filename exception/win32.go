package exception

import (
	"fmt"
	"strings"

	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/layout"
)

const EXCEPTION_MAXIMUM_PARAMETERS = 15

// ExceptionRecord mirrors EXCEPTION_RECORD for the target pointer size.
type ExceptionRecord struct {
	Code       uint32
	Flags      uint32
	Record     uint64
	Address    uint64
	Parameters []uint64
}

func (d *Decoder) readExceptionRecord(addr uint64) (*ExceptionRecord, error) {
	p := d.dbg.ToPointer(addr)
	ptrSize := d.dbg.PointerSize()
	code, err := host.Read[uint32](p)
	if err != nil {
		return nil, err
	}
	rec := &ExceptionRecord{Code: code}
	if rec.Flags, err = host.Read[uint32](p.Add(4)); err != nil {
		return nil, err
	}
	ptrs, err := p.Add(8).MemReadPointers(2)
	if err != nil {
		return nil, err
	}
	rec.Record, rec.Address = ptrs[0].Address(), ptrs[1].Address()
	count, err := host.Read[uint32](p.Add(8 + 2*ptrSize))
	if err != nil {
		return nil, err
	}
	count = min(count, EXCEPTION_MAXIMUM_PARAMETERS)
	if count == 0 {
		return rec, nil
	}
	params, err := p.Add(layout.Align(12+2*ptrSize, ptrSize)).MemReadPointers(uint64(count))
	if err != nil {
		return nil, err
	}
	for _, param := range params {
		rec.Parameters = append(rec.Parameters, param.Address())
	}
	return rec, nil
}

func (d *Decoder) win32(addr uint64, depth int) *Report {
	rec, err := d.readExceptionRecord(addr)
	if err != nil {
		return unavailable(KindWin32, addr, err)
	}
	r := d.withStack(&Report{Kind: KindWin32, Addr: addr, HResult: rec.Code}, []uint64{rec.Address})
	if len(rec.Parameters) > 0 {
		params := make([]string, len(rec.Parameters))
		for i, v := range rec.Parameters {
			params[i] = fmt.Sprintf("%#x", v)
		}
		r.Message = "parameters: " + strings.Join(params, " ")
	}
	if rec.Record != 0 {
		r.NestedType = "EXCEPTION_RECORD"
		r.Nested = d.nestedWin32(rec.Record, depth+1)
	}
	return r
}

func (d *Decoder) nestedWin32(addr uint64, depth int) *Report {
	if depth > d.MaxDepth {
		return unavailable(KindWin32, addr, ErrNestingTooDeep)
	}
	return d.win32(addr, depth)
}

// Win32 decodes an EXCEPTION_RECORD and the records chained to it.
func (d *Decoder) Win32(addr uint64) *Report {
	return d.win32(addr, 0)
}

// Record reports an exception record the host already decoded.
func (d *Decoder) Record(rec *host.ExceptionRecord) *Report {
	r := d.withStack(&Report{Kind: KindWin32, Addr: rec.Address, HResult: rec.Code}, []uint64{rec.Address})
	if len(rec.Params) > 0 {
		params := make([]string, len(rec.Params))
		for i, v := range rec.Params {
			params[i] = fmt.Sprintf("%#x", v)
		}
		r.Message = "parameters: " + strings.Join(params, " ")
	}
	return r
}

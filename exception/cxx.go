package exception

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
)

const (
	HResultErrorMagic = 0xAABBCCDD
	// CxxExceptionCode is the code MSVC raises for a C++ throw.
	CxxExceptionCode = 0xE06D7363
	maxThrowFrames   = 16
)

const (
	ThrowHResult      = "winrt::throw_hresult"
	HResultErrorCtor  = "winrt::hresult_error::hresult_error"
	CxxThrowException = "_CxxThrowException"
	RaiseException    = "RaiseException"
)

// ThrowFrames is checked in order against each frame; the first match wins.
var ThrowFrames = []string{ThrowHResult, HResultErrorCtor, CxxThrowException, RaiseException}

type Thrown struct {
	Entry string
	Frame host.Frame
}

// FindThrown scans the top frames for a known throw entry point.
func FindThrown(frames []host.Frame) (Thrown, bool) {
	for _, frame := range frames[:min(len(frames), maxThrowFrames)] {
		for _, entry := range ThrowFrames {
			if strings.Contains(frame.Name, entry) {
				return Thrown{Entry: entry, Frame: frame}, true
			}
		}
	}
	return Thrown{}, false
}

// Thrown decodes the exception being thrown on th, found through its throw
// frame. The object pointer is the frame's first parameter.
func (d *Decoder) Thrown(th host.Thread) (*Report, error) {
	frames, err := th.Frames()
	if err != nil {
		return nil, err
	}
	thrown, ok := FindThrown(frames)
	if !ok {
		return nil, ErrNoThrowFrame
	}
	if len(thrown.Frame.Params) == 0 {
		return nil, errors.Wrapf(ErrNoThrowFrame, "%s has no parameters", thrown.Frame.Name)
	}
	arg := thrown.Frame.Params[0]
	var r *Report
	switch thrown.Entry {
	case ThrowHResult:
		r = &Report{Kind: KindHResultError, HResult: uint32(arg)}
	case HResultErrorCtor:
		r = d.HResultError(arg)
	case CxxThrowException:
		r = d.thrownObject(arg)
	case RaiseException:
		r = d.raised(thrown.Frame)
	}
	if len(r.Stack) == 0 {
		r.Stack = make([]Frame, len(frames))
		for i, frame := range frames {
			r.Stack[i] = Frame{Addr: frame.InstructionOffset, Name: frame.Name}
		}
		r.Blame, _ = Blame(r.Stack)
	}
	return r, nil
}

// thrownObject decodes a C++ exception object, preferring hresult_error.
func (d *Decoder) thrownObject(addr uint64) *Report {
	r := d.HResultError(addr)
	if r.Err != nil {
		r = d.Cxx(addr)
	}
	return r
}

// raised handles RaiseException(code, flags, count, arguments). A C++ throw
// carries the object in arguments[1]; a stowed exception keeps the array and
// count in arguments[0] and arguments[1].
func (d *Decoder) raised(frame host.Frame) *Report {
	r := &Report{Kind: KindWin32, HResult: uint32(frame.Params[0])}
	if len(frame.Params) < 4 {
		return r
	}
	switch r.HResult {
	case CxxExceptionCode, host.STATUS_STOWED_EXCEPTION:
	default:
		return r
	}
	args, err := d.dbg.ToPointer(frame.Params[3]).MemReadPointers(2)
	if err != nil {
		r.Err = err
		return r
	}
	if r.HResult == CxxExceptionCode {
		return d.thrownObject(args[1].Address())
	}
	stowed := d.StowedArray(args[0].Address(), args[1].Address())
	if len(stowed) > 0 {
		r.NestedType = "STOW"
		r.Nested = stowed[0]
	}
	return r
}

// HResultError decodes a C++/WinRT hresult_error, recognised by its debug
// magic.
func (d *Decoder) HResultError(addr uint64) *Report {
	p := d.dbg.ToPointer(addr)
	magic, err := host.Read[uint32](p)
	if err != nil {
		return unavailable(KindHResultError, addr, err)
	}
	if magic != HResultErrorMagic {
		return &Report{Kind: KindHResultError, Addr: addr, Err: errors.Wrapf(ErrNotException, "magic %#08x", magic)}
	}
	r := &Report{Kind: KindHResultError, Addr: addr}
	if r.HResult, err = host.Read[uint32](p.Add(4)); err != nil {
		return unavailable(KindHResultError, addr, err)
	}
	info, err := p.Add(8).MemReadPointer()
	if err != nil {
		r.Err = err
		return r
	}
	if !info.IsNil() {
		r.NestedType = "IRestrictedErrorInfo"
		r.Nested = d.restricted(info.Address(), 1)
		if r.Message == "" && r.Nested.Err == nil {
			r.Message = r.Nested.Message
		}
		r.Stack = r.Nested.Stack
		r.Blame = r.Nested.Blame
	}
	return r
}

// Cxx decodes a native C++ exception object typed from its vtable, reading
// std::exception::what when the object carries one.
func (d *Decoder) Cxx(addr uint64) *Report {
	typ, ok := d.infer.InferType(addr, true)
	if !ok {
		return &Report{Kind: KindCxx, Addr: addr, Err: debugger.ErrTypeInferenceFailed}
	}
	r := &Report{Kind: KindCxx, Addr: addr, Type: typ.String()}
	what, err := d.dbg.ToPointer(addr).Add(d.dbg.PointerSize()).MemReadPointer()
	if err != nil || what.IsNil() {
		return r
	}
	msg, err := what.MemReadString()
	if err != nil {
		r.Message = debugger.Placeholder(err)
	} else {
		r.Message = msg
	}
	return r
}

package exception

import (
	"github.com/wnxd/xamldbg/debugger"
)

const (
	RestrictedModule = "combase"
	RestrictedType   = "CRestrictedError"
)

// Restricted decodes a combase restricted error object.
func (d *Decoder) Restricted(addr uint64) *Report {
	return d.restricted(addr, 0)
}

func (d *Decoder) restricted(addr uint64, depth int) *Report {
	obj, err := d.dbg.Typed(addr, RestrictedModule, RestrictedType)
	if err != nil {
		return unavailable(KindRestricted, addr, err)
	}
	if !obj.Readable() {
		return unavailable(KindRestricted, addr, debugger.ErrMemoryUnavailable)
	}
	r := &Report{Kind: KindRestricted, Addr: addr}
	if r.HResult, err = debugger.Field[uint32](obj, "HResult"); err != nil {
		return unavailable(KindRestricted, addr, err)
	}
	for _, field := range []string{"RestrictedDescription", "Description"} {
		if text := d.bstr(obj, field); text != "" {
			r.Message = text
			break
		}
	}
	if sid := d.bstr(obj, "CapabilitySid"); sid != "" {
		r.Message += " [capability " + sid + "]"
	}
	if count, err := debugger.Field[uint32](obj, "FrameCount"); err == nil && count > 0 {
		var addrs []uint64
		frames, err := obj.ReadPointer("Frames")
		if err == nil {
			addrs, err = frames.MemReadWords(uint64(min(count, maxStackWords)), d.dbg.PointerSize())
		}
		if err != nil {
			r.Err = err
		}
		d.withStack(r, addrs)
	}
	if lang, err := obj.ReadPointer("LanguageException"); err == nil && !lang.IsNil() {
		r.NestedType = "LanguageException"
		if depth+1 > d.MaxDepth {
			r.Nested = unavailable(KindCLR, lang.Address(), ErrNestingTooDeep)
		} else {
			r.Nested = d.clrReport(lang.Address(), depth+1)
		}
	}
	return r
}

func (d *Decoder) bstr(obj debugger.TypedAddress, field string) string {
	p, err := obj.ReadPointer(field)
	if err != nil {
		return debugger.Placeholder(err)
	}
	if p.IsNil() {
		return ""
	}
	text, err := p.MemReadWideString(-1)
	if err != nil {
		return debugger.Placeholder(err)
	}
	return text
}

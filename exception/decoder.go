package exception

import (
	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/infer"
	"github.com/wnxd/xamldbg/model"
)

const (
	DefaultMaxDepth = 8
	maxStackWords   = 512
	maxStowedCount  = 256
)

// Decoder turns exception state in target memory into reports. Every decode
// returns a report; read failures are recorded on it instead of returned.
type Decoder struct {
	dbg      debugger.Debugger
	target   *model.Target
	infer    *infer.Engine
	MaxDepth int
}

// NewDecoder accepts a nil target when no framework module is loaded; the
// framework error context branch then reports it as unavailable.
func NewDecoder(dbg debugger.Debugger, target *model.Target) *Decoder {
	return &Decoder{dbg: dbg, target: target, infer: infer.New(dbg), MaxDepth: DefaultMaxDepth}
}

func (d *Decoder) frames(addrs []uint64) []Frame {
	frames := make([]Frame, len(addrs))
	for i, addr := range addrs {
		frames[i] = Frame{Addr: addr, Name: d.dbg.SymbolName(addr)}
	}
	return frames
}

func (d *Decoder) withStack(r *Report, addrs []uint64) *Report {
	r.Stack = d.frames(addrs)
	r.Blame, _ = Blame(r.Stack)
	return r
}

// ErrorContext reports a framework error context node.
func (d *Decoder) ErrorContext(c *model.ErrorContext) *Report {
	if c.Err != nil {
		return unavailable(KindErrorContext, c.Addr, c.Err)
	}
	return d.withStack(&Report{Kind: KindErrorContext, Addr: c.Addr, HResult: c.ResultCode}, c.Frames)
}

func (d *Decoder) errorContextAt(addr uint64) *Report {
	if d.target == nil {
		return unavailable(KindErrorContext, addr, debugger.ErrFrameworkNotLoaded)
	}
	c, _ := model.NewErrorContext(d.target, addr)
	return d.ErrorContext(c)
}

// Stowed collects the stowed exceptions of th. A stowed exception record wins;
// otherwise the framework error context list is used, each node reporting the
// stowed exception it references or itself.
func (d *Decoder) Stowed(th host.Thread) []*Report {
	if rec, err := th.LastException(); err == nil && rec.IsStowed() && len(rec.Params) >= 2 {
		return d.StowedArray(rec.Params[0], rec.Params[1])
	}
	if d.target == nil {
		return nil
	}
	var reports []*Report
	for c := range model.ThreadErrorContexts(d.target, th) {
		if c.Err == nil && c.Stowed != 0 {
			reports = append(reports, d.StowedAt(c.Stowed))
			continue
		}
		reports = append(reports, d.ErrorContext(c))
	}
	return reports
}

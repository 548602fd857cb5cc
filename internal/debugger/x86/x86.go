package x86

import (
	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
	internal "github.com/wnxd/xamldbg/internal/debugger"
)

const (
	POINTER_SIZE            = 4
	TEB_TLS_SLOTS           = 0x0E10
	TEB_TLS_EXPANSION_SLOTS = 0x0F94
)

type X86Dbg struct {
	internal.Dbg
}

func NewX86Debugger(h host.Host, opts debugger.Options) (debugger.Debugger, error) {
	dbg := new(X86Dbg)
	err := dbg.Init(dbg, h, opts)
	if err != nil {
		return nil, err
	}
	return dbg, nil
}

func (dbg *X86Dbg) PointerSize() uint64 {
	return POINTER_SIZE
}

func (dbg *X86Dbg) TLSSlotsOffset() uint64 {
	return TEB_TLS_SLOTS
}

func (dbg *X86Dbg) TLSExpansionSlotsOffset() uint64 {
	return TEB_TLS_EXPANSION_SLOTS
}

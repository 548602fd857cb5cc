package amd64

import (
	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
	internal "github.com/wnxd/xamldbg/internal/debugger"
)

const (
	POINTER_SIZE            = 8
	TEB_TLS_SLOTS           = 0x1480
	TEB_TLS_EXPANSION_SLOTS = 0x1780
)

type Amd64Dbg struct {
	internal.Dbg
}

func NewAmd64Debugger(h host.Host, opts debugger.Options) (debugger.Debugger, error) {
	dbg := new(Amd64Dbg)
	err := dbg.Init(dbg, h, opts)
	if err != nil {
		return nil, err
	}
	return dbg, nil
}

func (dbg *Amd64Dbg) PointerSize() uint64 {
	return POINTER_SIZE
}

func (dbg *Amd64Dbg) TLSSlotsOffset() uint64 {
	return TEB_TLS_SLOTS
}

func (dbg *Amd64Dbg) TLSExpansionSlotsOffset() uint64 {
	return TEB_TLS_EXPANSION_SLOTS
}

package debugger

import (
	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
)

type Debugger interface {
	debugger.Debugger
	TLSSlotsOffset() uint64
	TLSExpansionSlotsOffset() uint64
}

type Dbg struct {
	impl Debugger
	h    host.Host
	opts debugger.Options
	memoryManager
	moduleManager
	symbolManager
	threadManager
}

func (dbg *Dbg) Init(impl Debugger, h host.Host, opts debugger.Options) error {
	dbg.impl = impl
	dbg.h = h
	dbg.opts = opts
	dbg.memoryManager.ctor(impl)
	if err := dbg.moduleManager.ctor(impl, h, opts); err != nil {
		return err
	}
	if err := dbg.symbolManager.ctor(impl, h, opts); err != nil {
		return err
	}
	dbg.threadManager.ctor(impl, h)
	return nil
}

func (dbg *Dbg) Host() host.Host {
	return dbg.h
}

func (dbg *Dbg) PointerSize() uint64 {
	return dbg.h.PointerSize()
}

func (dbg *Dbg) ToPointer(addr uint64) host.Pointer {
	return host.ToPointer(dbg.h, addr)
}

package debugger

import (
	"github.com/pkg/errors"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
)

const (
	TLS_MINIMUM_AVAILABLE   = 64
	TLS_EXPANSION_AVAILABLE = 1024
)

type threadManager struct {
	dbg Debugger
	h   host.Host
}

func (tm *threadManager) ctor(dbg Debugger, h host.Host) {
	tm.dbg = dbg
	tm.h = h
}

func (tm *threadManager) Threads() ([]host.Thread, error) {
	return tm.h.Threads()
}

func (tm *threadManager) CurrentThread() (host.Thread, error) {
	return tm.h.CurrentThread()
}

// TLSSlot returns the location of slot index in the thread's TEB. The first 64
// slots live inline; the rest live in the lazily allocated expansion array.
func (tm *threadManager) TLSSlot(th host.Thread, index uint32) (host.Pointer, error) {
	teb := tm.dbg.ToPointer(th.TEB())
	ptrSize := tm.dbg.PointerSize()
	switch {
	case index < TLS_MINIMUM_AVAILABLE:
		return teb.Add(tm.dbg.TLSSlotsOffset()).Index(uint64(index), ptrSize), nil
	case index < TLS_MINIMUM_AVAILABLE+TLS_EXPANSION_AVAILABLE:
		expansion, err := teb.Add(tm.dbg.TLSExpansionSlotsOffset()).MemReadPointer()
		if err != nil {
			return host.Pointer{}, err
		}
		if expansion.IsNil() {
			return host.Pointer{}, errors.Wrapf(debugger.ErrTLSExpansionUnavailable, "thread %d", th.ID())
		}
		return expansion.Index(uint64(index-TLS_MINIMUM_AVAILABLE), ptrSize), nil
	}
	return host.Pointer{}, errors.Wrapf(debugger.ErrArgumentInvalid, "tls index %d", index)
}

func (tm *threadManager) TLSValue(th host.Thread, index uint32) (host.Pointer, error) {
	slot, err := tm.TLSSlot(th, index)
	if err != nil {
		return host.Pointer{}, err
	}
	return slot.MemReadPointer()
}

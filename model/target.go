package model

import (
	"github.com/pkg/errors"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/infer"
	"github.com/wnxd/xamldbg/layout"
)

// Target binds the wrappers to one debugger session and its framework module.
type Target struct {
	Dbg    debugger.Debugger
	Infer  *infer.Engine
	Module debugger.Module
	Table  *layout.Table
}

func NewTarget(dbg debugger.Debugger) (*Target, error) {
	module, err := dbg.Framework()
	if err != nil {
		return nil, err
	}
	table, err := module.Table()
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", module.Name(), module.Version())
	}
	return &Target{Dbg: dbg, Infer: infer.New(dbg), Module: module, Table: table}, nil
}

func (t *Target) Name() string {
	return t.Module.Name()
}

func (t *Target) Typed(addr uint64, typ string) (debugger.TypedAddress, error) {
	return t.Dbg.Typed(addr, t.Module.Name(), typ)
}

// Global returns the address of a metadata global named in the layout table.
func (t *Target) Global(name string) (host.Pointer, error) {
	sym, ok := t.Table.Globals[name]
	if !ok {
		return host.Pointer{}, &debugger.SymbolUnavailableError{Module: t.Name(), Symbol: name}
	}
	addr, err := t.Module.FindSymbol(sym)
	if err != nil {
		return host.Pointer{}, err
	}
	return t.Dbg.ToPointer(addr), nil
}

// TLSIndex reads the TLS slot index the framework allocated for name.
func (t *Target) TLSIndex(name string) (uint32, error) {
	sym, ok := t.Table.TLS[name]
	if !ok {
		return 0, &debugger.SymbolUnavailableError{Module: t.Name(), Symbol: name}
	}
	addr, err := t.Module.FindSymbol(sym)
	if err != nil {
		return 0, err
	}
	if addr == 0 {
		return 0, errors.Wrapf(debugger.ErrSymbolUnavailable, "%s is null", sym)
	}
	return host.Read[uint32](t.Dbg.ToPointer(addr))
}

// TLSValue reads the framework's per-thread pointer stored under name.
func (t *Target) TLSValue(th host.Thread, name string) (host.Pointer, error) {
	index, err := t.TLSIndex(name)
	if err != nil {
		return host.Pointer{}, err
	}
	return t.Dbg.TLSValue(th, index)
}

const maxVectorLength = 0x10000

// Vector reads the element pointers of an xvector embedded at field.
func (t *Target) Vector(ta debugger.TypedAddress, field string) ([]host.Pointer, error) {
	vec, err := ta.Embedded(field, "xvector")
	if err != nil {
		return nil, err
	}
	return t.vector(vec)
}

func (t *Target) vector(vec debugger.TypedAddress) ([]host.Pointer, error) {
	count, err := debugger.Field[uint32](vec, "Count")
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	data, err := vec.ReadPointer("Data")
	if err != nil {
		return nil, err
	}
	return data.MemReadPointers(uint64(min(count, maxVectorLength)))
}

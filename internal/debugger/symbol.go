package debugger

import (
	"maps"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/layout"
)

type symbolManager struct {
	dbg   Debugger
	h     host.Host
	names *lru.Cache[uint64, string]
}

func (sm *symbolManager) ctor(dbg Debugger, h host.Host, opts debugger.Options) error {
	cache, err := lru.New[uint64, string](opts.SymbolCacheSize)
	if err != nil {
		return err
	}
	sm.dbg = dbg
	sm.h = h
	sm.names = cache
	return nil
}

// FindSymbol resolves module!name. A symbol that exists with the value zero is
// returned without error.
func (sm *symbolManager) FindSymbol(module, name string) (uint64, error) {
	m, err := sm.dbg.FindModule(module)
	if err != nil {
		return 0, &debugger.SymbolUnavailableError{Module: module, Symbol: name}
	}
	return m.FindSymbol(name)
}

// SymbolName returns the "module!symbol+0xoffset" form of addr, or an empty
// string when the host cannot name it.
func (sm *symbolManager) SymbolName(addr uint64) string {
	if name, ok := sm.names.Get(addr); ok {
		return name
	}
	name, err := sm.h.SymbolName(addr)
	if err != nil {
		name = ""
	}
	sm.names.Add(addr, name)
	return name
}

func (sm *symbolManager) EnumName(module, enum string, value uint64) (string, error) {
	if !sm.h.SymbolsLoaded(module) {
		return "", &debugger.SymbolUnavailableError{Module: module}
	}
	name, err := sm.h.EnumName(module, enum, value)
	if err != nil {
		return "", errors.Wrapf(&debugger.SymbolUnavailableError{Module: module, Symbol: enum}, "value %d", value)
	}
	return name, nil
}

// Layout prefers the host's type information and falls back to the versioned
// table of the module. Array lengths and kinds always come from the table.
func (sm *symbolManager) Layout(module, typ string) (*layout.Resolved, error) {
	var table *layout.Table
	if m, err := sm.dbg.FindModule(module); err == nil {
		table, _ = m.Table()
	}
	var fromTable *layout.Resolved
	if table != nil && table.HasType(typ) {
		r, err := table.Resolve(typ, sm.dbg.PointerSize())
		if err != nil {
			return nil, err
		}
		fromTable = r
	}
	if sm.h.SymbolsLoaded(module) {
		if tl, err := sm.h.TypeLayout(module, typ); err == nil {
			return mergeLayout(tl, fromTable), nil
		}
	}
	if fromTable != nil {
		return fromTable, nil
	}
	return nil, &debugger.SymbolUnavailableError{Module: module, Symbol: typ}
}

func (sm *symbolManager) Typed(addr uint64, module, typ string) (debugger.TypedAddress, error) {
	l, err := sm.dbg.Layout(module, typ)
	if err != nil {
		return debugger.TypedAddress{}, err
	}
	return debugger.NewTypedAddress(sm.dbg, addr, module, typ, l), nil
}

func mergeLayout(tl host.TypeLayout, table *layout.Resolved) *layout.Resolved {
	r := &layout.Resolved{Name: tl.Name, Size: tl.Size, Align: 1, Members: make(map[string]layout.Member, len(tl.Fields))}
	if r.Name == "" && table != nil {
		r.Name = table.Name
	}
	if table != nil {
		r.Align = table.Align
		if r.Size == 0 {
			r.Size = table.Size
		}
		maps.Copy(r.Members, table.Members)
	}
	for name, off := range tl.Fields {
		m := r.Members[name]
		m.Offset = off
		r.Members[name] = m
	}
	return r
}

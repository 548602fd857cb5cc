package debugger

import (
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/layout"
)

type module struct {
	info   host.ModuleInfo
	h      host.Host
	layout *layout.Registry

	once  sync.Once
	table *layout.Table
	err   error
}

type moduleManager struct {
	dbg       Debugger
	h         host.Host
	layouts   *layout.Registry
	preferred string
}

func (m *module) Name() string {
	return m.info.Name
}

func (m *module) Version() string {
	return m.info.Version
}

func (m *module) Region() (uint64, uint64) {
	return m.info.Base, m.info.Size
}

func (m *module) BaseAddr() uint64 {
	return m.info.Base
}

func (m *module) SymbolsLoaded() bool {
	return m.h.SymbolsLoaded(m.info.Name)
}

func (m *module) FindSymbol(name string) (uint64, error) {
	if !m.SymbolsLoaded() {
		return 0, &debugger.SymbolUnavailableError{Module: m.info.Name}
	}
	addr, err := m.h.SymbolAddress(m.info.Name, name)
	if err != nil {
		return 0, &debugger.SymbolUnavailableError{Module: m.info.Name, Symbol: name}
	}
	return addr, nil
}

func (m *module) Table() (*layout.Table, error) {
	m.once.Do(func() {
		m.table, m.err = m.layout.Select(m.info.Name, m.info.Version)
	})
	return m.table, m.err
}

func (mm *moduleManager) ctor(dbg Debugger, h host.Host, opts debugger.Options) error {
	mm.dbg = dbg
	mm.h = h
	mm.layouts = opts.Layouts
	mm.preferred = opts.Framework
	return nil
}

// Modules rebuilds the module list from the host on every call.
func (mm *moduleManager) Modules() []debugger.Module {
	infos, err := mm.h.Modules()
	if err != nil {
		return nil
	}
	modules := make([]debugger.Module, len(infos))
	for i, info := range infos {
		modules[i] = &module{info: info, h: mm.h, layout: mm.layouts}
	}
	return modules
}

func (mm *moduleManager) FindModule(name string) (debugger.Module, error) {
	for _, module := range mm.Modules() {
		if strings.EqualFold(module.Name(), name) {
			return module, nil
		}
	}
	return nil, errors.Wrap(debugger.ErrModuleNotFound, name)
}

func (mm *moduleManager) FindModuleByAddr(addr uint64) (debugger.Module, error) {
	for _, module := range mm.Modules() {
		begin, size := module.Region()
		if addr >= begin && addr < begin+size {
			return module, nil
		}
	}
	return nil, errors.Wrapf(debugger.ErrModuleNotFound, "%#x", addr)
}

// Framework picks the loaded XAML framework module. When both the system and a
// packaged build are present the configured preference decides.
func (mm *moduleManager) Framework() (debugger.Module, error) {
	known := mm.layouts.FrameworkModules()
	var candidates []debugger.Module
	for _, module := range mm.Modules() {
		if slices.ContainsFunc(known, func(name string) bool { return strings.EqualFold(name, module.Name()) }) {
			candidates = append(candidates, module)
		}
	}
	if mm.preferred != "" {
		for _, module := range candidates {
			if strings.EqualFold(module.Name(), mm.preferred) {
				return module, nil
			}
		}
		return nil, errors.Wrap(debugger.ErrFrameworkNotLoaded, mm.preferred)
	}
	switch len(candidates) {
	case 0:
		return nil, debugger.ErrFrameworkNotLoaded
	case 1:
		return candidates[0], nil
	}
	names := make([]string, len(candidates))
	for i, module := range candidates {
		names[i] = module.Name()
	}
	return nil, &debugger.AmbiguousModuleError{Candidates: names}
}

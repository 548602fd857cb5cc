package debugger

import (
	"github.com/wnxd/xamldbg/layout"
)

type Module interface {
	Name() string
	Version() string
	Region() (uint64, uint64)
	BaseAddr() uint64
	SymbolsLoaded() bool
	FindSymbol(name string) (uint64, error)
	Table() (*layout.Table, error)
}

type ModuleManager interface {
	Modules() []Module
	FindModule(name string) (Module, error)
	FindModuleByAddr(addr uint64) (Module, error)
	Framework() (Module, error)
}

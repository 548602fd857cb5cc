package debugger

import (
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/layout"
)

type Debugger interface {
	Host() host.Host
	PointerSize() uint64
	ToPointer(addr uint64) host.Pointer
	MemExtract(addr uint64, val any) error
	ModuleManager
	SymbolManager
	ThreadManager
}

type SymbolManager interface {
	FindSymbol(module, name string) (uint64, error)
	SymbolName(addr uint64) string
	EnumName(module, enum string, value uint64) (string, error)
	Layout(module, typ string) (*layout.Resolved, error)
	Typed(addr uint64, module, typ string) (TypedAddress, error)
}

type ThreadManager interface {
	Threads() ([]host.Thread, error)
	CurrentThread() (host.Thread, error)
	TLSSlot(th host.Thread, index uint32) (host.Pointer, error)
	TLSValue(th host.Thread, index uint32) (host.Pointer, error)
}

type Options struct {
	Framework       string
	Layouts         *layout.Registry
	SymbolCacheSize int
}

type Option func(*Options)

func WithFramework(name string) Option {
	return func(o *Options) {
		o.Framework = name
	}
}

func WithLayouts(reg *layout.Registry) Option {
	return func(o *Options) {
		o.Layouts = reg
	}
}

func WithSymbolCacheSize(size int) Option {
	return func(o *Options) {
		o.SymbolCacheSize = size
	}
}

func New(h host.Host, opts ...Option) (Debugger, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.Layouts == nil {
		reg, err := layout.Default()
		if err != nil {
			return nil, err
		}
		o.Layouts = reg
	}
	if o.SymbolCacheSize <= 0 {
		o.SymbolCacheSize = 4096
	}
	if ctor, ok := dbgMap[h.PointerSize()]; ok {
		return ctor(h, o)
	}
	return nil, ErrPointerSizeUnsupported
}

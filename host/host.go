package host

type Host interface {
	PointerSize() uint64
	MemRead(addr, size uint64) ([]byte, error)
	Modules() ([]ModuleInfo, error)
	Threads() ([]Thread, error)
	CurrentThread() (Thread, error)
	Symbols
	CommandRunner
}

// Symbols is the host's symbol provider. Names returned by SymbolName use the
// debugger convention "module!symbol+0xoffset".
type Symbols interface {
	SymbolsLoaded(module string) bool
	SymbolName(addr uint64) (string, error)
	SymbolAddress(module, name string) (uint64, error)
	TypeLayout(module, typ string) (TypeLayout, error)
	EnumName(module, enum string, value uint64) (string, error)
}

type CommandRunner interface {
	Execute(command string) ([]string, error)
}

type ModuleInfo struct {
	Name    string
	Path    string
	Version string
	Base    uint64
	Size    uint64
}

type TypeLayout struct {
	Name   string
	Size   uint64
	Fields map[string]uint64
}

func (mi ModuleInfo) Contains(addr uint64) bool {
	return addr >= mi.Base && addr < mi.Base+mi.Size
}

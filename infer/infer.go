package infer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"

	"github.com/wnxd/xamldbg/debugger"
)

const (
	VTableMarker  = "::`vftable'"
	ManagedModule = "CLR"
)

var offsetSuffix = regexp.MustCompile(`\+0x[0-9a-fA-F]+$`)

// Type is the runtime type found for an address.
type Type struct {
	Module  string
	Class   string
	Managed bool
	VTable  uint64
}

type Engine struct {
	dbg debugger.Debugger
}

func New(dbg debugger.Debugger) *Engine {
	return &Engine{dbg: dbg}
}

func (t Type) String() string {
	if t.Module == "" {
		return t.Class
	}
	return t.Module + "!" + t.Class
}

// InferType identifies the object at addr from its vtable symbol, then from the
// managed heap. With requireCodePointer set nothing short of those two is
// accepted.
func (e *Engine) InferType(addr uint64, requireCodePointer bool) (Type, bool) {
	vtbl, err := e.dbg.ToPointer(addr).MemReadPointer()
	if err != nil {
		log.WithField("addr", fmt.Sprintf("%#x", addr)).Debug("infer: first pointer unreadable")
		return Type{}, false
	}
	sym := e.dumpSymbol(addr, vtbl.Address())
	if typ, ok := ParseVTable(sym); ok {
		typ.VTable = vtbl.Address()
		return typ, true
	}
	if name, ok := e.ManagedName(addr); ok {
		return Type{Module: ManagedModule, Class: name, Managed: true, VTable: vtbl.Address()}, true
	}
	if requireCodePointer {
		return Type{}, false
	}
	if _, err := e.dbg.FindModuleByAddr(vtbl.Address()); err != nil {
		return Type{}, false
	}
	module, class, ok := splitSymbol(offsetSuffix.ReplaceAllString(sym, ""))
	if !ok || class == "" {
		return Type{}, false
	}
	return Type{Module: module, Class: class, VTable: vtbl.Address()}, true
}

// dumpSymbol names the pointer stored at addr through the host's dump command.
// The first run may print lazy symbol load chatter, so only the second output is
// trusted.
func (e *Engine) dumpSymbol(addr, value uint64) string {
	cmd := fmt.Sprintf("dps %#x L1", addr)
	if _, err := e.dbg.Host().Execute(cmd); err != nil {
		return e.dbg.SymbolName(value)
	}
	lines, err := e.dbg.Host().Execute(cmd)
	if err != nil {
		return e.dbg.SymbolName(value)
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		if v, ok := parseHex(fields[0]); !ok || v != addr {
			continue
		}
		return strings.Join(fields[2:], " ")
	}
	return ""
}

// ManagedName asks the host's managed heap dump for the type of addr.
func (e *Engine) ManagedName(addr uint64) (string, bool) {
	lines, err := e.dbg.Host().Execute(fmt.Sprintf("!dumpobj -nofields %#x", addr))
	if err != nil {
		return "", false
	}
	for _, line := range lines {
		if name, ok := strings.CutPrefix(strings.TrimSpace(line), "Name:"); ok {
			name = strings.TrimSpace(name)
			return name, name != ""
		}
	}
	return "", false
}

// ParseVTable extracts module and class from a "module!Class::`vftable'" symbol.
func ParseVTable(sym string) (Type, bool) {
	i := strings.Index(sym, VTableMarker)
	if i <= 0 {
		return Type{}, false
	}
	module, class, _ := splitSymbol(sym[:i])
	return Type{Module: module, Class: class}, class != ""
}

func splitSymbol(sym string) (module, name string, ok bool) {
	module, name, ok = strings.Cut(sym, "!")
	if !ok {
		return "", sym, false
	}
	return module, name, true
}

func parseHex(s string) (uint64, bool) {
	s = strings.TrimPrefix(strings.ReplaceAll(s, "`", ""), "0x")
	v, err := strconv.ParseUint(s, 16, 64)
	return v, err == nil
}

// Package xamltest builds synthetic framework targets on top of a snapshot,
// laying structures out with the same tables the wrappers read them with.
package xamltest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wnxd/xamldbg/debugger"
	_ "github.com/wnxd/xamldbg/debugger/amd64"
	_ "github.com/wnxd/xamldbg/debugger/x86"
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/host/snapshot"
	"github.com/wnxd/xamldbg/layout"
)

const (
	Framework  = "Microsoft_UI_Xaml"
	Version    = "3.1.5.0"
	ModuleBase = 0x60000000
	ModuleSize = 0x100000
)

type Fixture struct {
	tb     testing.TB
	Snap   *snapshot.Snapshot
	Module *snapshot.Module
	Table  *layout.Table
	next   uint64
	tls    uint32
}

func New(tb testing.TB, ptrSize uint64) *Fixture {
	reg, err := layout.Default()
	require.NoError(tb, err)
	table, err := reg.Select(Framework, Version)
	require.NoError(tb, err)
	snap := snapshot.New(ptrSize)
	f := &Fixture{
		tb:     tb,
		Snap:   snap,
		Module: snap.AddModule(host.ModuleInfo{Name: Framework, Version: Version, Base: ModuleBase, Size: ModuleSize}, true),
		Table:  table,
		next:   ModuleBase + 0x1000,
		tls:    10,
	}
	snap.Map(ModuleBase, ModuleSize)
	return f
}

func (f *Fixture) Debugger() debugger.Debugger {
	dbg, err := debugger.New(f.Snap)
	require.NoError(f.tb, err)
	return dbg
}

func (f *Fixture) PtrSize() uint64 {
	return f.Snap.PtrSize
}

// Symbol defines name at a fresh address inside the framework module.
func (f *Fixture) Symbol(name string) uint64 {
	if addr, ok := f.Module.Symbols[name]; ok {
		return addr
	}
	addr := f.next
	f.next += 0x40
	f.Module.AddSymbol(name, addr)
	return addr
}

func (f *Fixture) VTable(class string) uint64 {
	return f.Symbol(class + "::`vftable'")
}

// Code returns an address inside a named function.
func (f *Fixture) Code(name string, offset uint64) uint64 {
	return f.Symbol(name) + offset
}

func (f *Fixture) Layout(typ string) *layout.Resolved {
	r, err := f.Table.Resolve(typ, f.PtrSize())
	require.NoError(f.tb, err)
	return r
}

// Object allocates typ and fills the given members. Values are written with
// the member kind; float32 values are stored as IEEE bits.
func (f *Fixture) Object(typ string, fields map[string]any) uint64 {
	addr := f.Snap.Alloc(f.Layout(typ).Size)
	f.Set(addr, typ, fields)
	return addr
}

func (f *Fixture) Set(addr uint64, typ string, fields map[string]any) {
	r := f.Layout(typ)
	for name, value := range fields {
		m, ok := r.Members[name]
		require.True(f.tb, ok, "%s.%s", typ, name)
		f.write(addr+m.Offset, m, value)
	}
}

func (f *Fixture) write(addr uint64, m layout.Member, value any) {
	switch v := value.(type) {
	case float32:
		f.Snap.WriteF32(addr, v)
		return
	case []uint64:
		for i, p := range v {
			f.Snap.WritePointer(addr+uint64(i)*f.PtrSize(), p)
		}
		return
	}
	v := toUint64(f.tb, value)
	switch m.Size {
	case 1:
		f.Snap.WriteU8(addr, uint8(v))
	case 2:
		f.Snap.WriteU16(addr, uint16(v))
	case 4:
		if m.Kind == "ptr" {
			f.Snap.WritePointer(addr, v)
		} else {
			f.Snap.WriteU32(addr, uint32(v))
		}
	case 8:
		f.Snap.WriteU64(addr, v)
	default:
		require.FailNow(f.tb, fmt.Sprintf("cannot write %T to %s member", value, m.Kind))
	}
}

func toUint64(tb testing.TB, value any) uint64 {
	switch v := value.(type) {
	case int:
		return uint64(v)
	case uint32:
		return uint64(v)
	case uint64:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	}
	require.FailNow(tb, fmt.Sprintf("unsupported value %T", value))
	return 0
}

// XString fills an xstring_ptr_storage embedded at addr.
func (f *Fixture) XString(addr uint64, s string) {
	f.Set(addr, "xstring_ptr_storage", map[string]any{
		"Buffer": f.Snap.PutWideString(s),
		"Count":  len([]rune(s)),
	})
}

// Vector fills an xvector embedded at addr with items.
func (f *Fixture) Vector(addr uint64, items ...uint64) {
	data := f.Snap.Alloc(uint64(max(len(items), 1)) * f.PtrSize())
	for i, item := range items {
		f.Snap.WritePointer(data+uint64(i)*f.PtrSize(), item)
	}
	f.Set(addr, "xvector", map[string]any{"Data": data, "Count": len(items), "Capacity": len(items)})
}

// TLS allocates the framework TLS index called name and stores value in that
// slot of th.
func (f *Fixture) TLS(th *snapshot.Thread, name string, value uint64) {
	sym, ok := f.Table.TLS[name]
	require.True(f.tb, ok, name)
	addr := f.Symbol(sym)
	data, err := f.Snap.MemRead(addr, 4)
	require.NoError(f.tb, err)
	index := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	if index == 0 {
		index = f.tls
		f.tls++
		f.Snap.WriteU32(addr, index)
	}
	slots := uint64(0x1480)
	if f.PtrSize() == 4 {
		slots = 0x0E10
	}
	f.Snap.WritePointer(th.TEB()+slots+uint64(index)*f.PtrSize(), value)
}

// Global defines the metadata global called name as an xvector of items.
func (f *Fixture) Global(name string, items ...uint64) {
	sym, ok := f.Table.Globals[name]
	require.True(f.tb, ok, name)
	f.Vector(f.Symbol(sym), items...)
}

func (f *Fixture) Enum(enum string, value uint64, name string) {
	f.Module.AddEnum(enum, value, name)
}

package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/xamldbg/debugger"
	_ "github.com/wnxd/xamldbg/debugger/amd64"
	_ "github.com/wnxd/xamldbg/debugger/x86"
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/host/snapshot"
)

func newTarget(t *testing.T) (*snapshot.Snapshot, *Engine) {
	snap := snapshot.New(8)
	snap.NoisyDump = true
	m := snap.AddModule(host.ModuleInfo{Name: "Microsoft_UI_Xaml", Version: "3.1.5.0", Base: 0x8000000, Size: 0x100000}, true)
	m.AddSymbol("CButton::`vftable'", 0x8000100)
	m.AddSymbol("DirectUI::Button::`vftable'", 0x8000200)
	m.AddSymbol("CCoreServices::s_instance", 0x8000400)
	dbg, err := debugger.New(snap)
	require.NoError(t, err)
	return snap, New(dbg)
}

func TestInferVTable(t *testing.T) {
	snap, engine := newTarget(t)
	obj := snap.Alloc(0x40)
	snap.WritePointer(obj, 0x8000100)

	typ, ok := engine.InferType(obj, true)
	require.True(t, ok)
	assert.Equal(t, "Microsoft_UI_Xaml", typ.Module)
	assert.Equal(t, "CButton", typ.Class)
	assert.Equal(t, uint64(0x8000100), typ.VTable)

	peer := snap.Alloc(0x40)
	snap.WritePointer(peer, 0x8000200)
	typ, ok = engine.InferType(peer, true)
	require.True(t, ok)
	assert.Equal(t, "Microsoft_UI_Xaml!DirectUI::Button", typ.String())
}

func TestInferRequireCodePointer(t *testing.T) {
	snap, engine := newTarget(t)
	obj := snap.Alloc(0x40)
	snap.WritePointer(obj, 0x4242)

	_, ok := engine.InferType(obj, true)
	assert.False(t, ok)
	_, ok = engine.InferType(obj, false)
	assert.False(t, ok)

	data := snap.Alloc(0x40)
	snap.WritePointer(data, 0x8000408)
	_, ok = engine.InferType(data, true)
	assert.False(t, ok)
	typ, ok := engine.InferType(data, false)
	require.True(t, ok)
	assert.Equal(t, "CCoreServices::s_instance", typ.Class)

	_, ok = engine.InferType(0x10, false)
	assert.False(t, ok)
}

func TestInferManaged(t *testing.T) {
	snap, engine := newTarget(t)
	obj := snap.Alloc(0x40)
	snap.WritePointer(obj, 0x7ff0001000)
	snap.SetCommand("!dumpobj -nofields 0x10000000",
		"Name:        System.InvalidOperationException",
		"MethodTable: 00007ff0001000",
		"Size:        128(0x80) bytes",
	)

	typ, ok := engine.InferType(obj, true)
	require.True(t, ok)
	assert.True(t, typ.Managed)
	assert.Equal(t, "System.InvalidOperationException", typ.Class)
	assert.Equal(t, ManagedModule, typ.Module)
}

func TestParseVTable(t *testing.T) {
	typ, ok := ParseVTable("Windows_UI_Xaml!CGrid::`vftable'")
	require.True(t, ok)
	assert.Equal(t, Type{Module: "Windows_UI_Xaml", Class: "CGrid"}, typ)

	_, ok = ParseVTable("Windows_UI_Xaml!CGrid::Measure+0x24")
	assert.False(t, ok)
	_, ok = ParseVTable("")
	assert.False(t, ok)
}

package command

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/exception"
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/host/snapshot"
	"github.com/wnxd/xamldbg/internal/xamltest"
	"github.com/wnxd/xamldbg/model"
)

func init() {
	color.NoColor = true
}

type stowedRecord struct {
	Size               uint32
	Signature          uint32
	ResultCode         uint32
	FormThread         uint32
	ExceptionAddress   uintptr
	StackTraceWordSize uint32
	StackTraceWords    uint32
	StackTrace         uintptr
}

// putStowedRecord writes a binary SE01 record with three frames.
func putStowedRecord(t *testing.T, f *xamltest.Fixture) uint64 {
	frames := []uint64{f.Code("CFoo::A", 1), f.Code("CFoo::B", 2), f.Code("CFoo::C", 3)}
	stack := f.Snap.Alloc(uint64(len(frames)) * 8)
	for i, frame := range frames {
		f.Snap.WritePointer(stack+uint64(i)*8, frame)
	}
	stowed, err := f.Snap.Put(stowedRecord{
		Size:               40,
		Signature:          0x53453031,
		ResultCode:         0x80004005,
		FormThread:         1 | 1<<2,
		StackTraceWordSize: 8,
		StackTraceWords:    uint32(len(frames)),
		StackTrace:         uintptr(stack),
	})
	require.NoError(t, err)
	return stowed
}

// stowedTarget lays out a thread whose error context list holds a node
// referencing a stowed record, followed by an unreadable node.
func stowedTarget(t *testing.T) (*xamltest.Fixture, uint64) {
	f := xamltest.New(t, 8)
	th := f.Snap.AddThread(1)
	node := f.Object(model.ErrorContextType, map[string]any{
		"Next":       0x5000,
		"Stowed":     putStowedRecord(t, f),
		"ResultCode": uint32(0x80004005),
	})
	f.TLS(th, "errorContext", node)
	return f, node
}

// recordTarget raises a stowed exception record on the current thread.
func recordTarget(t *testing.T, f *xamltest.Fixture) {
	array := f.Snap.Alloc(8)
	f.Snap.WritePointer(array, putStowedRecord(t, f))
	f.Snap.AddThread(1).SetException(host.STATUS_STOWED_EXCEPTION, 0, array, 1)
}

func newSession(t *testing.T, f *xamltest.Fixture) (*Session, *bytes.Buffer) {
	out := new(bytes.Buffer)
	return NewSession(f.Debugger(), WithOutput(out)), out
}

func TestStowedCommand(t *testing.T) {
	f, _ := stowedTarget(t)
	s, out := newSession(t, f)

	result, err := s.Invoke("xamlstowed")
	require.NoError(t, err)
	require.Len(t, result, 2)
	text := out.String()
	assert.Contains(t, text, "stowed exceptions: 2")
	assert.Contains(t, text, "SE01 binary hr=0x80004005")
	assert.Contains(t, text, "00 ")
	assert.Contains(t, text, "CFoo::A+0x1")
	assert.Contains(t, text, "CFoo::B+0x2")
	assert.Contains(t, text, "CFoo::C+0x3")
	assert.Contains(t, text, debugger.HeapNotAvailable)

	out.Reset()
	result, err = s.Invoke("xamlstowed", "1")
	require.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Contains(t, out.String(), "stowed exceptions: 1")
}

func TestTriageStackBudget(t *testing.T) {
	f, _ := stowedTarget(t)
	s, out := newSession(t, f)

	result, err := s.Invoke("xamltriage")
	require.NoError(t, err)
	triage := result.(*Triage)
	require.Len(t, triage.Reports, 2)
	assert.Equal(t, uint32(0x80004005), triage.HResult())
	assert.Contains(t, out.String(), "error code: 0x80004005")
	assert.Contains(t, out.String(), "CFoo::C+0x3")
	assert.NotContains(t, out.String(), "more frames")

	out.Reset()
	_, err = s.Invoke("xamltriage")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "... 3 more frames")
	assert.Contains(t, out.String(), "blame")

	out.Reset()
	_, err = s.Invoke("xamltriage", "1")
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "more frames")

	out.Reset()
	_, err = s.Invoke("xamltriage", "0")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "... 3 more frames")

	_, err = s.Invoke("xamltriage", "x")
	assert.ErrorIs(t, err, debugger.ErrArgumentInvalid)
}

func TestMissingArguments(t *testing.T) {
	f := xamltest.New(t, 8)
	s, out := newSession(t, f)

	result, err := s.Invoke("xamlelement")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, "usage: xamlelement <address>\n", out.String())
}

func TestFrameworkReportedOnce(t *testing.T) {
	snap := snapshot.New(8)
	snap.AddThread(1)
	dbg, err := debugger.New(snap)
	require.NoError(t, err)
	out := new(bytes.Buffer)
	s := NewSession(dbg, WithOutput(out))

	for range 3 {
		result, err := s.Invoke("xamlthreads")
		assert.NoError(t, err)
		assert.Nil(t, result)
	}
	assert.Equal(t, 1, strings.Count(out.String(), "no XAML framework module loaded"))

	result, err := s.Invoke("xamlstowed")
	require.NoError(t, err)
	assert.Empty(t, result)
	_, err = s.Invoke("xamltriage")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out.String(), "no XAML framework module loaded"))
}

func TestStowedWithoutSymbols(t *testing.T) {
	f := xamltest.New(t, 8)
	recordTarget(t, f)
	f.Module.SymbolsLoaded = false
	s, out := newSession(t, f)

	result, err := s.Invoke("xamlstowed")
	require.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Contains(t, out.String(), "symbols for module Microsoft_UI_Xaml not loaded")
	assert.Contains(t, out.String(), "stowed exceptions: 1")

	out.Reset()
	result, err = s.Invoke("xamltriage")
	require.NoError(t, err)
	assert.Len(t, result.(*Triage).Reports, 1)
	assert.Contains(t, out.String(), "symbols for module Microsoft_UI_Xaml not loaded")
	assert.Contains(t, out.String(), "error code: 0x80004005")
}

func TestStowedAmbiguousFramework(t *testing.T) {
	f := xamltest.New(t, 8)
	f.Snap.AddModule(host.ModuleInfo{Name: "Windows_UI_Xaml", Version: "10.0.22621.1", Base: 0x50000000, Size: 0x100000}, true)
	recordTarget(t, f)
	s, out := newSession(t, f)

	result, err := s.Invoke("xamlstowed")
	require.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Contains(t, out.String(), "set XAMLDBG_MODULE (or --module) to one of: ")
	assert.Contains(t, out.String(), "Windows_UI_Xaml")
	assert.Contains(t, out.String(), "stowed exceptions: 1")
}

func TestPanicRecovered(t *testing.T) {
	f := xamltest.New(t, 8)
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Command{Name: "boom", Run: func(*Session, []string) (any, error) {
		panic("bad pointer")
	}}))
	assert.ErrorIs(t, reg.Register(&Command{Name: "boom"}), ErrCommandExists)
	s := NewSession(f.Debugger(), WithRegistry(reg), WithOutput(new(bytes.Buffer)))

	_, err := s.Invoke("boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad pointer")

	_, err = s.Invoke("xamlstowed")
	assert.ErrorIs(t, err, ErrCommandUnknown)
}

func TestVisualizers(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"ErrorContext",
		"WarningContext",
		"xstring_ptr_storage",
		"xephemeral_string_ptr",
		"std::pair<enum KnownPropertyIndex const ,EffectiveValueSparse>",
		"CDependencyProperty *",
		"CDependencyProperty const *",
	}, Default().VisualizedTypes(FrameworkScope))

	f, node := stowedTarget(t)
	s, _ := newSession(t, f)
	v, err := s.Visualize(xamltest.Framework, model.ErrorContextType, node)
	require.NoError(t, err)
	c := v.(*model.ErrorContext)
	assert.Equal(t, uint32(0x80004005), c.ResultCode)

	_, err = s.Visualize("other", model.ErrorContextType, node)
	assert.ErrorIs(t, err, ErrVisualizerAbsent)
}

func TestThreadExtensions(t *testing.T) {
	f, _ := stowedTarget(t)
	s, _ := newSession(t, f)
	th, err := s.CurrentThread()
	require.NoError(t, err)

	values := s.ThreadExtensions(th)
	contexts, ok := values["errors"].([]*model.ErrorContext)
	require.True(t, ok)
	require.Len(t, contexts, 2)
	assert.True(t, contexts[1].Unavailable())
	assert.Contains(t, values, "xaml")
}

func TestTools(t *testing.T) {
	f, _ := stowedTarget(t)
	s, out := newSession(t, f)

	result, err := s.Invoke("xamltools", "version")
	require.NoError(t, err)
	info := result.(*VersionInfo)
	assert.Equal(t, xamltest.Framework, info.Module)
	assert.Equal(t, xamltest.Version, info.ModuleVersion)
	assert.Contains(t, info.Layout, "microsoft_ui_xaml.yaml")
	assert.Equal(t, uint64(8), info.PointerSize)

	out.Reset()
	_, err = s.Invoke("xamltools")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "xamlstowed [count]")
	assert.Contains(t, out.String(), "xamltriage [count]")

	out.Reset()
	result, err = s.Invoke("xamltools", "errors")
	require.NoError(t, err)
	assert.Len(t, result.(map[uint32][]*exception.Report)[1], 2)

	th, err := f.Snap.CurrentThread()
	require.NoError(t, err)
	th.(*snapshot.Thread).AddFrame(0x1000, "KERNELBASE!RaiseException+0x69")
	th.(*snapshot.Thread).AddFrame(0x2000, "MyApp!MainPage::OnClick+0x44")
	out.Reset()
	result, err = s.Invoke("xamltools", "stack")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Contains(t, out.String(), "MyApp!MainPage::OnClick+0x44")
	assert.NotContains(t, out.String(), "RaiseException")

	_, err = s.Invoke("xamltools", "nope")
	assert.ErrorIs(t, err, debugger.ErrArgumentInvalid)
}

func TestParseAddress(t *testing.T) {
	for in, want := range map[string]uint64{
		"1000":              0x1000,
		"0x1000":            0x1000,
		"00007ff6`12340000": 0x7ff612340000,
		"0n4096":            4096,
		"0n0100":            100,
		" 0XdeadBEEF ":      0xdeadbeef,
	} {
		got, err := ParseAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"xyz", "0n12ab", "0n"} {
		_, err := ParseAddress(in)
		assert.ErrorIs(t, err, debugger.ErrArgumentInvalid, in)
	}

	_, ok, err := ParseCount(nil, 0)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestClassCommand(t *testing.T) {
	f := xamltest.New(t, 8)
	f.Enum("KnownTypeIndex", 5, "Button")
	typ := f.Object("CCustomType", map[string]any{"Index": 1100, "BaseType": 5})
	f.XString(typ, "MyApp.Shell")
	f.Global("customTypes", typ)
	f.Global("customProperties")
	s, out := newSession(t, f)

	result, err := s.Invoke("xamlclass", "5,", "type")
	require.NoError(t, err)
	assert.Equal(t, "Button", result.(model.Class).Name)

	out.Reset()
	result, err = s.Invoke("xamlclass", "-1")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Contains(t, out.String(), "custom MyApp.Shell (base 5)")

	out.Reset()
	result, err = s.Invoke("xamlclass", "-1", "property")
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Contains(t, out.String(), "no custom property entries")

	_, err = s.Invoke("xamlclass", "5", "event")
	assert.ErrorIs(t, err, debugger.ErrArgumentInvalid)
}

func buildElement(f *xamltest.Fixture, class string, fields map[string]any) uint64 {
	fields["Base.VTable"] = f.VTable(class)
	fields["Base.Flags"] = 1
	return f.Object(model.UIElementType, fields)
}

func nameElement(f *xamltest.Fixture, addr uint64, name string) {
	f.XString(addr+f.Layout(model.UIElementType).Members["Base.Name"].Offset, name)
}

func TestElementCommand(t *testing.T) {
	f := xamltest.New(t, 8)
	child := buildElement(f, "CTextBlock", map[string]any{})
	nameElement(f, child, "title")
	children := f.Object("CDOCollection", map[string]any{"VTable": f.VTable("CUIElementCollection")})
	f.Vector(children+f.Layout("CDOCollection").Members["Items"].Offset, child)
	grid := buildElement(f, "CGrid", map[string]any{"Children": children, "Width": float32(320)})
	nameElement(f, grid, "LayoutRoot")
	s, out := newSession(t, f)

	result, err := s.Invoke("xamlelement", fmt.Sprintf("%x", grid))
	require.NoError(t, err)
	e := result.(*model.Element)
	assert.Equal(t, "CGrid", e.Type.Class)
	assert.False(t, e.Disconnected)
	assert.Contains(t, out.String(), `name="LayoutRoot"`)
	assert.Contains(t, out.String(), "child ")
	assert.Contains(t, out.String(), "CTextBlock")
	assert.Contains(t, out.String(), `name="title"`)

	_, err = s.Invoke("xamlelement", "nothex")
	assert.ErrorIs(t, err, debugger.ErrArgumentInvalid)
}

func TestElementCommandDisconnectedPeer(t *testing.T) {
	f := xamltest.New(t, 8)
	peer := f.Object(model.PeerType, map[string]any{"VTable": f.VTable("DirectUI::Button")})
	s, out := newSession(t, f)

	result, err := s.Invoke("xamlelement", fmt.Sprintf("0x%x", peer))
	require.NoError(t, err)
	e := result.(*model.Element)
	assert.True(t, e.Disconnected)
	assert.Equal(t, peer, e.Peer().Address())
	assert.Contains(t, out.String(), "(disconnected)")
	assert.Contains(t, out.String(), "peer is disconnected, native data unavailable")
	assert.NotContains(t, out.String(), "child")
}

func TestClrObjCommand(t *testing.T) {
	f := xamltest.New(t, 8)
	f.Snap.SetCommand("!dumpobj -nofields 0x1d2c4a8e2f8",
		"Name:        System.String",
		"MethodTable: 00007ff8a1b2c3d4",
	)
	s, out := newSession(t, f)

	result, err := s.Invoke("xamlclrobj", "000001d2`c4a8e2f8")
	require.NoError(t, err)
	obj := result.(*exception.ClrObject)
	assert.Equal(t, "System.String", obj.TypeName)
	assert.False(t, obj.IsException)
	assert.Contains(t, out.String(), "clr System.String @ 0x1d2c4a8e2f8")

	out.Reset()
	result, err = s.Invoke("xamlclrobj", "2000")
	assert.ErrorIs(t, err, debugger.ErrTypeInferenceFailed)
	assert.Nil(t, result)
	assert.Contains(t, out.String(), "does not look like a CLR object")
}

func TestThreadsCommand(t *testing.T) {
	f := xamltest.New(t, 8)
	ui := f.Snap.AddThread(1)
	f.Snap.AddThread(2)

	root := buildElement(f, "CGrid", map[string]any{})
	named := buildElement(f, "CButton", map[string]any{})
	nameElement(f, named, "OkButton")
	children := f.Object("CDOCollection", nil)
	f.Vector(children+f.Layout("CDOCollection").Members["Items"].Offset, named)
	f.Set(root, model.UIElementType, map[string]any{"Children": children})

	contentRoot := f.Object("CContentRoot", map[string]any{"Type": 1, "RootElement": root})
	coordinator := f.Object("CContentRootCoordinator", nil)
	f.Vector(coordinator, contentRoot)
	island := f.Object("CXamlIslandRoot", map[string]any{"ContentRoot": contentRoot})
	islands := f.Object("xvector", nil)
	f.Vector(islands, island)
	cs := f.Object("CCoreServices", map[string]any{"ContentRootCoordinator": coordinator, "Islands": islands})
	core := f.Object("DXamlCore", map[string]any{"CoreServices": cs, "ThreadId": 1})
	f.TLS(ui, "core", core)
	s, out := newSession(t, f)

	result, err := s.Invoke("xamlthreads")
	require.NoError(t, err)
	threads := result.([]*model.Thread)
	require.Len(t, threads, 1)
	assert.Equal(t, uint32(1), threads[0].ID())
	assert.Contains(t, out.String(), fmt.Sprintf("thread 1 core %#x", core))
	assert.Contains(t, out.String(), "OkButton")
	assert.Contains(t, out.String(), "islands: 1")
	assert.NotContains(t, out.String(), "thread 2")
}

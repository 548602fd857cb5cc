package exception

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/internal/xamltest"
	"github.com/wnxd/xamldbg/model"
)

func newDecoder(t *testing.T, f *xamltest.Fixture) *Decoder {
	dbg := f.Debugger()
	target, err := model.NewTarget(dbg)
	require.NoError(t, err)
	return NewDecoder(dbg, target)
}

func putStack(f *xamltest.Fixture, frames ...uint64) uint64 {
	addr := f.Snap.Alloc(uint64(len(frames)) * f.PtrSize())
	for i, frame := range frames {
		f.Snap.WritePointer(addr+uint64(i)*f.PtrSize(), frame)
	}
	return addr
}

func putStowed(t *testing.T, f *xamltest.Fixture, signature, hr uint32, stack []uint64, nestedType uint32, nested uint64) uint64 {
	v1 := stowedV1{
		Size:               40,
		Signature:          signature,
		ResultCode:         hr,
		FormThread:         uint32(FormBinary) | 0x1234<<2,
		StackTraceWordSize: uint32(f.PtrSize()),
		StackTraceWords:    uint32(len(stack)),
		StackTrace:         uintptr(putStack(f, stack...)),
	}
	var (
		addr uint64
		err  error
	)
	if signature == SignatureV2 {
		addr, err = f.Snap.Put(stowedV2{stowedV1: v1, NestedExceptionType: nestedType, NestedException: uintptr(nested)})
	} else {
		addr, err = f.Snap.Put(v1)
	}
	require.NoError(t, err)
	return addr
}

func TestStowedChain(t *testing.T) {
	for _, ptrSize := range []uint64{4, 8} {
		f := xamltest.New(t, ptrSize)
		const n = 6
		leaf := putStowed(t, f, SignatureV1, 0x1, nil, 0, 0)
		nodes := make([]uint64, n)
		for i := range nodes {
			hr := 0x80070000 | uint32(i)
			stack := []uint64{f.Code("CFoo::Step", uint64(i+1))}
			if i%2 == 0 {
				nodes[i] = putStowed(t, f, SignatureV1, hr, stack, 0, 0)
			} else {
				nodes[i] = putStowed(t, f, SignatureV2, hr, stack, NestedStowed, leaf)
			}
		}

		reports := newDecoder(t, f).StowedArray(putStack(f, nodes...), n)
		require.Len(t, reports, n, "pointer size %d", ptrSize)
		for i, r := range reports {
			assert.Equal(t, nodes[i], r.Addr)
			assert.Equal(t, 0x80070000|uint32(i), r.HResult)
			assert.Equal(t, FormBinary, r.Form)
			assert.Equal(t, uint32(0x1234), r.ThreadID)
			assert.Empty(t, r.Message)
			require.Len(t, r.Stack, 1)
			assert.Equal(t, fmt.Sprintf("Microsoft_UI_Xaml!CFoo::Step+0x%d", i+1), r.Stack[0].Name)
			if i%2 == 0 {
				assert.Equal(t, "SE01", r.Signature)
				assert.Empty(t, r.NestedType)
				assert.Nil(t, r.Nested)
			} else {
				assert.Equal(t, "SE02", r.Signature)
				assert.Equal(t, "STOW", r.NestedType)
				require.NotNil(t, r.Nested)
				assert.Equal(t, uint32(0x1), r.Nested.HResult)
			}
		}
	}
}

func TestStowedText(t *testing.T) {
	f := xamltest.New(t, 8)
	addr, err := f.Snap.Put(stowedV1{
		Size:             40,
		Signature:        SignatureV1,
		ResultCode:       0x8000FFFF,
		FormThread:       uint32(FormText),
		ExceptionAddress: uintptr(f.Snap.PutWideString("catastrophic failure")),
	})
	require.NoError(t, err)

	r := newDecoder(t, f).StowedAt(addr)
	assert.Equal(t, FormText, r.Form)
	assert.Equal(t, "catastrophic failure", r.Message)
	assert.Empty(t, r.Stack)
}

func TestStowedUnreadableNode(t *testing.T) {
	f := xamltest.New(t, 8)
	first := putStowed(t, f, SignatureV1, 0x80004005, []uint64{f.Code("CFoo::A", 1)}, 0, 0)
	third := putStowed(t, f, SignatureV2, 0x80004004, []uint64{f.Code("CFoo::C", 3)}, 0, 0)
	array := putStack(f, first, 0x5000, third)

	reports := newDecoder(t, f).StowedArray(array, 3)
	require.Len(t, reports, 3)
	assert.Equal(t, uint32(0x80004005), reports[0].HResult)
	assert.True(t, reports[1].Unavailable)
	assert.ErrorIs(t, reports[1].Err, debugger.ErrMemoryUnavailable)
	assert.Equal(t, uint32(0x80004004), reports[2].HResult)

	var b bytes.Buffer
	require.NoError(t, reports[1].Format(&b, -1))
	assert.Contains(t, b.String(), debugger.HeapNotAvailable)
}

func TestStowedNestedDepth(t *testing.T) {
	f := xamltest.New(t, 8)
	self := f.Snap.Alloc(56)
	v1 := stowedV1{Size: 56, Signature: SignatureV2, ResultCode: 1, FormThread: uint32(FormBinary)}
	require.NoError(t, f.Snap.PutAt(self, stowedV2{stowedV1: v1, NestedExceptionType: NestedStowed, NestedException: uintptr(self)}))

	dec := newDecoder(t, f)
	depth := 0
	r := dec.StowedAt(self)
	for ; r.Nested != nil; r = r.Nested {
		depth++
	}
	assert.Equal(t, dec.MaxDepth+1, depth)
	assert.ErrorIs(t, r.Err, ErrNestingTooDeep)
}

func TestStowedNestedXAML(t *testing.T) {
	f := xamltest.New(t, 8)
	ctx := f.Object(model.ErrorContextType, map[string]any{
		"ResultCode": uint32(0x802B000A),
		"FrameCount": 1,
		"Frames":     []uint64{f.Code("CMyPage::OnLoaded", 8)},
	})
	addr := putStowed(t, f, SignatureV2, 0x802B000A, nil, NestedXAML, ctx)

	r := newDecoder(t, f).StowedAt(addr)
	require.NotNil(t, r.Nested)
	assert.Equal(t, "XAML", r.NestedType)
	assert.Equal(t, KindErrorContext, r.Nested.Kind)
	assert.Equal(t, uint32(0x802B000A), r.Nested.HResult)
	require.NotNil(t, r.Nested.Blame)
	assert.Equal(t, "Microsoft_UI_Xaml!CMyPage::OnLoaded+0x8", r.Nested.Blame.Name)
}

func TestStowedNestedWin32(t *testing.T) {
	f := xamltest.New(t, 8)
	rec := f.Snap.Alloc(0x98)
	f.Snap.WriteU32(rec, 0xC0000005)
	f.Snap.WritePointer(rec+16, f.Code("CFoo::Crash", 0x2c))
	f.Snap.WriteU32(rec+24, 2)
	f.Snap.WritePointer(rec+32, 1)
	f.Snap.WritePointer(rec+40, 0xdead)
	addr := putStowed(t, f, SignatureV2, 0x80004005, nil, NestedWin32, rec)

	r := newDecoder(t, f).StowedAt(addr)
	require.NotNil(t, r.Nested)
	assert.Equal(t, KindWin32, r.Nested.Kind)
	assert.Equal(t, uint32(0xC0000005), r.Nested.HResult)
	assert.Equal(t, "parameters: 0x1 0xdead", r.Nested.Message)
	require.Len(t, r.Nested.Stack, 1)
	assert.Equal(t, "Microsoft_UI_Xaml!CFoo::Crash+0x2c", r.Nested.Stack[0].Name)
}

func TestStowedFromRecord(t *testing.T) {
	f := xamltest.New(t, 8)
	node := putStowed(t, f, SignatureV1, 0x80004005, []uint64{f.Code("CFoo::A", 1)}, 0, 0)
	th := f.Snap.AddThread(9)
	th.SetException(host.STATUS_STOWED_EXCEPTION, 0, putStack(f, node), 1)

	reports := newDecoder(t, f).Stowed(th)
	require.Len(t, reports, 1)
	assert.Equal(t, "SE01", reports[0].Signature)
}

func TestBlame(t *testing.T) {
	deny := []Frame{
		{Name: "KERNELBASE!RaiseException+0x69"},
		{Name: "combase!RoOriginateError+0x55"},
		{Name: "Microsoft_UI_Xaml!DirectUI::ErrorHelper::OriginateError+0x30"},
		{Name: "Microsoft_UI_Xaml!winrt::throw_hresult+0x12"},
		{Name: "ntdll!KiUserExceptionDispatcher+0x2e"},
	}
	_, ok := Blame(deny)
	assert.False(t, ok)
	_, ok = Blame(nil)
	assert.False(t, ok)

	stack := append(append([]Frame{}, deny...), Frame{Addr: 0x1234, Name: "MyApp!MainPage::OnClick+0x44"}, Frame{Name: "MyApp!main"})
	blame, ok := Blame(stack)
	require.True(t, ok)
	assert.Equal(t, "MyApp!MainPage::OnClick+0x44", blame.Name)
	assert.Equal(t, uint64(0x1234), blame.Addr)

	clean := Clean(stack)
	require.Len(t, clean, 2)
	assert.Equal(t, "MyApp!main", clean[1].Name)
	assert.Empty(t, Clean(deny))
}

func TestFindThrown(t *testing.T) {
	frames := []host.Frame{
		{Name: "KERNELBASE!RaiseException+0x69", Params: []uint64{0xE06D7363}},
		{Name: "VCRUNTIME140!_CxxThrowException+0x97", Params: []uint64{0x1000}},
		{Name: "MyApp!winrt::throw_hresult+0x20", Params: []uint64{0x80004005}},
	}
	thrown, ok := FindThrown(frames)
	require.True(t, ok)
	assert.Equal(t, RaiseException, thrown.Entry)

	thrown, ok = FindThrown(frames[1:])
	require.True(t, ok)
	assert.Equal(t, CxxThrowException, thrown.Entry)

	deep := make([]host.Frame, 16)
	deep = append(deep, frames[2])
	_, ok = FindThrown(deep)
	assert.False(t, ok)
}

func TestHResultError(t *testing.T) {
	f := xamltest.New(t, 8)
	combase := f.Snap.AddModule(host.ModuleInfo{Name: "combase", Version: "10.0.22621.1", Base: 0x70000000, Size: 0x100000}, true)
	combase.AddSymbol("CRestrictedErrorInfo::`vftable'", 0x70000100)

	restricted := f.Snap.Alloc(0x80)
	f.Snap.WritePointer(restricted, 0x70000100)
	f.Snap.WriteU32(restricted+20, 0x80070490)
	f.Snap.WritePointer(restricted+24, f.Snap.PutWideString("Element not found."))
	f.Snap.WriteU32(restricted+48, 2)
	f.Snap.WritePointer(restricted+56, putStack(f, f.Code("wil::details::ThrowResult", 1), f.Code("CApp::Load", 0x10)))

	obj := f.Snap.Alloc(0x20)
	f.Snap.WriteU32(obj, HResultErrorMagic)
	f.Snap.WriteU32(obj+4, 0x80070490)
	f.Snap.WritePointer(obj+8, restricted)

	args := putStack(f, 0x19930520, obj, 0x70000400)
	th := f.Snap.AddThread(4)
	th.AddFrame(0x70000200, "KERNELBASE!RaiseException+0x69", CxxExceptionCode, 1, 3, args)
	th.AddFrame(0x70000300, "VCRUNTIME140!_CxxThrowException+0x97", obj)
	th.AddFrame(0x70000500, "MyApp!winrt::throw_hresult+0x20", 0x80070490)

	dec := newDecoder(t, f)
	r, err := dec.Thrown(th)
	require.NoError(t, err)
	assert.Equal(t, KindHResultError, r.Kind)
	assert.Equal(t, obj, r.Addr)
	assert.Equal(t, uint32(0x80070490), r.HResult)
	assert.Equal(t, "Element not found.", r.Message)

	plain := f.Snap.AddThread(5)
	plain.AddFrame(0x70000200, "KERNELBASE!RaiseException+0x69", 0xC0000005)
	r, err = dec.Thrown(plain)
	require.NoError(t, err)
	assert.Equal(t, KindWin32, r.Kind)
	assert.Equal(t, uint32(0xC0000005), r.HResult)

	r = dec.HResultError(obj)
	require.NoError(t, r.Err)
	assert.Equal(t, uint32(0x80070490), r.HResult)
	assert.Equal(t, "Element not found.", r.Message)
	require.NotNil(t, r.Blame)
	assert.Equal(t, "Microsoft_UI_Xaml!CApp::Load+0x10", r.Blame.Name)

	notMagic := f.Snap.Alloc(0x20)
	r = dec.HResultError(notMagic)
	assert.ErrorIs(t, r.Err, ErrNotException)
}

func TestCxx(t *testing.T) {
	f := xamltest.New(t, 8)
	obj := f.Snap.Alloc(0x20)
	f.Snap.WritePointer(obj, f.VTable("std::runtime_error"))
	f.Snap.WritePointer(obj+8, f.Snap.PutString("bad state"))

	th := f.Snap.AddThread(4)
	th.AddFrame(0x1, "KERNELBASE!RaiseException+0x69", CxxExceptionCode, 1, 3, putStack(f, 0x19930520, obj, 0))
	th.AddFrame(0x2, "VCRUNTIME140!_CxxThrowException+0x97", obj)
	th.AddFrame(0x3, "MyApp!Worker::Run+0x10")

	r, err := newDecoder(t, f).Thrown(th)
	require.NoError(t, err)
	assert.Equal(t, KindCxx, r.Kind)
	assert.Equal(t, "Microsoft_UI_Xaml!std::runtime_error", r.Type)
	assert.Equal(t, "bad state", r.Message)
	require.NotNil(t, r.Blame)
	assert.Equal(t, "MyApp!Worker::Run+0x10", r.Blame.Name)
}

func TestCLR(t *testing.T) {
	f := xamltest.New(t, 8)
	f.Snap.SetCommand("!dumpccw 0x1000",
		"Managed object:    000001d2c4a8e2f8",
		"Outer IUnknown:    0000000000000000",
	)
	f.Snap.SetCommand("!dumpobj -nofields 0x1d2c4a8e2f8",
		"Name:        System.InvalidOperationException",
		"MethodTable: 00007ff8a1b2c3d4",
	)
	f.Snap.SetCommand("!pe 0x1d2c4a8e2f8",
		"Exception object: 000001d2c4a8e2f8",
		"Exception type:   System.InvalidOperationException",
		"Message:          Collection was modified",
		"InnerException:   System.Exception, Use !PrintException 000001d2c4a8e400 to see more.",
		"StackTrace (generated):",
		"    SP               IP               Function",
		"    000000A1B2C3D4E0 00007FF8A1000000 System_Private_CoreLib!System.ThrowHelper.ThrowInvalidOperationException()+0x1e",
		"    000000A1B2C3D520 00007FF8A2000000 MyApp!MyApp.MainPage.OnClick(System.Object)+0x42",
		"",
		"StackTraceString: <none>",
		"HResult: 80131509",
	)
	f.Snap.SetCommand("!dumpobj -nofields 0x1d2c4a8e400", "Name:        System.Exception")
	f.Snap.SetCommand("!pe 0x1d2c4a8e400",
		"Exception type:   System.Exception",
		"Message:          <none>",
		"InnerException:   <none>",
		"HResult: 80131500",
	)

	dec := newDecoder(t, f)
	obj, err := dec.ClrObject(0x1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), obj.CCW)
	assert.Equal(t, uint64(0x1d2c4a8e2f8), obj.Addr)
	assert.Equal(t, uint64(0x7ff8a1b2c3d4), obj.MethodTable)
	assert.True(t, obj.IsException)
	assert.Equal(t, "Collection was modified", obj.Message)
	assert.Equal(t, uint32(0x80131509), obj.HResult)
	require.Len(t, obj.Stack, 2)
	assert.Equal(t, "MyApp!MyApp.MainPage.OnClick(System.Object)+0x42", obj.Stack[1])
	require.NotNil(t, obj.Inner)
	assert.Equal(t, "System.Exception", obj.Inner.TypeName)
	assert.Empty(t, obj.Inner.Message)

	r := dec.CLR(0x1000)
	assert.Equal(t, "InnerException", r.NestedType)
	require.NotNil(t, r.Blame)
	assert.Equal(t, "MyApp!MyApp.MainPage.OnClick(System.Object)+0x42", r.Blame.Name)

	_, err = dec.ClrObject(0x2000)
	assert.ErrorIs(t, err, ErrNotManaged)
}

func TestReportFormat(t *testing.T) {
	r := &Report{
		Kind:      KindStowed,
		Addr:      0x1000,
		Signature: "SE01",
		Form:      FormBinary,
		HResult:   0x80004005,
		Stack:     []Frame{{Addr: 1, Name: "a!x"}, {Addr: 2, Name: "a!y"}, {Addr: 3, Name: "a!z"}},
	}
	var b bytes.Buffer
	require.NoError(t, r.Format(&b, 2))
	assert.Equal(t, "stowed 0x1000 SE01 binary hr=0x80004005\n  00 0x1 a!x\n  01 0x2 a!y\n  ... 1 more frames\n", b.String())
}

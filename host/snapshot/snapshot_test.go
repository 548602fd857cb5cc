package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/xamldbg/host"
)

const sample = `
pointerSize: 8
currentThread: 7
noisyDump: true
regions:
  - addr: 0x1000
    data: "00200000 00000000 11223344"
modules:
  - name: Microsoft_UI_Xaml
    version: 3.1.5.0
    base: 0x2000
    size: 0x1000
    symbolsLoaded: true
    symbols:
      "CButton::` + "`vftable'" + `": 0x2000
      "DirectUI::DXamlCore::s_tlsIndex": 0x2100
    enums:
      KnownPropertyIndex:
        12: UIElement_Opacity
threads:
  - id: 7
    teb: 0x1000
    frames:
      - {ip: 0x2010, sp: 0x8000}
      - {ip: 0x2104, name: "custom!Frame"}
    exception:
      code: 0xC000027B
      params: [0x1000, 1]
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)

	data, err := s.MemRead(0x1008, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, data)

	_, err = s.MemRead(0x100a, 8)
	assert.ErrorIs(t, err, host.ErrMemoryUnavailable)

	name, err := s.SymbolName(0x2010)
	require.NoError(t, err)
	assert.Equal(t, "Microsoft_UI_Xaml!CButton::`vftable'+0x10", name)

	enum, err := s.EnumName("Microsoft_UI_Xaml", "KnownPropertyIndex", 12)
	require.NoError(t, err)
	assert.Equal(t, "UIElement_Opacity", enum)

	th, err := s.CurrentThread()
	require.NoError(t, err)
	frames, err := th.Frames()
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "Microsoft_UI_Xaml!CButton::`vftable'+0x10", frames[0].Name)
	assert.Equal(t, "custom!Frame", frames[1].Name)

	rec, err := th.LastException()
	require.NoError(t, err)
	assert.True(t, rec.IsStowed())
	assert.Equal(t, []uint64{0x1000, 1}, rec.Params)
}

func TestDumpNoise(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)

	first, err := s.Execute("dps 0x1000 L1")
	require.NoError(t, err)
	assert.Len(t, first, 3)

	second, err := s.Execute("dps 0x1000 L1")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "00000000`00001000  00000000`00002000 Microsoft_UI_Xaml!CButton::`vftable'", second[0])

	_, err = s.Execute("!analyze -v")
	assert.ErrorIs(t, err, host.ErrCommandUnsupported)
}

type record struct {
	Size    uint32
	Tag     uint32
	Address uintptr
	Count   uint32
	Text    string `encoding:"utf16"`
}

func TestPutExtract(t *testing.T) {
	for _, ptrSize := range []uint64{4, 8} {
		s := New(ptrSize)
		in := record{Size: 0x28, Tag: 0x53453032, Address: 0x7ff00010, Count: 3, Text: "heap"}
		addr, err := s.Put(in)
		require.NoError(t, err)

		tag, err := host.Read[uint32](host.ToPointer(s, addr+4))
		require.NoError(t, err)
		assert.Equal(t, uint32(0x53453032), tag)

		ptr, err := host.ToPointer(s, addr+8).MemReadPointer()
		require.NoError(t, err)
		assert.Equal(t, uint64(0x7ff00010), ptr.Address())

		var out record
		require.NoError(t, s.Extract(addr, &out))
		assert.Equal(t, in, out, "pointer size %d", ptrSize)
	}
}

func TestWriteAcrossRegions(t *testing.T) {
	s := New(8)
	s.Map(0x3004, 4)
	s.Write(0x3000, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9})
	data, err := s.MemRead(0x3000, 9)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, data)
}

type padded struct {
	Link uintptr
	Tag  uint32
}

func TestPutTailPadding(t *testing.T) {
	for _, ptrSize := range []uint64{4, 8} {
		s := New(ptrSize)
		stride := 2 * ptrSize
		addr, err := s.Put([2]padded{{Link: 0x1000, Tag: 0x53544F57}, {Link: 0x2000, Tag: 0x57333245}})
		require.NoError(t, err)

		link, err := host.ToPointer(s, addr+stride).MemReadPointer()
		require.NoError(t, err)
		assert.Equal(t, uint64(0x2000), link.Address())
		tag, err := host.Read[uint32](host.ToPointer(s, addr+stride+ptrSize))
		require.NoError(t, err)
		assert.Equal(t, uint32(0x57333245), tag)

		var second padded
		require.NoError(t, s.Extract(addr+stride, &second))
		assert.Equal(t, padded{Link: 0x2000, Tag: 0x57333245}, second, "pointer size %d", ptrSize)

		var pair [2]padded
		require.NoError(t, s.Extract(addr, &pair))
		assert.Equal(t, [2]padded{{Link: 0x1000, Tag: 0x53544F57}, {Link: 0x2000, Tag: 0x57333245}}, pair, "pointer size %d", ptrSize)
	}
}

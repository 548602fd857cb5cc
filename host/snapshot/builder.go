package snapshot

import (
	"math"
	"unicode/utf16"

	"github.com/wnxd/xamldbg/encoding"
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/layout"
)

// Map adds a zeroed region. It must not overlap an existing region.
func (s *Snapshot) Map(addr, size uint64) {
	s.Regions = append(s.Regions, &Region{Addr: addr, Data: make([]byte, size)})
	s.sortRegions()
}

// Alloc returns zeroed, 16 byte aligned memory from the synthetic heap.
func (s *Snapshot) Alloc(size uint64) uint64 {
	size = layout.Align(max(size, 1), 16)
	if s.heap == 0 {
		s.heap, s.limit = heapBase, heapBase
	}
	if s.heap+size > s.limit {
		chunk := layout.Align(size, heapChunk)
		s.Map(s.limit, chunk)
		s.limit += chunk
	}
	addr := s.heap
	s.heap += size
	return addr
}

func (s *Snapshot) Write(addr uint64, data []byte) {
	for len(data) > 0 {
		r := s.regionOf(addr)
		if r == nil {
			size := uint64(len(data))
			for _, next := range s.Regions {
				if next.Addr > addr {
					size = min(size, next.Addr-addr)
					break
				}
			}
			s.Map(addr, size)
			continue
		}
		n := copy(r.Data[addr-r.Addr:], data)
		data = data[n:]
		addr += uint64(n)
	}
}

func (s *Snapshot) WriteU8(addr uint64, v uint8) {
	s.Write(addr, []byte{v})
}

func (s *Snapshot) WriteU16(addr uint64, v uint16) {
	s.Write(addr, []byte{byte(v), byte(v >> 8)})
}

func (s *Snapshot) WriteU32(addr uint64, v uint32) {
	s.Write(addr, []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func (s *Snapshot) WriteU64(addr uint64, v uint64) {
	s.WriteU32(addr, uint32(v))
	s.WriteU32(addr+4, uint32(v>>32))
}

func (s *Snapshot) WriteF32(addr uint64, v float32) {
	s.WriteU32(addr, math.Float32bits(v))
}

func (s *Snapshot) WritePointer(addr, v uint64) {
	if s.PtrSize == 4 {
		s.WriteU32(addr, uint32(v))
		return
	}
	s.WriteU64(addr, v)
}

// PutWideString stores s as NUL terminated UTF-16 and returns its address.
func (s *Snapshot) PutWideString(str string) uint64 {
	units := utf16.Encode([]rune(str))
	addr := s.Alloc(uint64(len(units)+1) * 2)
	for i, u := range units {
		s.WriteU16(addr+uint64(i)*2, u)
	}
	return addr
}

func (s *Snapshot) PutString(str string) uint64 {
	addr := s.Alloc(uint64(len(str) + 1))
	s.Write(addr, []byte(str))
	return addr
}

// Put encodes val into freshly allocated memory with the target pointer size.
// Structs are written in place; a pointer argument is written as a pointer.
func (s *Snapshot) Put(val any) (uint64, error) {
	addr := s.Alloc(uint64(encoding.EncodeSize(int(s.PtrSize), val)))
	return addr, s.PutAt(addr, val)
}

func (s *Snapshot) PutAt(addr uint64, val any) error {
	return encoding.Encode(&memStream{s: s, addr: addr}, val)
}

func (s *Snapshot) Extract(addr uint64, val any) error {
	return encoding.Decode(&memStream{s: s, addr: addr}, val)
}

func (s *Snapshot) AddModule(info host.ModuleInfo, symbolsLoaded bool) *Module {
	m := &Module{
		Name:          info.Name,
		Path:          info.Path,
		Version:       info.Version,
		Base:          info.Base,
		Size:          info.Size,
		SymbolsLoaded: symbolsLoaded,
		Symbols:       make(map[string]uint64),
		Enums:         make(map[string]map[uint64]string),
		Types:         make(map[string]TypeLayout),
	}
	s.ModuleList = append(s.ModuleList, m)
	return m
}

func (m *Module) AddSymbol(name string, addr uint64) {
	m.Symbols[name] = addr
}

func (m *Module) AddEnum(enum string, value uint64, name string) {
	values, ok := m.Enums[enum]
	if !ok {
		values = make(map[uint64]string)
		m.Enums[enum] = values
	}
	values[value] = name
}

func (m *Module) AddType(name string, size uint64, fields map[string]uint64) {
	m.Types[name] = TypeLayout{Size: size, Fields: fields}
}

// AddThread creates a thread with a zeroed TEB large enough for the TLS arrays.
func (s *Snapshot) AddThread(id uint32) *Thread {
	th := &Thread{TID: id, TEBAddr: s.Alloc(0x2000), snap: s}
	s.ThreadList = append(s.ThreadList, th)
	if s.Current == 0 {
		s.Current = id
	}
	return th
}

func (th *Thread) AddFrame(ip uint64, name string, params ...uint64) {
	th.FrameList = append(th.FrameList, Frame{IP: ip, Name: name, Params: params})
}

func (th *Thread) SetException(code uint32, addr uint64, params ...uint64) {
	th.Exception = &Exception{Code: code, Address: addr, Params: params}
}

func (s *Snapshot) SetCommand(command string, lines ...string) {
	s.Commands[command] = lines
}

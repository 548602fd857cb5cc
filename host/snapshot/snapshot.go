package snapshot

import (
	"encoding/hex"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/wnxd/xamldbg/host"
)

// Snapshot is a captured target: memory regions, modules with their symbols and
// type layouts, threads and canned host command output. It implements host.Host
// so it can be analysed offline, and doubles as a builder for synthetic targets.
type Snapshot struct {
	PtrSize    uint64              `yaml:"pointerSize"`
	Current    uint32              `yaml:"currentThread"`
	NoisyDump  bool                `yaml:"noisyDump"`
	Regions    []*Region           `yaml:"regions"`
	ModuleList []*Module           `yaml:"modules"`
	ThreadList []*Thread           `yaml:"threads"`
	Commands   map[string][]string `yaml:"commands"`

	heap   uint64
	limit  uint64
	dumped bool
}

type Region struct {
	Addr uint64   `yaml:"addr"`
	Data HexBytes `yaml:"data"`
}

type HexBytes []byte

type Module struct {
	Name          string                       `yaml:"name"`
	Path          string                       `yaml:"path"`
	Version       string                       `yaml:"version"`
	Base          uint64                       `yaml:"base"`
	Size          uint64                       `yaml:"size"`
	SymbolsLoaded bool                         `yaml:"symbolsLoaded"`
	Symbols       map[string]uint64            `yaml:"symbols"`
	Enums         map[string]map[uint64]string `yaml:"enums"`
	Types         map[string]TypeLayout        `yaml:"types"`
}

type TypeLayout struct {
	Size   uint64            `yaml:"size"`
	Fields map[string]uint64 `yaml:"fields"`
}

var _ host.Host = (*Snapshot)(nil)

const (
	heapBase  = 0x10000000
	heapChunk = 0x100000
)

func New(ptrSize uint64) *Snapshot {
	return &Snapshot{PtrSize: ptrSize, Commands: make(map[string][]string)}
}

func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Snapshot, error) {
	s := new(Snapshot)
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "parse snapshot")
	}
	switch s.PtrSize {
	case 0:
		s.PtrSize = 8
	case 4, 8:
	default:
		return nil, errors.Errorf("unsupported pointer size %d", s.PtrSize)
	}
	if s.Commands == nil {
		s.Commands = make(map[string][]string)
	}
	for _, th := range s.ThreadList {
		th.snap = s
	}
	s.sortRegions()
	return s, nil
}

func (b *HexBytes) UnmarshalYAML(node *yaml.Node) error {
	var str string
	if err := node.Decode(&str); err != nil {
		return err
	}
	str = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\t', '\r':
			return -1
		}
		return r
	}, str)
	data, err := hex.DecodeString(str)
	if err != nil {
		return errors.Wrap(err, "region data")
	}
	*b = data
	return nil
}

func (b HexBytes) MarshalYAML() (any, error) {
	return hex.EncodeToString(b), nil
}

func (s *Snapshot) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Snapshot) PointerSize() uint64 {
	return s.PtrSize
}

func (s *Snapshot) MemRead(addr, size uint64) ([]byte, error) {
	if addr == 0 || addr+size < addr {
		return nil, &host.MemoryError{Addr: addr, Size: size}
	}
	out := make([]byte, size)
	cur, end := addr, addr+size
	for cur < end {
		r := s.regionOf(cur)
		if r == nil {
			return nil, &host.MemoryError{Addr: addr, Size: size}
		}
		n := copy(out[cur-addr:], r.Data[cur-r.Addr:])
		cur += uint64(n)
	}
	return out, nil
}

func (s *Snapshot) regionOf(addr uint64) *Region {
	i := sort.Search(len(s.Regions), func(i int) bool {
		return s.Regions[i].Addr+uint64(len(s.Regions[i].Data)) > addr
	})
	if i < len(s.Regions) && s.Regions[i].Addr <= addr {
		return s.Regions[i]
	}
	return nil
}

func (s *Snapshot) sortRegions() {
	slices.SortFunc(s.Regions, func(a, b *Region) int {
		switch {
		case a.Addr < b.Addr:
			return -1
		case a.Addr > b.Addr:
			return 1
		}
		return 0
	})
}

func (s *Snapshot) Modules() ([]host.ModuleInfo, error) {
	infos := make([]host.ModuleInfo, 0, len(s.ModuleList))
	for _, m := range s.ModuleList {
		infos = append(infos, m.Info())
	}
	return infos, nil
}

func (m *Module) Info() host.ModuleInfo {
	return host.ModuleInfo{Name: m.Name, Path: m.Path, Version: m.Version, Base: m.Base, Size: m.Size}
}

func (s *Snapshot) module(name string) *Module {
	for _, m := range s.ModuleList {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	return nil
}

func (s *Snapshot) Threads() ([]host.Thread, error) {
	threads := make([]host.Thread, 0, len(s.ThreadList))
	for _, th := range s.ThreadList {
		threads = append(threads, th)
	}
	return threads, nil
}

func (s *Snapshot) CurrentThread() (host.Thread, error) {
	for _, th := range s.ThreadList {
		if th.TID == s.Current {
			return th, nil
		}
	}
	if s.Current == 0 && len(s.ThreadList) > 0 {
		return s.ThreadList[0], nil
	}
	return nil, host.ErrThreadNotFound
}

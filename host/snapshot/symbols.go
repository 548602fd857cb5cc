package snapshot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wnxd/xamldbg/host"
)

func (s *Snapshot) SymbolsLoaded(module string) bool {
	m := s.module(module)
	return m != nil && m.SymbolsLoaded
}

func (s *Snapshot) moduleByAddr(addr uint64) *Module {
	for _, m := range s.ModuleList {
		if addr >= m.Base && addr < m.Base+m.Size {
			return m
		}
	}
	return nil
}

func (s *Snapshot) SymbolName(addr uint64) (string, error) {
	m := s.moduleByAddr(addr)
	if m == nil {
		return "", host.ErrSymbolNotFound
	}
	if !m.SymbolsLoaded {
		return fmt.Sprintf("%s+0x%x", m.Name, addr-m.Base), nil
	}
	var (
		best  string
		value uint64
		found bool
	)
	for name, v := range m.Symbols {
		if v > addr {
			continue
		}
		if !found || v > value || (v == value && name < best) {
			best, value, found = name, v, true
		}
	}
	if !found {
		return fmt.Sprintf("%s+0x%x", m.Name, addr-m.Base), nil
	}
	if addr == value {
		return m.Name + "!" + best, nil
	}
	return fmt.Sprintf("%s!%s+0x%x", m.Name, best, addr-value), nil
}

func (s *Snapshot) SymbolAddress(module, name string) (uint64, error) {
	m := s.module(module)
	if m == nil || !m.SymbolsLoaded {
		return 0, host.ErrSymbolNotFound
	}
	v, ok := m.Symbols[name]
	if !ok {
		return 0, host.ErrSymbolNotFound
	}
	return v, nil
}

func (s *Snapshot) TypeLayout(module, typ string) (host.TypeLayout, error) {
	m := s.module(module)
	if m == nil || !m.SymbolsLoaded {
		return host.TypeLayout{}, host.ErrTypeNotFound
	}
	tl, ok := m.Types[typ]
	if !ok {
		return host.TypeLayout{}, host.ErrTypeNotFound
	}
	return host.TypeLayout{Name: typ, Size: tl.Size, Fields: tl.Fields}, nil
}

func (s *Snapshot) EnumName(module, enum string, value uint64) (string, error) {
	m := s.module(module)
	if m == nil || !m.SymbolsLoaded {
		return "", host.ErrSymbolNotFound
	}
	name, ok := m.Enums[enum][value]
	if !ok {
		return "", host.ErrSymbolNotFound
	}
	return name, nil
}

// Execute answers canned command output first and emulates "dps <addr> L1".
func (s *Snapshot) Execute(command string) ([]string, error) {
	command = strings.TrimSpace(command)
	if lines, ok := s.Commands[command]; ok {
		return lines, nil
	}
	fields := strings.Fields(command)
	if len(fields) == 3 && fields[0] == "dps" && strings.EqualFold(fields[2], "L1") {
		return s.dps(fields[1])
	}
	return nil, host.ErrCommandUnsupported
}

func (s *Snapshot) dps(arg string) ([]string, error) {
	addr, err := strconv.ParseUint(strings.TrimPrefix(strings.ReplaceAll(arg, "`", ""), "0x"), 16, 64)
	if err != nil {
		return nil, err
	}
	var lines []string
	if s.NoisyDump && !s.dumped {
		lines = append(lines, "*** WARNING: Unable to verify checksum for module")
		lines = append(lines, "Symbol loading may be incomplete")
	}
	s.dumped = true
	ptr, err := host.ToPointer(s, addr).MemReadPointer()
	if err != nil {
		return append(lines, fmt.Sprintf("%s  ????????", s.format(addr))), nil
	}
	line := fmt.Sprintf("%s  %s", s.format(addr), s.format(ptr.Address()))
	if name, err := s.SymbolName(ptr.Address()); err == nil {
		line += " " + name
	}
	return append(lines, line), nil
}

func (s *Snapshot) format(v uint64) string {
	if s.PtrSize == 4 {
		return fmt.Sprintf("%08x", v)
	}
	return fmt.Sprintf("%08x`%08x", v>>32, v&0xFFFFFFFF)
}

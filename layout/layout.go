package layout

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-version"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

type Field struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Count int    `yaml:"count,omitempty"`
}

type Type struct {
	Name   string  `yaml:"name"`
	Fields []Field `yaml:"fields"`
}

type SimpleProperty struct {
	Property string `yaml:"property"`
	Index    uint32 `yaml:"index"`
	Symbol   string `yaml:"symbol"`
}

// Table is the layout description of one module over a range of versions.
// Besides struct layouts it carries the version specific facts that cannot be
// discovered generically from symbols.
type Table struct {
	Module             string            `yaml:"module"`
	Versions           string            `yaml:"versions"`
	Framework          bool              `yaml:"framework"`
	KnownPropertyCount uint32            `yaml:"knownPropertyCount"`
	KnownTypeCount     uint32            `yaml:"knownTypeCount"`
	PeerTagMask        uint64            `yaml:"peerTagMask"`
	TLS                map[string]string `yaml:"tls"`
	Globals            map[string]string `yaml:"globals"`
	SimpleProperties   []SimpleProperty  `yaml:"simpleProperties"`
	Types              []Type            `yaml:"types"`

	source      string
	constraints version.Constraints
	types       map[string]*Type
	resolved    sync.Map
}

type Member struct {
	Offset uint64
	Size   uint64
	Kind   string
	Count  int
}

type Resolved struct {
	Name    string
	Size    uint64
	Align   uint64
	Members map[string]Member
}

type resolveKey struct {
	name string
	ptr  uint64
}

func (t *Table) init(source string) error {
	t.source = source
	if t.Module == "" {
		return errors.Errorf("%s: module missing", source)
	}
	if t.Versions == "" {
		t.Versions = ">= 0"
	}
	c, err := version.NewConstraint(t.Versions)
	if err != nil {
		return errors.Wrapf(err, "%s: versions %q", source, t.Versions)
	}
	t.constraints = c
	t.types = make(map[string]*Type, len(t.Types))
	for i := range t.Types {
		t.types[t.Types[i].Name] = &t.Types[i]
	}
	return nil
}

func (t *Table) Source() string {
	return t.source
}

func (t *Table) Match(module, ver string) bool {
	if !strings.EqualFold(t.Module, module) {
		return false
	}
	if ver == "" {
		return true
	}
	v, err := version.NewVersion(ver)
	if err != nil {
		return false
	}
	return t.constraints.Check(v)
}

func (t *Table) HasType(name string) bool {
	_, ok := t.types[name]
	return ok
}

// Resolve computes field offsets for the target pointer size using natural
// alignment. Nested members are flattened into dotted names.
func (t *Table) Resolve(name string, ptrSize uint64) (*Resolved, error) {
	key := resolveKey{name, ptrSize}
	if v, ok := t.resolved.Load(key); ok {
		return v.(*Resolved), nil
	}
	r, err := t.resolve(name, ptrSize, 0)
	if err != nil {
		return nil, err
	}
	t.resolved.Store(key, r)
	return r, nil
}

func (t *Table) resolve(name string, ptrSize uint64, depth int) (*Resolved, error) {
	if depth > 16 {
		return nil, errors.Wrapf(ErrKindInvalid, "%s: recursive type %s", t.source, name)
	}
	typ, ok := t.types[name]
	if !ok {
		return nil, errors.Wrapf(ErrTypeNotFound, "%s: %s", t.Module, name)
	}
	r := &Resolved{Name: name, Align: 1, Members: make(map[string]Member)}
	var offset uint64
	for _, field := range typ.Fields {
		count := uint64(max(field.Count, 1))
		size, align, nested, err := t.kindSize(field.Kind, ptrSize, depth)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", name, field.Name)
		}
		offset = Align(offset, align)
		r.Members[field.Name] = Member{Offset: offset, Size: size, Kind: field.Kind, Count: int(count)}
		if nested != nil {
			for sub, m := range nested.Members {
				m.Offset += offset
				r.Members[field.Name+"."+sub] = m
			}
		}
		offset += size * count
		r.Align = max(r.Align, align)
	}
	r.Size = Align(offset, r.Align)
	return r, nil
}

func (t *Table) kindSize(kind string, ptrSize uint64, depth int) (size, align uint64, nested *Resolved, err error) {
	switch kind {
	case "ptr":
		return ptrSize, ptrSize, nil, nil
	case "u8", "i8", "bool":
		return 1, 1, nil, nil
	case "u16", "i16", "wchar":
		return 2, 2, nil, nil
	case "u32", "i32", "f32", "hresult":
		return 4, 4, nil, nil
	case "u64", "i64", "f64":
		return 8, 8, nil, nil
	}
	if _, ok := t.types[kind]; !ok {
		return 0, 0, nil, errors.Wrapf(ErrKindInvalid, "kind %q", kind)
	}
	nested, err = t.resolve(kind, ptrSize, depth+1)
	if err != nil {
		return 0, 0, nil, err
	}
	return nested.Size, nested.Align, nested, nil
}

func (r *Resolved) Offset(field string) (uint64, error) {
	m, ok := r.Members[field]
	if !ok {
		return 0, errors.Wrapf(ErrFieldNotFound, "%s.%s", r.Name, field)
	}
	return m.Offset, nil
}

func (r *Resolved) String() string {
	return fmt.Sprintf("%s (size %#x)", r.Name, r.Size)
}

func Align[I constraints.Integer](a, b I) I {
	if b == 0 {
		return a
	}
	return (a + b - 1) &^ (b - 1)
}

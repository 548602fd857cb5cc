package model

import (
	"github.com/pkg/errors"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
)

type Variant string

const (
	VariantType     Variant = "type"
	VariantProperty Variant = "property"
)

const (
	KnownPropertyEnum = "KnownPropertyIndex"
	KnownTypeEnum     = "KnownTypeIndex"
)

// Class describes one known or custom metadata entry.
type Class struct {
	Variant Variant
	Index   uint32
	Name    string
	Custom  bool
	// DeclaringType for properties, BaseType for types.
	Related uint32
}

type Metadata struct {
	t *Target
}

func NewMetadata(t *Target) *Metadata {
	return &Metadata{t}
}

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantType:
		return VariantType, nil
	case VariantProperty:
		return VariantProperty, nil
	}
	return "", errors.Wrapf(debugger.ErrArgumentInvalid, "variant %q", s)
}

func (m *Metadata) threshold(v Variant) uint32 {
	if v == VariantProperty {
		return m.t.Table.KnownPropertyCount
	}
	return m.t.Table.KnownTypeCount
}

// Lookup resolves index through the known enumeration below the custom
// threshold and through the custom metadata cache at or above it.
func (m *Metadata) Lookup(v Variant, index uint32) (Class, error) {
	known := m.threshold(v)
	if index < known {
		enum := KnownTypeEnum
		if v == VariantProperty {
			enum = KnownPropertyEnum
		}
		name, err := m.t.Dbg.EnumName(m.t.Name(), enum, uint64(index))
		if err != nil {
			return Class{Variant: v, Index: index}, err
		}
		return Class{Variant: v, Index: index, Name: name}, nil
	}
	return m.Custom(v, index-known)
}

// Custom reads entry i of the custom metadata cache.
func (m *Metadata) Custom(v Variant, i uint32) (Class, error) {
	entries, err := m.entries(v)
	if err != nil {
		return Class{Variant: v, Index: m.threshold(v) + i, Custom: true}, err
	}
	if int(i) >= len(entries) {
		return Class{Variant: v, Index: m.threshold(v) + i, Custom: true}, errors.Wrapf(debugger.ErrArgumentInvalid, "custom %s %d of %d", v, i, len(entries))
	}
	return m.decode(v, m.threshold(v)+i, entries[i].Address())
}

// Customs lists every custom entry of the variant. Unreadable entries keep their
// slot with the error recorded in the name.
func (m *Metadata) Customs(v Variant) ([]Class, error) {
	entries, err := m.entries(v)
	if err != nil {
		return nil, err
	}
	classes := make([]Class, len(entries))
	for i, entry := range entries {
		c, err := m.decode(v, m.threshold(v)+uint32(i), entry.Address())
		if err != nil {
			c.Name = debugger.Placeholder(err)
		}
		classes[i] = c
	}
	return classes, nil
}

func (m *Metadata) entries(v Variant) ([]host.Pointer, error) {
	global := "customTypes"
	if v == VariantProperty {
		global = "customProperties"
	}
	p, err := m.t.Global(global)
	if err != nil {
		return nil, err
	}
	vec, err := m.t.Typed(p.Address(), "xvector")
	if err != nil {
		return nil, err
	}
	return m.t.vector(vec)
}

func (m *Metadata) decode(v Variant, index uint32, addr uint64) (Class, error) {
	c := Class{Variant: v, Index: index, Custom: true}
	typ, related := "CCustomType", "BaseType"
	if v == VariantProperty {
		typ, related = "CCustomProperty", "DeclaringType"
	}
	ta, err := m.t.Typed(addr, typ)
	if err != nil {
		return c, err
	}
	if c.Name, err = readString(ta, "Name"); err != nil {
		return c, err
	}
	c.Related, err = debugger.Field[uint32](ta, related)
	return c, err
}

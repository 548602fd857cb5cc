package model

import (
	"fmt"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
)

const (
	SparsePairType         = "std::pair<enum KnownPropertyIndex const ,EffectiveValueSparse>"
	DependencyPropertyType = "CDependencyProperty"
)

type Property struct {
	t      *Target
	Index  uint32
	Flags  uint32
	Value  host.Pointer
	Source debugger.TypedAddress
}

// NewSparseProperty reads one entry of an element's sparse value table.
func NewSparseProperty(t *Target, addr uint64) (*Property, error) {
	ta, err := t.Typed(addr, SparsePairType)
	if err != nil {
		return nil, err
	}
	p := &Property{t: t, Source: ta}
	if p.Index, err = debugger.Field[uint32](ta, "Index"); err != nil {
		return nil, err
	}
	if p.Flags, err = debugger.Field[uint32](ta, "Flags"); err != nil {
		return nil, err
	}
	if p.Value, err = ta.ReadPointer("Value"); err != nil {
		return nil, err
	}
	return p, nil
}

func NewDependencyProperty(t *Target, addr uint64) (*Property, error) {
	ta, err := t.Typed(addr, DependencyPropertyType)
	if err != nil {
		return nil, err
	}
	p := &Property{t: t, Source: ta}
	if p.Index, err = debugger.Field[uint32](ta, "Index"); err != nil {
		return nil, err
	}
	if p.Flags, err = debugger.Field[uint32](ta, "Flags"); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Property) IsCustom() bool {
	return p.Index >= p.t.Table.KnownPropertyCount
}

func (p *Property) PropertyName() (string, error) {
	c, err := NewMetadata(p.t).Lookup(VariantProperty, p.Index)
	return c.Name, err
}

func (p *Property) String() string {
	name, err := p.PropertyName()
	if err != nil {
		name = fmt.Sprintf("#%d %s", p.Index, debugger.Placeholder(err))
	}
	if p.Value.Host() == nil {
		return name
	}
	return fmt.Sprintf("%s = %#x", name, p.Value.Address())
}

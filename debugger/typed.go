package debugger

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/layout"
)

// TypedAddress is an address in target memory annotated with the type and
// module whose layout interprets it.
type TypedAddress struct {
	Module string
	Type   string
	Addr   uint64

	dbg    Debugger
	layout *layout.Resolved
}

func NewTypedAddress(dbg Debugger, addr uint64, module, typ string, l *layout.Resolved) TypedAddress {
	return TypedAddress{Module: module, Type: typ, Addr: addr, dbg: dbg, layout: l}
}

func (t TypedAddress) IsNil() bool {
	return t.Addr == 0
}

func (t TypedAddress) Debugger() Debugger {
	return t.dbg
}

func (t TypedAddress) Layout() *layout.Resolved {
	return t.layout
}

func (t TypedAddress) Pointer() host.Pointer {
	return t.dbg.ToPointer(t.Addr)
}

func (t TypedAddress) Size() uint64 {
	if t.layout == nil {
		return 0
	}
	return t.layout.Size
}

// Readable reports whether the whole object can be read.
func (t TypedAddress) Readable() bool {
	return t.Pointer().Readable(max(t.Size(), 1))
}

func (t TypedAddress) Has(field string) bool {
	if t.layout == nil {
		return false
	}
	_, ok := t.layout.Members[field]
	return ok
}

func (t TypedAddress) FieldAddress(field string) (host.Pointer, error) {
	if t.layout == nil {
		return host.Pointer{}, &SymbolUnavailableError{t.Module, t.Type}
	}
	off, err := t.layout.Offset(field)
	if err != nil {
		return host.Pointer{}, err
	}
	return t.Pointer().Add(off), nil
}

func (t TypedAddress) ReadPointer(field string) (host.Pointer, error) {
	p, err := t.FieldAddress(field)
	if err != nil {
		return host.Pointer{}, err
	}
	return p.MemReadPointer()
}

// Follow reads the pointer stored in field and types its target.
func (t TypedAddress) Follow(field, typ string) (TypedAddress, error) {
	p, err := t.ReadPointer(field)
	if err != nil {
		return TypedAddress{}, err
	}
	return t.dbg.Typed(p.Address(), t.Module, typ)
}

// Embedded types the storage of field in place.
func (t TypedAddress) Embedded(field, typ string) (TypedAddress, error) {
	p, err := t.FieldAddress(field)
	if err != nil {
		return TypedAddress{}, err
	}
	return t.dbg.Typed(p.Address(), t.Module, typ)
}

func (t TypedAddress) Cast(typ string) (TypedAddress, error) {
	return t.dbg.Typed(t.Addr, t.Module, typ)
}

// Pointers reads an inline pointer array field, limited to count entries and
// to the declared array length.
func (t TypedAddress) Pointers(field string, count uint64) ([]host.Pointer, error) {
	p, err := t.FieldAddress(field)
	if err != nil {
		return nil, err
	}
	if m := t.layout.Members[field]; m.Count > 0 {
		count = min(count, uint64(m.Count))
	}
	if count == 0 {
		return nil, nil
	}
	return p.MemReadPointers(count)
}

func (t TypedAddress) String() string {
	return fmt.Sprintf("%s!%s @ %#x", t.Module, t.Type, t.Addr)
}

func Field[V constraints.Integer | constraints.Float](t TypedAddress, field string) (V, error) {
	p, err := t.FieldAddress(field)
	if err != nil {
		var v V
		return v, err
	}
	v, err := host.Read[V](p)
	return v, errors.WithMessagef(err, "%s.%s", t.Type, field)
}

package model

import (
	"fmt"
	"iter"
	"strings"

	"github.com/apex/log"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/infer"
)

const (
	DependencyObjectType = "CDependencyObject"
	UIElementType        = "CUIElement"
	PeerType             = "DirectUI::DependencyObject"

	peerPrefix      = "DirectUI::"
	uiElementFlag   = 0x1
	maxSparseValues = 0x1000
	maxSimpleValues = 0x10000
)

// Element is one logical UI node: the native object and its peer.
type Element struct {
	t            *Target
	Type         infer.Type
	Disconnected bool

	native debugger.TypedAddress
	peer   debugger.TypedAddress
}

// SimpleValue is a simple property found for an element.
type SimpleValue struct {
	Property string
	Index    uint32
	Value    host.Pointer
}

// NewElement accepts either the native object or its peer. A peer whose native
// side is gone yields a partial element.
func NewElement(t *Target, addr uint64) (*Element, error) {
	typ, _ := t.Infer.InferType(addr, false)
	if strings.HasPrefix(typ.Class, peerPrefix) {
		return newFromPeer(t, addr, typ)
	}
	return newFromNative(t, addr, typ)
}

func newFromPeer(t *Target, addr uint64, typ infer.Type) (*Element, error) {
	peer, err := t.Typed(addr, PeerType)
	if err != nil {
		return nil, err
	}
	native, err := peer.ReadPointer("Native")
	if err != nil {
		return nil, err
	}
	e := &Element{t: t, Type: typ, peer: peer}
	if native.IsNil() {
		log.WithField("peer", fmt.Sprintf("%#x", addr)).Warn("peer is disconnected from its native object")
		e.Disconnected = true
		return e, nil
	}
	if e.native, err = t.Typed(native.Address(), DependencyObjectType); err != nil {
		return nil, err
	}
	if nt, ok := t.Infer.InferType(native.Address(), true); ok {
		e.Type = nt
	}
	return e, nil
}

func newFromNative(t *Target, addr uint64, typ infer.Type) (*Element, error) {
	native, err := t.Typed(addr, DependencyObjectType)
	if err != nil {
		return nil, err
	}
	e := &Element{t: t, Type: typ, native: native}
	if !native.Readable() {
		return nil, &host.MemoryError{Addr: addr, Size: native.Size()}
	}
	if peer := e.Peer(); !peer.IsNil() {
		e.peer, _ = t.Typed(peer.Address(), PeerType)
	}
	return e, nil
}

func (e *Element) Native() host.Pointer {
	if e.native.Debugger() == nil {
		return e.t.Dbg.ToPointer(0)
	}
	return e.native.Pointer()
}

// Peer returns the peer pointer with its tag bits cleared.
func (e *Element) Peer() host.Pointer {
	if e.native.Debugger() == nil {
		if e.peer.Debugger() == nil {
			return e.t.Dbg.ToPointer(0)
		}
		return e.peer.Pointer()
	}
	p, err := e.native.ReadPointer("Peer")
	if err != nil {
		return e.t.Dbg.ToPointer(0)
	}
	return p.Untag(e.t.Table.PeerTagMask)
}

func (e *Element) IsUIElement() bool {
	if e.native.Debugger() == nil {
		return false
	}
	flags, err := debugger.Field[uint32](e.native, "Flags")
	return err == nil && flags&uiElementFlag != 0
}

func (e *Element) Name() (string, error) {
	if e.native.Debugger() == nil {
		return "", debugger.ErrMemoryUnavailable
	}
	return readString(e.native, "Name")
}

func (e *Element) TypeIndex() (uint32, error) {
	if e.native.Debugger() == nil {
		return 0, debugger.ErrMemoryUnavailable
	}
	return debugger.Field[uint32](e.native, "TypeIndex")
}

// SparseProperties walks the sparse value table from target memory on every
// range.
func (e *Element) SparseProperties() iter.Seq[*Property] {
	return func(yield func(*Property) bool) {
		if e.native.Debugger() == nil {
			return
		}
		table, err := e.native.Follow("ValueTable", "SparseValueTable")
		if err != nil || table.IsNil() {
			return
		}
		begin, err := table.ReadPointer("Begin")
		if err != nil {
			return
		}
		end, err := table.ReadPointer("End")
		if err != nil {
			return
		}
		l, err := e.t.Dbg.Layout(e.t.Name(), SparsePairType)
		if err != nil || l.Size == 0 {
			return
		}
		for addr, n := begin.Address(), 0; addr < end.Address() && n < maxSparseValues; addr, n = addr+l.Size, n+1 {
			p, err := NewSparseProperty(e.t, addr)
			if err != nil {
				log.WithError(err).Debug("sparse value unreadable")
				return
			}
			if !yield(p) {
				return
			}
		}
	}
}

// SimpleProperties scans every configured simple property storage table for an
// entry keyed by this element.
func (e *Element) SimpleProperties() iter.Seq[SimpleValue] {
	return func(yield func(SimpleValue) bool) {
		key := e.Native().Address()
		if key == 0 {
			return
		}
		for _, sp := range e.t.Table.SimpleProperties {
			value, ok := e.findSimple(sp.Symbol, key)
			if !ok {
				continue
			}
			if !yield(SimpleValue{Property: sp.Property, Index: sp.Index, Value: value}) {
				return
			}
		}
	}
}

func (e *Element) findSimple(symbol string, key uint64) (host.Pointer, bool) {
	addr, err := e.t.Module.FindSymbol(symbol)
	if err != nil || addr == 0 {
		return host.Pointer{}, false
	}
	storage, err := e.t.Typed(addr, "SimplePropertyStorage")
	if err != nil {
		return host.Pointer{}, false
	}
	begin, err := storage.ReadPointer("Begin")
	if err != nil {
		return host.Pointer{}, false
	}
	end, err := storage.ReadPointer("End")
	if err != nil {
		return host.Pointer{}, false
	}
	l, err := e.t.Dbg.Layout(e.t.Name(), "SimplePropertyEntry")
	if err != nil || l.Size == 0 {
		return host.Pointer{}, false
	}
	for addr, n := begin.Address(), 0; addr < end.Address() && n < maxSimpleValues; addr, n = addr+l.Size, n+1 {
		entry, err := e.t.Typed(addr, "SimplePropertyEntry")
		if err != nil {
			return host.Pointer{}, false
		}
		k, err := entry.ReadPointer("Key")
		if err != nil {
			return host.Pointer{}, false
		}
		if k.Address() != key {
			continue
		}
		v, err := entry.ReadPointer("Value")
		return v, err == nil
	}
	return host.Pointer{}, false
}

func (e *Element) Parent() (*Element, error) {
	if e.native.Debugger() == nil {
		return nil, debugger.ErrMemoryUnavailable
	}
	p, err := e.native.ReadPointer("Parent")
	if err != nil || p.IsNil() {
		return nil, err
	}
	return NewElement(e.t, p.Address())
}

func (e *Element) uiElement() (debugger.TypedAddress, bool) {
	if !e.IsUIElement() {
		return debugger.TypedAddress{}, false
	}
	ui, err := e.native.Cast(UIElementType)
	return ui, err == nil
}

func (e *Element) Children() ([]*Element, error) {
	ui, ok := e.uiElement()
	if !ok {
		return nil, nil
	}
	collection, err := ui.Follow("Children", "CDOCollection")
	if err != nil || collection.IsNil() {
		return nil, err
	}
	items, err := e.t.Vector(collection, "Items")
	if err != nil {
		return nil, err
	}
	children := make([]*Element, 0, len(items))
	for _, item := range items {
		if item.IsNil() {
			continue
		}
		child, err := NewElement(e.t, item.Address())
		if err != nil {
			log.WithError(err).WithField("child", fmt.Sprintf("%#x", item.Address())).Debug("child unreadable")
			continue
		}
		children = append(children, child)
	}
	return children, nil
}

func (e *Element) RenderData() (*RenderData, error) {
	ui, ok := e.uiElement()
	if !ok {
		return nil, nil
	}
	return newRenderData(ui)
}

func (e *Element) String() string {
	name, err := e.Name()
	if err != nil {
		name = debugger.Placeholder(err)
	}
	s := fmt.Sprintf("%s native=%#x peer=%#x", e.Type, e.Native().Address(), e.Peer().Address())
	if name != "" {
		s += fmt.Sprintf(" name=%q", name)
	}
	if e.Disconnected {
		s += " (disconnected)"
	}
	return s
}

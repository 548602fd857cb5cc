package model

import (
	"fmt"

	"github.com/wnxd/xamldbg/debugger"
)

type ContentRootType uint32

const (
	ContentRootCoreWindow ContentRootType = iota
	ContentRootXamlIsland
	ContentRootUnknown
)

const maxIdentifierNodes = 256

type ContentRoot struct {
	t *Target
	debugger.TypedAddress
}

func NewContentRoot(t *Target, addr uint64) (*ContentRoot, error) {
	ta, err := t.Typed(addr, "CContentRoot")
	if err != nil {
		return nil, err
	}
	return &ContentRoot{t, ta}, nil
}

func (r *ContentRoot) Type() ContentRootType {
	v, err := debugger.Field[uint32](r.TypedAddress, "Type")
	if err != nil || v >= uint32(ContentRootUnknown) {
		return ContentRootUnknown
	}
	return ContentRootType(v)
}

func (r *ContentRoot) RootElement() (*Element, error) {
	p, err := r.ReadPointer("RootElement")
	if err != nil || p.IsNil() {
		return nil, err
	}
	return NewElement(r.t, p.Address())
}

// Identifier names the root after the first named element found breadth first
// below it.
func (r *ContentRoot) Identifier() string {
	root, err := r.RootElement()
	if err != nil {
		return debugger.Placeholder(err)
	}
	if root == nil {
		return ""
	}
	queue := []*Element{root}
	for n := 0; len(queue) > 0 && n < maxIdentifierNodes; n++ {
		e := queue[0]
		queue = queue[1:]
		if name, err := e.Name(); err == nil && name != "" {
			return name
		}
		children, _ := e.Children()
		queue = append(queue, children...)
	}
	return ""
}

func (r *ContentRoot) String() string {
	id := r.Identifier()
	if id == "" {
		id = "<unnamed>"
	}
	return fmt.Sprintf("%s %#x %s", r.Type(), r.Addr, id)
}

func (t ContentRootType) String() string {
	switch t {
	case ContentRootCoreWindow:
		return "CoreWindow"
	case ContentRootXamlIsland:
		return "XamlIsland"
	}
	return "Unknown"
}

// Island is a XAML island registered with the core.
type Island struct {
	Addr uint64
	Root *ContentRoot
	Err  error
}

type IslandCollection struct {
	Islands []Island
}

func NewIslandCollection(t *Target, islands debugger.TypedAddress) (*IslandCollection, error) {
	items, err := t.vector(islands)
	if err != nil {
		return nil, err
	}
	c := &IslandCollection{Islands: make([]Island, 0, len(items))}
	for _, item := range items {
		island := Island{Addr: item.Address()}
		root, err := t.Typed(item.Address(), "CXamlIslandRoot")
		if err == nil {
			var p debugger.TypedAddress
			if p, err = root.Follow("ContentRoot", "CContentRoot"); err == nil && !p.IsNil() {
				island.Root = &ContentRoot{t, p}
			}
		}
		island.Err = err
		c.Islands = append(c.Islands, island)
	}
	return c, nil
}

func (c *IslandCollection) Len() int {
	return len(c.Islands)
}

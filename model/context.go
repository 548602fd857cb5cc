package model

import (
	"fmt"
	"iter"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
)

const (
	ErrorContextType   = "ErrorContext"
	WarningContextType = "WarningContext"

	maxContextNodes = 256
)

type ErrorContext struct {
	Addr       uint64
	ResultCode uint32
	Stowed     uint64
	Frames     []uint64
	Err        error
}

type WarningContext struct {
	Addr    uint64
	Type    uint32
	Message string
	Frames  []uint64
	Err     error
}

func (c *ErrorContext) Unavailable() bool {
	return c.Err != nil
}

func (c *ErrorContext) String() string {
	if c.Err != nil {
		return fmt.Sprintf("%#x %s", c.Addr, debugger.Placeholder(c.Err))
	}
	return fmt.Sprintf("%#x hr=%#08x frames=%d", c.Addr, c.ResultCode, len(c.Frames))
}

func (c *WarningContext) Unavailable() bool {
	return c.Err != nil
}

func (c *WarningContext) String() string {
	if c.Err != nil {
		return fmt.Sprintf("%#x %s", c.Addr, debugger.Placeholder(c.Err))
	}
	return fmt.Sprintf("%#x type=%d %q frames=%d", c.Addr, c.Type, c.Message, len(c.Frames))
}

// NewErrorContext decodes a single node. Read failures are recorded in Err.
func NewErrorContext(t *Target, addr uint64) (*ErrorContext, host.Pointer) {
	c := &ErrorContext{Addr: addr}
	node, err := t.Typed(addr, ErrorContextType)
	if err != nil {
		c.Err = err
		return c, host.Pointer{}
	}
	if !node.Readable() {
		c.Err = &host.MemoryError{Addr: addr, Size: node.Size()}
		return c, host.Pointer{}
	}
	if c.ResultCode, err = debugger.Field[uint32](node, "ResultCode"); err != nil {
		c.Err = err
		return c, host.Pointer{}
	}
	stowed, err := node.ReadPointer("Stowed")
	if err != nil {
		c.Err = err
		return c, host.Pointer{}
	}
	c.Stowed = stowed.Address()
	if c.Frames, err = readFrames(node); err != nil {
		c.Err = err
		return c, host.Pointer{}
	}
	next, err := node.ReadPointer("Next")
	if err != nil {
		c.Err = err
		return c, host.Pointer{}
	}
	return c, next
}

func NewWarningContext(t *Target, addr uint64) (*WarningContext, host.Pointer) {
	c := &WarningContext{Addr: addr}
	node, err := t.Typed(addr, WarningContextType)
	if err != nil {
		c.Err = err
		return c, host.Pointer{}
	}
	if !node.Readable() {
		c.Err = &host.MemoryError{Addr: addr, Size: node.Size()}
		return c, host.Pointer{}
	}
	if c.Type, err = debugger.Field[uint32](node, "Type"); err != nil {
		c.Err = err
		return c, host.Pointer{}
	}
	if c.Frames, err = readFrames(node); err != nil {
		c.Err = err
		return c, host.Pointer{}
	}
	if c.Message, err = readString(node, "Message"); err != nil {
		c.Message = debugger.Placeholder(err)
	}
	next, err := node.ReadPointer("Next")
	if err != nil {
		c.Err = err
		return c, host.Pointer{}
	}
	return c, next
}

func readFrames(node debugger.TypedAddress) ([]uint64, error) {
	count, err := debugger.Field[uint32](node, "FrameCount")
	if err != nil {
		return nil, err
	}
	ptrs, err := node.Pointers("Frames", uint64(count))
	if err != nil {
		return nil, err
	}
	frames := make([]uint64, len(ptrs))
	for i, p := range ptrs {
		frames[i] = p.Address()
	}
	return frames, nil
}

// ErrorContexts walks the list starting at head. An unreadable node is yielded
// with Err set and ends the walk.
func ErrorContexts(t *Target, head host.Pointer) iter.Seq[*ErrorContext] {
	return func(yield func(*ErrorContext) bool) {
		walk(head, func(addr uint64) (bool, host.Pointer) {
			c, next := NewErrorContext(t, addr)
			return yield(c) && c.Err == nil, next
		})
	}
}

func WarningContexts(t *Target, head host.Pointer) iter.Seq[*WarningContext] {
	return func(yield func(*WarningContext) bool) {
		walk(head, func(addr uint64) (bool, host.Pointer) {
			c, next := NewWarningContext(t, addr)
			return yield(c) && c.Err == nil, next
		})
	}
}

func walk(head host.Pointer, visit func(addr uint64) (bool, host.Pointer)) {
	seen := make(map[uint64]bool)
	for node, n := head, 0; !node.IsNil() && n < maxContextNodes && !seen[node.Address()]; n++ {
		seen[node.Address()] = true
		more, next := visit(node.Address())
		if !more {
			return
		}
		node = next
	}
}

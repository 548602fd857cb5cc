package command

import (
	"fmt"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/model"
)

var _ = Register(&Command{
	Name:      "xamlelement",
	Usage:     "xamlelement <address>",
	Help:      "show the element at a native or peer address",
	Required:  1,
	Framework: true,
	Run:       xamlElement,
})

func xamlElement(s *Session, args []string) (any, error) {
	addr, err := ParseAddress(args[0])
	if err != nil {
		return nil, err
	}
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	e, err := model.NewElement(target, addr)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(s.Out, "%s %s\n", colorHeader("element"), e)
	if e.Disconnected {
		fmt.Fprintln(s.Out, colorError("peer is disconnected, native data unavailable"))
		return e, nil
	}
	if rd, err := e.RenderData(); err != nil {
		fmt.Fprintf(s.Out, "  %s %s\n", colorLabel("render"), debugger.Placeholder(err))
	} else if rd != nil {
		fmt.Fprintf(s.Out, "  %s %s\n", colorLabel("render"), rd)
	}
	for p := range e.SparseProperties() {
		fmt.Fprintf(s.Out, "  %s %s\n", colorLabel("sparse"), p)
	}
	for v := range e.SimpleProperties() {
		fmt.Fprintf(s.Out, "  %s %s = %#x\n", colorLabel("simple"), v.Property, v.Value.Address())
	}
	children, err := e.Children()
	if err != nil {
		fmt.Fprintf(s.Out, "  %s %s\n", colorLabel("children"), debugger.Placeholder(err))
	}
	for _, child := range children {
		fmt.Fprintf(s.Out, "  %s %s\n", colorLabel("child"), child)
	}
	return e, nil
}

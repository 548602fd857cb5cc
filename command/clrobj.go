package command

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/exception"
)

var _ = Register(&Command{
	Name:     "xamlclrobj",
	Usage:    "xamlclrobj <address>",
	Help:     "decode a managed object or the COM callable wrapper around one",
	Required: 1,
	Run:      xamlClrObj,
})

func xamlClrObj(s *Session, args []string) (any, error) {
	addr, err := ParseAddress(args[0])
	if err != nil {
		return nil, err
	}
	obj, err := s.Decoder().ClrObject(addr)
	if err != nil {
		if errors.Is(err, exception.ErrNotManaged) {
			return nil, errors.Wrapf(debugger.ErrTypeInferenceFailed, "%#x does not look like a CLR object", addr)
		}
		return nil, err
	}
	fmt.Fprintf(s.Out, "%s %s\n", colorHeader("clr"), obj)
	for _, frame := range obj.Stack {
		fmt.Fprintf(s.Out, "  %s\n", frame)
	}
	for inner := obj.Inner; inner != nil; inner = inner.Inner {
		fmt.Fprintf(s.Out, "  %s %s\n", colorLabel("inner"), inner)
	}
	return obj, nil
}

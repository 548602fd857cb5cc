package command

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/model"
)

var _ = Register(&Command{
	Name:      "xamlclass",
	Usage:     "xamlclass <index> [type|property]",
	Help:      "show known or custom metadata by index; -1 lists every custom entry",
	Required:  1,
	Framework: true,
	Run:       xamlClass,
})

func xamlClass(s *Session, args []string) (any, error) {
	// the host form is "xamlclass 12, property"
	args[0] = strings.TrimSuffix(strings.TrimSpace(args[0]), ",")
	index, err := cast.ToInt64E(args[0])
	if err != nil || index < -1 {
		return nil, errors.Wrapf(debugger.ErrArgumentInvalid, "index %q", args[0])
	}
	var variant string
	if len(args) > 1 {
		variant = strings.Trim(args[1], ", ")
	}
	v, err := model.ParseVariant(variant)
	if err != nil {
		return nil, err
	}
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	meta := model.NewMetadata(target)
	if index == -1 {
		classes, err := meta.Customs(v)
		if err != nil {
			return nil, err
		}
		for _, c := range classes {
			printClass(s, c)
		}
		if len(classes) == 0 {
			fmt.Fprintf(s.Out, "no custom %s entries\n", v)
		}
		return classes, nil
	}
	c, err := meta.Lookup(v, uint32(index))
	if err != nil {
		return nil, err
	}
	printClass(s, c)
	return c, nil
}

func printClass(s *Session, c model.Class) {
	kind := "known"
	if c.Custom {
		kind = "custom"
	}
	fmt.Fprintf(s.Out, "%s %d %s %s", colorHeader(string(c.Variant)), c.Index, colorLabel(kind), c.Name)
	if c.Custom {
		related := "base"
		if c.Variant == model.VariantProperty {
			related = "declaring type"
		}
		fmt.Fprintf(s.Out, " (%s %d)", related, c.Related)
	}
	fmt.Fprintln(s.Out)
}

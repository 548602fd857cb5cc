package command

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/pkg/errors"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/exception"
	"github.com/wnxd/xamldbg/model"
)

var Version = "dev"

var _ = Register(&Command{
	Name:  "xamltools",
	Usage: "xamltools [stack|errors|version|help]",
	Help:  "grouped helpers: clean stack, thread errors, version summary and help",
	Run:   xamlTools,
})

// Tools groups the helper sub-commands.
type Tools struct {
	s *Session
}

func xamlTools(s *Session, args []string) (any, error) {
	tools := &Tools{s}
	sub := "help"
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}
	switch sub {
	case "stack":
		return tools.CleanStack()
	case "errors":
		return tools.ThreadErrors()
	case "version":
		return tools.Version()
	case "help":
		fmt.Fprint(s.Out, tools.Help())
		return tools, nil
	}
	return nil, errors.Wrapf(debugger.ErrArgumentInvalid, "xamltools %s", sub)
}

// CleanStack prints the current stack without exception plumbing frames.
func (t *Tools) CleanStack() ([]exception.Frame, error) {
	th, err := t.s.CurrentThread()
	if err != nil {
		return nil, err
	}
	frames, err := th.Frames()
	if err != nil {
		return nil, err
	}
	stack := make([]exception.Frame, 0, len(frames))
	for _, frame := range frames {
		stack = append(stack, exception.Frame{Addr: frame.InstructionOffset, Name: frame.Name})
	}
	clean := exception.Clean(stack)
	for i, f := range clean {
		fmt.Fprintf(t.s.Out, "%02d %s\n", i, f)
	}
	return clean, nil
}

// ThreadErrors prints the error and warning contexts of every thread.
func (t *Tools) ThreadErrors() (map[uint32][]*exception.Report, error) {
	target, err := t.s.Target()
	if err != nil {
		return nil, err
	}
	threads, err := t.s.Dbg.Threads()
	if err != nil {
		return nil, err
	}
	dec := exception.NewDecoder(t.s.Dbg, target)
	result := make(map[uint32][]*exception.Report)
	for _, th := range threads {
		var reports []*exception.Report
		for c := range model.ThreadErrorContexts(target, th) {
			reports = append(reports, dec.ErrorContext(c))
		}
		var warnings []*model.WarningContext
		for w := range model.ThreadWarningContexts(target, th) {
			warnings = append(warnings, w)
		}
		if len(reports) == 0 && len(warnings) == 0 {
			continue
		}
		result[th.ID()] = reports
		fmt.Fprintf(t.s.Out, "%s %d\n", colorHeader("thread"), th.ID())
		printReports(t.s, reports, -1)
		for _, w := range warnings {
			fmt.Fprintf(t.s.Out, "  %s %s\n", colorLabel("warning"), w)
		}
	}
	if len(result) == 0 {
		fmt.Fprintln(t.s.Out, "no thread errors")
	}
	return result, nil
}

type VersionInfo struct {
	Tool          string
	Module        string
	ModuleVersion string
	Layout        string
	PointerSize   uint64
	SymbolsLoaded bool
}

func (t *Tools) Version() (*VersionInfo, error) {
	info := &VersionInfo{Tool: Version, PointerSize: t.s.Dbg.PointerSize()}
	fmt.Fprintf(t.s.Out, "%s %s\n", colorLabel("xamldbg"), info.Tool)
	fmt.Fprintf(t.s.Out, "%s %d\n", colorLabel("pointer size"), info.PointerSize)
	module, err := t.s.Dbg.Framework()
	if err != nil {
		fmt.Fprintf(t.s.Out, "%s %s\n", colorLabel("framework"), err)
		return info, nil
	}
	info.Module, info.ModuleVersion, info.SymbolsLoaded = module.Name(), module.Version(), module.SymbolsLoaded()
	fmt.Fprintf(t.s.Out, "%s %s %s (symbols loaded: %t)\n", colorLabel("framework"), info.Module, info.ModuleVersion, info.SymbolsLoaded)
	if table, err := module.Table(); err == nil {
		info.Layout = table.Source()
		fmt.Fprintf(t.s.Out, "%s %s\n", colorLabel("layout"), info.Layout)
	} else {
		fmt.Fprintf(t.s.Out, "%s %s\n", colorLabel("layout"), debugger.Placeholder(err))
	}
	return info, nil
}

func (t *Tools) Help() string {
	var b strings.Builder
	b.WriteString(heredoc.Doc(`
		xamldbg inspects a XAML framework inside a target process.

		Commands:
	`))
	for _, cmd := range t.s.Registry().Commands() {
		fmt.Fprintf(&b, "  %-40s %s\n", cmd.Usage, cmd.Help)
	}
	b.WriteString(heredoc.Doc(`

		Addresses are hex unless prefixed with 0n. Values the target no longer has
		mapped print as (-- heap not available --).
	`))
	return b.String()
}

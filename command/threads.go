package command

import (
	"fmt"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/model"
)

var _ = Register(&Command{
	Name:      "xamlthreads",
	Usage:     "xamlthreads",
	Help:      "list the threads that carry a XAML core",
	Framework: true,
	Run:       xamlThreads,
})

func xamlThreads(s *Session, args []string) (any, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	threads, err := model.Threads(target)
	if err != nil {
		return nil, err
	}
	for _, th := range threads {
		fmt.Fprintf(s.Out, "%s %d %s %#x\n", colorHeader("thread"), th.ID(), colorLabel("core"), th.Core.Addr)
		roots, err := th.ContentRoots()
		if err != nil {
			fmt.Fprintf(s.Out, "  roots: %s\n", debugger.Placeholder(err))
		}
		for _, root := range roots {
			fmt.Fprintf(s.Out, "  root %s\n", root)
		}
		if islands, err := th.Islands(); err != nil {
			fmt.Fprintf(s.Out, "  islands: %s\n", debugger.Placeholder(err))
		} else if islands.Len() > 0 {
			fmt.Fprintf(s.Out, "  islands: %d\n", islands.Len())
		}
	}
	if len(threads) == 0 {
		fmt.Fprintln(s.Out, "no XAML threads")
	}
	return threads, nil
}

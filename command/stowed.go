package command

import (
	"fmt"
)

var _ = Register(&Command{
	Name:  "xamlstowed",
	Usage: "xamlstowed [count]",
	Help:  "dump the stowed exceptions of the current thread",
	Run:   xamlStowed,
})

func xamlStowed(s *Session, args []string) (any, error) {
	count, ok, err := ParseCount(args, 0)
	if err != nil {
		return nil, err
	}
	th, err := s.CurrentThread()
	if err != nil {
		return nil, err
	}
	reports := s.FrameworkDecoder("xamlstowed").Stowed(th)
	if ok && count < len(reports) {
		reports = reports[:count]
	}
	fmt.Fprintf(s.Out, "%s %d\n", colorHeader("stowed exceptions:"), len(reports))
	for i, r := range reports {
		fmt.Fprintf(s.Out, "[%d] ", i)
		r.Format(s.Out, -1)
	}
	return reports, nil
}

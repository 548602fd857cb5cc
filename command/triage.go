package command

import (
	"fmt"

	"github.com/wnxd/xamldbg/exception"
)

var _ = Register(&Command{
	Name:  "xamltriage",
	Usage: "xamltriage [count]",
	Help:  "decode the current exception: error code, stacks and nested exceptions",
	Run:   xamlTriage,
})

// Triage is the decoded exception state of the current thread.
type Triage struct {
	Reports []*exception.Report
}

func (t *Triage) HResult() uint32 {
	for _, r := range t.Reports {
		if !r.Unavailable && r.HResult != 0 {
			return r.HResult
		}
	}
	return 0
}

// stackBudget resolves the count argument: an explicit N prints N stacks and 0
// none; without one the first triage of the session prints all.
func (s *Session) stackBudget(args []string) (int, error) {
	count, ok, err := ParseCount(args, 0)
	if err != nil {
		return 0, err
	}
	first := !s.triaged
	s.triaged = true
	switch {
	case ok:
		return count, nil
	case first:
		return -1, nil
	}
	return 0, nil
}

func xamlTriage(s *Session, args []string) (any, error) {
	budget, err := s.stackBudget(args)
	if err != nil {
		return nil, err
	}
	th, err := s.CurrentThread()
	if err != nil {
		return nil, err
	}
	dec := s.FrameworkDecoder("xamltriage")
	triage := new(Triage)
	if rec, err := th.LastException(); err == nil && rec != nil && !rec.IsStowed() {
		triage.Reports = append(triage.Reports, dec.Record(rec))
	}
	triage.Reports = append(triage.Reports, dec.Stowed(th)...)
	if r, err := dec.Thrown(th); err == nil {
		triage.Reports = append(triage.Reports, r)
	}
	if len(triage.Reports) == 0 {
		fmt.Fprintln(s.Out, "no exception information on the current thread")
		return triage, nil
	}
	fmt.Fprintf(s.Out, "%s %#08x\n", colorHeader("error code:"), triage.HResult())
	printReports(s, triage.Reports, budget)
	return triage, nil
}

// printReports prints every report, with stacks for the first budget of them;
// a negative budget prints all stacks.
func printReports(s *Session, reports []*exception.Report, budget int) {
	for i, r := range reports {
		frames := 0
		if budget < 0 || i < budget {
			frames = -1
		}
		if r.Blame != nil {
			fmt.Fprintf(s.Out, "[%d] %s %s\n", i, colorLabel("blame"), colorBlame(r.Blame.Name))
		} else {
			fmt.Fprintf(s.Out, "[%d]\n", i)
		}
		r.Format(s.Out, frames)
	}
}

package cmd

import (
	"fmt"
	"sort"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/wnxd/xamldbg/command"
)

// addCommands exposes every registered debugger command as a sub-command.
func addCommands(root *cobra.Command, reg *command.Registry) {
	for _, c := range reg.Commands() {
		name := c.Name
		root.AddCommand(&cobra.Command{
			Use:   c.Usage,
			Short: c.Help,
			Args:  cobra.ArbitraryArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := openSession(cmd)
				if err != nil {
					return err
				}
				_, err = s.Invoke(name, args...)
				return err
			},
		})
	}
}

var visualizeCmd = &cobra.Command{
	Use:   "visualize <type> <address>",
	Short: "Render a typed value with its visualizer",
	Long: heredoc.Doc(`
		Render the value at address with the visualizer bound to type in the
		framework module, e.g.

		  xamldbg visualize ErrorContext 0x1f2a0040
	`),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		addr, err := command.ParseAddress(args[1])
		if err != nil {
			return err
		}
		target, err := s.Target()
		if err != nil {
			return err
		}
		v, err := s.Visualize(target.Name(), args[0], addr)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var threadCmd = &cobra.Command{
	Use:   "thread",
	Short: "Show the framework extensions of the current thread",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		th, err := s.CurrentThread()
		if err != nil {
			return err
		}
		values := s.ThreadExtensions(th)
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", name, values[name])
		}
		return nil
	},
}

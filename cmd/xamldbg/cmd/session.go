package cmd

import (
	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wnxd/xamldbg/command"
	"github.com/wnxd/xamldbg/debugger"
	_ "github.com/wnxd/xamldbg/debugger/amd64"
	_ "github.com/wnxd/xamldbg/debugger/x86"
	"github.com/wnxd/xamldbg/host/snapshot"
	"github.com/wnxd/xamldbg/layout"
)

// openSession loads the configured snapshot and binds a session to it.
func openSession(cmd *cobra.Command) (*command.Session, error) {
	path := viper.GetString("snapshot")
	if path == "" {
		return nil, errors.New("no snapshot given (use --snapshot or XAMLDBG_SNAPSHOT)")
	}
	snap, err := snapshot.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load snapshot %s", path)
	}
	reg, err := layout.Default()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load builtin layouts")
	}
	if dir := viper.GetString("layouts"); dir != "" {
		if err := reg.LoadDir(dir); err != nil {
			return nil, errors.Wrapf(err, "failed to load layouts from %s", dir)
		}
	}
	opts := []debugger.Option{debugger.WithLayouts(reg)}
	if module := viper.GetString("module"); module != "" {
		opts = append(opts, debugger.WithFramework(module))
	}
	if size := viper.GetInt("symbol-cache"); size > 0 {
		opts = append(opts, debugger.WithSymbolCacheSize(size))
	}
	dbg, err := debugger.New(snap, opts...)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"snapshot":     path,
		"pointer size": dbg.PointerSize(),
	}).Debug("session opened")
	return command.NewSession(dbg, command.WithOutput(cmd.OutOrStdout())), nil
}

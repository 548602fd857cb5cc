package command

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/exception"
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/model"
)

var (
	colorHeader = color.New(color.Bold, color.FgHiBlue).SprintFunc()
	colorLabel  = color.New(color.FgHiBlack).SprintFunc()
	colorError  = color.New(color.FgRed).SprintFunc()
	colorBlame  = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// Session is the state kept across commands of one debugging session: the
// debugger and the first triage flag. Wrappers are rebuilt on every command.
type Session struct {
	Dbg debugger.Debugger
	Out io.Writer

	reg      *Registry
	triaged  bool
	reported map[string]bool
}

type SessionOption func(*Session)

func WithOutput(w io.Writer) SessionOption {
	return func(s *Session) {
		s.Out = w
	}
}

func WithRegistry(reg *Registry) SessionOption {
	return func(s *Session) {
		s.reg = reg
	}
}

func NewSession(dbg debugger.Debugger, opts ...SessionOption) *Session {
	s := &Session{Dbg: dbg, Out: os.Stdout, reg: defaultRegistry, reported: make(map[string]bool)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Registry() *Registry {
	return s.reg
}

// Target binds the framework module for this command.
func (s *Session) Target() (*model.Target, error) {
	return model.NewTarget(s.Dbg)
}

// Decoder works without a framework module; framework branches then report
// themselves unavailable.
func (s *Session) Decoder() *exception.Decoder {
	target, _ := s.Target()
	return exception.NewDecoder(s.Dbg, target)
}

// FrameworkDecoder is Decoder for commands that also read framework state:
// framework and symbol problems are reported before decoding what is left.
func (s *Session) FrameworkDecoder(name string) *exception.Decoder {
	target, _ := s.framework(name)
	return exception.NewDecoder(s.Dbg, target)
}

func (s *Session) CurrentThread() (host.Thread, error) {
	return s.Dbg.CurrentThread()
}

// Invoke runs a command. Nothing escapes it: panics are recovered, missing
// arguments print the usage, and a missing framework is reported once.
func (s *Session) Invoke(name string, args ...string) (result any, err error) {
	cmd, ok := s.reg.Command(name)
	if !ok {
		return nil, errors.Wrap(ErrCommandUnknown, name)
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithField("command", name).Errorf("panic: %v", r)
			result, err = nil, errors.Errorf("%s: %v", name, r)
		}
	}()
	if len(args) < cmd.Required {
		log.WithField("command", name).Warn("missing arguments")
		fmt.Fprintf(s.Out, "usage: %s\n", cmd.Usage)
		return nil, nil
	}
	if cmd.Framework {
		if !s.checkFramework(name) {
			return nil, nil
		}
	}
	result, err = cmd.Run(s, args)
	if err != nil {
		log.WithError(err).WithField("command", name).Error("command failed")
		fmt.Fprintf(s.Out, "%s\n", colorError(err.Error()))
	}
	return result, err
}

func (s *Session) checkFramework(name string) bool {
	_, err := s.framework(name)
	return err == nil
}

// framework binds the framework module and reports why it cannot be used. A
// module without symbols is returned along with its diagnostic.
func (s *Session) framework(name string) (*model.Target, error) {
	target, err := s.Target()
	if err != nil {
		var ambiguous *debugger.AmbiguousModuleError
		switch {
		case errors.As(err, &ambiguous):
			fmt.Fprintf(s.Out, "%s\n", colorError(err.Error()))
			fmt.Fprintf(s.Out, "set XAMLDBG_MODULE (or --module) to one of: %s\n", strings.Join(ambiguous.Candidates, ", "))
		default:
			s.reportOnce("framework", "no XAML framework module loaded: "+err.Error())
		}
		return nil, err
	}
	if !target.Module.SymbolsLoaded() {
		msg := (&debugger.SymbolUnavailableError{Module: target.Name()}).Error()
		log.WithField("command", name).Warn(msg)
		fmt.Fprintf(s.Out, "%s\n", colorError(msg))
	}
	return target, nil
}

func (s *Session) reportOnce(key, msg string) {
	if s.reported[key] {
		return
	}
	s.reported[key] = true
	log.Error(msg)
	fmt.Fprintf(s.Out, "%s\n", colorError(msg))
}

// Visualize applies the visualizer bound to module!typ to the value at addr.
func (s *Session) Visualize(module, typ string, addr uint64) (any, error) {
	if target, err := s.Target(); err == nil && strings.EqualFold(target.Name(), module) {
		module = FrameworkScope
	}
	v, ok := s.reg.Visualizer(module, typ)
	if !ok {
		return nil, errors.Wrapf(ErrVisualizerAbsent, "%s!%s", module, typ)
	}
	return s.safe(func() (any, error) { return v.New(s, addr) })
}

// ThreadExtensions evaluates every thread extension for th. Failed extensions
// carry their placeholder text.
func (s *Session) ThreadExtensions(th host.Thread) map[string]any {
	values := make(map[string]any)
	for _, ext := range s.reg.ThreadExtensions() {
		v, err := s.safe(func() (any, error) { return ext.New(s, th) })
		if err != nil {
			v = debugger.Placeholder(err)
		}
		values[ext.Name] = v
	}
	return values
}

func (s *Session) safe(fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, errors.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

package command

import (
	"errors"
	"slices"
	"sync"

	"github.com/wnxd/xamldbg/host"
)

var (
	ErrCommandUnknown   = errors.New("unknown command")
	ErrCommandExists    = errors.New("command already registered")
	ErrVisualizerAbsent = errors.New("no visualizer for type")
)

// FrameworkScope scopes a visualizer to whichever framework module is loaded.
const FrameworkScope = "xaml"

type RunFunc func(s *Session, args []string) (any, error)

type Command struct {
	Name     string
	Usage    string
	Help     string
	Required int
	// Framework commands need the framework module and its symbols.
	Framework bool
	Run       RunFunc
}

type Visualizer struct {
	Module string
	Type   string
	New    func(s *Session, addr uint64) (any, error)
}

type ThreadExtension struct {
	Name string
	New  func(s *Session, th host.Thread) (any, error)
}

type visualizerKey struct {
	module string
	typ    string
}

type Registry struct {
	mu          sync.Mutex
	commands    map[string]*Command
	visualizers map[visualizerKey]*Visualizer
	threads     []*ThreadExtension
}

var defaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		commands:    make(map[string]*Command),
		visualizers: make(map[visualizerKey]*Visualizer),
	}
}

func Default() *Registry {
	return defaultRegistry
}

// Register adds a command to the default registry.
func Register(cmd *Command) bool {
	return defaultRegistry.Register(cmd) == nil
}

func RegisterVisualizer(v *Visualizer) bool {
	defaultRegistry.RegisterVisualizer(v)
	return true
}

func RegisterThreadExtension(ext *ThreadExtension) bool {
	defaultRegistry.RegisterThreadExtension(ext)
	return true
}

func (r *Registry) Register(cmd *Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[cmd.Name]; ok {
		return ErrCommandExists
	}
	r.commands[cmd.Name] = cmd
	return nil
}

func (r *Registry) RegisterVisualizer(v *Visualizer) {
	r.mu.Lock()
	r.visualizers[visualizerKey{v.Module, v.Type}] = v
	r.mu.Unlock()
}

func (r *Registry) RegisterThreadExtension(ext *ThreadExtension) {
	r.mu.Lock()
	r.threads = append(r.threads, ext)
	r.mu.Unlock()
}

func (r *Registry) Command(name string) (*Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Commands returns the registered commands sorted by name.
func (r *Registry) Commands() []*Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	slices.SortFunc(cmds, func(a, b *Command) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return cmds
}

func (r *Registry) Visualizer(module, typ string) (*Visualizer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visualizers[visualizerKey{module, typ}]
	return v, ok
}

// VisualizedTypes lists the type names bound for module.
func (r *Registry) VisualizedTypes(module string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []string
	for key := range r.visualizers {
		if key.module == module {
			types = append(types, key.typ)
		}
	}
	slices.Sort(types)
	return types
}

func (r *Registry) ThreadExtensions() []*ThreadExtension {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.threads)
}

package layout

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var builtin embed.FS

type Registry struct {
	mu     sync.Mutex
	tables []*Table
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the registry of the embedded tables.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry = new(Registry)
		defaultErr = defaultRegistry.LoadFS(builtin, "tables")
	})
	return defaultRegistry, defaultErr
}

func (r *Registry) Add(t *Table, source string) error {
	if err := t.init(source); err != nil {
		return err
	}
	r.mu.Lock()
	// later additions win so user supplied tables can override builtin ones
	r.tables = append([]*Table{t}, r.tables...)
	r.mu.Unlock()
	return nil
}

func (r *Registry) Parse(data []byte, source string) error {
	t := new(Table)
	if err := yaml.Unmarshal(data, t); err != nil {
		return errors.Wrapf(err, "parse %s", source)
	}
	return r.Add(t, source)
}

func (r *Registry) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		name := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		if err := r.Parse(data, name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) LoadDir(dir string) error {
	return r.LoadFS(os.DirFS(filepath.Clean(dir)), ".")
}

// Select returns the table matching the module and its version.
func (r *Registry) Select(module, ver string) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tables {
		if t.Match(module, ver) {
			return t, nil
		}
	}
	return nil, errors.Wrapf(ErrTableNotFound, "%s %s", module, ver)
}

// FrameworkModules lists the module names of the tables that describe a XAML
// framework build.
func (r *Registry) FrameworkModules() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	seen := make(map[string]bool)
	for _, t := range r.tables {
		if t.Framework && !seen[t.Module] {
			seen[t.Module] = true
			names = append(names, t.Module)
		}
	}
	return names
}

func isYAML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

package backend

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/crawlrouter/pkg/api"
)

//go:embed defaults/*.yaml
var defaultDocs embed.FS

// Store holds the compiled definitions of every kind.
type Store struct {
	defs map[api.Kind]map[string]*Definition
}

// Filename returns the document name holding the definitions of kind.
func Filename(kind api.Kind) string {
	return string(kind) + ".yaml"
}

// Load reads the definition documents from dir. An empty dir loads the
// built-in definitions.
func Load(dir string) (*Store, error) {
	if dir == "" {
		return Defaults()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("backends directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("backends directory: %s is not a directory", dir)
	}
	return LoadFS(os.DirFS(dir))
}

// Defaults returns the built-in definitions.
func Defaults() (*Store, error) {
	sub, err := fs.Sub(defaultDocs, "defaults")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadFS reads the definition documents from the root of fsys. A missing
// document leaves its kind without backends.
func LoadFS(fsys fs.FS) (*Store, error) {
	s := &Store{defs: make(map[api.Kind]map[string]*Definition, len(api.Kinds))}
	found := 0
	for _, kind := range api.Kinds {
		data, err := fs.ReadFile(fsys, Filename(kind))
		if errors.Is(err, fs.ErrNotExist) {
			s.defs[kind] = map[string]*Definition{}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", Filename(kind), err)
		}
		defs, err := Parse(kind, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", Filename(kind), err)
		}
		s.defs[kind] = defs
		found++
		slog.Debug("backend definitions loaded", "kind", kind, "count", len(defs))
	}
	if found == 0 {
		return nil, fmt.Errorf("no backend definition documents found")
	}
	return s, nil
}

// Parse decodes, validates and compiles one definition document.
func Parse(kind api.Kind, data []byte) (map[string]*Definition, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc == nil {
		return map[string]*Definition{}, nil
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	defs := make(map[string]*Definition, len(doc))
	for name, raw := range doc {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: definition must be a mapping", name)
		}
		def, err := compileDefinition(kind, name, m)
		if err != nil {
			return nil, err
		}
		defs[name] = def
	}
	return defs, nil
}

// NewStore builds a Store from already compiled definitions.
func NewStore(defs ...*Definition) *Store {
	s := &Store{defs: make(map[api.Kind]map[string]*Definition, len(api.Kinds))}
	for _, kind := range api.Kinds {
		s.defs[kind] = map[string]*Definition{}
	}
	for _, d := range defs {
		if s.defs[d.Kind] == nil {
			s.defs[d.Kind] = map[string]*Definition{}
		}
		s.defs[d.Kind][d.Name] = d
	}
	return s
}

// Lookup returns the definition of name for kind.
func (s *Store) Lookup(kind api.Kind, name string) (*Definition, bool) {
	d, ok := s.defs[kind][name]
	return d, ok
}

// Names returns the sorted backend names defined for kind.
func (s *Store) Names(kind api.Kind) []string {
	names := make([]string, 0, len(s.defs[kind]))
	for n := range s.defs[kind] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether kind has a definition named name.
func (s *Store) Has(kind api.Kind, name string) bool {
	_, ok := s.defs[kind][name]
	return ok
}

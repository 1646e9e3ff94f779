// Package kinds loads record kind profiles. A default set is embedded in
// the binary; a YAML file can replace it.
package kinds

import (
	_ "embed"
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/records"
)

// DefaultKind is the kind used when none is named.
const DefaultKind = "price-approval"

//go:embed kinds.yaml
var embedded []byte

// document is the on-disk layout of a profiles file.
type document struct {
	Kinds []records.Kind `yaml:"kinds"`
}

// Registry holds validated kind profiles by name.
type Registry struct {
	kinds  map[string]*records.Kind
	source string
}

// Default returns the embedded profiles.
func Default() (*Registry, error) {
	return Parse(embedded, "embedded")
}

// Embedded returns the raw embedded profiles file.
func Embedded() []byte {
	return append([]byte(nil), embedded...)
}

// LoadFile reads profiles from path. An empty path returns the defaults.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, errors.NewConfigError("kinds", "reading "+path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a profiles document.
func Parse(data []byte, source string) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapParse("yaml", source, err)
	}
	if len(doc.Kinds) == 0 {
		return nil, errors.NewConfigError("kinds", source+" defines no kinds", nil)
	}

	r := &Registry{kinds: make(map[string]*records.Kind, len(doc.Kinds)), source: source}
	for i := range doc.Kinds {
		k := &doc.Kinds[i]
		if err := k.Validate(); err != nil {
			return nil, errors.NewConfigError("kinds", "invalid kind in "+source, err)
		}
		if _, dup := r.kinds[k.Name]; dup {
			return nil, errors.NewConfigError("kinds", "duplicate kind "+k.Name+" in "+source, nil)
		}
		r.kinds[k.Name] = k
	}
	return r, nil
}

// Source returns where the profiles were loaded from.
func (r *Registry) Source() string {
	return r.source
}

// Get returns the named kind; an empty name selects DefaultKind.
func (r *Registry) Get(name string) (*records.Kind, error) {
	if name == "" {
		name = DefaultKind
	}
	k, ok := r.kinds[name]
	if !ok {
		return nil, errors.NewNotFoundError("kind", name)
	}
	return k, nil
}

// Names returns the kind names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the kinds sorted by name.
func (r *Registry) List() []*records.Kind {
	names := r.Names()
	out := make([]*records.Kind, 0, len(names))
	for _, name := range names {
		out = append(out, r.kinds[name])
	}
	return out
}

// Len returns the number of kinds.
func (r *Registry) Len() int {
	return len(r.kinds)
}

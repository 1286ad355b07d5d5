// Package macro exposes pronoun values as lazily evaluated text macros.
//
// A Host is the macro system of the surrounding application. Registry is an
// in-process Host that can also expand {{name}} tokens. Adapter registers the
// long-form pronoun macros and Shorthands manages the short aliases.
package macro

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// ErrDuplicate is returned by Registry.Register when the name is taken.
var ErrDuplicate = errors.New("macro already registered")

// Supplier produces a macro's value at expansion time.
type Supplier func() string

// Host is the macro system the adapter registers into.
type Host interface {
	Register(name string, fn Supplier, description string) error
	Unregister(name string)
	Has(name string) bool
}

// Info describes a registered macro.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type entry struct {
	fn          Supplier
	description string
}

// Registry is a concurrency-safe in-memory Host.
type Registry struct {
	mu     sync.RWMutex
	macros map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{macros: make(map[string]entry)}
}

func (r *Registry) Register(name string, fn Supplier, description string) error {
	if name == "" || fn == nil {
		return fmt.Errorf("registering macro %q: name and supplier are required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.macros[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.macros[name] = entry{fn: fn, description: description}
	return nil
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.macros, name)
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.macros[name]
	return ok
}

// Value evaluates a single macro.
func (r *Registry) Value(name string) (string, bool) {
	r.mu.RLock()
	e, ok := r.macros[name]
	r.mu.RUnlock()
	if !ok {
		return "", false
	}
	return e.fn(), true
}

// List returns every registered macro sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.macros))
	for name, e := range r.macros {
		out = append(out, Info{Name: name, Description: e.description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var tokenRe = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Expand replaces every {{name}} whose name is registered with the macro's
// current value. Unknown tokens are left as written.
func (r *Registry) Expand(text string) string {
	return tokenRe.ReplaceAllStringFunc(text, func(tok string) string {
		name := tokenRe.FindStringSubmatch(tok)[1]
		if v, ok := r.Value(name); ok {
			return v
		}
		return tok
	})
}

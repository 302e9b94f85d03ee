package bundler

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Minifier transforms source text into a smaller equivalent form.
type Minifier interface {
	Minify(src string) (string, error)
}

// MinifierFunc adapts a plain function to the Minifier interface.
type MinifierFunc func(src string) (string, error)

// Minify calls f(src).
func (f MinifierFunc) Minify(src string) (string, error) {
	return f(src)
}

// Registry maps a content type and a strategy name to a Minifier.
// New strategies are registered without touching the store.
// A Registry is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[Type]map[string]Minifier
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[Type]map[string]Minifier)}
}

// DefaultRegistry returns a registry holding the built-in strategies:
// "jsmin" and "packer" for scripts, "strip" and "cssmin" for styles.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeScript, "jsmin", MinifierFunc(JSMin))
	r.Register(TypeScript, "packer", newPacker())
	r.Register(TypeStyle, "strip", MinifierFunc(StripStyle))
	r.Register(TypeStyle, "cssmin", newCSSMin())
	return r
}

// Register adds or replaces the strategy called name for type t.
func (r *Registry) Register(t Type, name string, m Minifier) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.strategies[t]
	if !ok {
		byName = make(map[string]Minifier)
		r.strategies[t] = byName
	}
	byName[name] = m
}

// Lookup returns the strategy called name for type t.
func (r *Registry) Lookup(t Type, name string) (Minifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.strategies[t][name]
	if !ok {
		return nil, fmt.Errorf("%w: %q for type %q", ErrUnknownMinifier, name, t)
	}
	return m, nil
}

// Names returns the sorted strategy names registered for t.
func (r *Registry) Names(t Type) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies[t]))
	for name := range r.strategies[t] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs the named strategy over src and never fails: an unknown
// strategy or a strategy error is logged and src is returned unchanged.
func (r *Registry) Apply(t Type, name, src string, log *zap.Logger) string {
	if log == nil {
		log = zap.NewNop()
	}

	m, err := r.Lookup(t, name)
	if err != nil {
		log.Debug("minifier unavailable, bundle left unminified", zap.Error(err))
		return src
	}

	out, err := m.Minify(src)
	if err != nil {
		log.Debug("minifier failed, bundle left unminified",
			zap.String("minifier", name), zap.Error(err))
		return src
	}
	return out
}

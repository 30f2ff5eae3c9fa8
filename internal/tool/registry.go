// Package tool holds the static table of functions offered to the
// model. Tools are registered once at startup and the set is
// immutable afterwards, so lookups need no locking.
package tool

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrDuplicateTool = errors.New("duplicate tool name")
	ErrUnknownTool   = errors.New("unknown tool")
)

// Handler executes a tool call. The returned string is fed back to the
// model verbatim, so it should read as plain text.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Spec describes one callable tool: its name, what the model is told
// about it, its parameter schema as plain JSON-schema data, and the
// handler that runs it.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     Handler
}

type Registry struct {
	specs  []Spec
	byName map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a tool. Registration order is preserved because the
// specs are offered to the model in a deterministic order.
func (r *Registry) Register(s Spec) error {
	if s.Name == "" {
		return errors.New("tool name is empty")
	}
	if s.Handler == nil {
		return fmt.Errorf("tool %q has no handler", s.Name)
	}
	if _, ok := r.byName[s.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, s.Name)
	}
	r.byName[s.Name] = len(r.specs)
	r.specs = append(r.specs, s)
	return nil
}

func (r *Registry) Lookup(name string) (Spec, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}

// All returns the specs in registration order.
func (r *Registry) All() []Spec {
	return r.specs
}

func (r *Registry) Len() int { return len(r.specs) }

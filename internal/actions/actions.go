// Package actions turns declarative task definitions into scheduler actions.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"cronmachine/internal/domain"
	httphandler "cronmachine/internal/handlers/http"
	"cronmachine/internal/handlers/shell"
)

type Handler interface {
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Validator is implemented by handlers that can check a payload up front.
type Validator interface {
	Validate(payload json.RawMessage) error
}

// Registry maps a handler kind to its Handler.
type Registry map[string]Handler

// Default returns the built-in handlers.
func Default() Registry {
	return Registry{
		"shell": shell.Shell{},
		"http":  httphandler.HTTP{},
	}
}

func (r Registry) Kinds() []string {
	kinds := make([]string, 0, len(r))
	for k := range r {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build returns an Action that runs the kind handler with payload. ctx bounds
// every invocation, so cancelling it aborts in-flight work on shutdown.
func (r Registry) Build(ctx context.Context, kind string, payload json.RawMessage) (domain.Action, error) {
	h, ok := r[kind]
	if !ok {
		return nil, fmt.Errorf("unknown handler kind %q (known: %v)", kind, r.Kinds())
	}
	if v, ok := h.(Validator); ok {
		if err := v.Validate(payload); err != nil {
			return nil, fmt.Errorf("%s payload: %w", kind, err)
		}
	}
	return func() error { return h.Handle(ctx, payload) }, nil
}

// Package email renders notification envelopes into concrete emails. The
// template registry is an immutable lookup built once at startup and injected
// into the Email Worker, so tests can substitute templates freely and no
// global mutable state exists.
package email

import (
	"encoding/json"

	"edumatch/internal/types"
)

// RenderFunc is a pure function from typed metadata to a rendered email.
// Render functions are total: they tolerate zero-valued (missing) metadata
// fields by degrading to placeholder copy, and never return an error.
type RenderFunc func(md types.Metadata) types.RenderedEmail

// Registry maps notification kinds to their render functions. The zero value
// is unusable; construct with NewRegistry or DefaultRegistry. The map is
// never mutated after construction.
type Registry struct {
	templates map[types.NotificationKind]RenderFunc
}

// NewRegistry builds a registry from the given template table. The table is
// copied, so later mutation of the argument does not affect the registry.
func NewRegistry(templates map[types.NotificationKind]RenderFunc) *Registry {
	copied := make(map[types.NotificationKind]RenderFunc, len(templates))
	for k, fn := range templates {
		copied[k] = fn
	}
	return &Registry{templates: copied}
}

// DefaultRegistry returns the production template table covering every
// notification kind.
func DefaultRegistry() *Registry {
	return NewRegistry(map[types.NotificationKind]RenderFunc{
		types.KindWelcome:                 renderWelcome,
		types.KindProfileCreated:          renderProfileCreated,
		types.KindPaymentDeadline:         renderPaymentDeadline,
		types.KindApplicationStatusUpdate: renderApplicationStatus,
		types.KindPaymentSuccess:          renderPaymentSuccess,
		types.KindPaymentFailed:           renderPaymentFailed,
		types.KindSubscriptionExpiring:    renderSubscriptionExpiring,
		types.KindPasswordChanged:         renderPasswordChanged,
	})
}

// Lookup returns the render function registered for the kind. The second
// return value is false when no template exists; the caller's skip path.
func (r *Registry) Lookup(kind types.NotificationKind) (RenderFunc, bool) {
	fn, ok := r.templates[kind]
	return fn, ok
}

// Render resolves the template for the kind and applies it to the raw
// metadata. Returns ok=false only for an unknown kind. Metadata that fails
// to decode renders with zero-valued fields rather than failing: a rendering
// problem must never fail the batch.
func (r *Registry) Render(kind types.NotificationKind, raw json.RawMessage) (types.RenderedEmail, bool) {
	fn, ok := r.templates[kind]
	if !ok {
		return types.RenderedEmail{}, false
	}

	md, err := types.DecodeMetadata(kind, raw)
	if err != nil {
		// Tolerant fallback: render the zero-valued variant.
		md, _ = types.DecodeMetadata(kind, nil)
	}
	return fn(md), true
}

package capability

import (
	"context"
	"sync"

	"github.com/devrelay/relay/internal/gateway"
)

// Resolver resolves capabilities to concrete operation names, caching the
// result per (backend, capability) for the process lifetime. The catalog is
// not re-consulted once a capability has resolved, even if the backend's
// tool set changes at runtime.
type Resolver struct {
	gw gateway.Invoker

	mu    sync.Mutex
	cache map[Capability]string
}

// NewResolver creates a Resolver backed by the given gateway.
func NewResolver(gw gateway.Invoker) *Resolver {
	return &Resolver{gw: gw, cache: make(map[Capability]string)}
}

// Resolve returns the operation name to use for a capability. Discovery
// failures fall through to the conventional default name, so Resolve never
// fails — the caller learns about a wrong guess from the invocation result.
func (r *Resolver) Resolve(ctx context.Context, cap Capability) string {
	r.mu.Lock()
	if name, ok := r.cache[cap]; ok {
		r.mu.Unlock()
		return name
	}
	r.mu.Unlock()

	name := cap.DefaultName()
	catalog, err := r.gw.ListTools(ctx, cap.Backend())
	if err == nil {
		if matched, ok := cap.match(catalog); ok {
			name = matched
		}
	}

	r.mu.Lock()
	r.cache[cap] = name
	r.mu.Unlock()
	return name
}

// Invoke resolves the capability and calls the resulting operation in one
// step. The result must be checked for IsError — resolution is a hint.
func (r *Resolver) Invoke(ctx context.Context, cap Capability, args map[string]any) (gateway.Result, error) {
	return r.gw.Invoke(ctx, cap.Backend(), r.Resolve(ctx, cap), args)
}

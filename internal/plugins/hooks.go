// Package plugins implements the named extension points of the forum.
//
// Filters transform a payload and may abort the operation by returning an
// error. Actions observe a finished mutation, their failures are only logged.
package plugins

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Filter is a typed filter hook.
type Filter[T any] struct {
	Name string
}

// Action is a typed action hook.
type Action[T any] struct {
	Name string
}

// FilterFunc transforms a filter payload.
type FilterFunc[T any] func(ctx context.Context, in T) (T, error)

// ActionFunc observes an action payload.
type ActionFunc[T any] func(ctx context.Context, payload T) error

// Observer receives every fired action regardless of its name.
type Observer func(ctx context.Context, hook string, payload any)

// Registry holds the registered hook handlers.
type Registry struct {
	mu        sync.RWMutex
	filters   map[string][]any
	actions   map[string][]any
	observers []Observer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		filters: make(map[string][]any),
		actions: make(map[string][]any),
	}
}

// RegisterFilter appends fn to the handlers of hook.
func RegisterFilter[T any](r *Registry, hook Filter[T], fn FilterFunc[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.filters[hook.Name] = append(r.filters[hook.Name], fn)
}

// RegisterAction appends fn to the handlers of hook.
func RegisterAction[T any](r *Registry, hook Action[T], fn ActionFunc[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions[hook.Name] = append(r.actions[hook.Name], fn)
}

// Observe registers an observer for all actions.
func (r *Registry) Observe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observers = append(r.observers, o)
}

// ApplyFilter runs the handlers of hook in registration order, each receiving
// the result of the previous one. The first error aborts the chain.
func ApplyFilter[T any](ctx context.Context, r *Registry, hook Filter[T], in T) (T, error) {
	if r == nil {
		return in, nil
	}

	r.mu.RLock()
	handlers := append([]any(nil), r.filters[hook.Name]...)
	r.mu.RUnlock()

	out := in

	for _, h := range handlers {
		var err error

		out, err = h.(FilterFunc[T])(ctx, out)
		if err != nil {
			return in, err
		}
	}

	return out, nil
}

// FireAction runs the handlers of hook and notifies the observers.
func FireAction[T any](ctx context.Context, r *Registry, hook Action[T], payload T) {
	if r == nil {
		return
	}

	r.mu.RLock()
	handlers := append([]any(nil), r.actions[hook.Name]...)
	observers := append([]Observer(nil), r.observers...)
	r.mu.RUnlock()

	for _, h := range handlers {
		if err := h.(ActionFunc[T])(ctx, payload); err != nil {
			log.Error().Err(err).Str("hook", hook.Name).Msg("action hook failed")
		}
	}

	for _, o := range observers {
		o(ctx, hook.Name, payload)
	}
}

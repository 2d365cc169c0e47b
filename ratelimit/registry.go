package ratelimit

import "github.com/alphadose/haxmap"

// Registry maps limiter ids to shared Limiter instances, creating them lazily
// on first reference. Generators addressing the same id through the same
// registry therefore share one admission gate.
//
// A Registry is safe for concurrent use.
type Registry struct {
	limiters *haxmap.Map[string, *Limiter]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		limiters: haxmap.New[string, *Limiter](),
	}
}

// Get returns the limiter for the strategy's id, creating it from the
// strategy on first reference. Later calls with the same id return the
// existing limiter and ignore the rest of the strategy.
func (r *Registry) Get(strategy Strategy) *Limiter {
	strategy = strategy.withDefaults()
	limiter, _ := r.limiters.GetOrCompute(strategy.ID, func() *Limiter {
		return New(strategy)
	})
	return limiter
}

// Default is the process-wide registry used by Get. Applications that want
// scoped lifecycles construct their own Registry and pass it explicitly.
var Default = NewRegistry()

// Get fetches a limiter from the Default registry.
func Get(strategy Strategy) *Limiter {
	return Default.Get(strategy)
}

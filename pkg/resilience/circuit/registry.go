package circuit

import "sync"

// Registry hands out one breaker per named resource, creating breakers
// lazily with shared default configuration.
type Registry struct {
	defaults Config
	breakers map[string]*Breaker
	mu       sync.Mutex
}

// NewRegistry creates a registry whose breakers use the given defaults.
func NewRegistry(defaults Config) *Registry {
	defaults.applyDefaults()

	return &Registry{
		defaults: defaults,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for the named resource, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, exists := r.breakers[name]
	if !exists {
		b = NewBreaker(name, r.defaults)
		r.breakers[name] = b
	}
	return b
}

// States returns the current state of every known breaker, keyed by name.
func (r *Registry) States() map[string]State {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	states := make(map[string]State, len(breakers))
	for _, b := range breakers {
		states[b.Name()] = b.State()
	}
	return states
}

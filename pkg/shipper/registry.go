package shipper

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered carrier integrations.
type Registry struct {
	carriers map[string]Carrier
	mu       sync.RWMutex
}

// NewRegistry creates a new carrier registry.
func NewRegistry() *Registry {
	return &Registry{
		carriers: make(map[string]Carrier),
	}
}

// Register adds a carrier to the registry.
func (r *Registry) Register(c Carrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carriers[c.Name()] = c
}

// Get returns a carrier by name.
func (r *Registry) Get(name string) (Carrier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.carriers[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// All returns all registered carriers ordered by name.
func (r *Registry) All() []Carrier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Carrier, 0, len(r.carriers))
	for _, c := range r.carriers {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Names returns the sorted names of all registered carriers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.carriers))
	for name := range r.carriers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered carriers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carriers)
}

// FetchRates queries every registered carrier in parallel and concatenates
// the results in registry order. Any carrier failure fails the whole call:
// a broken rate API must never look like "no options".
func (r *Registry) FetchRates(ctx context.Context, q *RateQuery) ([]RateCandidate, error) {
	carriers := r.All()
	if len(carriers) == 0 {
		return nil, ErrCarrierNotFound
	}

	results := make([][]RateCandidate, len(carriers))
	g, ctx := errgroup.WithContext(ctx)

	for i, c := range carriers {
		g.Go(func() error {
			rates, err := c.FetchRates(ctx, q)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			results[i] = rates
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []RateCandidate
	for _, rates := range results {
		all = append(all, rates...)
	}
	return all, nil
}

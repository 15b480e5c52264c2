package fetch

import (
	"context"
	"fmt"

	"BlogWatch/internal/domain"
)

// MaxCandidatesPerSource bounds the work done per source per run, so a feed
// or link storm cannot stall the whole pipeline.
const MaxCandidatesPerSource = 5

// Strategy captures a single discovery implementation (feed, link-discovery).
type Strategy interface {
	Name() domain.FetchStrategy
	Discover(ctx context.Context, source domain.Source) ([]domain.Candidate, error)
}

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	strategies map[domain.FetchStrategy]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[domain.FetchStrategy]Strategy{}}
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[domain.FetchStrategy]Strategy{}
	}
	r.strategies[strategy.Name()] = strategy
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name domain.FetchStrategy) (Strategy, error) {
	if strategy, ok := r.strategies[name]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("fetch strategy %s is not registered", name)
}

package fetch

import (
	"context"
	"fmt"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
)

// Request carries all parameters required to fetch one configured source.
type Request struct {
	SourceID string
	Name     string
	Category domain.Category
	URL      string
	Language string
	Options  map[string]string
}

// Fetcher captures a single strategy implementation (feed, civitai,
// sakugabooru, animecorner). Implementations return raw items; hashing
// and dedup happen downstream.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]domain.Item, error)
}

// Registry keeps a mapping from fetcher names to their implementations.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[string]Fetcher{}}
}

// Register adds or replaces a fetcher implementation.
func (r *Registry) Register(f Fetcher) {
	if r.fetchers == nil {
		r.fetchers = map[string]Fetcher{}
	}
	r.fetchers[f.Name()] = f
}

// Resolve returns a fetcher by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Fetcher, error) {
	if f, ok := r.fetchers[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("fetcher %s is not registered", name)
}

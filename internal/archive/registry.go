// Package archive turns a project tree into a single zip artifact. Builders
// are looked up by strategy name so new project types only need a
// registration.
package archive

import (
	"context"
	"slices"
	"sync"

	"drbackup/internal/project"

	"github.com/cockroachdb/errors"
)

// Builder produces an artifact for one project and returns its path. The
// caller owns the artifact and is responsible for removing it.
type Builder interface {
	Build(ctx context.Context, cfg *project.Config) (string, error)
}

type BuilderFunc func(ctx context.Context, cfg *project.Config) (string, error)

func (f BuilderFunc) Build(ctx context.Context, cfg *project.Config) (string, error) {
	return f(ctx, cfg)
}

type Registry struct {
	mu       sync.RWMutex
	builders map[project.Strategy]Builder
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[project.Strategy]Builder)}
}

// Register adds or replaces the builder for a strategy.
func (r *Registry) Register(strategy project.Strategy, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[strategy] = b
}

func (r *Registry) Lookup(strategy project.Strategy) (Builder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[strategy]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownStrategy, "%q", strategy)
	}
	return b, nil
}

func (r *Registry) Strategies() []project.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]project.Strategy, 0, len(r.builders))
	for s := range r.builders {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

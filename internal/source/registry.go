// Package source contains the job-board adapters and their registry. Each
// adapter owns its own pagination and parsing; the orchestrator treats them
// uniformly through the jobs.Source interface.
package source

import (
	"fmt"
	"sort"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

// Registry holds the closed set of registered adapters.
type Registry struct {
	byName map[string]jobs.Source
	names  []string
}

// NewRegistry builds a Registry. Duplicate names panic; the adapter set is
// assembled once at startup.
func NewRegistry(sources ...jobs.Source) *Registry {
	r := &Registry{byName: make(map[string]jobs.Source, len(sources))}
	for _, s := range sources {
		if _, dup := r.byName[s.Name()]; dup {
			panic(fmt.Sprintf("duplicate source adapter %q", s.Name()))
		}
		r.byName[s.Name()] = s
		r.names = append(r.names, s.Name())
	}
	sort.Strings(r.names)
	return r
}

// Lookup returns the adapter registered under name.
func (r *Registry) Lookup(name string) (jobs.Source, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}
	return s, nil
}

// All returns every adapter in stable name order.
func (r *Registry) All() []jobs.Source {
	out := make([]jobs.Source, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns the registered adapter names in stable order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

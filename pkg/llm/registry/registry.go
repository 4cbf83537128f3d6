package registry

import (
	"fmt"

	"ai-dispatch-be/internal/entity"

	"github.com/shopspring/decimal"
)

// Descriptor is an immutable registry entry for one canonical provider id.
type Descriptor struct {
	Id           string
	ModelName    string
	CreditCost   decimal.Decimal
	VendorFamily string
	Tier         string
	Aliases      []string
}

// Registry is the startup-built provider table. Lookups are pure; nothing
// here mutates after New returns.
type Registry struct {
	byId      map[string]Descriptor
	byAlias   map[string]string
	fallbacks map[string][]string
	order     []string
}

// New builds a registry and fails fast on any alias collision: an alias
// duplicated across descriptors, or an alias shadowing a canonical id.
func New(descriptors []Descriptor, fallbacks map[string][]string) (*Registry, error) {
	r := &Registry{
		byId:      make(map[string]Descriptor, len(descriptors)),
		byAlias:   make(map[string]string),
		fallbacks: make(map[string][]string, len(fallbacks)),
	}

	for _, d := range descriptors {
		if _, exists := r.byId[d.Id]; exists {
			return nil, fmt.Errorf("registry: duplicate canonical id %q", d.Id)
		}
		if d.CreditCost.IsNegative() {
			return nil, fmt.Errorf("registry: provider %q has negative credit cost", d.Id)
		}
		r.byId[d.Id] = d
		r.order = append(r.order, d.Id)
	}

	for _, d := range descriptors {
		for _, alias := range d.Aliases {
			if _, exists := r.byId[alias]; exists {
				return nil, fmt.Errorf("registry: alias %q shadows canonical id", alias)
			}
			if owner, exists := r.byAlias[alias]; exists && owner != d.Id {
				return nil, fmt.Errorf("registry: alias %q claimed by both %q and %q", alias, owner, d.Id)
			}
			r.byAlias[alias] = d.Id
		}
	}

	for id, chain := range fallbacks {
		if _, ok := r.byId[id]; !ok {
			return nil, fmt.Errorf("registry: fallback chain for unknown provider %q", id)
		}
		for _, next := range chain {
			if _, ok := r.byId[next]; !ok {
				return nil, fmt.Errorf("registry: fallback %q of %q is not registered", next, id)
			}
		}
		r.fallbacks[id] = chain
	}

	return r, nil
}

// Resolve maps a requested id (canonical or legacy alias) to its descriptor.
func (r *Registry) Resolve(requestedId string) (Descriptor, error) {
	if d, ok := r.byId[requestedId]; ok {
		return d, nil
	}
	if canonical, ok := r.byAlias[requestedId]; ok {
		return r.byId[canonical], nil
	}
	return Descriptor{}, fmt.Errorf("%w: %q", entity.ErrUnknownProvider, requestedId)
}

// Chain returns the descriptor for id followed by its configured fallbacks,
// in attempt order.
func (r *Registry) Chain(canonicalId string) []Descriptor {
	head, ok := r.byId[canonicalId]
	if !ok {
		return nil
	}
	chain := []Descriptor{head}
	for _, next := range r.fallbacks[canonicalId] {
		chain = append(chain, r.byId[next])
	}
	return chain
}

// List returns every descriptor in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byId[id])
	}
	return out
}

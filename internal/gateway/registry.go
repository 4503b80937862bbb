package gateway

import (
	"fmt"
	"sort"

	"github.com/tumbleweedd/two_services_system/cash_gateway/internal/domain/models"
	internalErrors "github.com/tumbleweedd/two_services_system/cash_gateway/internal/lib/errors"
)

// Registry is the provider lookup, fixed at construction.
type Registry struct {
	providers map[models.Provider]Provider
}

func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[models.Provider]Provider, len(providers))}

	for _, p := range providers {
		if _, ok := r.providers[p.Name()]; ok {
			return nil, fmt.Errorf("gateway: provider %s registered twice", p.Name())
		}
		r.providers[p.Name()] = p
	}

	return r, nil
}

func (r *Registry) Get(name models.Provider) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", internalErrors.ErrUnknownProvider, name)
	}

	return p, nil
}

func (r *Registry) Names() []models.Provider {
	names := make([]models.Provider, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

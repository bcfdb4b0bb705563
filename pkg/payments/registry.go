package payments

import (
	"fmt"
	"strings"
)

// Registry resolves the provider that settles a given currency.
type Registry struct {
	providers   map[string]Provider
	byCurrency  map[string]string
	defaultName string
}

// NewRegistry wires providers by name. byCurrency maps ISO currency codes to provider names;
// currencies without a mapping use defaultName.
func NewRegistry(defaultName string, byCurrency map[string]string, providers ...Provider) (*Registry, error) {
	r := &Registry{
		providers:   make(map[string]Provider, len(providers)),
		byCurrency:  make(map[string]string, len(byCurrency)),
		defaultName: strings.ToLower(defaultName),
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.providers[strings.ToLower(p.Name())] = p
	}
	for cur, name := range byCurrency {
		r.byCurrency[strings.ToUpper(cur)] = strings.ToLower(name)
	}
	if len(r.providers) == 0 {
		return r, nil
	}
	if _, ok := r.providers[r.defaultName]; !ok {
		return nil, fmt.Errorf("default payment provider %q is not configured", defaultName)
	}
	return r, nil
}

// ForCurrency returns the provider responsible for currency.
func (r *Registry) ForCurrency(currency string) (Provider, error) {
	name, ok := r.byCurrency[strings.ToUpper(currency)]
	if !ok {
		name = r.defaultName
	}
	return r.Get(name)
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("payment provider %q is not configured", name)
	}
	return p, nil
}

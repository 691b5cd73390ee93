package chain

import (
	"fmt"
	"sort"
)

// Registry holds one client per configured network.
type Registry struct {
	clients map[string]*Client
}

func NewRegistry(networks map[string]NetworkConfig) *Registry {
	r := &Registry{clients: map[string]*Client{}}
	for name, cfg := range networks {
		r.clients[name] = New(name, cfg)
	}
	return r
}

func (r *Registry) Get(name string) (*Client, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("network not configured: %s", name)
	}
	return c, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

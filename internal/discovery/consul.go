// Package discovery reads cluster topology from the service-discovery
// registry.
package discovery

import (
	"context"
	"fmt"

	"github.com/hashicorp/consul/api"
)

// Instance is one live member of a service as advertised by the registry.
type Instance struct {
	// ID is the registered instance identifier (container hostname for
	// autopilot-pattern services).
	ID string
	// Address is the instance's network address.
	Address string
}

// Registry lists the live members of a named service. Implementations
// must return an empty slice, not an error, for a service with zero
// registered instances.
type Registry interface {
	ListInstances(ctx context.Context, service string) ([]Instance, error)
	ListAddresses(ctx context.Context, service string) ([]string, error)
}

// Consul is a Registry backed by a Consul agent. Only passing health
// checks count as membership.
type Consul struct {
	client *api.Client
}

// NewConsul connects to the Consul agent at addr, or the default agent
// when addr is empty.
func NewConsul(addr string) (*Consul, error) {
	cfg := api.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to consul: %w", err)
	}

	return &Consul{client: client}, nil
}

// ListInstances returns the healthy instances registered under service.
func (c *Consul) ListInstances(ctx context.Context, service string) ([]Instance, error) {
	opts := (&api.QueryOptions{}).WithContext(ctx)

	entries, _, err := c.client.Health().Service(service, "", true, opts)
	if err != nil {
		return nil, fmt.Errorf("listing %s instances: %w", service, err)
	}

	instances := make([]Instance, 0, len(entries))
	for _, entry := range entries {
		addr := entry.Service.Address
		if addr == "" {
			addr = entry.Node.Address
		}

		instances = append(instances, Instance{
			ID:      entry.Service.ID,
			Address: addr,
		})
	}

	return instances, nil
}

// ListAddresses returns just the addresses of the healthy instances
// registered under service.
func (c *Consul) ListAddresses(ctx context.Context, service string) ([]string, error) {
	instances, err := c.ListInstances(ctx, service)
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(instances))
	for _, instance := range instances {
		addrs = append(addrs, instance.Address)
	}

	return addrs, nil
}

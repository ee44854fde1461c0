// Package scenario composes the verifiers into end-to-end cluster
// scenarios and runs them fail-fast.
package scenario

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/wkirui/settle/internal/config"
	"github.com/wkirui/settle/internal/discovery"
	"github.com/wkirui/settle/internal/orchestrator"
	"github.com/wkirui/settle/internal/poll"
	"github.com/wkirui/settle/internal/verify"
)

// Cluster is the harness scenario steps drive. It borrows the registry
// and orchestrator connections and owns the lifetime of every verifier
// invocation; operations panic on failure so the suite runner can
// recover and report them.
type Cluster struct {
	registry discovery.Registry
	orch     orchestrator.Orchestrator
	topology *verify.Topology
	cfg      *config.Config

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCluster builds a harness over the given registry and orchestrator
// connections.
func NewCluster(ctx context.Context, cfg *config.Config, registry discovery.Registry, orch orchestrator.Orchestrator) *Cluster {
	clusterCtx, cancel := context.WithCancel(ctx)

	topology := &verify.Topology{
		Registry:       registry,
		Orch:           orch,
		PrimaryService: cfg.Services.Primary,
		ComposeService: cfg.Services.Replica,
		Poll: poll.Options{
			Timeout:  cfg.Timeouts.Settle(),
			Interval: cfg.Timeouts.PollInterval(),
		},
	}

	return &Cluster{
		registry: registry,
		orch:     orch,
		topology: topology,
		cfg:      cfg,
		ctx:      clusterCtx,
		cancel:   cancel,
	}
}

// Done aborts any in-flight polls.
func (c *Cluster) Done() {
	c.cancel()
}

// Config returns the suite configuration.
func (c *Cluster) Config() *config.Config {
	return c.cfg
}

// Settle waits for service to reach at least count registered instances
// and cross-checks the registry against orchestrator ground truth,
// returning the advertised addresses.
func (c *Cluster) Settle(service string, count int, timeout time.Duration) []string {
	addrs, err := c.topology.Settle(c.ctx, service, count, timeout)
	if err != nil {
		panic(fmt.Sprintf("Failed to settle %s at %d instances:\n%v", service, count, err))
	}

	return addrs
}

// Scale sets the desired instance count for a compose service. The
// resulting state change is observed by polling, not awaited here.
func (c *Cluster) Scale(service string, count int) {
	if err := c.orch.Scale(c.ctx, service, count); err != nil {
		panic(fmt.Sprintf("Failed to scale %s to %d: %v", service, count, err))
	}
}

// StopInstance terminates the instance with the given identity.
func (c *Cluster) StopInstance(identity string) {
	if err := c.orch.Stop(c.ctx, identity); err != nil {
		panic(fmt.Sprintf("Failed to stop %s: %v", identity, err))
	}
}

// PrimaryInstance returns the instance registered under the primary
// role.
func (c *Cluster) PrimaryInstance() discovery.Instance {
	instances, err := c.registry.ListInstances(c.ctx, c.cfg.Services.Primary)
	if err != nil {
		panic(fmt.Sprintf("Failed to look up %s: %v", c.cfg.Services.Primary, err))
	}

	if len(instances) == 0 {
		panic((&verify.AbsenceError{Service: c.cfg.Services.Primary}).Error())
	}

	return instances[0]
}

// ReplicaInstances returns the instances registered under the replica
// role, sorted by identity.
func (c *Cluster) ReplicaInstances() []discovery.Instance {
	instances, err := c.registry.ListInstances(c.ctx, c.cfg.Services.Replica)
	if err != nil {
		panic(fmt.Sprintf("Failed to look up %s: %v", c.cfg.Services.Replica, err))
	}

	slices.SortFunc(instances, func(a, b discovery.Instance) int {
		return strings.Compare(a.ID, b.ID)
	})

	return instances
}

// ExecQuery runs a database command inside the instance via the
// orchestrator's exec boundary and returns the captured output. The
// command itself is scenario-specific; the harness only carries it.
func (c *Cluster) ExecQuery(identity string, cmd []string) string {
	out, err := c.orch.Exec(c.ctx, identity, cmd)
	if err != nil {
		panic(fmt.Sprintf("Query failed on %s:\n%v", identity, err))
	}

	return out
}

// AssertReplicated verifies every replica observes all expected values
// within the configured per-replica retry budget, reading each replica
// with query and parsing the output with extract.
func (c *Cluster) AssertReplicated(replicas, expected []string, query []string, extract verify.Extractor) {
	replication := &verify.Replication{
		Orch:    c.orch,
		Query:   query,
		Extract: extract,
		Retries: c.cfg.Timeouts.ReplicationRetries,
	}

	if err := replication.Verify(c.ctx, replicas, expected); err != nil {
		panic(fmt.Sprintf("Replication did not converge:\n%v", err))
	}
}

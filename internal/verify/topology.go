// Package verify implements the convergence checks: topology settling
// against the registry cross-checked with orchestrator ground truth, and
// data-level replication catch-up across replica endpoints.
package verify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/wkirui/settle/internal/discovery"
	"github.com/wkirui/settle/internal/orchestrator"
	"github.com/wkirui/settle/internal/poll"
)

// Topology confirms that the registry's advertised replica set matches
// the orchestrator's ground truth, modulo the primary exclusion rule.
// The registry and orchestrator connections are borrowed, never owned.
type Topology struct {
	Registry discovery.Registry
	Orch     orchestrator.Orchestrator

	// PrimaryService is the registry name under which the writable
	// leader registers.
	PrimaryService string
	// ComposeService is the orchestrator-side service whose containers
	// are the ground truth for the replica set.
	ComposeService string

	// Poll configures the membership wait. The timeout passed to Settle
	// overrides Poll.Timeout per call.
	Poll poll.Options
}

// Settle waits until the registry advertises at least expectedCount
// instances of service, then cross-checks the advertised replica set
// against the orchestrator's containers. It returns the sorted
// registry-advertised addresses for service.
//
// A registered set that never reaches expectedCount yields a
// *TimingError with the last snapshot; a converged set that disagrees
// with ground truth yields a *ConsistencyError; a missing primary
// yields an *AbsenceError.
func (t *Topology) Settle(ctx context.Context, service string, expectedCount int, timeout time.Duration) ([]string, error) {
	opts := t.Poll
	if timeout != 0 {
		opts.Timeout = timeout
	}

	outcome := poll.Until(ctx, func(ctx context.Context) ([]string, error) {
		addrs, err := t.Registry.ListAddresses(ctx, service)
		if err != nil {
			return nil, err
		}

		if len(addrs) < expectedCount {
			return addrs, poll.ErrNotReady
		}

		return addrs, nil
	}, opts)

	if !outcome.Converged {
		if errors.Is(outcome.Err, poll.ErrNotReady) {
			return nil, &TimingError{
				Subject: service,
				Want:    fmt.Sprintf("%d instances", expectedCount),
				Last:    outcome.Value,
			}
		}

		return nil, fmt.Errorf("waiting for %s membership: %w", service, outcome.Err)
	}

	advertised := slices.Clone(outcome.Value)
	slices.Sort(advertised)

	if err := t.crossCheck(ctx); err != nil {
		return nil, err
	}

	return advertised, nil
}

// crossCheck asserts that the registry's replica addresses equal the
// orchestrator's container addresses with the primary removed. Both
// sides are sorted so the comparison is independent of enumeration
// order.
func (t *Topology) crossCheck(ctx context.Context) error {
	primaries, err := t.Registry.ListAddresses(ctx, t.PrimaryService)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", t.PrimaryService, err)
	}

	if len(primaries) == 0 {
		return &AbsenceError{Service: t.PrimaryService}
	}
	primary := primaries[0]

	// Autopilot-pattern replicas register under the compose service name.
	replicas, err := t.Registry.ListAddresses(ctx, t.ComposeService)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", t.ComposeService, err)
	}

	_, groundTruth, err := t.Orch.ListContainers(ctx, t.ComposeService)
	if err != nil {
		return fmt.Errorf("listing %s containers: %w", t.ComposeService, err)
	}

	expected := make([]string, 0, len(groundTruth))
	for _, addr := range groundTruth {
		if addr != primary {
			expected = append(expected, addr)
		}
	}

	advertised := slices.Clone(replicas)
	slices.Sort(advertised)
	slices.Sort(expected)

	if !slices.Equal(advertised, expected) {
		return &ConsistencyError{Registry: advertised, GroundTruth: expected}
	}

	return nil
}

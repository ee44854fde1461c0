package verify

import (
	"context"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/wkirui/settle/internal/orchestrator"
	"github.com/wkirui/settle/pkg/threadsafe"
)

// Replication confirms that a set of written markers is observable on
// every replica, tolerating a bounded number of re-queries per replica
// to absorb propagation lag. The budget is a retry count rather than a
// wall-clock deadline so the worst case is bounded by retries × query
// cost.
type Replication struct {
	Orch orchestrator.Orchestrator

	// Query is the read command executed inside each replica.
	Query []string
	// Extract parses the query output into observed value tokens.
	Extract Extractor
	// Retries is the per-replica query budget.
	Retries int
}

// lag records a replica that exhausted its budget without catching up.
type lag struct {
	observed []string
	missing  []string
}

// Verify checks every replica for the expected values. Replicas are
// checked concurrently and independently: a slow replica neither blocks
// nor shortcuts another's check, and a replica stops being queried the
// moment its observed set covers expected. Query execution failures
// abort the whole verification immediately with a *QueryError; replicas
// that merely lag are collected and reported together with the exact
// values each is missing.
func (r *Replication) Verify(ctx context.Context, replicas []string, expected []string) error {
	retries := r.Retries
	if retries <= 0 {
		retries = 1
	}

	lagging := threadsafe.NewMap[string, lag]()

	g, ctx := errgroup.WithContext(ctx)
	for _, replica := range replicas {
		replica := replica
		g.Go(func() error {
			var observed []string
			for attempt := 0; attempt < retries; attempt++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				out, err := r.Orch.Exec(ctx, replica, r.Query)
				if err != nil {
					return &QueryError{Replica: replica, Cmd: r.Query, Cause: err}
				}

				// Superset check over the full response, never a
				// per-line early exit.
				observed = r.Extract.Extract(out)
				if len(missing(expected, observed)) == 0 {
					return nil
				}
			}

			lagging.Set(replica, lag{observed: observed, missing: missing(expected, observed)})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if lagging.Len() == 0 {
		return nil
	}

	var errs []error
	var names []string
	lagging.Range(func(replica string, _ lag) bool {
		names = append(names, replica)
		return true
	})
	slices.Sort(names)

	for _, replica := range names {
		l, _ := lagging.Get(replica)
		errs = append(errs, &TimingError{
			Subject: replica,
			Want:    "replicated values",
			Last:    l.observed,
			Missing: l.missing,
		})
	}

	return errors.Join(errs...)
}

// missing returns the expected values absent from observed, in expected
// order.
func missing(expected, observed []string) []string {
	var out []string
	for _, want := range expected {
		if !slices.Contains(observed, want) {
			out = append(out, want)
		}
	}

	return out
}

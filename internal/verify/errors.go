package verify

import (
	"fmt"
	"strings"
)

// TimingError reports a deadline or retry budget exhausted while waiting
// for the cluster to converge. It is retryable in principle and carries
// the last observed partial state.
type TimingError struct {
	// Subject is the service or replica the wait was on.
	Subject string
	// Want describes the expected state.
	Want string
	// Last is the last observed partial state.
	Last []string
	// Missing lists expected values still unobserved, for replication
	// waits.
	Missing []string
}

func (e *TimingError) Error() string {
	msg := fmt.Sprintf("%s did not converge to %s; last observed %v", e.Subject, e.Want, e.Last)
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf("; still missing %v", e.Missing)
	}

	return msg
}

// ConsistencyError reports that the registry's advertised topology
// disagrees with the orchestrator's ground truth after convergence.
// This is a discovery-registration defect, never a timing problem,
// and is never retried.
type ConsistencyError struct {
	Registry    []string
	GroundTruth []string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("registry advertises %v but orchestrator reports %v", e.Registry, e.GroundTruth)
}

// QueryError reports that the query mechanism itself failed against a
// replica. It is distinct from "value not yet replicated" and is
// surfaced immediately.
type QueryError struct {
	Replica string
	Cmd     []string
	Cause   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q failed on %s: %v", strings.Join(e.Cmd, " "), e.Replica, e.Cause)
}

func (e *QueryError) Unwrap() error { return e.Cause }

// AbsenceError reports that an expected singleton role has no registered
// holder. Absence after a topology poll already succeeded is not a
// transient condition, so it fails immediately rather than retrying.
type AbsenceError struct {
	Service string
}

func (e *AbsenceError) Error() string {
	return fmt.Sprintf("%s has no registered instance", e.Service)
}

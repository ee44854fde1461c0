package verify_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/wkirui/settle/internal/discovery"
)

// fakeRegistry serves scripted address lists per service. Each call
// consumes the next response; the last one repeats, which lets tests
// simulate slow convergence deterministically.
type fakeRegistry struct {
	mu        sync.Mutex
	responses map[string][][]string
	errs      map[string]error
	calls     map[string]int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		responses: make(map[string][][]string),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (r *fakeRegistry) serve(service string, responses ...[]string) {
	r.responses[service] = responses
}

func (r *fakeRegistry) fail(service string, err error) {
	r.errs[service] = err
}

func (r *fakeRegistry) ListAddresses(ctx context.Context, service string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.errs[service]; err != nil {
		return nil, err
	}

	responses := r.responses[service]
	call := r.calls[service]
	r.calls[service] = call + 1

	if len(responses) == 0 {
		return nil, nil
	}

	if call >= len(responses) {
		call = len(responses) - 1
	}

	return responses[call], nil
}

func (r *fakeRegistry) ListInstances(ctx context.Context, service string) ([]discovery.Instance, error) {
	addrs, err := r.ListAddresses(ctx, service)
	if err != nil {
		return nil, err
	}

	instances := make([]discovery.Instance, 0, len(addrs))
	for i, addr := range addrs {
		instances = append(instances, discovery.Instance{
			ID:      fmt.Sprintf("%s_%d", service, i+1),
			Address: addr,
		})
	}

	return instances, nil
}

func (r *fakeRegistry) polls(service string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls[service]
}

// fakeOrchestrator serves fixed container listings and scripted exec
// responses keyed by instance identity and attempt number.
type fakeOrchestrator struct {
	mu         sync.Mutex
	identities []string
	addresses  []string
	exec       map[string]func(attempt int) (string, error)
	execCalls  map[string]int
	stopped    []string
	scaled     map[string]int
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{
		exec:      make(map[string]func(int) (string, error)),
		execCalls: make(map[string]int),
		scaled:    make(map[string]int),
	}
}

func (o *fakeOrchestrator) Scale(ctx context.Context, service string, count int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.scaled[service] = count
	return nil
}

func (o *fakeOrchestrator) Stop(ctx context.Context, identity string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopped = append(o.stopped, identity)
	return nil
}

func (o *fakeOrchestrator) ListContainers(ctx context.Context, service string) ([]string, []string, error) {
	return o.identities, o.addresses, nil
}

func (o *fakeOrchestrator) Exec(ctx context.Context, identity string, cmd []string) (string, error) {
	o.mu.Lock()
	fn, ok := o.exec[identity]
	o.execCalls[identity]++
	attempt := o.execCalls[identity]
	o.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("no such instance %s", identity)
	}

	return fn(attempt)
}

func (o *fakeOrchestrator) execCount(identity string) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.execCalls[identity]
}

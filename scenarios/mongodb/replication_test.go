package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkirui/settle/internal/config"
	"github.com/wkirui/settle/internal/discovery"
	"github.com/wkirui/settle/internal/scenario"
)

var markerPattern = regexp.MustCompile(`val2: "([^"]+)"`)

// fakeStack simulates the whole cluster behind both the registry and
// orchestrator boundaries: members join on scale, a surviving member is
// promoted when the primary stops, and inserts replicate to every
// member instantly.
type fakeStack struct {
	mu      sync.Mutex
	primary string
	members map[string]string   // identity → address
	data    map[string][]string // identity → stored markers
	scaled  []int
	stopped []string
}

func newFakeStack() *fakeStack {
	return &fakeStack{
		primary: "mongodb_1",
		members: map[string]string{"mongodb_1": "10.0.0.1"},
		data:    make(map[string][]string),
	}
}

func (s *fakeStack) replicaIDs() []string {
	var ids []string
	for id := range s.members {
		if id != s.primary {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	return ids
}

func (s *fakeStack) ListInstances(ctx context.Context, service string) ([]discovery.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var instances []discovery.Instance
	switch service {
	case "mongodb-primary":
		if addr, ok := s.members[s.primary]; ok {
			instances = append(instances, discovery.Instance{ID: s.primary, Address: addr})
		}
	case "mongodb":
		for _, id := range s.replicaIDs() {
			instances = append(instances, discovery.Instance{ID: id, Address: s.members[id]})
		}
	}

	return instances, nil
}

func (s *fakeStack) ListAddresses(ctx context.Context, service string) ([]string, error) {
	instances, err := s.ListInstances(ctx, service)
	if err != nil {
		return nil, err
	}

	var addrs []string
	for _, instance := range instances {
		addrs = append(addrs, instance.Address)
	}

	return addrs, nil
}

func (s *fakeStack) Scale(ctx context.Context, service string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scaled = append(s.scaled, count)
	for i := len(s.members) + 1; i <= count; i++ {
		id := fmt.Sprintf("mongodb_%d", i)
		s.members[id] = fmt.Sprintf("10.0.0.%d", i)
	}

	return nil
}

func (s *fakeStack) Stop(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = append(s.stopped, identity)
	delete(s.members, identity)

	if identity == s.primary {
		survivors := make([]string, 0, len(s.members))
		for id := range s.members {
			survivors = append(survivors, id)
		}
		slices.Sort(survivors)
		if len(survivors) > 0 {
			s.primary = survivors[0]
		}
	}

	return nil
}

func (s *fakeStack) ListContainers(ctx context.Context, service string) ([]string, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	addrs := make([]string, 0, len(ids))
	for _, id := range ids {
		addrs = append(addrs, s.members[id])
	}

	return ids, addrs, nil
}

func (s *fakeStack) Exec(ctx context.Context, identity string, cmd []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[identity]; !ok {
		return "", fmt.Errorf("no such container: %s", identity)
	}

	statement := cmd[len(cmd)-1]
	switch {
	case strings.Contains(statement, "createCollection"):
		return `{ "ok" : 1 }`, nil
	case strings.Contains(statement, "insert"):
		match := markerPattern.FindStringSubmatch(statement)
		if match == nil {
			return "", fmt.Errorf("malformed insert: %s", statement)
		}
		for id := range s.members {
			s.data[id] = append(s.data[id], match[1])
		}
		return "WriteResult({ \"nInserted\" : 1 })", nil
	default:
		var out strings.Builder
		for _, marker := range s.data[identity] {
			fmt.Fprintf(&out, "val2: %s\n", marker)
		}
		return out.String(), nil
	}
}

func TestQueryCommandCredentials(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		password string
		want     []string
	}{
		{
			name: "No Credentials",
			want: []string{"mongo", "test", "--eval", "db.stats()"},
		},
		{
			name: "User Without Password Omitted",
			user: "admin",
			// -u without -p makes the shell prompt for a password,
			// which hangs in a non-tty exec.
			want: []string{"mongo", "test", "--eval", "db.stats()"},
		},
		{
			name:     "User And Password",
			user:     "admin",
			password: "hunter2",
			want:     []string{"mongo", "test", "-u", "admin", "-p", "hunter2", "--eval", "db.stats()"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Database.User = tt.user
			cfg.Database.Password = tt.password

			cluster := scenario.NewCluster(context.Background(), cfg, nil, nil)
			defer cluster.Done()

			assert.Equal(t, tt.want, query(cluster, "db.stats()"))
		})
	}
}

func TestReplicationFailoverScenario(t *testing.T) {
	stack := newFakeStack()

	cfg := config.Default()
	cfg.Timeouts.PollIntervalSecs = 1

	cluster := scenario.NewCluster(context.Background(), cfg, stack, stack)
	defer cluster.Done()

	passed := ReplicationFailover().Run(context.Background(), cluster)
	require.True(t, passed)

	assert.Equal(t, []int{3}, stack.scaled)
	assert.Equal(t, []string{"mongodb_1"}, stack.stopped, "the original primary is the one stopped")
	assert.Equal(t, "mongodb_2", stack.primary, "a replica is promoted after failover")

	// Every written marker ended up on the surviving replica.
	assert.Len(t, stack.data["mongodb_3"], 3)
}

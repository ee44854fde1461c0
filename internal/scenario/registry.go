package scenario

import (
	"fmt"
	"log"
	"sort"
)

func init() {
	log.SetFlags(0)
}

var scenarios = make(map[string]*Scenario)

// Scenario is a registered end-to-end scenario.
type Scenario struct {
	Key     string
	Name    string
	Summary string
	Build   func() *Suite
}

// Register adds a scenario to the registry. Scenario packages call this
// from init().
func Register(key string, scenario *Scenario) {
	if scenario.Build == nil {
		log.Fatalf("Cannot register scenario %s without a suite.", key)
	}

	scenario.Key = key
	scenarios[key] = scenario
}

// Get returns the scenario registered under key.
func Get(key string) (*Scenario, error) {
	scenario, exists := scenarios[key]
	if !exists {
		return nil, fmt.Errorf("scenario %q not found", key)
	}

	return scenario, nil
}

// All returns every registered scenario, sorted by key.
func All() []*Scenario {
	keys := make([]string, 0, len(scenarios))
	for key := range scenarios {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	all := make([]*Scenario, 0, len(keys))
	for _, key := range keys {
		all = append(all, scenarios[key])
	}

	return all
}

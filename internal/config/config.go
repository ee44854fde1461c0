// Package config loads the suite configuration and materializes the
// environment bundle the cluster stack expects.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

const configPath = "settle.yaml"

// Services names the registry roles under test.
type Services struct {
	// Primary is the registry name of the writable leader role.
	Primary string `yaml:"primary"`
	// Replica is the registry and compose name of the replica role.
	Replica string `yaml:"replica"`
}

// Database holds the credentials and target for queries executed inside
// instances.
type Database struct {
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Timeouts holds every timing knob, in seconds where wall-clock and as
// a count where retry-budgeted. Keeping them here rather than scattered
// through the scenarios makes timing behavior configurable and testable.
type Timeouts struct {
	// ProvisionSecs bounds the wait for the first primary; provisioning
	// a fresh stack is slow.
	ProvisionSecs int `yaml:"provision"`
	// SettleSecs bounds ordinary membership waits.
	SettleSecs int `yaml:"settle"`
	// ElectionSecs bounds the wait for a new primary after failover.
	ElectionSecs int `yaml:"election"`
	// PollIntervalSecs is the sleep between registry polls.
	PollIntervalSecs int `yaml:"poll_interval"`
	// ReplicationRetries is the per-replica query budget for
	// replication catch-up.
	ReplicationRetries int `yaml:"replication_retries"`
}

// Config is the suite configuration, loaded from settle.yaml with
// defaults for the MongoDB stack.
type Config struct {
	// Project is the compose project name.
	Project string `yaml:"project"`
	// ConsulAddress overrides the default Consul agent address.
	ConsulAddress string `yaml:"consul_address"`

	Services Services `yaml:"services"`
	Database Database `yaml:"database"`
	Timeouts Timeouts `yaml:"timeouts"`
}

// Default returns the configuration for the MongoDB stack.
func Default() *Config {
	return &Config{
		Project: "mongodb",
		Services: Services{
			Primary: "mongodb-primary",
			Replica: "mongodb",
		},
		Database: Database{
			Name: "test",
		},
		Timeouts: Timeouts{
			ProvisionSecs:      600,
			SettleSecs:         60,
			ElectionSecs:       300,
			PollIntervalSecs:   3,
			ReplicationRetries: 15,
		},
	}
}

// Load reads settle.yaml from the current directory, falling back to
// defaults when the file is absent. File values override defaults
// field by field.
func Load() (*Config, error) {
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from the given path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	bytes, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(bytes, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.merge(&file)

	if cfg.Project == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}

	return cfg, nil
}

func (c *Config) merge(other *Config) {
	if other.Project != "" {
		c.Project = other.Project
	}

	if other.ConsulAddress != "" {
		c.ConsulAddress = other.ConsulAddress
	}

	if other.Services.Primary != "" {
		c.Services.Primary = other.Services.Primary
	}

	if other.Services.Replica != "" {
		c.Services.Replica = other.Services.Replica
	}

	if other.Database.Name != "" {
		c.Database.Name = other.Database.Name
	}

	if other.Database.User != "" {
		c.Database.User = other.Database.User
	}

	if other.Database.Password != "" {
		c.Database.Password = other.Database.Password
	}

	if other.Timeouts.ProvisionSecs != 0 {
		c.Timeouts.ProvisionSecs = other.Timeouts.ProvisionSecs
	}

	if other.Timeouts.SettleSecs != 0 {
		c.Timeouts.SettleSecs = other.Timeouts.SettleSecs
	}

	if other.Timeouts.ElectionSecs != 0 {
		c.Timeouts.ElectionSecs = other.Timeouts.ElectionSecs
	}

	if other.Timeouts.PollIntervalSecs != 0 {
		c.Timeouts.PollIntervalSecs = other.Timeouts.PollIntervalSecs
	}

	if other.Timeouts.ReplicationRetries != 0 {
		c.Timeouts.ReplicationRetries = other.Timeouts.ReplicationRetries
	}
}

// Provision returns the first-primary wait as a duration.
func (t Timeouts) Provision() time.Duration {
	return time.Duration(t.ProvisionSecs) * time.Second
}

// Settle returns the ordinary membership wait as a duration.
func (t Timeouts) Settle() time.Duration {
	return time.Duration(t.SettleSecs) * time.Second
}

// Election returns the failover wait as a duration.
func (t Timeouts) Election() time.Duration {
	return time.Duration(t.ElectionSecs) * time.Second
}

// PollInterval returns the registry poll interval as a duration.
func (t Timeouts) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalSecs) * time.Second
}

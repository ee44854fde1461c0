package mongodb

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/wkirui/settle/internal/scenario"
	"github.com/wkirui/settle/internal/verify"
)

// readMarkers prints one "val2: <marker>" line per written document, the
// format the prefix extractor parses.
const readMarkers = `db.collection1.find({ val1: 1 }).forEach(function(doc) { print("val2: " + doc.val2); })`

var extractMarkers = verify.PrefixExtractor{Prefix: "val2:"}

// ReplicationFailover builds the scale-up, replication, and failover
// scenario.
//
// Given the MongoDB stack, when we scale up MongoDB instances they
// should become new replicas with working replication. When we stop the
// primary, one of the replicas should become the new primary and the
// other should replicate from it.
func ReplicationFailover() *scenario.Suite {
	// Shared across steps; the driver owns their lifetime.
	var markers []string
	var firstPrimary string
	var replicas []string

	return scenario.New().
		Setup(func(c *scenario.Cluster) {
			// The first instance configures itself as the primary; the
			// long timeout covers provisioning a fresh stack.
			cfg := c.Config()
			c.Settle(cfg.Services.Primary, 1, cfg.Timeouts.Provision())
		}).
		Step("Scale Up To Two Working Replicas", func(c *scenario.Cluster) {
			cfg := c.Config()

			c.Scale(cfg.Services.Replica, 3)
			c.Settle(cfg.Services.Replica, 2, cfg.Timeouts.Provision())
		}).
		Step("Write Markers To The Primary", func(c *scenario.Cluster) {
			primary := c.PrimaryInstance()
			firstPrimary = primary.ID

			c.ExecQuery(primary.ID, query(c, `db.createCollection("collection1")`))

			markers = []string{uuid.NewString(), uuid.NewString()}
			for _, marker := range markers {
				c.ExecQuery(primary.ID, query(c, insertMarker(marker)))
			}
		}).
		Step("Verify Replication To Both Replicas", func(c *scenario.Cluster) {
			replicas = replicaIdentities(c)
			c.AssertReplicated(replicas, markers, query(c, readMarkers), extractMarkers)
		}).
		Step("Stop The Primary", func(c *scenario.Cluster) {
			c.StopInstance(firstPrimary)
		}).
		Step("Await New Primary Election", func(c *scenario.Cluster) {
			cfg := c.Config()
			c.Settle(cfg.Services.Primary, 1, cfg.Timeouts.Election())
		}).
		Step("Await Membership Settling At One Replica", func(c *scenario.Cluster) {
			cfg := c.Config()
			c.Settle(cfg.Services.Replica, 1, cfg.Timeouts.Settle())
		}).
		Step("Verify Replication From The New Primary", func(c *scenario.Cluster) {
			primary := c.PrimaryInstance()

			marker := uuid.NewString()
			c.ExecQuery(primary.ID, query(c, insertMarker(marker)))
			markers = append(markers, marker)

			c.AssertReplicated(replicaIdentities(c), markers, query(c, readMarkers), extractMarkers)
		})
}

func insertMarker(marker string) string {
	return fmt.Sprintf(`db.collection1.insert([{ val1: 1, val2: %q }])`, marker)
}

// query builds the mongo shell invocation for a statement, with the
// database and credentials from the suite configuration. Credentials
// are passed only when both are configured: the shell given -u without
// -p prompts for a password, which hangs a non-tty exec.
func query(c *scenario.Cluster, statement string) []string {
	db := c.Config().Database

	cmd := []string{"mongo", db.Name}
	if db.User != "" && db.Password != "" {
		cmd = append(cmd, "-u", db.User, "-p", db.Password)
	}

	return append(cmd, "--eval", statement)
}

func replicaIdentities(c *scenario.Cluster) []string {
	instances := c.ReplicaInstances()

	identities := make([]string, 0, len(instances))
	for _, instance := range instances {
		identities = append(identities, instance.ID)
	}

	return identities
}

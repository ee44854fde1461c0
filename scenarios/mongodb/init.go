package mongodb

import "github.com/wkirui/settle/internal/scenario"

func init() {
	scenario.Register("replication-failover", &scenario.Scenario{
		Name: "MongoDB Replication & Failover",
		Summary: `Scales the MongoDB stack up, verifies new instances join as replicas
with working replication, then stops the primary and verifies a replica
is promoted and replication keeps working.`,
		Build: ReplicationFailover,
	})
}

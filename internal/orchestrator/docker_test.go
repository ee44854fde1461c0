package orchestrator

import (
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/network"
	"github.com/stretchr/testify/assert"
)

func summary(name, addr string) types.Container {
	ctr := types.Container{
		ID:    "deadbeef" + name,
		Names: []string{"/" + name},
	}
	if addr != "" {
		ctr.NetworkSettings = &types.SummaryNetworkSettings{
			Networks: map[string]*network.EndpointSettings{
				"mongodb_default": {IPAddress: addr},
			},
		}
	}

	return ctr
}

func TestContainerEndpoints(t *testing.T) {
	identities, addresses := containerEndpoints([]types.Container{
		summary("mongodb_1", "10.0.0.1"),
		summary("mongodb_2", "10.0.0.2"),
	})

	assert.Equal(t, []string{"mongodb_1", "mongodb_2"}, identities)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, addresses)
}

func TestContainerEndpointsSkipsNetworklessContainers(t *testing.T) {
	noSettings := summary("mongodb_2", "")
	emptyIP := summary("mongodb_3", "")
	emptyIP.NetworkSettings = &types.SummaryNetworkSettings{
		Networks: map[string]*network.EndpointSettings{
			"mongodb_default": {},
		},
	}

	identities, addresses := containerEndpoints([]types.Container{
		summary("mongodb_1", "10.0.0.1"),
		noSettings,
		emptyIP,
	})

	assert.Equal(t, []string{"mongodb_1"}, identities)
	assert.Equal(t, []string{"10.0.0.1"}, addresses)
}

// Package orchestrator talks to the container manager that runs the
// cluster: listing containers and their addresses, stopping instances,
// and executing commands inside them. It is the ground-truth counterpart
// to the service-discovery registry.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// Orchestrator is the capability set verifiers and scenarios need from
// the container manager. Test doubles implement it to simulate slow
// convergence and partial failures.
type Orchestrator interface {
	// Scale sets the desired instance count for a compose service.
	Scale(ctx context.Context, service string, count int) error
	// Stop terminates the instance with the given identity.
	Stop(ctx context.Context, identity string) error
	// ListContainers returns the identities and addresses of the running
	// containers backing a compose service, index-aligned.
	ListContainers(ctx context.Context, service string) (identities, addresses []string, err error)
	// Exec runs cmd inside the instance and returns its captured stdout.
	// A nonzero exit returns an *ExitError carrying the combined output.
	Exec(ctx context.Context, identity string, cmd []string) (string, error)
}

// ExitError reports a command that ran inside an instance but exited
// nonzero.
type ExitError struct {
	Identity string
	Cmd      []string
	ExitCode int
	Output   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %s exited %d: %s",
		e.Identity, strings.Join(e.Cmd, " "), e.ExitCode, e.Output)
}

// Docker is an Orchestrator backed by the Docker Engine API, scoped to
// one compose project. Scaling goes through the compose CLI since the
// engine has no notion of compose service replica counts.
type Docker struct {
	client  *client.Client
	project string
	compose composeRunner
}

// NewDocker connects to the Docker daemon from the environment and
// scopes all operations to the named compose project.
func NewDocker(project string) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}

	return &Docker{client: cli, project: project, compose: execCompose{}}, nil
}

// Close releases the underlying API client.
func (d *Docker) Close() error {
	return d.client.Close()
}

// Scale sets the desired instance count for service via docker compose.
func (d *Docker) Scale(ctx context.Context, service string, count int) error {
	return d.compose.scale(ctx, d.project, service, count)
}

// Stop terminates the container with the given identity, waiting the
// daemon's default grace period.
func (d *Docker) Stop(ctx context.Context, identity string) error {
	err := d.client.ContainerStop(ctx, identity, container.StopOptions{})
	if err != nil {
		return fmt.Errorf("stopping %s: %w", identity, err)
	}

	return nil
}

// ListContainers returns the names and first-network IP addresses of the
// running containers labelled with the compose service.
func (d *Docker) ListContainers(ctx context.Context, service string) ([]string, []string, error) {
	filter := filters.NewArgs()
	filter.Add("label", "com.docker.compose.project="+d.project)
	filter.Add("label", "com.docker.compose.service="+service)

	containers, err := d.client.ContainerList(ctx, container.ListOptions{Filters: filter})
	if err != nil {
		return nil, nil, fmt.Errorf("listing %s containers: %w", service, err)
	}

	identities, addresses := containerEndpoints(containers)
	return identities, addresses, nil
}

// containerEndpoints extracts the name and first-network IP of each
// container. Containers with no attached network are skipped: an empty
// address can never match a registry entry, so surfacing one would only
// muddy the ground truth the cross-check compares against.
func containerEndpoints(containers []types.Container) (identities, addresses []string) {
	identities = make([]string, 0, len(containers))
	addresses = make([]string, 0, len(containers))
	for _, ctr := range containers {
		name := ctr.ID
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}

		var addr string
		if ctr.NetworkSettings != nil {
			for _, network := range ctr.NetworkSettings.Networks {
				if network.IPAddress != "" {
					addr = network.IPAddress
					break
				}
			}
		}
		if addr == "" {
			continue
		}

		identities = append(identities, name)
		addresses = append(addresses, addr)
	}

	return identities, addresses
}

// Exec runs cmd inside the container and returns captured stdout. Stderr
// is demuxed separately and folded into the error on nonzero exit.
func (d *Docker) Exec(ctx context.Context, identity string, cmd []string) (string, error) {
	exec, err := d.client.ContainerExecCreate(ctx, identity, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("creating exec in %s: %w", identity, err)
	}

	attach, err := d.client.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", fmt.Errorf("attaching exec in %s: %w", identity, err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return "", fmt.Errorf("reading exec output from %s: %w", identity, err)
	}

	inspect, err := d.client.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return "", fmt.Errorf("inspecting exec in %s: %w", identity, err)
	}

	if inspect.ExitCode != 0 {
		return "", &ExitError{
			Identity: identity,
			Cmd:      cmd,
			ExitCode: inspect.ExitCode,
			Output:   strings.TrimSpace(stdout.String() + stderr.String()),
		}
	}

	return stdout.String(), nil
}

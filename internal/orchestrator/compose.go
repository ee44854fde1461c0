package orchestrator

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// composeRunner abstracts the docker compose CLI so Scale can be tested
// without a daemon.
type composeRunner interface {
	scale(ctx context.Context, project, service string, count int) error
}

type execCompose struct{}

func (execCompose) scale(ctx context.Context, project, service string, count int) error {
	args := composeScaleArgs(project, service, count)

	cmd := exec.CommandContext(ctx, "docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker %s: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}

	return nil
}

// composeScaleArgs builds the compose invocation that sets a service's
// replica count without recreating existing containers.
func composeScaleArgs(project, service string, count int) []string {
	return []string{
		"compose",
		"-p", project,
		"up", "-d",
		"--no-recreate",
		"--scale", fmt.Sprintf("%s=%d", service, count),
		service,
	}
}

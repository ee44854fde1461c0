package cli

import (
	"context"
	"fmt"

	commands "github.com/urfave/cli/v3"

	"github.com/wkirui/settle/internal/config"
	"github.com/wkirui/settle/internal/discovery"
	"github.com/wkirui/settle/internal/orchestrator"
	"github.com/wkirui/settle/internal/scenario"
	_ "github.com/wkirui/settle/scenarios/mongodb"
)

// RunScenarios runs the named scenario, or every registered scenario
// when none is named, stopping at the first failure.
func RunScenarios(ctx context.Context, cmd *commands.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The stack's setup scripts source _env; materialize it before
	// anything touches the cluster.
	if err := config.EnsureEnvFile(); err != nil {
		return fmt.Errorf("Failed to prepare environment: %w", err)
	}

	var selected []*scenario.Scenario
	if cmd.NArg() > 0 {
		for _, key := range cmd.Args().Slice() {
			sc, err := scenario.Get(key)
			if err != nil {
				return err
			}

			selected = append(selected, sc)
		}
	} else {
		selected = scenario.All()
	}

	registry, err := discovery.NewConsul(cfg.ConsulAddress)
	if err != nil {
		return err
	}

	orch, err := orchestrator.NewDocker(cfg.Project)
	if err != nil {
		return err
	}
	defer orch.Close()

	for _, sc := range selected {
		fmt.Printf("%s\n\n", sc.Name)

		cluster := scenario.NewCluster(ctx, cfg, registry, orch)
		passed := sc.Build().Run(ctx, cluster)
		cluster.Done()

		if !passed {
			return fmt.Errorf("scenario %s failed", sc.Key)
		}

		fmt.Println()
	}

	return nil
}

// ListScenarios prints every registered scenario.
func ListScenarios(ctx context.Context, cmd *commands.Command) error {
	fmt.Println("Available scenarios:")
	fmt.Println()

	for _, sc := range scenario.All() {
		fmt.Printf("  %-24s - %s\n", sc.Key, sc.Name)
	}

	fmt.Println()
	fmt.Println("Run with: settle run <scenario>")

	return nil
}

// PrepareEnv materializes the _env credentials bundle without running
// any scenario.
func PrepareEnv(ctx context.Context, cmd *commands.Command) error {
	if err := config.EnsureEnvFile(); err != nil {
		return err
	}

	fmt.Println("Environment bundle ready.")
	return nil
}

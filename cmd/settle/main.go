package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	commands "github.com/urfave/cli/v3"

	"github.com/wkirui/settle/internal/cli"
)

func main() {
	cmd := &commands.Command{
		Name:  "settle",
		Usage: "Drive a replicated database cluster to convergence and verify it",
		Commands: []*commands.Command{
			{
				Name:      "run",
				Usage:     "Run scenarios against the cluster (all when none named)",
				ArgsUsage: "[scenario...]",
				Action:    cli.RunScenarios,
			},
			{
				Name:   "list",
				Usage:  "Show available scenarios",
				Action: cli.ListScenarios,
			},
			{
				Name:   "env",
				Usage:  "Materialize the _env credentials bundle",
				Action: cli.PrepareEnv,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

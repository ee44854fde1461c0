package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
)

var (
	green     = color.New(color.FgGreen).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
	bold      = color.New(color.Bold).SprintFunc()
	checkMark = green("✓")
	crossMark = red("✗")
)

// Suite is an ordered sequence of scenario steps run against one
// cluster. Steps fail by panicking; the runner recovers, reports, and
// stops at the first failure since later assertions against an already
// inconsistent cluster only cascade.
type Suite struct {
	setupFn func(*Cluster)
	steps   []Step
}

// Step is a named scenario step.
type Step struct {
	Name string
	Fn   func(*Cluster)
}

// New creates a new empty suite.
func New() *Suite {
	return &Suite{steps: make([]Step, 0)}
}

// Setup adds a setup function that runs before all steps.
func (s *Suite) Setup(fn func(*Cluster)) *Suite {
	s.setupFn = fn
	return s
}

// Step adds a named step to the suite.
func (s *Suite) Step(name string, fn func(*Cluster)) *Suite {
	s.steps = append(s.steps, Step{Name: name, Fn: fn})
	return s
}

// Run executes the suite against the cluster and reports whether every
// step passed.
func (s *Suite) Run(ctx context.Context, cluster *Cluster) bool {
	start := time.Now()

	select {
	case <-ctx.Done():
		return false
	default:
	}

	var failed bool
	if s.setupFn != nil {
		func() {
			defer func() {
				err := recover()
				if err != nil {
					failed = true

					fmt.Printf("%s %s\n", crossMark, "SETUP")
					fmt.Printf("\n%s\n", err)
				}
			}()

			s.setupFn(cluster)
		}()
	}

	for _, step := range s.steps {
		if failed {
			break
		}

		select {
		case <-ctx.Done():
			return false
		default:
		}

		func() {
			defer func() {
				err := recover()
				if err != nil {
					failed = true

					fmt.Printf("%s %s\n", crossMark, step.Name)
					fmt.Printf("\n%s\n", err)
				}
			}()

			step.Fn(cluster)
		}()

		if !failed {
			fmt.Printf("%s %s\n", checkMark, step.Name)
		}
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	if failed {
		fmt.Printf("\n%s %s (%s)\n", bold("FAILED"), crossMark, elapsed)
	} else {
		fmt.Printf("\n%s %s (%s)\n", bold("PASSED"), checkMark, elapsed)
	}

	return !failed
}

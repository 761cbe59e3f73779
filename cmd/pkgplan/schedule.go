package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/pkgplan/internal/action"
	"github.com/tsukumogami/pkgplan/internal/dag"
	"github.com/tsukumogami/pkgplan/internal/errmsg"
	"github.com/tsukumogami/pkgplan/internal/scheduler"
	"github.com/tsukumogami/pkgplan/internal/workerpool"
)

var scheduleResolverName string
var scheduleWorkers int

var scheduleCmd = &cobra.Command{
	Use:   "schedule <spec-dir> <plan-file>",
	Short: "Expand a plan file and schedule its decisions into an execution DAG",
	Args:  cobra.ExactArgs(2),
	Run:   runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleResolverName, "resolver", "download-source",
		"default resolution for decisions with no dependency-driven expectation: download-source|create-source")
	scheduleCmd.Flags().IntVar(&scheduleWorkers, "workers", 1,
		"number of concurrent workers to drive the execution DAG with (1 walks it sequentially)")
}

func resolverByName(name string) (scheduler.Resolver, error) {
	switch name {
	case "download-source":
		return scheduler.Combine(scheduler.AlwaysDownloadSource, scheduler.AlwaysDownloadBinary), nil
	case "create-source":
		return scheduler.Combine(scheduler.AlwaysCreateSource, scheduler.AlwaysBuildLocally), nil
	default:
		return nil, fmt.Errorf("unknown resolver %q (want download-source or create-source)", name)
	}
}

func runSchedule(cmd *cobra.Command, args []string) {
	specDir, planFile := args[0], args[1]

	resolve, err := resolverByName(scheduleResolverName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitWithCode(ExitUsage)
	}

	ctx, err := buildExpansion(specDir, planFile, defaultBuildEnv())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", errmsg.Format(err, nil))
		exitWithCode(ExitExpansionFailed)
	}

	executionTree, err := scheduler.Schedule(ctx.Tree, ctx.Decisions(), resolve)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", errmsg.Format(err, nil))
		exitWithCode(ExitSchedulingFailed)
	}

	if scheduleWorkers <= 1 {
		if err := printTopological(executionTree); err != nil {
			fmt.Fprintln(os.Stderr, "error:", errmsg.Format(err, nil))
			exitWithCode(ExitSchedulingFailed)
		}
		return
	}

	if err := driveConcurrently(executionTree, scheduleWorkers); err != nil {
		fmt.Fprintln(os.Stderr, "error:", errmsg.Format(err, nil))
		exitWithCode(ExitSchedulingFailed)
	}
}

// driveConcurrently walks the execution DAG the way a real executor would:
// workerpool.Drive hands each ready vertex to one of scheduleWorkers
// goroutines and only releases its successors once that worker reports it
// done. Printing is the only side effect here, but it still goes through
// the same Visit contract an actual build/install/upload dispatcher would.
func driveConcurrently(tree *dag.DAG, workers int) error {
	var mu sync.Mutex
	return workerpool.Drive(globalCtx, tree, workers, func(_ context.Context, uid string, data any) error {
		kind := "?"
		if a, ok := data.(action.Action); ok {
			kind = a.Kind().String()
		}
		mu.Lock()
		fmt.Printf("%-24s %s\n", kind, uid)
		mu.Unlock()
		return nil
	})
}

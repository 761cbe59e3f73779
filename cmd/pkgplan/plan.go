package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/pkgplan/internal/action"
	"github.com/tsukumogami/pkgplan/internal/config"
	"github.com/tsukumogami/pkgplan/internal/dag"
	"github.com/tsukumogami/pkgplan/internal/errmsg"
	"github.com/tsukumogami/pkgplan/internal/expander"
	"github.com/tsukumogami/pkgplan/internal/specfile"
	"github.com/tsukumogami/pkgplan/internal/specmodel"
	"github.com/tsukumogami/pkgplan/internal/vcsinfo"
)

var planExpansionOnly bool

var planCmd = &cobra.Command{
	Use:   "plan <spec-dir> <plan-file>",
	Short: "Expand a plan file's entries into an action DAG",
	Args:  cobra.ExactArgs(2),
	Run:   runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planExpansionOnly, "expansion-only", false,
		"print the raw expansion DAG (GraphViz) without scheduling its decisions")
}

// buildExpansion expands every entry of planFile against the spec
// repository rooted at specDir, returning the expansion context (DAG plus
// open decisions) for plan/schedule to share.
func buildExpansion(specDir, planFile string, defaultEnv specmodel.BaseEnv) (*expander.Context, error) {
	entries, err := parsePlanFile(planFile)
	if err != nil {
		return nil, err
	}
	cfg, err := config.DefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("resolve configuration: %w", err)
	}

	repo := specfile.NewRepository(specDir)
	ctx := expander.New(repo, defaultEnv,
		expander.WithRevisionResolver(vcsinfo.NewWithTimeout(cfg.APITimeout)),
		expander.WithContext(globalCtx),
		expander.WithRejectDuplicates(true),
	)
	for _, entry := range entries {
		if _, err := ctx.AddPlanAction(entry); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Line, err)
		}
	}
	return ctx, nil
}

// printTopological walks tree's vertices in a topological order (no
// concurrency, so the busy-state tracking C13's Drive relies on is
// unnecessary here) and prints one "kind uid" line per vertex. The order
// among vertices that are ready at the same time is not fixed and can
// differ between runs.
func printTopological(tree *dag.DAG) error {
	it := dag.NewIterator(tree, false)
	for {
		uid, data, _, err := it.Next()
		if err == dag.ErrDone {
			return nil
		}
		if err != nil {
			return err
		}
		kind := "?"
		if a, ok := data.(action.Action); ok {
			kind = a.Kind().String()
		}
		fmt.Printf("%-24s %s\n", kind, uid)
	}
}

func runPlan(cmd *cobra.Command, args []string) {
	specDir, planFile := args[0], args[1]
	defaultEnv := defaultBuildEnv()

	ctx, err := buildExpansion(specDir, planFile, defaultEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", errmsg.Format(err, nil))
		exitWithCode(ExitExpansionFailed)
	}

	if planExpansionOnly {
		fmt.Println(ctx.Tree.AsDOT(func(uid string) string { return uid }))
		return
	}

	if err := printTopological(ctx.Tree); err != nil {
		fmt.Fprintln(os.Stderr, "error:", errmsg.Format(err, nil))
		exitWithCode(ExitExpansionFailed)
	}
}

// defaultBuildEnv is the platform pkgplan assumes when a plan entry leaves
// build/host/target unset. A real deployment would detect this from the
// running host; pinning it here keeps plan/schedule's output reproducible
// across machines without needing a --platform flag yet.
func defaultBuildEnv() specmodel.BaseEnv {
	return specmodel.BaseEnv{Build: "x86_64-linux", Host: "x86_64-linux", Target: "x86_64-linux"}
}

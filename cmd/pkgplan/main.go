// Command pkgplan is the CLI around the planner core: expanding a plan
// file's anod_build/anod_install/... entries into an action DAG, scheduling
// that DAG's open decisions into a concrete execution order, and comparing
// persisted fingerprints. None of its flags are read by the core packages;
// they are parsed here and passed down through plain Go function arguments,
// matching the "CLI is an external collaborator" boundary the planner core
// itself is specified against.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/pkgplan/internal/buildinfo"
	"github.com/tsukumogami/pkgplan/internal/log"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool
)

// globalCtx is canceled on SIGINT/SIGTERM; commands that reach out to a
// VCS host (the plan subcommand's revision resolver) use it so a signal
// interrupts an in-flight network call instead of waiting it out.
var globalCtx context.Context
var globalCancel context.CancelFunc

var rootCmd = &cobra.Command{
	Use:   "pkgplan",
	Short: "Expand and schedule build-action plans for a spec repository",
	Long: `pkgplan turns a plan file's build/install/test/source requests against a
spec repository into a concrete, ordered set of build actions.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Show errors only")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show verbose output (INFO level)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Show debug output (includes timestamps and source locations)")
	rootCmd.PersistentPreRun = initLogger
	rootCmd.Version = buildinfo.Version()

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(fingerprintCmd)
}

func main() {
	globalCtx, globalCancel = context.WithCancel(context.Background())
	defer globalCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nreceived %s, canceling operation...\n", sig)
		globalCancel()

		<-sigChan
		fmt.Fprintln(os.Stderr, "forced exit")
		exitWithCode(ExitCancelled)
	}()

	if err := rootCmd.Execute(); err != nil {
		if globalCtx.Err() == context.Canceled {
			exitWithCode(ExitCancelled)
		}
		fmt.Fprintln(os.Stderr, err)
		exitWithCode(ExitGeneral)
	}
}

// initLogger initializes the global logger from verbosity flags, run once
// per command invocation via cobra's PersistentPreRun.
func initLogger(cmd *cobra.Command, args []string) {
	level := determineLogLevel()
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug})
	log.SetDefault(log.New(handler))
}

// determineLogLevel resolves the effective slog.Level, flags taking
// precedence over environment variables, defaulting to WARN.
func determineLogLevel() slog.Level {
	if debugFlag {
		return slog.LevelDebug
	}
	if verboseFlag {
		return slog.LevelInfo
	}
	if quietFlag {
		return slog.LevelError
	}
	if isTruthy(os.Getenv("PKGPLAN_DEBUG")) {
		return slog.LevelDebug
	}
	if isTruthy(os.Getenv("PKGPLAN_VERBOSE")) {
		return slog.LevelInfo
	}
	if isTruthy(os.Getenv("PKGPLAN_QUIET")) {
		return slog.LevelError
	}
	return slog.LevelWarn
}

func isTruthy(s string) bool {
	s = strings.ToLower(s)
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

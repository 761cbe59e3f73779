package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/pkgplan/internal/config"
	"github.com/tsukumogami/pkgplan/internal/fingerprint"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Inspect persisted fingerprint files",
}

var fingerprintDiffCmd = &cobra.Command{
	Use:   "diff <a.json> <b.json>",
	Short: "Compare two persisted fingerprints and print what changed",
	Long: `Loads two fingerprint files previously written by fingerprint.SaveToFile and
prints the element names that are new, updated, or obsolete going from a to b.`,
	Args: cobra.ExactArgs(2),
	Run:  runFingerprintDiff,
}

var fingerprintCheckCmd = &cobra.Command{
	Use:   "check <fingerprint-file>",
	Short: "Report whether a persisted fingerprint is still within the configured cache TTL",
	Long: `Stats a fingerprint file's age against PKGPLAN_FINGERPRINT_CACHE_TTL
(internal/config's GetFingerprintCacheTTL) and reports "fresh" or "stale".
A stale fingerprint is not wrong, just old enough that the caller should
prefer recomputing it over trusting the one on disk.`,
	Args: cobra.ExactArgs(1),
	Run:  runFingerprintCheck,
}

func init() {
	fingerprintCmd.AddCommand(fingerprintDiffCmd)
	fingerprintCmd.AddCommand(fingerprintCheckCmd)
}

func runFingerprintCheck(cmd *cobra.Command, args []string) {
	path := args[0]
	if fingerprint.LoadFromFile(path) == nil {
		fmt.Fprintf(os.Stderr, "error: could not load fingerprint from %s\n", path)
		exitWithCode(ExitGeneral)
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitWithCode(ExitGeneral)
	}

	cfg, err := config.DefaultConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitWithCode(ExitGeneral)
	}

	age := time.Since(info.ModTime())
	if age > cfg.FingerprintTTL {
		fmt.Printf("stale (age: %s, ttl: %s)\n", age.Round(time.Second), cfg.FingerprintTTL)
		exitWithCode(ExitGeneral)
	}
	fmt.Printf("fresh (age: %s, ttl: %s)\n", age.Round(time.Second), cfg.FingerprintTTL)
}

func runFingerprintDiff(cmd *cobra.Command, args []string) {
	aPath, bPath := args[0], args[1]

	a := fingerprint.LoadFromFile(aPath)
	if a == nil {
		fmt.Fprintf(os.Stderr, "error: could not load fingerprint from %s\n", aPath)
		exitWithCode(ExitGeneral)
	}
	b := fingerprint.LoadFromFile(bPath)
	if b == nil {
		fmt.Fprintf(os.Stderr, "error: could not load fingerprint from %s\n", bPath)
		exitWithCode(ExitGeneral)
	}

	diff := b.CompareTo(a)
	if diff.Empty() {
		fmt.Println("no change")
		return
	}
	for _, name := range diff.New {
		fmt.Printf("+ %s\n", name)
	}
	for _, name := range diff.Updated {
		fmt.Printf("~ %s\n", name)
	}
	for _, name := range diff.Obsolete {
		fmt.Printf("- %s\n", name)
	}
}

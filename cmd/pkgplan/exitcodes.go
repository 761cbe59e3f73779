package main

import "os"

// Exit codes, so scripts driving pkgplan can distinguish failure modes
// without scraping stderr.
const (
	ExitSuccess          = 0
	ExitGeneral          = 1
	ExitUsage            = 2
	ExitSpecNotFound     = 3
	ExitPlanParseFailed  = 4
	ExitExpansionFailed  = 5
	ExitSchedulingFailed = 6
	ExitCancelled        = 7
)

func exitWithCode(code int) {
	os.Exit(code)
}

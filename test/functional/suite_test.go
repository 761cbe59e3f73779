// Package functional drives the pkgplan binary end-to-end against
// scratch spec repositories and plan files, one assertion per testable
// scenario in spec.md (S1-S6). Grounded on
// tsukumogami/tsuku/test/functional/suite_test.go's TestMain-driven
// godog.TestSuite harness shape.
package functional

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

type stateKeyType struct{}

var stateKey = stateKeyType{}

// testState is per-scenario: a scratch spec directory the "Given a spec
// file" steps populate, a plan file the "Given a plan file" step writes,
// and the last "I run" invocation's captured output.
type testState struct {
	binPath         string
	specDir         string
	planFile        string
	fingerprintFile map[string]string // base name (e.g. "old.json") -> absolute path
	stdout          string
	stderr          string
	exitCode        int
}

func getState(ctx context.Context) *testState {
	if s, ok := ctx.Value(stateKey).(*testState); ok {
		return s
	}
	return nil
}

func setState(ctx context.Context, s *testState) context.Context {
	return context.WithValue(ctx, stateKey, s)
}

func TestFeatures(t *testing.T) {
	binPath := os.Getenv("PKGPLAN_TEST_BINARY")
	if binPath == "" {
		t.Skip("PKGPLAN_TEST_BINARY not set; build cmd/pkgplan and set this to its path to run")
	}
	absBin, err := filepath.Abs(binPath)
	if err != nil {
		t.Fatalf("resolving binary path: %v", err)
	}
	binPath = absBin

	opts := &godog.Options{
		Format:   "pretty",
		Paths:    []string{"features"},
		TestingT: t,
	}
	if tags := os.Getenv("PKGPLAN_TEST_TAGS"); tags != "" {
		opts.Tags = tags
	}

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			initializeScenario(ctx, binPath)
		},
		Options: opts,
	}
	if suite.Run() != 0 {
		t.Fatal("functional tests failed")
	}
}

func initializeScenario(ctx *godog.ScenarioContext, binPath string) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		specDir, err := os.MkdirTemp("", "pkgplan-functional-specs-")
		if err != nil {
			return ctx, err
		}
		state := &testState{
			binPath:         binPath,
			specDir:         specDir,
			planFile:        filepath.Join(specDir, "plan.txt"),
			fingerprintFile: make(map[string]string),
		}
		return setState(ctx, state), nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if state := getState(ctx); state != nil {
			os.RemoveAll(state.specDir)
		}
		return ctx, err
	})

	ctx.Step(`^a spec file "([^"]*)" containing:$`, aSpecFileContaining)
	ctx.Step(`^a plan file containing:$`, aPlanFileContaining)
	ctx.Step(`^a fingerprint file "([^"]*)" with elements:$`, aFingerprintFileWithElements)
	ctx.Step(`^I run "pkgplan (.*)"$`, iRunPkgplan)
	ctx.Step(`^the exit code is (\d+)$`, theExitCodeIs)
	ctx.Step(`^the exit code is not (\d+)$`, theExitCodeIsNot)
	ctx.Step(`^the output contains "([^"]*)"$`, theOutputContains)
	ctx.Step(`^the output does not contain "([^"]*)"$`, theOutputDoesNotContain)
	ctx.Step(`^the error output contains "([^"]*)"$`, theErrorOutputContains)
}

// expandPlaceholders substitutes the scratch paths every scenario's "I
// run" step needs to reference without hard-coding a temp directory into
// the feature file: <specdir>/<planfile> for the spec/plan scenarios, and
// <name> (matching a previously-written "fingerprint file \"name.json\"")
// for the fingerprint-diff scenarios.
func expandPlaceholders(s string, state *testState) string {
	s = strings.ReplaceAll(s, "<specdir>", state.specDir)
	s = strings.ReplaceAll(s, "<planfile>", state.planFile)
	for name, path := range state.fingerprintFile {
		s = strings.ReplaceAll(s, "<"+strings.TrimSuffix(name, ".json")+">", path)
	}
	return s
}

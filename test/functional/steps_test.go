package functional

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/tsukumogami/pkgplan/internal/fingerprint"
)

// aSpecFileContaining writes a docstring's TOML body to <specdir>/<name>.spec.toml.
func aSpecFileContaining(ctx context.Context, name, body string) error {
	state := getState(ctx)
	if state == nil {
		return fmt.Errorf("no test state; is the Before hook running?")
	}
	path := filepath.Join(state.specDir, name+".spec.toml")
	return os.WriteFile(path, []byte(body), 0o644)
}

// aPlanFileContaining writes a docstring's body to the scenario's plan file.
func aPlanFileContaining(ctx context.Context, body string) error {
	state := getState(ctx)
	if state == nil {
		return fmt.Errorf("no test state; is the Before hook running?")
	}
	return os.WriteFile(state.planFile, []byte(body), 0o644)
}

// aFingerprintFileWithElements builds a Fingerprint from a two-column
// (name, value) table, persists it under the scenario's scratch spec
// directory, and records its path under name for later "I run" steps to
// substitute via <name> (name with its ".json" suffix stripped).
func aFingerprintFileWithElements(ctx context.Context, name string, table *godog.Table) error {
	state := getState(ctx)
	if state == nil {
		return fmt.Errorf("no test state; is the Before hook running?")
	}

	fp := fingerprint.New()
	for _, row := range table.Rows {
		if err := fp.Add(row.Cells[0].Value, row.Cells[1].Value); err != nil {
			return err
		}
	}

	path := filepath.Join(state.specDir, name)
	if err := fp.SaveToFile(path); err != nil {
		return err
	}
	state.fingerprintFile[name] = path
	return nil
}

// iRunPkgplan runs the test binary with args, substituting <specdir> and
// <planfile> for the scenario's scratch paths.
func iRunPkgplan(ctx context.Context, commandLine string) (context.Context, error) {
	state := getState(ctx)
	if state == nil {
		return ctx, fmt.Errorf("no test state; is the Before hook running?")
	}

	args := strings.Fields(expandPlaceholders(commandLine, state))
	cmd := exec.Command(state.binPath, args...)
	cmd.Env = append(os.Environ(), "PKGPLAN_QUIET=1")

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	state.stdout = stdout.String()
	state.stderr = stderr.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			state.exitCode = exitErr.ExitCode()
		} else {
			return ctx, fmt.Errorf("command execution failed: %w", err)
		}
	} else {
		state.exitCode = 0
	}
	return ctx, nil
}

func theExitCodeIs(ctx context.Context, expected int) error {
	state := getState(ctx)
	if state.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nstdout: %s\nstderr: %s",
			expected, state.exitCode, state.stdout, state.stderr)
	}
	return nil
}

func theExitCodeIsNot(ctx context.Context, notExpected int) error {
	state := getState(ctx)
	if state.exitCode == notExpected {
		return fmt.Errorf("expected exit code to not be %d\nstdout: %s\nstderr: %s",
			notExpected, state.stdout, state.stderr)
	}
	return nil
}

func theOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	if strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout not to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theErrorOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

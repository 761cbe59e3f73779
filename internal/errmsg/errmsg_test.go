package errmsg

import (
	"errors"
	"strings"
	"testing"

	"github.com/tsukumogami/pkgplan/internal/plannererr"
)

func TestFormat_NilError(t *testing.T) {
	if result := Format(nil, nil); result != "" {
		t.Errorf("expected empty string for nil error, got %q", result)
	}
}

func TestFormat_GenericError(t *testing.T) {
	err := errors.New("something went wrong")
	if result := Format(err, nil); result != "something went wrong" {
		t.Errorf("expected original error message, got %q", result)
	}
}

func TestFormat_SpecLoad(t *testing.T) {
	err := plannererr.New(plannererr.KindSpecLoad, "zlib", "no such spec file")
	result := Format(err, &ErrorContext{SpecName: "zlib"})

	for _, check := range []string{
		"no such spec file",
		"Possible causes:",
		"Suggestions:",
		"zlib.spec.toml",
	} {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_DecisionUnresolved_IncludesPlannerMessage(t *testing.T) {
	err := plannererr.New(plannererr.KindDecisionUnresolved, "zlib.decision",
		"no choice was made for this decision; add an explicit plan action: anod_build(\"zlib\") or anod_install(\"zlib\")")
	result := Format(err, nil)

	if !strings.Contains(result, "add an explicit plan action") {
		t.Errorf("expected the planner's own suggestion text to be surfaced verbatim, got:\n%s", result)
	}
}

func TestFormat_DecisionUnresolved_ListsInitiators(t *testing.T) {
	err := &plannererr.PlannerError{
		Kind:       plannererr.KindDecisionUnresolved,
		Origin:     "zlib.decision",
		Message:    "dependencies require conflicting sides of this decision",
		Initiators: []string{"plan.txt:3", "plan.txt:7"},
	}
	result := Format(err, nil)

	for _, initiator := range err.Initiators {
		if !strings.Contains(result, initiator) {
			t.Errorf("expected result to list initiator %q, got:\n%s", initiator, result)
		}
	}
}

func TestFormat_DAGInvariant(t *testing.T) {
	err := plannererr.New(plannererr.KindDAGInvariant, "zlib.build.x86_64-linux", "duplicate plan line")
	result := Format(err, nil)

	if !strings.Contains(result, "Possible causes:") || !strings.Contains(result, "duplicate") {
		t.Errorf("expected DAG invariant causes, got:\n%s", result)
	}
}

// Package errmsg formats a plannererr.PlannerError into a human-facing
// message with "Possible causes" and "Suggestions" blocks, classified by
// the error's Kind. Grounded on tsukumogami/tsuku/internal/errmsg.go's
// Format/formatResolverError dispatch shape, narrowed from the teacher's
// network/not-found/permission classification to the planner's own
// Kind enum.
package errmsg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tsukumogami/pkgplan/internal/plannererr"
)

// ErrorContext carries the one piece of optional context Format's
// suggestions can use: the spec name the failing operation concerned, if
// one is known at the call site.
type ErrorContext struct {
	SpecName string
}

// Format returns a formatted error message. If err is not a
// *plannererr.PlannerError, its Error() text is returned unchanged — this
// package only knows how to add context for the planner's own structured
// errors. ctx may be nil for generic formatting.
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}

	var perr *plannererr.PlannerError
	if !errors.As(err, &perr) {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString(perr.Error())
	sb.WriteString("\n")

	switch perr.Kind {
	case plannererr.KindSpecLoad:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The spec file does not exist under the spec directory\n")
		sb.WriteString("  - The spec's TOML is malformed\n")
		sb.WriteString("\nSuggestions:\n")
		if ctx != nil && ctx.SpecName != "" {
			fmt.Fprintf(&sb, "  - Check that %s.spec.toml exists and parses\n", ctx.SpecName)
		} else {
			sb.WriteString("  - Check that the referenced spec file exists and parses\n")
		}

	case plannererr.KindDependencyShape:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - A dependency's require keyword is not one this planner recognizes\n")
		sb.WriteString("  - Two dependencies declare conflicting local_name values\n")
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Check the [[dependencies]] table of the spec named in this error\n")

	case plannererr.KindPlanShape:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The plan file names a primitive the target spec does not declare\n")
		sb.WriteString("  - The plan file references a source_name the spec's [[source_builders]] does not have\n")
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Check the plan line named in this error against the spec's declared primitives/sources\n")

	case plannererr.KindDecisionUnresolved:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - No resolver default and no dependency forced a choice for this decision\n")
		sb.WriteString("  - Two plan entries or dependencies required opposite sides of the same decision\n")
		sb.WriteString("\nSuggestions:\n")
		fmt.Fprintf(&sb, "  - %s\n", perr.Message)
		for _, initiator := range perr.Initiators {
			fmt.Fprintf(&sb, "  - conflicting requirement from: %s\n", initiator)
		}

	case plannererr.KindDAGInvariant:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - Two plan lines resolved to the same action uid\n")
		sb.WriteString("  - A dependency cycle exists between specs\n")
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Check the plan file for duplicate or conflicting entries\n")

	case plannererr.KindFingerprint:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The fingerprint file was written by an incompatible format version\n")
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Recompute the fingerprint rather than trusting the one on disk\n")

	default:
		sb.WriteString("\nSuggestions:\n")
		sb.WriteString("  - Re-run with --debug for more detail\n")
	}

	return sb.String()
}

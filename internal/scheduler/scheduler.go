// Package scheduler turns an expansion DAG (built by internal/expander)
// plus its open Decisions into a concrete execution DAG: every Decision
// is resolved to one branch, the rejected branch (and anything reachable
// only through it) is dropped, and Upload-family actions are reattached
// using their own expansion-DAG predecessors rather than whatever the
// main walk happened to wire up. Grounded on
// e3.anod.context.AnodContext.schedule/decision_error.
package scheduler

import (
	"fmt"

	"github.com/tsukumogami/pkgplan/internal/action"
	"github.com/tsukumogami/pkgplan/internal/dag"
	"github.com/tsukumogami/pkgplan/internal/plannererr"
)

// Resolver supplies a default choice for a Decision that has no
// dependency-driven expectation and no explicit plan-level choice. It
// returns ok=false to decline, leaving the decision unresolved (which is
// then reported as a scheduling error naming both sides' plan-fix text).
type Resolver func(dec *action.Decision) (choice action.Choice, ok bool)

// AlwaysDownloadSource resolves every CreateSourceOrDownload decision to
// downloading the source prebuilt. It declines any other decision kind.
func AlwaysDownloadSource(dec *action.Decision) (action.Choice, bool) {
	if dec.DescribeRight == "download_source" {
		return action.Right, true
	}
	return action.Left, false
}

// AlwaysCreateSource resolves every CreateSourceOrDownload decision to
// assembling the source locally. It declines any other decision kind.
func AlwaysCreateSource(dec *action.Decision) (action.Choice, bool) {
	if dec.DescribeLeft == "create_source" {
		return action.Left, true
	}
	return action.Left, false
}

// AlwaysDownloadBinary resolves every BuildOrDownload decision to
// downloading the binary package prebuilt. It declines any other decision
// kind; combine with AlwaysDownloadSource via Combine for a resolver that
// defaults every open decision to "download whatever's prebuilt".
func AlwaysDownloadBinary(dec *action.Decision) (action.Choice, bool) {
	if dec.DescribeRight == "install" {
		return action.Right, true
	}
	return action.Left, false
}

// AlwaysBuildLocally resolves every BuildOrDownload decision to building
// the spec instance locally. It declines any other decision kind.
func AlwaysBuildLocally(dec *action.Decision) (action.Choice, bool) {
	if dec.DescribeLeft == "build" {
		return action.Left, true
	}
	return action.Left, false
}

// Combine tries each resolver in order and returns the first one that
// doesn't decline, so a caller can default several unrelated decision
// kinds (e.g. source assembly and binary installation) through a single
// Resolver value.
func Combine(resolvers ...Resolver) Resolver {
	return func(dec *action.Decision) (action.Choice, bool) {
		for _, r := range resolvers {
			if choice, ok := r(dec); ok {
				return choice, true
			}
		}
		return action.Left, false
	}
}

// Schedule resolves every decision in decisions against tree and returns
// the concrete execution DAG: Decision vertices are gone, replaced by a
// direct edge to whichever branch was chosen, and Upload-family actions
// depend only on the thing each one publishes, per deferUploads.
//
// Resolution order per decision: a dependency-driven ExpectedChoice (set
// by a prior ApplyTriggers pass) always wins over resolve; resolve only
// supplies a default when no trigger expressed a preference. An explicit
// choice already set via Decision.SetDecision (e.g. from a plan action)
// that conflicts with a trigger's expectation is reported as an error
// rather than silently overridden either way.
func Schedule(tree *dag.DAG, decisions map[string]*action.Decision, resolve Resolver) (*dag.DAG, error) {
	for _, dec := range decisions {
		dec.ApplyTriggers(tree.Contains)
	}

	for uid, dec := range decisions {
		if dec.ChoiceValue() == nil {
			if expected := dec.ExpectedChoice(); expected != nil && *expected != action.Both {
				dec.SetDecision(*expected, "dependency")
			} else if choice, ok := resolve(dec); ok {
				dec.SetDecision(choice, "resolver")
			}
		}
		if dec.GetDecision() == "" {
			return nil, decisionError(uid, dec)
		}
	}

	out := dag.New()
	added := make(map[string]bool)
	var addVertex func(uid string) error
	addVertex = func(uid string) error {
		if added[uid] {
			return nil
		}
		var resolvedPreds []string
		for _, p := range tree.GetPredecessors(uid) {
			target := p
			if dec, ok := decisions[p]; ok {
				target = dec.GetDecision()
			}
			if err := addVertex(target); err != nil {
				return err
			}
			resolvedPreds = append(resolvedPreds, target)
		}
		added[uid] = true
		return out.AddVertex(uid, tree.VertexData[uid], resolvedPreds...)
	}
	if err := addVertex(action.RootUID); err != nil {
		return nil, err
	}

	if err := deferUploads(tree, decisions, out); err != nil {
		return nil, err
	}
	return out, nil
}

// deferUploads is the scheduler's upload post-pass: every Upload vertex
// in out has its predecessors reset to exactly what tree (the
// pre-scheduling expansion DAG) said it depended on, each translated
// through whichever branch its Decision predecessor, if any, resolved to.
// An Upload in this planner only ever depends on the thing it publishes —
// never on unrelated actions elsewhere in the plan — matching
// e3.anod.context.AnodContext.schedule's own upload handling, where an
// upload is connected to its own build action and nothing else.
func deferUploads(tree *dag.DAG, decisions map[string]*action.Decision, out *dag.DAG) error {
	for uid, data := range out.VertexData {
		a, ok := data.(action.Action)
		if !ok || !action.IsUpload(a.Kind()) {
			continue
		}
		var preds []string
		for _, p := range tree.GetPredecessors(uid) {
			if dec, ok := decisions[p]; ok {
				preds = append(preds, dec.GetDecision())
				continue
			}
			preds = append(preds, p)
		}
		out.SetPredecessors(uid, preds...)
	}
	return out.Check()
}

// decisionError builds the human-facing diagnostic for a Decision that
// could not resolve, covering the four ways GetDecision can fail to
// return a branch.
func decisionError(uid string, dec *action.Decision) error {
	origin := dec.RootUID
	_ = uid

	switch {
	case dec.ChoiceValue() == nil:
		return &plannererr.PlannerError{
			Kind:   plannererr.KindDecisionUnresolved,
			Origin: origin,
			Message: "no choice was made for this decision; add an explicit plan action: " +
				dec.SuggestPlanFix(action.Left) + " or " + dec.SuggestPlanFix(action.Right),
		}

	case *dec.ChoiceValue() == action.Both:
		return &plannererr.PlannerError{
			Kind:    plannererr.KindDecisionUnresolved,
			Origin:  origin,
			Message: "conflicting explicit choices were set for this decision",
		}

	case dec.ExpectedChoice() != nil && *dec.ExpectedChoice() == action.Both:
		return &plannererr.PlannerError{
			Kind:       plannererr.KindDecisionUnresolved,
			Origin:     origin,
			Message:    "dependencies require conflicting sides of this decision",
			Initiators: dec.TriggerPlanLines(),
		}

	default:
		forced := dec.ExpectedChoice()
		chosenName := dec.RightActionName
		if *dec.ChoiceValue() == action.Left {
			chosenName = dec.LeftActionName
		}
		return &plannererr.PlannerError{
			Kind:   plannererr.KindDecisionUnresolved,
			Origin: origin,
			Message: fmt.Sprintf("an explicit %s decision conflicts with a dependency-driven requirement; suggested fix: %s",
				chosenName, dec.SuggestPlanFix(*forced)),
			Initiators: dec.TriggerPlanLines(),
		}
	}
}

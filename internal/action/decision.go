package action

import "fmt"

// Choice identifies which branch of a Decision is taken.
type Choice int

const (
	// Left and Right are deliberately abstract; concrete decisions (see
	// CreateSourceOrDownload, BuildOrDownload below) name them.
	Left Choice = iota
	Right
	// Both means two conflicting expectations were registered against
	// this decision and it can no longer resolve to a single side.
	Both
)

// trigger records one dependency-driven expectation placed on a Decision:
// the action that needed a particular choice, which choice it needed, and
// the plan line responsible (for diagnostics).
type trigger struct {
	uid      string
	choice   Choice
	planLine string
}

// Decision represents a still-open choice between two alternative subtrees
// (e.g. creating a source locally vs. downloading it prebuilt). It is
// itself an Action so it can sit in the expansion DAG as an ordinary
// vertex, but the scheduler (C5) never schedules a Decision for execution;
// it resolves it and drops it from the execution DAG.
type Decision struct {
	RootUID  string
	LeftUID  string
	RightUID string

	// DescribeLeft/DescribeRight name what each branch does, for
	// diagnostics (e.g. "create_source" / "download_source").
	DescribeLeft  string
	DescribeRight string

	// LeftActionName/RightActionName name the Go action type each branch
	// resolves to (e.g. "DownloadBinary"), for diagnostics that must
	// name the concrete action an explicit choice conflicted on.
	LeftActionName  string
	RightActionName string

	choice         *Choice
	expectedChoice *Choice
	decisionMaker  string
	triggers       []trigger

	// SuggestPlanFixFunc, when set, produces the literal plan line text
	// a human should add to force this decision's Left or Right branch.
	// It is set by the concrete decision constructors below.
	SuggestPlanFixFunc func(choice Choice) string
}

func (d *Decision) UID() string { return d.RootUID + ".decision" }
func (*Decision) Kind() Kind    { return KindDecision }

// NewCreateSourceOrDownload builds the Decision between assembling a
// source locally (Left) and downloading it prebuilt (Right).
func NewCreateSourceOrDownload(rootUID string, create CreateSource, download DownloadSource) *Decision {
	d := &Decision{
		RootUID:         rootUID,
		LeftUID:         create.UID(),
		RightUID:        download.UID(),
		DescribeLeft:    "create_source",
		DescribeRight:   "download_source",
		LeftActionName:  "CreateSource",
		RightActionName: "DownloadSource",
	}
	d.SuggestPlanFixFunc = func(choice Choice) string {
		verb := "create_source"
		if choice == Right {
			verb = "download_source"
		}
		return fmt.Sprintf("anod_source(%q, %s=True)", download.BuilderName, verb)
	}
	return d
}

// NewBuildOrDownload builds the Decision between building a spec instance
// locally (Left) and downloading its binary package prebuilt (Right).
func NewBuildOrDownload(rootUID string, build AnodAction, download DownloadBinary, qualifier, build_, host, target string) *Decision {
	d := &Decision{
		RootUID:         rootUID,
		LeftUID:         build.UID(),
		RightUID:        download.UID(),
		DescribeLeft:    "build",
		DescribeRight:   "install",
		LeftActionName:  "Build",
		RightActionName: "DownloadBinary",
	}
	d.SuggestPlanFixFunc = func(choice Choice) string {
		kind := "build"
		if choice == Right {
			kind = "install"
		}
		return fmt.Sprintf("anod_%s(%q, qualifier=%q, build=%q, host=%q, target=%q)",
			kind, build.SpecUID, qualifier, build_, host, target)
	}
	return d
}

// AddTrigger registers that the action identified by triggerUID needs this
// decision resolved to choice, quoting planLine as the origin of that
// requirement for diagnostics. It only records the trigger; conflicting
// triggers are folded into ExpectedChoice (escalating to Both) later, by
// ApplyTriggers.
func (d *Decision) AddTrigger(triggerUID string, choice Choice, planLine string) {
	d.triggers = append(d.triggers, trigger{uid: triggerUID, choice: choice, planLine: planLine})
}

// ApplyTriggers walks d's registered triggers, keeping only those whose
// triggering action is still present in dagContains, and folds their
// choices into ExpectedChoice (escalating to Both on conflict). Call this
// once per Decision right before scheduling, after the expansion DAG is
// final and pruning (if any) has happened.
func (d *Decision) ApplyTriggers(dagContains func(uid string) bool) {
	for _, t := range d.triggers {
		if !dagContains(t.uid) {
			continue
		}
		d.escalate(t.choice)
	}
}

func (d *Decision) escalate(choice Choice) {
	if d.expectedChoice == nil {
		c := choice
		d.expectedChoice = &c
		return
	}
	if *d.expectedChoice != choice {
		both := Both
		d.expectedChoice = &both
	}
}

// SetDecision records that decisionMaker (the resolver, or an explicit
// plan line) chose `which`. A conflicting second call escalates the
// decision's own Choice to Both, matching ApplyTriggers' escalation rule.
func (d *Decision) SetDecision(which Choice, decisionMaker string) {
	if d.choice == nil {
		c := which
		d.choice = &c
		d.decisionMaker = decisionMaker
		return
	}
	if *d.choice != which {
		both := Both
		d.choice = &both
	}
}

// GetDecision returns the uid of the branch this decision resolves to, or
// "" if it cannot resolve: either because nothing has chosen yet, because
// the choice is Both, or because an explicit choice conflicts with an
// expectation registered by ApplyTriggers.
func (d *Decision) GetDecision() string {
	if d.choice == nil || *d.choice == Both {
		return ""
	}
	if d.expectedChoice != nil {
		if *d.expectedChoice == Both {
			return ""
		}
		if *d.expectedChoice != *d.choice {
			return ""
		}
	}
	if *d.choice == Left {
		return d.LeftUID
	}
	return d.RightUID
}

// ExpectedChoice returns the choice (if any) that dependency-driven
// triggers require, after ApplyTriggers has run.
func (d *Decision) ExpectedChoice() *Choice { return d.expectedChoice }

// ChoiceValue returns the choice (if any) an explicit resolver/plan decision
// has set.
func (d *Decision) ChoiceValue() *Choice { return d.choice }

// TriggerPlanLines returns the plan line of every registered trigger, in
// registration order, for diagnostic reporting.
func (d *Decision) TriggerPlanLines() []string {
	lines := make([]string, 0, len(d.triggers))
	for _, t := range d.triggers {
		lines = append(lines, t.planLine)
	}
	return lines
}

// SuggestPlanFix returns the literal plan line text that would force this
// decision to choice, or "" if this decision has no such suggestion.
func (d *Decision) SuggestPlanFix(choice Choice) string {
	if d.SuggestPlanFixFunc == nil {
		return ""
	}
	return d.SuggestPlanFixFunc(choice)
}

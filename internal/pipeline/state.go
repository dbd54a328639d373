// Package pipeline owns the interactive state of one template-building
// session. State transitions are pure functions of named events; the
// Controller sequences network calls and feeds their outcomes back in.
package pipeline

import (
	"github.com/jlllyfish/Moose-railway/internal/client"
)

// Phase is the coarse position of a session in the pipeline. It is derived
// from which fields are populated, never stored.
type Phase int

// Phases in pipeline order.
const (
	PhaseEmpty Phase = iota
	PhaseCredentialed
	PhaseTablesLoaded
	PhaseColumnsLoaded
	PhaseReady
	PhaseGenerated
	PhaseTested
)

var phaseNames = [...]string{
	"empty", "credentialed", "tables_loaded", "columns_loaded", "ready", "generated", "tested",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// SelectorStatus describes what a selector currently shows.
type SelectorStatus int

// Selector statuses.
const (
	// SelectorIdle shows the "load/choose upstream first" placeholder.
	SelectorIdle SelectorStatus = iota
	SelectorLoading
	SelectorLoaded
	// SelectorEmpty means the listing succeeded with no entries.
	SelectorEmpty
	SelectorFailed
)

// Selector is an exclusive-choice list.
type Selector struct {
	Status   SelectorStatus
	Options  []string
	Selected string
}

// Enabled reports whether the user may pick an option.
func (s Selector) Enabled() bool {
	return s.Status == SelectorLoaded
}

// Action names a user-triggerable control.
type Action string

// Actions.
const (
	ActionVerify     Action = "verify"
	ActionLoadTables Action = "load_tables"
	ActionGenerate   Action = "generate"
	ActionTest       Action = "test"
)

// ThrottledMessage is the notice shown when a rate limit refuses an action.
const ThrottledMessage = "Too many requests. Wait a moment before trying again."

// Notice is a message shown to the user. Blocking notices are modal.
type Notice struct {
	Title    string
	Message  string
	Blocking bool
	Kind     client.Kind
}

// Result is what the result area currently shows. Exactly one of Generation
// and Error is set for a rendered result.
type Result struct {
	Generation *client.Generation
	Error      string
	// Test is the latest test block; at most one exists.
	Test *TestOutcome
}

// TestOutcome is a finished test. Exec is nil when the call produced no
// usable response; Err and Kind then describe the failure.
type TestOutcome struct {
	Exec *client.TestExecution
	Err  string
	Kind client.Kind
}

// NewTestOutcome converts the return values of API.Test.
func NewTestOutcome(exec *client.TestExecution, err error) *TestOutcome {
	if err != nil {
		return &TestOutcome{Err: err.Error(), Kind: client.KindOf(err)}
	}
	return &TestOutcome{Exec: exec}
}

// State is the full session state. It is a value: Reduce returns a new one.
type State struct {
	Credential string
	DocumentID string
	Tables     Selector
	Columns    Selector
	Result     *Result
	Notice     *Notice
	Busy       map[Action]bool
}

// NewState returns the Empty state.
func NewState() State {
	return State{Busy: map[Action]bool{}}
}

// Phase derives the current phase.
func (s State) Phase() Phase {
	switch {
	case s.Result != nil && s.Result.Test != nil:
		return PhaseTested
	case s.Result != nil && s.Result.Generation != nil:
		return PhaseGenerated
	case s.Tables.Selected != "" && s.Columns.Selected != "":
		return PhaseReady
	case s.Columns.Status == SelectorLoaded:
		return PhaseColumnsLoaded
	case s.Tables.Status == SelectorLoaded:
		return PhaseTablesLoaded
	case s.Credential != "" && s.DocumentID != "":
		return PhaseCredentialed
	default:
		return PhaseEmpty
	}
}

// CanLoadTables reports whether the load-tables action is enabled.
func (s State) CanLoadTables() bool {
	return s.Credential != "" && s.DocumentID != "" && !s.Busy[ActionLoadTables]
}

// CanVerify reports whether the verify-credential action is enabled.
func (s State) CanVerify() bool {
	return s.Credential != "" && !s.Busy[ActionVerify]
}

// CanGenerate reports whether the generate action is enabled.
func (s State) CanGenerate() bool {
	return s.Request().Complete() && !s.Busy[ActionGenerate]
}

// CanTest reports whether the test action is available on the result.
func (s State) CanTest() bool {
	return s.Template() != "" && !s.Busy[ActionTest]
}

// Template returns the current URL template, or "" if none was generated.
func (s State) Template() string {
	if s.Result == nil || s.Result.Generation == nil {
		return ""
	}
	return s.Result.Generation.URL
}

// Request builds the generation request from the current selections.
func (s State) Request() client.GenerateRequest {
	return client.GenerateRequest{
		Credential: s.Credential,
		DocumentID: s.DocumentID,
		Table:      s.Tables.Selected,
		Column:     s.Columns.Selected,
	}
}

// clone copies the parts of s that Reduce mutates in place.
func (s State) clone() State {
	busy := make(map[Action]bool, len(s.Busy))
	for k, v := range s.Busy {
		if v {
			busy[k] = true
		}
	}
	s.Busy = busy
	s.Tables.Options = append([]string(nil), s.Tables.Options...)
	s.Columns.Options = append([]string(nil), s.Columns.Options...)
	if s.Result != nil {
		r := *s.Result
		s.Result = &r
	}
	return s
}

package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jlllyfish/Moose-railway/internal/client"
	"github.com/jlllyfish/Moose-railway/internal/credential"
)

// Reduce applies ev to s and returns the next state. It never mutates s.
//
// Editing the credential or the document id clears every downstream entity.
// Selecting a table clears the column choice and any result. Completions whose
// inputs no longer match the state are dropped.
func Reduce(s State, ev Event) State {
	s = s.clone()

	switch e := ev.(type) {
	case CredentialChanged:
		v := credential.Normalize(e.Value)
		if v == s.Credential {
			return s
		}
		s.Credential = v
		resetFromDocument(&s)

	case DocumentIDChanged:
		v := credential.Normalize(e.Value)
		if v == s.DocumentID {
			return s
		}
		s.DocumentID = v
		resetFromDocument(&s)

	case InputRejected:
		s.Notice = &Notice{Title: "Error", Message: e.Message, Blocking: true, Kind: client.KindMissingInput}

	case Throttled:
		s.Notice = &Notice{Title: "Too many requests", Message: ThrottledMessage, Blocking: true}

	case NoticeDismissed:
		s.Notice = nil

	case VerifyRequested:
		s.Busy[ActionVerify] = true
		s.Notice = nil

	case Verified:
		delete(s.Busy, ActionVerify)
		if e.Result.Success {
			s.Notice = &Notice{Title: "Test successful", Message: e.Result.Message, Blocking: true}
		} else {
			s.Notice = &Notice{
				Title:    "API token error",
				Message:  "Problem with the API token. Check your Grist token.",
				Blocking: true,
				Kind:     client.KindAuthOrSchema,
			}
		}

	case VerifyFailed:
		delete(s.Busy, ActionVerify)
		s.Notice = &Notice{Title: "Test error", Message: "Test error: " + e.Err.Error(), Blocking: true, Kind: client.KindOf(e.Err)}

	case TablesRequested:
		s.Busy[ActionLoadTables] = true
		s.Notice = nil
		s.Tables = Selector{Status: SelectorLoading}
		s.Columns = Selector{}
		s.Result = nil

	case TablesLoaded:
		delete(s.Busy, ActionLoadTables)
		if !s.matches(e.Key, false) {
			return s
		}
		if len(e.Tables) == 0 {
			s.Tables = Selector{Status: SelectorEmpty}
			s.Notice = &Notice{
				Title:   "No tables found",
				Message: "No tables found. Check the document ID and your API token.",
				Kind:    client.KindEmptyResult,
			}
			return s
		}
		s.Tables = Selector{Status: SelectorLoaded, Options: slices.Clone(e.Tables)}
		s.Notice = &Notice{Title: "Tables loaded", Message: tablesLoadedMessage(len(e.Tables))}

	case TablesFailed:
		delete(s.Busy, ActionLoadTables)
		if !s.matches(e.Key, false) {
			return s
		}
		s.Tables = Selector{Status: SelectorFailed}
		s.Notice = &Notice{Title: "Connection error", Message: "Error: " + e.Err.Error(), Blocking: true, Kind: client.KindOf(e.Err)}

	case TableSelected:
		if e.Name != "" && !slices.Contains(s.Tables.Options, e.Name) {
			return s
		}
		s.Tables.Selected = e.Name
		s.Result = nil
		s.Columns = Selector{}
		clearInfo(&s)
		if e.Name != "" && s.Credential != "" && s.DocumentID != "" {
			s.Columns.Status = SelectorLoading
		}

	case ColumnsLoaded:
		if !s.matches(e.Key, true) || s.Columns.Status != SelectorLoading {
			return s
		}
		status := SelectorLoaded
		if len(e.Columns) == 0 {
			status = SelectorEmpty
		}
		s.Columns = Selector{Status: status, Options: slices.Clone(e.Columns)}

	case ColumnsFailed:
		if !s.matches(e.Key, true) || s.Columns.Status != SelectorLoading {
			return s
		}
		s.Columns = Selector{Status: SelectorFailed}
		s.Notice = &Notice{
			Title:    "Error",
			Message:  "Error loading columns: " + e.Err.Error(),
			Blocking: true,
			Kind:     client.KindOf(e.Err),
		}

	case ColumnSelected:
		if e.Name != "" && !slices.Contains(s.Columns.Options, e.Name) {
			return s
		}
		s.Columns.Selected = e.Name
		s.Result = nil
		clearInfo(&s)

	case GenerateRequested:
		s.Busy[ActionGenerate] = true
		clearInfo(&s)

	case Generated:
		delete(s.Busy, ActionGenerate)
		if e.Request != s.Request() {
			return s
		}
		s.Result = &Result{Generation: e.Generation}

	case GenerationFailed:
		delete(s.Busy, ActionGenerate)
		if e.Request != s.Request() {
			return s
		}
		s.Result = &Result{Error: generationMessage(e.Err)}

	case TestRequested:
		if s.Result == nil || s.Result.Generation == nil {
			return s
		}
		s.Busy[ActionTest] = true
		s.Result.Test = nil
		clearInfo(&s)

	case Tested:
		delete(s.Busy, ActionTest)
		if e.Template == "" || e.Template != s.Template() {
			return s
		}
		s.Result.Test = NewTestOutcome(e.Exec, nil)

	case TestFailed:
		delete(s.Busy, ActionTest)
		if e.Template == "" || e.Template != s.Template() {
			return s
		}
		s.Result.Test = NewTestOutcome(nil, e.Err)
	}

	return s
}

// resetFromDocument clears everything that depends on credential + document.
func resetFromDocument(s *State) {
	s.Tables = Selector{}
	s.Columns = Selector{}
	s.Result = nil
	s.Notice = nil
}

// clearInfo drops a non-blocking notice once the user moves on. Blocking
// notices stay until dismissed.
func clearInfo(s *State) {
	if s.Notice != nil && !s.Notice.Blocking {
		s.Notice = nil
	}
}

// matches reports whether a listing issued for k still applies to s.
func (s State) matches(k schemaKey, withTable bool) bool {
	if k.Credential != s.Credential || k.DocumentID != s.DocumentID {
		return false
	}
	return !withTable || k.Table == s.Tables.Selected
}

func tablesLoadedMessage(n int) string {
	if n == 1 {
		return "1 table loaded"
	}
	return fmt.Sprintf("%d tables loaded", n)
}

func generationMessage(err error) string {
	var genErr *client.GenerationError
	if errors.As(err, &genErr) {
		return genErr.Message
	}
	return "Connection error: " + err.Error()
}

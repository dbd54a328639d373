package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlllyfish/Moose-railway/internal/client"
)

// reduceAll applies events in order starting from the Empty state.
func reduceAll(events ...Event) State {
	s := NewState()
	for _, ev := range events {
		s = Reduce(s, ev)
	}
	return s
}

func loadedKey() schemaKey {
	return schemaKey{Credential: "k", DocumentID: "d1"}
}

// generatedState walks the pipeline up to a generated template.
func generatedState() State {
	return reduceAll(
		CredentialChanged{Value: "k"},
		DocumentIDChanged{Value: "d1"},
		TablesRequested{},
		TablesLoaded{Key: loadedKey(), Tables: []string{"T", "U"}},
		TableSelected{Name: "T"},
		ColumnsLoaded{Key: schemaKey{Credential: "k", DocumentID: "d1", Table: "T"}, Columns: []string{"C", "D"}},
		ColumnSelected{Name: "C"},
		GenerateRequested{},
		Generated{
			Request:    client.GenerateRequest{Credential: "k", DocumentID: "d1", Table: "T", Column: "C"},
			Generation: &client.Generation{URL: "https://x/{id}", DocID: "d1", Table: "T", Column: "C"},
		},
	)
}

func TestLoadTablesDisabledUnlessBothInputsPresent(t *testing.T) {
	tests := []struct {
		name string
		cred string
		doc  string
		want bool
	}{
		{name: "both empty", cred: "", doc: "", want: false},
		{name: "credential only", cred: "k", doc: "", want: false},
		{name: "document only", cred: "", doc: "d1", want: false},
		{name: "whitespace credential", cred: "   ", doc: "d1", want: false},
		{name: "whitespace document", cred: "k", doc: " \t", want: false},
		{name: "both present", cred: "k", doc: "d1", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := reduceAll(CredentialChanged{Value: tt.cred}, DocumentIDChanged{Value: tt.doc})
			assert.Equal(t, tt.want, s.CanLoadTables())
			if tt.want {
				assert.Equal(t, PhaseCredentialed, s.Phase())
			} else {
				assert.Equal(t, PhaseEmpty, s.Phase())
			}
		})
	}
}

func TestGenerateEnabledIffAllFieldsPresent(t *testing.T) {
	base := []Event{
		CredentialChanged{Value: "k"},
		DocumentIDChanged{Value: "d1"},
		TablesLoaded{Key: loadedKey(), Tables: []string{"T"}},
	}
	colKey := schemaKey{Credential: "k", DocumentID: "d1", Table: "T"}

	tests := []struct {
		name   string
		events []Event
		want   bool
		phase  Phase
	}{
		{name: "tables loaded only", events: base, want: false, phase: PhaseTablesLoaded},
		{
			name:   "table chosen, columns loading",
			events: append(append([]Event{}, base...), TableSelected{Name: "T"}),
			want:   false,
			phase:  PhaseTablesLoaded,
		},
		{
			name:   "columns loaded, none chosen",
			events: append(append([]Event{}, base...), TableSelected{Name: "T"}, ColumnsLoaded{Key: colKey, Columns: []string{"C"}}),
			want:   false,
			phase:  PhaseColumnsLoaded,
		},
		{
			name:   "column chosen",
			events: append(append([]Event{}, base...), TableSelected{Name: "T"}, ColumnsLoaded{Key: colKey, Columns: []string{"C"}}, ColumnSelected{Name: "C"}),
			want:   true,
			phase:  PhaseReady,
		},
		{
			name: "column cleared",
			events: append(append([]Event{}, base...), TableSelected{Name: "T"}, ColumnsLoaded{Key: colKey, Columns: []string{"C"}},
				ColumnSelected{Name: "C"}, ColumnSelected{Name: ""}),
			want:  false,
			phase: PhaseColumnsLoaded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := reduceAll(tt.events...)
			assert.Equal(t, tt.want, s.CanGenerate())
			assert.Equal(t, tt.phase, s.Phase())
		})
	}
}

func TestUpstreamEditClearsDownstream(t *testing.T) {
	edits := map[string]Event{
		"credential": CredentialChanged{Value: "other"},
		"document":   DocumentIDChanged{Value: "d2"},
	}

	for name, edit := range edits {
		t.Run(name, func(t *testing.T) {
			s := generatedState()
			s = Reduce(s, TestRequested{})
			s = Reduce(s, Tested{Template: "https://x/{id}", Exec: &client.TestExecution{Success: true}})
			require.Equal(t, PhaseTested, s.Phase())

			s = Reduce(s, edit)

			assert.Equal(t, PhaseCredentialed, s.Phase())
			assert.Equal(t, Selector{}, s.Tables)
			assert.Equal(t, Selector{}, s.Columns)
			assert.Nil(t, s.Result)
			assert.True(t, s.CanLoadTables())
			assert.False(t, s.CanGenerate())
		})
	}
}

func TestSameValueEditKeepsState(t *testing.T) {
	s := generatedState()
	s = Reduce(s, DocumentIDChanged{Value: " d1 "})
	assert.Equal(t, PhaseGenerated, s.Phase())
}

func TestTableReselectResetsColumns(t *testing.T) {
	s := generatedState()
	s = Reduce(s, TableSelected{Name: "U"})

	assert.Equal(t, SelectorLoading, s.Columns.Status)
	assert.Empty(t, s.Columns.Options)
	assert.Empty(t, s.Columns.Selected)
	assert.Nil(t, s.Result)
	assert.False(t, s.CanGenerate())
	assert.Equal(t, []string{"T", "U"}, s.Tables.Options, "tables are not re-fetched")
	assert.Equal(t, PhaseTablesLoaded, s.Phase())
}

func TestEmptyTableListIsNotAFailure(t *testing.T) {
	s := reduceAll(
		CredentialChanged{Value: "k"},
		DocumentIDChanged{Value: "d1"},
		TablesRequested{},
		TablesLoaded{Key: loadedKey(), Tables: []string{}},
	)

	assert.Equal(t, SelectorEmpty, s.Tables.Status)
	assert.False(t, s.Tables.Enabled())
	require.NotNil(t, s.Notice)
	assert.False(t, s.Notice.Blocking)
	assert.Equal(t, client.KindEmptyResult, s.Notice.Kind)
	assert.Equal(t, "No tables found", s.Notice.Title)
	assert.False(t, s.Busy[ActionLoadTables])
}

func TestTablesFailedShowsConnectionError(t *testing.T) {
	err := &client.SchemaFetchError{Status: 401, StatusText: "Unauthorized"}
	s := reduceAll(
		CredentialChanged{Value: "k"},
		DocumentIDChanged{Value: "d1"},
		TablesRequested{},
		TablesFailed{Key: loadedKey(), Err: err},
	)

	assert.Equal(t, SelectorFailed, s.Tables.Status)
	require.NotNil(t, s.Notice)
	assert.Equal(t, "Connection error", s.Notice.Title)
	assert.Contains(t, s.Notice.Message, "401")
	assert.Equal(t, client.KindAuthOrSchema, s.Notice.Kind)
}

func TestStaleCompletionsAreDropped(t *testing.T) {
	t.Run("tables for an old document", func(t *testing.T) {
		s := reduceAll(
			CredentialChanged{Value: "k"},
			DocumentIDChanged{Value: "d1"},
			TablesRequested{},
			DocumentIDChanged{Value: "d2"},
			TablesLoaded{Key: loadedKey(), Tables: []string{"T"}},
		)
		assert.Equal(t, SelectorIdle, s.Tables.Status)
		assert.False(t, s.Busy[ActionLoadTables], "busy flag must clear even when dropped")
	})

	t.Run("columns for a previous table", func(t *testing.T) {
		s := reduceAll(
			CredentialChanged{Value: "k"},
			DocumentIDChanged{Value: "d1"},
			TablesLoaded{Key: loadedKey(), Tables: []string{"T", "U"}},
			TableSelected{Name: "T"},
			TableSelected{Name: "U"},
			ColumnsLoaded{Key: schemaKey{Credential: "k", DocumentID: "d1", Table: "T"}, Columns: []string{"C"}},
		)
		assert.Equal(t, SelectorLoading, s.Columns.Status)
		assert.Empty(t, s.Columns.Options)
	})

	t.Run("generation for old selections", func(t *testing.T) {
		s := generatedState()
		s = Reduce(s, GenerateRequested{})
		s = Reduce(s, TableSelected{Name: "U"})
		s = Reduce(s, Generated{
			Request:    client.GenerateRequest{Credential: "k", DocumentID: "d1", Table: "T", Column: "C"},
			Generation: &client.Generation{URL: "https://x/{id}"},
		})
		assert.Nil(t, s.Result)
		assert.False(t, s.Busy[ActionGenerate])
	})
}

func TestGenerationFailureRendersInline(t *testing.T) {
	s := generatedState()
	req := s.Request()

	s = Reduce(s, GenerationFailed{Request: req, Err: &client.GenerationError{Status: 400, Message: "required"}})
	require.NotNil(t, s.Result)
	assert.Nil(t, s.Result.Generation)
	assert.Equal(t, "required", s.Result.Error)
	assert.Nil(t, s.Notice)

	s = Reduce(s, GenerationFailed{Request: req, Err: &client.NetworkError{Op: "generate", Err: errors.New("offline")}})
	assert.Equal(t, "Connection error: generate: offline", s.Result.Error)
}

func TestTablesLoadedNoticeIsTemporary(t *testing.T) {
	loaded := reduceAll(
		CredentialChanged{Value: "k"},
		DocumentIDChanged{Value: "d1"},
		TablesRequested{},
		TablesLoaded{Key: loadedKey(), Tables: []string{"T", "U"}},
	)
	require.NotNil(t, loaded.Notice)
	assert.Equal(t, "2 tables loaded", loaded.Notice.Message)
	assert.False(t, loaded.Notice.Blocking)

	assert.Nil(t, Reduce(loaded, TableSelected{Name: "T"}).Notice)

	s := generatedState()
	assert.Nil(t, s.Notice)
	s = Reduce(s, TestRequested{})
	s = Reduce(s, Tested{Template: s.Result.Generation.URL, Exec: &client.TestExecution{Success: true}})
	assert.Equal(t, PhaseTested, s.Phase())
	assert.Nil(t, s.Notice)

	blocking := Reduce(loaded, InputRejected{Message: "required"})
	blocking = Reduce(blocking, TableSelected{Name: "T"})
	require.NotNil(t, blocking.Notice, "blocking notices wait for dismissal")
	assert.True(t, blocking.Notice.Blocking)
}

func TestRepeatedTestKeepsOneBlock(t *testing.T) {
	s := generatedState()
	gen := s.Result.Generation

	s = Reduce(s, TestRequested{})
	assert.Nil(t, s.Result.Test)
	assert.True(t, s.Busy[ActionTest])
	s = Reduce(s, Tested{Template: gen.URL, Exec: &client.TestExecution{Success: true, RecordCount: 2}})
	require.NotNil(t, s.Result.Test)

	s = Reduce(s, TestRequested{})
	assert.Nil(t, s.Result.Test, "previous test block is removed before the new one")
	s = Reduce(s, Tested{Template: gen.URL, Exec: &client.TestExecution{Success: false, Error: "bad id"}})

	require.NotNil(t, s.Result.Test)
	assert.Equal(t, "bad id", s.Result.Test.Exec.Error)
	assert.Same(t, gen, s.Result.Generation, "generation result untouched")
	assert.Equal(t, PhaseTested, s.Phase())
}

func TestTestRequestedWithoutTemplateIsIgnored(t *testing.T) {
	s := Reduce(NewState(), TestRequested{})
	assert.False(t, s.Busy[ActionTest])
	assert.Nil(t, s.Result)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := generatedState()
	_ = Reduce(before, TableSelected{Name: "U"})
	_ = Reduce(before, GenerateRequested{})

	assert.Equal(t, "T", before.Tables.Selected)
	assert.NotNil(t, before.Result)
	assert.False(t, before.Busy[ActionGenerate])
}

func TestUnknownSelectionsAreIgnored(t *testing.T) {
	s := generatedState()
	s = Reduce(s, TableSelected{Name: "Nope"})
	assert.Equal(t, "T", s.Tables.Selected)
	s = Reduce(s, ColumnSelected{Name: "Nope"})
	assert.Equal(t, "C", s.Columns.Selected)
}

func TestVerifyNotices(t *testing.T) {
	s := reduceAll(CredentialChanged{Value: "k"}, VerifyRequested{})
	assert.True(t, s.Busy[ActionVerify])
	assert.False(t, s.CanVerify())

	ok := Reduce(s, Verified{Result: client.Verification{Success: true, Message: "valid"}})
	require.NotNil(t, ok.Notice)
	assert.Equal(t, "Test successful", ok.Notice.Title)
	assert.Equal(t, "valid", ok.Notice.Message)

	bad := Reduce(s, Verified{Result: client.Verification{Success: false}})
	assert.Equal(t, "API token error", bad.Notice.Title)

	failed := Reduce(s, VerifyFailed{Err: errors.New("offline")})
	assert.Equal(t, "Test error: offline", failed.Notice.Message)
	assert.Nil(t, Reduce(failed, NoticeDismissed{}).Notice)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "empty", PhaseEmpty.String())
	assert.Equal(t, "tested", PhaseTested.String())
	assert.Equal(t, "unknown", Phase(42).String())
}

func TestThrottledKeepsInputs(t *testing.T) {
	s := generatedState()
	s = Reduce(s, Throttled{Action: ActionTest})

	require.NotNil(t, s.Notice)
	assert.True(t, s.Notice.Blocking)
	assert.Equal(t, ThrottledMessage, s.Notice.Message)
	assert.NotNil(t, s.Result, "a refused action leaves the result in place")
	assert.Empty(t, s.Busy)
}

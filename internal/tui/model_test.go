package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlllyfish/Moose-railway/internal/client"
	"github.com/jlllyfish/Moose-railway/internal/pipeline"
	"github.com/jlllyfish/Moose-railway/internal/render"
	"github.com/jlllyfish/Moose-railway/internal/testutil"
)

// stubAPI answers from fixed data.
type stubAPI struct {
	tables    []string
	tablesErr error
	tested    []string
}

func (s *stubAPI) VerifyCredential(_ context.Context, cred string) (*client.Verification, error) {
	return &client.Verification{Success: cred == "good", Message: "API token valid!"}, nil
}

func (s *stubAPI) ListTables(context.Context, string, string) ([]string, error) {
	return s.tables, s.tablesErr
}

func (s *stubAPI) ListColumns(_ context.Context, _, table, _ string) ([]string, error) {
	return []string{table + "_id", "Nom"}, nil
}

func (s *stubAPI) Generate(_ context.Context, r client.GenerateRequest) (*client.Generation, error) {
	return &client.Generation{
		URL:    "https://grist.example/api/docs/" + r.DocumentID + "/records?filter={id}",
		DocID:  r.DocumentID,
		Table:  r.Table,
		Column: r.Column,
	}, nil
}

func (s *stubAPI) Test(_ context.Context, template, value, _ string) (*client.TestExecution, error) {
	s.tested = append(s.tested, value)
	url, err := client.Substitute(template, value)
	if err != nil {
		return nil, err
	}
	return &client.TestExecution{Template: template, Value: value, TestURL: url, Success: true, RecordCount: 1, Raw: "{}"}, nil
}

func newModel(t *testing.T, api pipeline.API) *Model {
	t.Helper()
	ctrl := pipeline.New(api, pipeline.WithLogger(testutil.NewTestLogger(t)))
	return New(context.Background(), ctrl, render.PlainStyles())
}

// send feeds msg to m and synchronously runs any controller call it starts.
func send(m *Model, msg tea.Msg) {
	_, cmd := m.Update(msg)
	if cmd == nil {
		return
	}
	if done, ok := cmd().(doneMsg); ok {
		m.Update(done)
	}
}

func typeText(m *Model, s string) {
	send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestModelFullFlow(t *testing.T) {
	api := &stubAPI{tables: []string{"Dossiers", "Usagers"}}
	m := newModel(t, api)

	typeText(m, "good")
	send(m, key(tea.KeyEnter))
	require.Equal(t, stageDocument, m.stage)
	assert.Equal(t, "good", m.state.Credential)

	typeText(m, "d1")
	send(m, key(tea.KeyEnter))
	require.Equal(t, stageTable, m.stage)
	assert.Equal(t, pipeline.SelectorLoaded, m.state.Tables.Status)
	assert.Contains(t, m.View(), "Dossiers")

	send(m, key(tea.KeyEnter))
	require.Equal(t, stageColumn, m.stage)
	assert.Equal(t, "Dossiers", m.state.Tables.Selected)
	assert.Equal(t, []string{"Dossiers_id", "Nom"}, m.state.Columns.Options)

	send(m, key(tea.KeyEnter))
	require.Equal(t, stageResult, m.stage)
	assert.Equal(t, "https://grist.example/api/docs/d1/records?filter={id}", m.state.Template())
	assert.Contains(t, m.View(), "URL generated")

	send(m, runes("t"))
	require.Equal(t, stageTestValue, m.stage)
	assert.Equal(t, DefaultTestValue, m.testValue.Value())

	send(m, key(tea.KeyEnter))
	assert.Equal(t, stageResult, m.stage)
	assert.Equal(t, []string{"LPA"}, api.tested)
	assert.Contains(t, m.View(), "JSON result (1 record found)")
	assert.NoError(t, m.err)
}

func TestModelMissingInputIsModal(t *testing.T) {
	m := newModel(t, &stubAPI{})

	send(m, key(tea.KeyEnter))
	send(m, key(tea.KeyEnter))

	require.NotNil(t, m.state.Notice)
	assert.True(t, m.state.Notice.Blocking)
	assert.Equal(t, stageDocument, m.stage)
	assert.NoError(t, m.err, "missing input is shown as a notice, not an error")

	// Keys other than enter/esc are swallowed while the modal is up.
	typeText(m, "d1")
	assert.Empty(t, m.document.Value())

	send(m, key(tea.KeyEnter))
	assert.Nil(t, m.state.Notice)
}

func TestModelEmptyTablesStaysOnDocument(t *testing.T) {
	m := newModel(t, &stubAPI{tables: []string{}})

	typeText(m, "good")
	send(m, key(tea.KeyEnter))
	typeText(m, "d1")
	send(m, key(tea.KeyEnter))

	assert.Equal(t, stageDocument, m.stage)
	assert.Equal(t, pipeline.SelectorEmpty, m.state.Tables.Status)
	assert.Contains(t, m.View(), "No tables found")
}

func TestModelTablesFailure(t *testing.T) {
	m := newModel(t, &stubAPI{tablesErr: &client.NetworkError{Op: "tables", Err: errors.New("refused")}})

	typeText(m, "good")
	send(m, key(tea.KeyEnter))
	typeText(m, "d1")
	send(m, key(tea.KeyEnter))

	assert.Equal(t, stageDocument, m.stage)
	require.NotNil(t, m.state.Notice)
	assert.Equal(t, "Connection error", m.state.Notice.Title)
}

func TestModelDeclinedTest(t *testing.T) {
	api := &stubAPI{tables: []string{"T"}}
	m := newModel(t, api)
	typeText(m, "good")
	send(m, key(tea.KeyEnter))
	typeText(m, "d1")
	send(m, key(tea.KeyEnter))
	send(m, key(tea.KeyEnter))
	send(m, key(tea.KeyEnter))
	send(m, runes("t"))

	m.testValue.SetValue("")
	send(m, key(tea.KeyEnter))

	assert.Empty(t, api.tested)
	assert.Equal(t, stageResult, m.stage)
	assert.Nil(t, m.state.Result.Test)
	assert.NoError(t, m.err)
}

func TestModelVerifyToken(t *testing.T) {
	m := newModel(t, &stubAPI{})

	typeText(m, "good")
	send(m, key(tea.KeyCtrlT))

	require.NotNil(t, m.state.Notice)
	assert.Equal(t, "Test successful", m.state.Notice.Title)
	assert.Equal(t, stageCredential, m.stage)
}

func TestModelRefreshRereadsState(t *testing.T) {
	m := newModel(t, &stubAPI{})

	m.ctrl.SetDocumentID("d7")
	assert.Empty(t, m.state.DocumentID)

	send(m, refreshMsg{})
	assert.Equal(t, "d7", m.state.DocumentID)
}

func TestModelEscNavigatesBack(t *testing.T) {
	m := newModel(t, &stubAPI{tables: []string{"T"}})
	typeText(m, "good")
	send(m, key(tea.KeyEnter))
	typeText(m, "d1")
	send(m, key(tea.KeyEnter))
	require.Equal(t, stageTable, m.stage)

	send(m, key(tea.KeyEsc))
	assert.Equal(t, stageDocument, m.stage)
	send(m, key(tea.KeyEsc))
	assert.Equal(t, stageCredential, m.stage)
}

// Package tui is the terminal front end. It drives the same
// pipeline.Controller as the web builder, one step per screen.
package tui

import (
	"context"
	"errors"
	"slices"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jlllyfish/Moose-railway/internal/client"
	"github.com/jlllyfish/Moose-railway/internal/pipeline"
	"github.com/jlllyfish/Moose-railway/internal/render"
)

// DefaultTestValue pre-fills the test prompt.
const DefaultTestValue = "LPA"

type stage int

const (
	stageCredential stage = iota
	stageDocument
	stageTable
	stageColumn
	stageResult
	stageTestValue
)

// refreshMsg tells the model the controller state changed. The model
// re-reads the state itself, so out-of-order delivery is harmless.
type refreshMsg struct{}

// doneMsg reports that a controller call returned.
type doneMsg struct {
	action pipeline.Action
	err    error
}

// Column selection has no pipeline.Action of its own.
const actionColumns pipeline.Action = "columns"

type item string

func (i item) Title() string       { return string(i) }
func (i item) Description() string { return "" }
func (i item) FilterValue() string { return string(i) }

// Model is the bubbletea model.
type Model struct {
	ctx  context.Context
	ctrl *pipeline.Controller

	stage      stage
	credential textinput.Model
	document   textinput.Model
	testValue  textinput.Model
	tables     list.Model
	columns    list.Model
	spinner    spinner.Model
	styles     render.Styles

	state      pipeline.State
	tableOpts  []string
	columnOpts []string
	err        error
	width      int
}

// New creates a model bound to ctrl. Controller calls run with ctx.
func New(ctx context.Context, ctrl *pipeline.Controller, styles render.Styles) *Model {
	credential := textinput.New()
	credential.Placeholder = "Grist API token"
	credential.EchoMode = textinput.EchoPassword
	credential.EchoCharacter = '•'
	credential.Focus()

	document := textinput.New()
	document.Placeholder = "Document ID"

	testValue := textinput.New()
	testValue.Placeholder = "Value replacing {id}"

	m := &Model{
		ctx:        ctx,
		ctrl:       ctrl,
		credential: credential,
		document:   document,
		testValue:  testValue,
		tables:     newList("Tables"),
		columns:    newList("Columns"),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		styles:     styles,
	}
	m.sync(ctrl.State())
	return m
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 60, 12)
	l.Title = title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	return l
}

// Init starts the cursor blink and spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles a message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := max(msg.Height-8, 5)
		m.tables.SetSize(msg.Width, height)
		m.columns.SetSize(msg.Width, height)
		return m, nil

	case refreshMsg:
		m.sync(m.ctrl.State())
		return m, nil

	case doneMsg:
		return m, m.finish(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m, m.key(msg)
	}

	return m, m.forward(msg)
}

// run calls fn against the controller off the UI goroutine.
func (m *Model) run(action pipeline.Action, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return doneMsg{action: action, err: fn(ctx)}
	}
}

func (m *Model) finish(msg doneMsg) tea.Cmd {
	m.sync(m.ctrl.State())
	if msg.err != nil && !expected(msg.err) {
		m.err = msg.err
		return nil
	}
	m.err = nil

	switch msg.action {
	case pipeline.ActionLoadTables:
		if m.state.Tables.Status == pipeline.SelectorLoaded {
			m.setStage(stageTable)
		}
	case actionColumns:
		if m.state.Columns.Status == pipeline.SelectorLoaded {
			m.setStage(stageColumn)
		}
	case pipeline.ActionGenerate, pipeline.ActionTest:
		if m.state.Result != nil {
			m.setStage(stageResult)
		}
	}
	return nil
}

func expected(err error) bool {
	return errors.Is(err, client.ErrMissingInput) ||
		errors.Is(err, client.ErrDeclined) ||
		errors.Is(err, pipeline.ErrBusy) ||
		errors.Is(err, pipeline.ErrInvalidSelection)
}

// sync copies s into the model, refreshing list items only when the options
// changed so the cursor survives unrelated updates.
func (m *Model) sync(s pipeline.State) {
	m.state = s
	if !slices.Equal(m.tableOpts, s.Tables.Options) {
		m.tableOpts = slices.Clone(s.Tables.Options)
		m.tables.SetItems(items(s.Tables.Options))
	}
	if !slices.Equal(m.columnOpts, s.Columns.Options) {
		m.columnOpts = slices.Clone(s.Columns.Options)
		m.columns.SetItems(items(s.Columns.Options))
	}
}

func items(opts []string) []list.Item {
	out := make([]list.Item, len(opts))
	for i, o := range opts {
		out[i] = item(o)
	}
	return out
}

func (m *Model) setStage(s stage) {
	m.stage = s
	m.credential.Blur()
	m.document.Blur()
	m.testValue.Blur()
	switch s {
	case stageCredential:
		m.credential.Focus()
	case stageDocument:
		m.document.Focus()
	case stageTestValue:
		m.testValue.Focus()
	}
}

func (m *Model) key(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return tea.Quit
	}

	if n := m.state.Notice; n != nil && n.Blocking {
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc {
			m.sync(m.ctrl.DismissNotice())
		}
		return nil
	}

	switch m.stage {
	case stageCredential:
		switch msg.Type {
		case tea.KeyEnter, tea.KeyTab:
			m.sync(m.ctrl.SetCredential(m.credential.Value()))
			m.setStage(stageDocument)
			return nil
		case tea.KeyCtrlT:
			m.sync(m.ctrl.SetCredential(m.credential.Value()))
			return m.run(pipeline.ActionVerify, m.ctrl.VerifyCredential)
		}

	case stageDocument:
		switch msg.Type {
		case tea.KeyEnter:
			m.sync(m.ctrl.SetDocumentID(m.document.Value()))
			return m.run(pipeline.ActionLoadTables, m.ctrl.LoadTables)
		case tea.KeyEsc, tea.KeyShiftTab:
			m.setStage(stageCredential)
			return nil
		}

	case stageTable:
		if m.tables.FilterState() == list.Filtering {
			break
		}
		switch msg.Type {
		case tea.KeyEnter:
			sel, ok := m.tables.SelectedItem().(item)
			if !ok {
				return nil
			}
			return m.run(actionColumns, func(ctx context.Context) error {
				return m.ctrl.SelectTable(ctx, string(sel))
			})
		case tea.KeyEsc:
			m.setStage(stageDocument)
			return nil
		}

	case stageColumn:
		if m.columns.FilterState() == list.Filtering {
			break
		}
		switch msg.Type {
		case tea.KeyEnter:
			sel, ok := m.columns.SelectedItem().(item)
			if !ok {
				return nil
			}
			if err := m.ctrl.SelectColumn(string(sel)); err != nil {
				m.err = err
				return nil
			}
			m.sync(m.ctrl.State())
			return m.run(pipeline.ActionGenerate, m.ctrl.Generate)
		case tea.KeyEsc:
			m.setStage(stageTable)
			return nil
		}

	case stageResult:
		switch {
		case msg.Type == tea.KeyEsc:
			m.setStage(stageColumn)
		case msg.String() == "t" && m.state.CanTest():
			m.testValue.SetValue(DefaultTestValue)
			m.testValue.CursorEnd()
			m.setStage(stageTestValue)
		case msg.String() == "q":
			return tea.Quit
		}
		return nil

	case stageTestValue:
		switch msg.Type {
		case tea.KeyEnter:
			value := m.testValue.Value()
			m.setStage(stageResult)
			return m.run(pipeline.ActionTest, func(ctx context.Context) error {
				return m.ctrl.Test(ctx, value)
			})
		case tea.KeyEsc:
			m.setStage(stageResult)
			return nil
		}
	}

	return m.forward(msg)
}

// forward hands msg to the focused widget.
func (m *Model) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.stage {
	case stageCredential:
		m.credential, cmd = m.credential.Update(msg)
	case stageDocument:
		m.document, cmd = m.document.Update(msg)
	case stageTable:
		m.tables, cmd = m.tables.Update(msg)
	case stageColumn:
		m.columns, cmd = m.columns.Update(msg)
	case stageTestValue:
		m.testValue, cmd = m.testValue.Update(msg)
	}
	return cmd
}

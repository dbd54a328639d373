package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jlllyfish/Moose-railway/internal/pipeline"
	"github.com/jlllyfish/Moose-railway/internal/render"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
	helpStyle   = lipgloss.NewStyle().Faint(true)
	noticeStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

var help = map[stage]string{
	stageCredential: "enter: next • ctrl+t: test token • ctrl+c: quit",
	stageDocument:   "enter: load tables • esc: back • ctrl+c: quit",
	stageTable:      "enter: choose table • /: filter • esc: back",
	stageColumn:     "enter: choose column and generate • /: filter • esc: back",
	stageResult:     "t: test the URL • esc: change column • q: quit",
	stageTestValue:  "enter: run test • esc: cancel",
}

// View renders the model.
func (m *Model) View() string {
	var sb strings.Builder
	s := m.state

	sb.WriteString(titleStyle.Render("Grist record URL builder"))
	sb.WriteString("\n\n")

	if n := s.Notice; n != nil {
		body := labelStyle.Render(n.Title) + "\n" + n.Message
		if n.Blocking {
			body += "\n" + helpStyle.Render("enter: OK")
		}
		sb.WriteString(noticeStyle.Render(body))
		sb.WriteString("\n\n")
	}

	switch m.stage {
	case stageCredential, stageDocument:
		sb.WriteString(labelStyle.Render("API token   "))
		sb.WriteString(m.credential.View())
		sb.WriteString("\n")
		sb.WriteString(labelStyle.Render("Document ID "))
		sb.WriteString(m.document.View())
		sb.WriteString("\n")
	case stageTable:
		sb.WriteString(m.tables.View())
		sb.WriteString("\n")
	case stageColumn:
		sb.WriteString(helpStyle.Render("Table: " + s.Tables.Selected))
		sb.WriteString("\n")
		sb.WriteString(m.columns.View())
		sb.WriteString("\n")
	case stageResult, stageTestValue:
		sb.WriteString(render.Text(render.Result(s.Result), m.styles))
		if m.stage == stageTestValue {
			sb.WriteString(labelStyle.Render("Test value "))
			sb.WriteString(m.testValue.View())
			sb.WriteString("\n")
		}
	}

	if busy := busyLabel(s); busy != "" {
		sb.WriteString("\n")
		sb.WriteString(m.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(busy)
		sb.WriteString("\n")
	}

	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(help[m.stage]))
	return sb.String()
}

func busyLabel(s pipeline.State) string {
	switch {
	case s.Busy[pipeline.ActionVerify]:
		return "Testing token..."
	case s.Busy[pipeline.ActionLoadTables]:
		return "Loading tables..."
	case s.Columns.Status == pipeline.SelectorLoading:
		return "Loading columns..."
	case s.Busy[pipeline.ActionGenerate]:
		return "Generating..."
	case s.Busy[pipeline.ActionTest]:
		return "Loading results..."
	}
	return ""
}

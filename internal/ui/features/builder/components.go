package builder

import (
	"encoding/json"
	"strconv"

	"github.com/a-h/templ"

	"github.com/jlllyfish/Moose-railway/internal/pipeline"
	"github.com/jlllyfish/Moose-railway/internal/render"
)

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate -path ../../..

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

// resultActions binds the result buttons to the page script and the test endpoint.
var resultActions = render.ActionAttrs{
	render.ActionCopy: {"data-on:click": "mooseCopy(el.dataset.url)"},
	render.ActionTest: {
		"data-on:click": "$testValue = prompt('Enter a test value to replace {id}:', '" + DefaultTestValue + "') || ''; " +
			"$testValue && @post('/builder/test')",
	},
}

func initialSignals(s pipeline.State) string {
	b, _ := json.Marshal(Signals{DocID: s.DocumentID, Table: s.Tables.Selected, Column: s.Columns.Selected})
	return string(b)
}

// updatesAction opens the update stream, telling it which revision the page
// was rendered at.
func updatesAction(rev uint64) string {
	return "@get('/builder/updates?" + revisionParam + "=" + strconv.FormatUint(rev, 10) + "')"
}

func selectorAttrs(id, action string) templ.Attributes {
	return templ.Attributes{
		"data-bind:" + id: true,
		"data-on:change":  action,
	}
}

var tablePlaceholders = map[pipeline.SelectorStatus]string{
	pipeline.SelectorIdle:    "Load the tables first",
	pipeline.SelectorLoading: "Loading tables...",
	pipeline.SelectorLoaded:  "Choose a table",
	pipeline.SelectorEmpty:   "No tables found",
	pipeline.SelectorFailed:  "Error loading tables",
}

var columnPlaceholders = map[pipeline.SelectorStatus]string{
	pipeline.SelectorIdle:    "Choose a table first",
	pipeline.SelectorLoading: "Loading columns...",
	pipeline.SelectorLoaded:  "Choose a column",
	pipeline.SelectorEmpty:   "No columns found",
	pipeline.SelectorFailed:  "Error loading columns",
}

func busyLabel(busy bool, idle, working string) string {
	if busy {
		return working
	}
	return idle
}

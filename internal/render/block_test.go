package render

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/jlllyfish/Moose-railway/internal/client"
	"github.com/jlllyfish/Moose-railway/internal/pipeline"
)

func sampleGeneration() *client.Generation {
	return &client.Generation{
		URL:        "https://x/{id}",
		DocID:      "d1",
		Table:      "T",
		Column:     "C",
		FormatInfo: "f",
		Usage:      "u",
	}
}

func fieldValues(b Block) map[string]string {
	m := make(map[string]string, len(b.Fields))
	for _, f := range b.Fields {
		m[f.Label] = f.Value
	}
	return m
}

func TestRecordLabel(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "JSON result (0 records found)"},
		{1, "JSON result (1 record found)"},
		{2, "JSON result (2 records found)"},
		{150, "JSON result (150 records found)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RecordLabel(tt.n))
	}
}

func TestGenerationBlock(t *testing.T) {
	b := Generation(sampleGeneration())

	assert.Equal(t, KindGeneration, b.Kind)
	assert.True(t, b.Success)
	assert.Equal(t, "https://x/{id}", b.URL)
	assert.Equal(t, map[string]string{
		"URL":         "https://x/{id}",
		"Document":    MissingDocName,
		"Document ID": "d1",
		"Table":       "T",
		"Column":      "C",
		"Format":      "f",
		"Usage":       "u",
	}, fieldValues(b))
	assert.Equal(t, []Action{ActionCopy, ActionTest}, b.Actions)
	assert.Empty(t, b.Marker)
}

func TestGenerationBlockUsesDocName(t *testing.T) {
	g := sampleGeneration()
	g.DocName = "Suivi LPA"
	assert.Equal(t, "Suivi LPA", fieldValues(Generation(g))["Document"])
}

func TestTestBlock(t *testing.T) {
	tests := []struct {
		name        string
		outcome     pipeline.TestOutcome
		wantTitle   string
		wantRaw     string
		wantSuccess bool
	}{
		{
			name:        "records found",
			outcome:     pipeline.TestOutcome{Exec: &client.TestExecution{Success: true, RecordCount: 2, Raw: "{\n  \"records\": []\n}"}},
			wantTitle:   "JSON result (2 records found)",
			wantRaw:     "{\n  \"records\": []\n}",
			wantSuccess: true,
		},
		{
			name:      "logical failure",
			outcome:   pipeline.TestOutcome{Exec: &client.TestExecution{Success: false, Error: "bad id"}},
			wantTitle: "Error during test",
			wantRaw:   "Error: bad id",
		},
		{
			name:      "network failure",
			outcome:   pipeline.TestOutcome{Err: "test: dial tcp: refused", Kind: client.KindNetwork},
			wantTitle: "Connection error",
			wantRaw:   "Error: test: dial tcp: refused",
		},
		{
			name:      "undecodable response",
			outcome:   pipeline.TestOutcome{Err: "error 429: Too Many Requests", Kind: client.KindLogicalTestFailure},
			wantTitle: "Error during test",
			wantRaw:   "Error: error 429: Too Many Requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Test(&tt.outcome)
			assert.Equal(t, KindTest, b.Kind)
			assert.Equal(t, TestResultMarker, b.Marker)
			assert.Equal(t, tt.wantTitle, b.Title)
			assert.Equal(t, tt.wantRaw, b.Raw)
			assert.Equal(t, tt.wantSuccess, b.Success)
			if !tt.wantSuccess {
				assert.NotContains(t, b.Title, "found")
			}
		})
	}
}

func TestResultBlocks(t *testing.T) {
	assert.Nil(t, Result(nil))

	errOnly := Result(&pipeline.Result{Error: "All fields are required"})
	require.Len(t, errOnly, 1)
	assert.Equal(t, KindError, errOnly[0].Kind)
	assert.Equal(t, "All fields are required", errOnly[0].Message)

	tested := Result(&pipeline.Result{
		Generation: sampleGeneration(),
		Test:       &pipeline.TestOutcome{Exec: &client.TestExecution{Success: true}},
	})
	require.Len(t, tested, 2)
	assert.Equal(t, KindGeneration, tested[0].Kind)
	assert.Equal(t, KindTest, tested[1].Kind)
}

// countMarked counts elements carrying attr in an HTML fragment.
func countMarked(t *testing.T, fragment, attr string) int {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(fragment))
	require.NoError(t, err)

	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == attr {
					count++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return count
}

func TestResultAreaHTML(t *testing.T) {
	blocks := Result(&pipeline.Result{
		Generation: sampleGeneration(),
		Test:       &pipeline.TestOutcome{Exec: &client.TestExecution{Success: true, RecordCount: 1, Raw: "<script>"}},
	})
	attrs := ActionAttrs{ActionTest: {"data-on:click": "@post('/builder/test')"}}

	var sb strings.Builder
	require.NoError(t, ResultArea("result", blocks, attrs).Render(context.Background(), &sb))
	out := sb.String()

	assert.Contains(t, out, `<section id="result" class="result">`)
	assert.Contains(t, out, "<code>https://x/{id}</code>")
	assert.Contains(t, out, "JSON result (1 record found)")
	assert.Contains(t, out, "&lt;script&gt;", "raw payload is escaped")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `data-on:click="@post(&#39;/builder/test&#39;)"`)
	assert.Equal(t, 1, countMarked(t, out, TestResultMarker))
}

func TestHTMLDropsMalformedAttributeNames(t *testing.T) {
	b := Test(&pipeline.TestOutcome{Exec: &client.TestExecution{Success: true}})
	b.Marker = `x onmouseover=alert(1) data-test-result`
	b.Actions = []Action{ActionTest}
	b.URL = `https://x/{id}"><script>`
	attrs := ActionAttrs{ActionTest: {
		`data-on:click`:      "@post('/builder/test')",
		`onclick="alert(1)"`: "x",
	}}

	var sb strings.Builder
	require.NoError(t, HTML(b, attrs).Render(context.Background(), &sb))
	out := sb.String()

	assert.Equal(t, 0, countMarked(t, out, "onmouseover"))
	assert.Equal(t, 0, countMarked(t, out, "onclick"))
	assert.Equal(t, 1, countMarked(t, out, "data-on:click"))
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `data-url="https://x/{id}&#34;&gt;&lt;script&gt;"`)
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(context.Background(), []Block{Generation(sampleGeneration())})
	require.NoError(t, err)

	assert.Contains(t, md, "URL generated")
	assert.Contains(t, md, "`https://x/{id}`")
	assert.NotContains(t, md, "<button")
	assert.NotContains(t, md, "Copy")
}

func TestText(t *testing.T) {
	out := Text([]Block{
		Generation(sampleGeneration()),
		Test(&pipeline.TestOutcome{Exec: &client.TestExecution{Success: false, Error: "bad id"}}),
	}, PlainStyles())

	assert.Contains(t, out, "Generation  URL generated")
	assert.Contains(t, out, "Document ID: d1")
	assert.Contains(t, out, "Test  Error during test")
	assert.Contains(t, out, "Error: bad id")
}

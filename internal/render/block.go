// Package render turns pipeline results into presentation blocks.
//
// Block construction is pure: it reads a result and never touches controller
// state. Adapters in this package render blocks as HTML (templ components),
// markdown and styled terminal text.
package render

import (
	"fmt"

	"github.com/jlllyfish/Moose-railway/internal/client"
	"github.com/jlllyfish/Moose-railway/internal/pipeline"
)

// TestResultMarker is the attribute carried by the test-result block.
const TestResultMarker = "data-test-result"

// MissingDocName is shown when the proxy could not resolve a document name.
const MissingDocName = "Name not available"

// Kind identifies the block layout.
type Kind string

// Block kinds.
const (
	KindGeneration Kind = "generation"
	KindError      Kind = "error"
	KindTest       Kind = "test"
)

// Action is a control offered on a block.
type Action string

// Block actions.
const (
	ActionCopy Action = "copy"
	ActionTest Action = "test"
)

// Field is one labelled value.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
	// Code marks values shown verbatim in monospace.
	Code bool `json:"code,omitempty"`
}

// Block is a renderer-neutral presentation of one result.
type Block struct {
	Kind    Kind     `json:"kind"`
	Success bool     `json:"success"`
	Title   string   `json:"title"`
	Message string   `json:"message,omitempty"`
	Fields  []Field  `json:"fields,omitempty"`
	Raw     string   `json:"raw,omitempty"`
	Actions []Action `json:"actions,omitempty"`
	// Marker is the attribute name set on the rendered container, if any.
	Marker string `json:"marker,omitempty"`
	// URL is the copy/test target for generation blocks.
	URL string `json:"url,omitempty"`
}

// Generation renders a successful template generation.
func Generation(g *client.Generation) Block {
	name := g.DocName
	if name == "" {
		name = MissingDocName
	}
	return Block{
		Kind:    KindGeneration,
		Success: true,
		Title:   "URL generated",
		URL:     g.URL,
		Fields: []Field{
			{Label: "URL", Value: g.URL, Code: true},
			{Label: "Document", Value: name},
			{Label: "Document ID", Value: g.DocID, Code: true},
			{Label: "Table", Value: g.Table},
			{Label: "Column", Value: g.Column},
			{Label: "Format", Value: g.FormatInfo},
			{Label: "Usage", Value: g.Usage},
		},
		Actions: []Action{ActionCopy, ActionTest},
	}
}

// Error renders a failed generation.
func Error(message string) Block {
	return Block{
		Kind:    KindError,
		Title:   "Error",
		Message: message,
	}
}

// Test renders a finished test execution.
func Test(o *pipeline.TestOutcome) Block {
	b := Block{Kind: KindTest, Marker: TestResultMarker}

	switch {
	case o.Exec == nil && o.Kind == client.KindNetwork:
		b.Title = "Connection error"
		b.Raw = "Error: " + o.Err
	case o.Exec == nil:
		b.Title = "Error during test"
		b.Raw = "Error: " + o.Err
	case !o.Exec.Success:
		b.Title = "Error during test"
		b.Raw = "Error: " + o.Exec.Error
	default:
		b.Success = true
		b.Title = RecordLabel(o.Exec.RecordCount)
		b.Raw = o.Exec.Raw
		if o.Exec.TestURL != "" {
			b.Fields = []Field{{Label: "Tested URL", Value: o.Exec.TestURL, Code: true}}
		}
	}
	return b
}

// RecordLabel is the title of a successful test block.
func RecordLabel(n int) string {
	if n == 1 {
		return "JSON result (1 record found)"
	}
	return fmt.Sprintf("JSON result (%d records found)", n)
}

// Result renders everything the result area shows, in display order. A nil
// result yields no blocks.
func Result(r *pipeline.Result) []Block {
	if r == nil {
		return nil
	}

	var blocks []Block
	switch {
	case r.Generation != nil:
		blocks = append(blocks, Generation(r.Generation))
	case r.Error != "":
		blocks = append(blocks, Error(r.Error))
	}
	if r.Test != nil {
		blocks = append(blocks, Test(r.Test))
	}
	return blocks
}

// Package builder provides the URL builder pages: the full form at / and the
// embeddable widget at /widget. Both bind the same pipeline controller.
package builder

import "github.com/jlllyfish/Moose-railway/internal/pipeline"

// Variant selects the page layout.
type Variant string

// Page variants.
const (
	VariantFull   Variant = "full"
	VariantWidget Variant = "widget"
)

// Signals represents the signals sent from the frontend.
type Signals struct {
	Credential string `json:"credential"`
	DocID      string `json:"docId"`
	Table      string `json:"table"`
	Column     string `json:"column"`
	TestValue  string `json:"testValue"`
}

// View is everything the builder fragment renders.
type View struct {
	Variant Variant
	State   pipeline.State
	// Revision is the controller revision State was read at.
	Revision uint64
}

// DefaultTestValue pre-fills the test prompt.
const DefaultTestValue = "LPA"

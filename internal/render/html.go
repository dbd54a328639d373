package render

import (
	"regexp"

	"github.com/a-h/templ"
)

// attrName matches the attribute names the builder binds: plain names and
// datastar's colon, dot and double-underscore modifiers.
var attrName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.:-]*$`)

// ActionAttrs holds extra attributes per action button, used by front ends to
// bind client-side behavior. Keys are attribute names.
type ActionAttrs map[Action]map[string]string

// For returns the attributes bound to a.
func (a ActionAttrs) For(action Action) templ.Attributes {
	extra := a[action]
	if len(extra) == 0 {
		return nil
	}
	out := make(templ.Attributes, len(extra))
	for k, v := range extra {
		if attrName.MatchString(k) {
			out[k] = v
		}
	}
	return out
}

var actionLabels = map[Action]string{
	ActionCopy: "Copy",
	ActionTest: "Test",
}

func (b Block) state() string {
	if b.Success {
		return "success"
	}
	return "error"
}

func (b Block) markerAttrs() templ.Attributes {
	if !attrName.MatchString(b.Marker) {
		return nil
	}
	return templ.Attributes{b.Marker: "true"}
}

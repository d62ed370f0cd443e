package view

import "slices"

// Snapshot is a point-in-time copy of a document. Version increases by one
// with every effective change.
type Snapshot struct {
	Version  uint64                  `json:"version"`
	Elements map[string]ElementState `json:"elements"`
}

// ElementState is the serializable state of one element.
type ElementState struct {
	Text    string   `json:"text"`
	Display string   `json:"display,omitempty"`
	Classes []string `json:"classes"`
}

// Text returns the text of element id, or "" when absent.
func (s Snapshot) Text(id string) string {
	return s.Elements[id].Text
}

// Visible reports whether element id is displayed.
func (s Snapshot) Visible(id string) bool {
	e, ok := s.Elements[id]
	return ok && e.Display != DisplayNone
}

// Active reports whether element id carries the active class.
func (s Snapshot) Active(id string) bool {
	return slices.Contains(s.Elements[id].Classes, ClassActive)
}

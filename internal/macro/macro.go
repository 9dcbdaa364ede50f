package macro

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Recorded actions. Other values are kept as captured and skipped on replay.
const (
	ActionClick  = "click"
	ActionInput  = "input"
	ActionChange = "change"
)

// Step is a single recorded UI action
type Step struct {
	Action   string         `json:"action"`
	Selector string         `json:"selector"`           // CSS path; empty means skip on replay
	Value    string         `json:"value"`              // raw field value for input/change
	Metadata map[string]any `json:"metadata,omitempty"` // capture-time context (target, timestamp, button)
}

// UnmarshalJSON accepts non-string scalars for selector and value, as
// hand-edited or older files may hold them
func (s *Step) UnmarshalJSON(data []byte) error {
	var raw struct {
		Action   string         `json:"action"`
		Selector any            `json:"selector"`
		Value    any            `json:"value"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Step{
		Action:   raw.Action,
		Selector: StringValue(raw.Selector),
		Value:    StringValue(raw.Value),
		Metadata: raw.Metadata,
	}
	return nil
}

// StringValue renders a decoded JSON scalar as a string; null is ""
func StringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// Target describes the element an event was captured on
type Target struct {
	Tag       string
	InputType string
	Checked   bool
}

// Target decodes the "target" entry of the step metadata. Missing or
// malformed entries yield the zero Target.
func (s Step) Target() Target {
	raw, ok := s.Metadata["target"].(map[string]any)
	if !ok {
		return Target{}
	}
	t := Target{}
	if tag, ok := raw["tag"].(string); ok {
		t.Tag = strings.ToLower(tag)
	}
	if it, ok := raw["inputType"].(string); ok {
		t.InputType = strings.ToLower(it)
	}
	if checked, ok := raw["checked"].(bool); ok {
		t.Checked = checked
	}
	return t
}

// IsToggle reports whether the target is a checkbox or radio button
func (t Target) IsToggle() bool {
	return t.InputType == "checkbox" || t.InputType == "radio"
}

// Macro is a named, persisted recording
type Macro struct {
	Name       string         `json:"name"`
	StartURL   string         `json:"start_url"`
	RecordedAt time.Time      `json:"recorded_at"`
	Steps      []Step         `json:"steps"`
	Metadata   map[string]any `json:"metadata"`
}

// Recording is what a recorder hands back when a session ends
type Recording struct {
	StartURL string
	Steps    []Step
	Metadata map[string]any
}

// Title returns the page title captured at the end of recording, if any
func (m Macro) Title() string {
	title, _ := m.Metadata["title"].(string)
	return title
}

// Description returns the stored plain-language summary, if any
func (m Macro) Description() string {
	desc, _ := m.Metadata["description"].(string)
	return desc
}

// Clone returns a deep enough copy that callers can't mutate stored state
func (m Macro) Clone() Macro {
	c := m
	c.Steps = make([]Step, len(m.Steps))
	for i, s := range m.Steps {
		s.Metadata = cloneMap(s.Metadata)
		c.Steps[i] = s
	}
	c.Metadata = cloneMap(m.Metadata)
	return c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = cloneMap(nested)
		}
		out[k] = v
	}
	return out
}

package macro

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepTarget(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		expected Target
	}{
		{
			name:     "no metadata",
			expected: Target{},
		},
		{
			name: "checkbox",
			metadata: map[string]any{
				"target": map[string]any{"tag": "INPUT", "inputType": "Checkbox", "checked": true},
			},
			expected: Target{Tag: "input", InputType: "checkbox", Checked: true},
		},
		{
			name: "null fields",
			metadata: map[string]any{
				"target": map[string]any{"tag": "select", "inputType": nil, "checked": nil},
			},
			expected: Target{Tag: "select"},
		},
		{
			name:     "malformed target",
			metadata: map[string]any{"target": "input"},
			expected: Target{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := Step{Action: ActionInput, Metadata: tt.metadata}
			assert.Equal(t, tt.expected, step.Target())
		})
	}
}

func TestTargetIsToggle(t *testing.T) {
	assert.True(t, Target{InputType: "checkbox"}.IsToggle())
	assert.True(t, Target{InputType: "radio"}.IsToggle())
	assert.False(t, Target{InputType: "text"}.IsToggle())
}

func TestMacroJSONFormat(t *testing.T) {
	m := Macro{
		Name:       "demo",
		StartURL:   "https://example.com",
		RecordedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Steps:      []Step{{Action: ActionClick, Selector: "#submit"}},
		Metadata:   map[string]any{"title": "Example"},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "2024-01-01T12:00:00Z", raw["recorded_at"])
	assert.Equal(t, "https://example.com", raw["start_url"])

	steps := raw["steps"].([]any)
	require.Len(t, steps, 1)
	step := steps[0].(map[string]any)
	assert.Equal(t, "click", step["action"])
	assert.Equal(t, "#submit", step["selector"])
}

func TestStepDecodesNullSelector(t *testing.T) {
	var step Step
	require.NoError(t, json.Unmarshal([]byte(`{"action":"click","selector":null,"value":null,"metadata":{}}`), &step))
	assert.Equal(t, "", step.Selector)
	assert.Equal(t, "", step.Value)
}

func TestStepDecodesScalarValues(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{`30`, "30"},
		{`2.5`, "2.5"},
		{`true`, "true"},
		{`"text"`, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var step Step
			require.NoError(t, json.Unmarshal([]byte(`{"action":"input","selector":"#f","value":`+tt.raw+`}`), &step))
			assert.Equal(t, tt.expected, step.Value)
			assert.Equal(t, "#f", step.Selector)
		})
	}

	var step Step
	assert.Error(t, json.Unmarshal([]byte(`{"action":["click"]}`), &step))
}

func TestMacroClone(t *testing.T) {
	m := Macro{
		Name:     "demo",
		Steps:    []Step{{Action: ActionInput, Metadata: map[string]any{"target": map[string]any{"tag": "input"}}}},
		Metadata: map[string]any{"title": "Example"},
	}

	c := m.Clone()
	c.Steps[0].Action = ActionClick
	c.Steps[0].Metadata["target"].(map[string]any)["tag"] = "select"
	c.Metadata["title"] = "Changed"

	assert.Equal(t, ActionInput, m.Steps[0].Action)
	assert.Equal(t, "input", m.Steps[0].Target().Tag)
	assert.Equal(t, "Example", m.Title())
}

func TestReplayError(t *testing.T) {
	cause := errors.New("cdp: target closed")

	timeout := &ReplayError{Kind: ErrTimeout, Action: "input", Selector: "#age", Err: cause}
	assert.ErrorIs(t, timeout, ErrTimeout)
	assert.ErrorIs(t, timeout, cause)
	assert.NotErrorIs(t, timeout, ErrDriver)
	assert.Contains(t, timeout.Error(), "#age")
	assert.Contains(t, timeout.Error(), "input")

	driver := &ReplayError{Kind: ErrDriver, Action: "click", Selector: "#submit", Err: cause}
	assert.ErrorIs(t, driver, ErrDriver)
	assert.Contains(t, driver.Error(), "target closed")

	var re *ReplayError
	require.ErrorAs(t, error(driver), &re)
	assert.Equal(t, "#submit", re.Selector)
}

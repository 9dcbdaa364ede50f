package ai

import (
	"fmt"
	"strings"

	"github.com/v0xg/webmacro/internal/macro"
)

const systemPrompt = `You describe recorded browser macros for non-technical users.

You will receive the page a macro starts on and the ordered list of steps that were
recorded there. Each step is a click, a text input, or a form change on an element
identified by a CSS path, sometimes with the value that was entered.

Write two or three short sentences saying what the macro does from the user's point of
view: which page it opens, what it fills in, what it submits or toggles. Mention typed
values only when they matter to understanding the flow, and never repeat anything that
looks like a password. Do not mention CSS selectors.

Respond ONLY with the description, no headings or markdown.`

// maxPromptSteps keeps long recordings within a reasonable prompt size
const maxPromptSteps = 200

func buildUserPrompt(m macro.Macro) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Start page: %s\n", m.StartURL)
	if title := m.Title(); title != "" {
		fmt.Fprintf(&b, "Page title: %s\n", title)
	}
	b.WriteString("\nSteps:\n")

	steps := m.Steps
	if len(steps) > maxPromptSteps {
		steps = steps[:maxPromptSteps]
	}
	for i, step := range steps {
		b.WriteString(formatStep(i+1, step))
		b.WriteString("\n")
	}
	if len(m.Steps) > maxPromptSteps {
		fmt.Fprintf(&b, "(%d more steps omitted)\n", len(m.Steps)-maxPromptSteps)
	}
	if len(m.Steps) == 0 {
		b.WriteString("(no steps were recorded)\n")
	}
	return b.String()
}

func formatStep(n int, step macro.Step) string {
	target := step.Target()
	element := step.Selector
	if element == "" {
		element = "(unknown element)"
	}
	if target.Tag != "" {
		kind := target.Tag
		if target.InputType != "" && target.InputType != target.Tag {
			kind += " " + target.InputType
		}
		element = fmt.Sprintf("%s [%s]", element, kind)
	}

	switch {
	case target.InputType == "password" && step.Value != "":
		return fmt.Sprintf("%d. %s %s (value hidden)", n, step.Action, element)
	case target.IsToggle():
		return fmt.Sprintf("%d. %s %s (checked: %t)", n, step.Action, element, target.Checked)
	case step.Value != "":
		return fmt.Sprintf("%d. %s %s with %q", n, step.Action, element, step.Value)
	default:
		return fmt.Sprintf("%d. %s %s", n, step.Action, element)
	}
}

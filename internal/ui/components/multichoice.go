package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/kbquiz/internal/quiz"
	"github.com/abhisek/kbquiz/internal/ui/theme"
)

// MultiChoice renders a question's labelled options with a cursor and a
// mark on the recorded answer. It never knows which option is correct.
type MultiChoice struct {
	Prompt  string
	Options []string
	Cursor  int
	Chosen  string // label of the recorded answer, "" if none
}

// NewMultiChoice places the cursor on the chosen option, or the first.
func NewMultiChoice(q quiz.Question, chosen string) MultiChoice {
	cursor := 0
	if i := quiz.IndexOf(chosen); i >= 0 && i < len(q.Choices) {
		cursor = i
	}
	return MultiChoice{Prompt: q.Prompt, Options: q.Choices, Cursor: cursor, Chosen: chosen}
}

// Update moves the cursor and returns the label picked by this key, if
// any: Enter picks the cursor, a letter picks its option directly.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, string) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, ""
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, ""
	case "down", "j":
		if m.Cursor < len(m.Options)-1 {
			m.Cursor++
		}
		return m, ""
	case "enter", "space":
		return m, quiz.LabelFor(m.Cursor)
	}

	if i := quiz.IndexOf(strings.ToUpper(key)); i >= 0 && i < len(m.Options) {
		m.Cursor = i
		return m, quiz.LabelFor(i)
	}
	return m, ""
}

// View renders the prompt and options.
func (m MultiChoice) View(width int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Width(width).Render(m.Prompt))
	b.WriteString("\n\n")

	for i, opt := range m.Options {
		label := quiz.LabelFor(i)
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := "( )"
		if label == m.Chosen {
			mark = "(•)"
		}
		line := fmt.Sprintf("%s%s %s)  %s", cursor, mark, label, opt)

		style := theme.Unselected
		switch {
		case label == m.Chosen:
			style = theme.Correct
		case i == m.Cursor:
			style = theme.Selected
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

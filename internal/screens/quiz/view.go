package quiz

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	qz "github.com/abhisek/kbquiz/internal/quiz"
	"github.com/abhisek/kbquiz/internal/results"
	"github.com/abhisek/kbquiz/internal/session"
	"github.com/abhisek/kbquiz/internal/ui/components"
	"github.com/abhisek/kbquiz/internal/ui/theme"
)

func (s *Screen) renderQuestion(width int) string {
	q := s.machine.Quiz()
	if q == nil {
		return renderLoading(width, "Loading quiz...")
	}
	inner := max(width-4, 20)

	var b strings.Builder
	b.WriteString("\n")
	bar := components.NewProgressBar(fmt.Sprintf("Question %d of %d", s.machine.Pointer()+1, q.Len()),
		s.machine.Answered(), q.Len(), inner)
	b.WriteString("  " + bar.View())
	b.WriteString("\n")
	b.WriteString("  " + lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", inner)))
	b.WriteString("\n\n")

	if s.showResumed {
		b.WriteString("  " + theme.Hint.Render("Resumed where you left off."))
		b.WriteString("\n\n")
	}

	cur, _ := s.machine.Current()
	if cur.Difficulty != "" {
		b.WriteString("  " + theme.Subtitle.Render(cur.Difficulty.DisplayName()))
		b.WriteString("\n")
	}
	b.WriteString(indent(s.choice.View(inner), "  "))
	b.WriteString("\n")

	if s.machine.Phase() == session.PhaseSubmitting {
		b.WriteString("  " + theme.Hint.Render("Submitting answers..."))
		b.WriteString("\n")
	}
	if sig := s.machine.Signal(); sig.Kind != session.SignalNone {
		style := theme.Warning
		if sig.Kind == session.SignalSubmitFailed {
			style = theme.Incorrect
		}
		b.WriteString("  " + style.Render(sig.Message))
		b.WriteString("\n")
	}
	return b.String()
}

func renderLoading(width int, text string) string {
	return theme.Centered(lipgloss.NewStyle().Foreground(theme.TextDim), width, "\n\n\n"+text)
}

func renderError(width int, quizID string, err error) string {
	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(theme.Centered(theme.Incorrect, width, qz.UserMessage(err)))
	b.WriteString("\n\n")
	if quizID != "" {
		b.WriteString(theme.Centered(theme.Subtitle, width, "Quiz: "+quizID))
		b.WriteString("\n\n")
	}
	b.WriteString(theme.Centered(theme.Hint, width, "Press any key to go back."))
	return b.String()
}

// renderResults draws the score summary and the per-question breakdown,
// scrolled by *offset lines. The offset is clamped in place.
func renderResults(bd *results.Breakdown, width, height int, offset *int) string {
	if bd == nil {
		return renderLoading(width, "No result.")
	}
	inner := max(width-4, 20)

	var head strings.Builder
	head.WriteString("\n")
	head.WriteString(theme.Centered(theme.Title, width, bd.Headline()))
	head.WriteString("\n")
	verdict := theme.Incorrect
	if bd.Passed {
		verdict = theme.Correct
	}
	head.WriteString(theme.Centered(verdict, width, bd.Verdict()))
	head.WriteString("\n\n")

	var lines []string
	for _, it := range bd.Items {
		lines = append(lines, renderItem(it, inner)...)
		lines = append(lines, "")
	}

	visible := max(height-lipgloss.Height(head.String())-1, 1)
	*offset = min(*offset, max(len(lines)-visible, 0))
	end := min(*offset+visible, len(lines))

	return head.String() + strings.Join(lines[*offset:end], "\n")
}

func renderItem(it results.Item, width int) []string {
	mark, style := "✓", theme.Correct
	if !it.IsCorrect {
		mark, style = "✗", theme.Incorrect
	}
	prompt := lipgloss.NewStyle().Width(width - 6).Render(it.Prompt)
	promptLines := strings.Split(prompt, "\n")

	lines := []string{"  " + style.Render(fmt.Sprintf("%s %2d.", mark, it.Ordinal)) + " " + promptLines[0]}
	for _, l := range promptLines[1:] {
		lines = append(lines, "       "+l)
	}

	chosen := fmt.Sprintf("Your answer: %s", answerText(it.Chosen, it.ChosenText))
	lines = append(lines, "       "+theme.Body.Render(chosen))
	if !it.IsCorrect {
		correct := fmt.Sprintf("Correct: %s", answerText(it.Correct, it.CorrectText))
		lines = append(lines, "       "+theme.Correct.Render(correct))
	}
	if it.Explanation != "" {
		expl := lipgloss.NewStyle().Width(width - 8).Render(it.Explanation)
		for _, l := range strings.Split(expl, "\n") {
			lines = append(lines, "       "+theme.Hint.Render(l))
		}
	}
	return lines
}

func answerText(label, text string) string {
	switch {
	case label == "":
		return "(none)"
	case text == "":
		return label
	default:
		return label + ") " + text
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

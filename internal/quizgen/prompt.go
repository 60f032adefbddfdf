package quizgen

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const systemPrompt = `You write practice quizzes for employees learning internal company knowledge.

Rules:
- Every question is multiple choice with 2 to 4 options and exactly one correct option.
- "answer" is the label of the correct option: A for the first option, B for the second, and so on.
- Distractors should be plausible misreadings of the material, not jokes.
- When source material is given, only ask about facts stated in it.
- Keep prompts self-contained; do not refer to "the text above".
- The explanation says why the correct option is right in one or two sentences.
- Do not repeat any question from the "avoid" list.`

// buildUserMessage renders the request for one quiz.
func buildUserMessage(in Input, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", in.Topic)
	fmt.Fprintf(&b, "Difficulty: %s\n", in.Difficulty)
	fmt.Fprintf(&b, "Number of questions: %d\n", in.Questions)

	if in.Source != "" {
		b.WriteString("\nSource material:\n")
		b.WriteString(truncate(in.Source, cfg.MaxSourceChars))
		b.WriteString("\n")
	}

	b.WriteString("\nAvoid these questions:\n")
	b.WriteString(buildAvoid(in.Avoid, cfg.MaxAvoid))

	return b.String()
}

// buildAvoid lists the most recent max prompts, or "None".
func buildAvoid(prompts []string, max int) string {
	if len(prompts) == 0 {
		return "None"
	}
	if max > 0 && len(prompts) > max {
		prompts = prompts[len(prompts)-max:]
	}

	var b strings.Builder
	for i, p := range prompts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	// Cut on a rune boundary.
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n[truncated]"
}

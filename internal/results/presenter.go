// Package results turns a scored submission into what the results view
// shows.
package results

import (
	"fmt"
	"math"

	"github.com/abhisek/kbquiz/internal/quiz"
)

// Breakdown is the displayable form of a quiz.Result.
type Breakdown struct {
	Correct int
	Total   int
	Percent int
	Passed  bool
	Items   []Item
}

// Item is one question's outcome joined with its text.
type Item struct {
	Ordinal     int
	Prompt      string
	Chosen      string
	ChosenText  string
	Correct     string
	CorrectText string
	IsCorrect   bool
	Explanation string
}

// Present builds a Breakdown. Pass/fail is taken from the result as is;
// it is never derived from the percentage. q may be nil, in which case
// prompts and choice texts are left empty.
func Present(res *quiz.Result, q *quiz.Quiz) *Breakdown {
	if res == nil {
		return &Breakdown{}
	}
	b := &Breakdown{
		Correct: res.Correct,
		Total:   res.Total,
		Percent: percent(res),
		Passed:  res.Passed,
		Items:   make([]Item, 0, len(res.Outcomes)),
	}
	for i, o := range res.Outcomes {
		ordinal := o.Question
		if ordinal <= 0 {
			ordinal = i + 1
		}
		item := Item{
			Ordinal:     ordinal,
			Chosen:      o.Chosen,
			Correct:     o.Correct,
			IsCorrect:   o.IsCorrect,
			Explanation: o.Explanation,
		}
		if qq, ok := q.Question(ordinal); ok {
			item.Prompt = qq.Prompt
			item.ChosenText = qq.ChoiceText(o.Chosen)
			item.CorrectText = qq.ChoiceText(o.Correct)
			if item.Explanation == "" {
				item.Explanation = qq.Explanation
			}
		}
		b.Items = append(b.Items, item)
	}
	return b
}

// RoundHalfUp rounds p to the nearest integer, with .5 going up.
func RoundHalfUp(p float64) int {
	return int(math.Floor(p + 0.5))
}

// percent prefers the server's figure. A zero percentage with a non-zero
// score means the server left the field out.
func percent(res *quiz.Result) int {
	if res.Percentage == 0 && res.Total > 0 && res.Correct > 0 {
		return RoundHalfUp(float64(res.Correct) * 100 / float64(res.Total))
	}
	return RoundHalfUp(res.Percentage)
}

// Headline is the one-line score summary, e.g. "2/3 correct (67%)".
func (b *Breakdown) Headline() string {
	return fmt.Sprintf("%d/%d correct (%d%%)", b.Correct, b.Total, b.Percent)
}

// Verdict is "Passed" or "Not passed".
func (b *Breakdown) Verdict() string {
	if b.Passed {
		return "Passed"
	}
	return "Not passed"
}

// Missed returns the items answered incorrectly.
func (b *Breakdown) Missed() []Item {
	var out []Item
	for _, it := range b.Items {
		if !it.IsCorrect {
			out = append(out, it)
		}
	}
	return out
}

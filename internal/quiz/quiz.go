package quiz

import (
	"context"
	"strings"
)

// Difficulty is the tier a quiz or question is pitched at.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// DisplayName returns a capitalized label for the tier.
func (d Difficulty) DisplayName() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// Labels is the answer-label alphabet. A question with n choices accepts
// the first n labels.
var Labels = []string{"A", "B", "C", "D"}

const (
	MinChoices = 2
	MaxChoices = 4
)

// LabelFor returns the label for the zero-based choice index, or "" when
// the index is outside the alphabet.
func LabelFor(i int) string {
	if i < 0 || i >= len(Labels) {
		return ""
	}
	return Labels[i]
}

// IndexOf returns the zero-based choice index for a label, or -1.
func IndexOf(label string) int {
	for i, l := range Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// Quiz is a quiz as served to the client. It is immutable once received.
type Quiz struct {
	ID               string     `json:"id" yaml:"id"`
	Title            string     `json:"title" yaml:"title"`
	Description      string     `json:"description,omitempty" yaml:"description,omitempty"`
	Difficulty       Difficulty `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	EstimatedMinutes int        `json:"estimatedMinutes,omitempty" yaml:"estimated_minutes,omitempty"`
	Questions        []Question `json:"questions" yaml:"questions"`
}

// Question is one prompt in a quiz. The correct choice is never part of
// the client-side type; it only comes back inside a Result.
type Question struct {
	Prompt      string     `json:"question" yaml:"question"`
	Choices     []string   `json:"options" yaml:"options"`
	Explanation string     `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Difficulty  Difficulty `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
}

// Len returns the number of questions.
func (q *Quiz) Len() int {
	if q == nil {
		return 0
	}
	return len(q.Questions)
}

// Question returns the question at the 1-based ordinal.
func (q *Quiz) Question(ordinal int) (Question, bool) {
	if q == nil || ordinal < 1 || ordinal > len(q.Questions) {
		return Question{}, false
	}
	return q.Questions[ordinal-1], true
}

// ValidLabel reports whether label names one of this question's choices.
func (q Question) ValidLabel(label string) bool {
	i := IndexOf(label)
	return i >= 0 && i < len(q.Choices)
}

// ChoiceText returns the text behind a label, or "" if the label does not
// name a choice.
func (q Question) ChoiceText(label string) string {
	if !q.ValidLabel(label) {
		return ""
	}
	return q.Choices[IndexOf(label)]
}

// Result is a scored submission. It is created once per submission and
// never mutated afterwards.
type Result struct {
	Correct    int       `json:"score"`
	Total      int       `json:"totalQuestions"`
	Percentage float64   `json:"percentage"`
	Passed     bool      `json:"passed"`
	Outcomes   []Outcome `json:"results"`
}

// Outcome is the per-question part of a Result. Question is the 1-based
// ordinal when the server sends it, zero otherwise.
type Outcome struct {
	Question    int    `json:"questionNumber,omitempty"`
	Chosen      string `json:"userAnswer"`
	Correct     string `json:"correctAnswer"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation,omitempty"`
}

// Fetcher loads a quiz by identifier. Errors wrap one of ErrUnauthorized,
// ErrNotFound, ErrForbidden or ErrUnknown.
type Fetcher interface {
	Fetch(ctx context.Context, quizID string) (*Quiz, error)
}

// Submitter scores a complete set of answers keyed by 1-based ordinal.
// Errors additionally may wrap ErrInvalidAnswers.
type Submitter interface {
	Submit(ctx context.Context, quizID string, answers map[int]string) (*Result, error)
}

// Source is both halves of the quiz backend.
type Source interface {
	Fetcher
	Submitter
}

package quiz

import (
	"errors"
	"fmt"
	"testing"
)

func TestLabelFor(t *testing.T) {
	tests := []struct {
		i    int
		want string
	}{
		{0, "A"}, {3, "D"}, {4, ""}, {-1, ""},
	}
	for _, tt := range tests {
		if got := LabelFor(tt.i); got != tt.want {
			t.Errorf("LabelFor(%d) = %q, want %q", tt.i, got, tt.want)
		}
	}
}

func TestQuestion_ValidLabel(t *testing.T) {
	q := Question{Prompt: "p", Choices: []string{"x", "y", "z"}}
	for _, l := range []string{"A", "B", "C"} {
		if !q.ValidLabel(l) {
			t.Errorf("ValidLabel(%q) = false, want true", l)
		}
	}
	for _, l := range []string{"D", "E", "", "a"} {
		if q.ValidLabel(l) {
			t.Errorf("ValidLabel(%q) = true, want false", l)
		}
	}
	if got := q.ChoiceText("B"); got != "y" {
		t.Errorf("ChoiceText(B) = %q, want %q", got, "y")
	}
}

func TestQuiz_Question(t *testing.T) {
	q := &Quiz{Questions: []Question{{Prompt: "one"}, {Prompt: "two"}}}
	if got, ok := q.Question(2); !ok || got.Prompt != "two" {
		t.Errorf("Question(2) = %q, %v", got.Prompt, ok)
	}
	if _, ok := q.Question(0); ok {
		t.Error("Question(0) should be out of range")
	}
	if _, ok := q.Question(3); ok {
		t.Error("Question(3) should be out of range")
	}
	var nilQuiz *Quiz
	if nilQuiz.Len() != 0 {
		t.Error("nil quiz should have length 0")
	}
}

func TestDecode_Valid(t *testing.T) {
	raw := []byte(`{
		"id": "q-1",
		"title": "Onboarding",
		"difficulty": "beginner",
		"estimatedMinutes": 5,
		"questions": [
			{"question": "What is RAG?", "options": ["a", "b", "c", "d"], "correctAnswer": "A"},
			{"question": "Pick one", "options": ["yes", "no"]}
		]
	}`)
	q, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if q.ID != "q-1" || q.Len() != 2 {
		t.Errorf("got id=%q len=%d", q.ID, q.Len())
	}
	if q.Difficulty != DifficultyBeginner {
		t.Errorf("difficulty = %q, want beginner", q.Difficulty)
	}
	if q.EstimatedMinutes != 5 {
		t.Errorf("estimatedMinutes = %d, want 5", q.EstimatedMinutes)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"missing questions", `{"id":"x","title":"t"}`},
		{"empty questions", `{"id":"x","title":"t","questions":[]}`},
		{"one option", `{"id":"x","title":"t","questions":[{"question":"q","options":["a"]}]}`},
		{"five options", `{"id":"x","title":"t","questions":[{"question":"q","options":["a","b","c","d","e"]}]}`},
		{"wrong type", `{"id":"x","title":"t","questions":[{"question":1,"options":["a","b"]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			if !errors.Is(err, ErrMalformedQuiz) {
				t.Fatalf("err = %v, want ErrMalformedQuiz", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	good := &Quiz{ID: "x", Questions: []Question{{Prompt: "p", Choices: []string{"a", "b"}}}}
	if err := Validate(good); err != nil {
		t.Errorf("Validate(good) = %v", err)
	}
	bad := &Quiz{ID: "x", Questions: []Question{{Prompt: "p", Choices: []string{"a"}}}}
	if err := Validate(bad); !errors.Is(err, ErrMalformedQuiz) {
		t.Errorf("Validate(bad) = %v, want ErrMalformedQuiz", err)
	}
	if err := Validate(nil); !errors.Is(err, ErrMalformedQuiz) {
		t.Errorf("Validate(nil) = %v, want ErrMalformedQuiz", err)
	}
}

func TestKind(t *testing.T) {
	apiErr := &APIError{Op: "submit", Status: 422, Kind: ErrInvalidAnswers, Err: errors.New("bad")}
	if !errors.Is(apiErr, ErrInvalidAnswers) {
		t.Error("APIError should unwrap to its kind")
	}
	if got := Kind(fmt.Errorf("wrapped: %w", apiErr)); got != ErrInvalidAnswers {
		t.Errorf("Kind = %v, want ErrInvalidAnswers", got)
	}
	if got := Kind(errors.New("boom")); got != ErrUnknown {
		t.Errorf("Kind = %v, want ErrUnknown", got)
	}
	if UserMessage(apiErr) == UserMessage(errors.New("boom")) {
		t.Error("expected distinct messages for invalid answers and unknown")
	}
}

package quizgen

import (
	"fmt"
	"strings"

	"github.com/abhisek/kbquiz/internal/localquiz"
)

// Validator checks a generated document before it is accepted.
type Validator interface {
	Name() string
	Validate(doc *localquiz.Document, in Input) *ValidationError
}

// ValidationError describes why a generated quiz was rejected.
type ValidationError struct {
	Validator string
	Message   string
	Retryable bool // whether asking again is likely to help
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// ShapeValidator runs the same checks a quiz file gets on load.
type ShapeValidator struct{}

func (v *ShapeValidator) Name() string { return "shape" }

func (v *ShapeValidator) Validate(doc *localquiz.Document, in Input) *ValidationError {
	if err := doc.Validate(); err != nil {
		return &ValidationError{Validator: v.Name(), Message: err.Error(), Retryable: true}
	}
	if len(doc.Questions) != in.Questions {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("got %d questions, asked for %d", len(doc.Questions), in.Questions),
			Retryable: true,
		}
	}
	return nil
}

// DistinctValidator rejects repeated prompts, repeated options within a
// question and prompts from the avoid list.
type DistinctValidator struct{}

func (v *DistinctValidator) Name() string { return "distinct" }

func (v *DistinctValidator) Validate(doc *localquiz.Document, in Input) *ValidationError {
	seen := make(map[string]bool, len(doc.Questions)+len(in.Avoid))
	for _, p := range in.Avoid {
		seen[normalize(p)] = true
	}
	for i, it := range doc.Questions {
		key := normalize(it.Question)
		if seen[key] {
			return &ValidationError{
				Validator: v.Name(),
				Message:   fmt.Sprintf("question %d repeats an earlier question", i+1),
				Retryable: true,
			}
		}
		seen[key] = true

		opts := make(map[string]bool, len(it.Options))
		for _, o := range it.Options {
			k := normalize(o)
			if opts[k] {
				return &ValidationError{
					Validator: v.Name(),
					Message:   fmt.Sprintf("question %d has duplicate option %q", i+1, o),
					Retryable: true,
				}
			}
			opts[k] = true
		}
	}
	return nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

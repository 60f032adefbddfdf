package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const quizSchemaURL = "schema://quiz.json"

// quizSchema is the shape of a quiz payload. Extra fields, including any
// correct-answer marker a server might leak, are ignored.
var quizSchema = map[string]any{
	"type":     "object",
	"required": []any{"id", "title", "questions"},
	"properties": map[string]any{
		"id":               map[string]any{"type": "string", "minLength": 1},
		"title":            map[string]any{"type": "string"},
		"description":      map[string]any{"type": "string"},
		"difficulty":       map[string]any{"type": "string"},
		"estimatedMinutes": map[string]any{"type": "integer", "minimum": 0},
		"questions": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"question", "options"},
				"properties": map[string]any{
					"question": map[string]any{"type": "string", "minLength": 1},
					"options": map[string]any{
						"type":     "array",
						"minItems": MinChoices,
						"maxItems": MaxChoices,
						"items":    map[string]any{"type": "string"},
					},
					"explanation": map[string]any{"type": "string"},
					"difficulty":  map[string]any{"type": "string"},
				},
			},
		},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a decoded JSON value, not Go literals.
		b, err := json.Marshal(quizSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
		if err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(quizSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(quizSchemaURL)
	})
	return compiled, compileErr
}

// Decode parses and validates a quiz payload. Every failure wraps
// ErrMalformedQuiz.
func Decode(raw []byte) (*Quiz, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuiz, err)
	}

	s, err := schema()
	if err != nil {
		return nil, fmt.Errorf("compile quiz schema: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuiz, err)
	}

	var q Quiz
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuiz, err)
	}
	return &q, nil
}

// Validate checks the structural invariants of a quiz built in memory,
// for sources that do not go through Decode.
func Validate(q *Quiz) error {
	if q == nil {
		return fmt.Errorf("%w: nil quiz", ErrMalformedQuiz)
	}
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedQuiz)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrMalformedQuiz)
	}
	for i, qu := range q.Questions {
		if qu.Prompt == "" {
			return fmt.Errorf("%w: question %d has no prompt", ErrMalformedQuiz, i+1)
		}
		if n := len(qu.Choices); n < MinChoices || n > MaxChoices {
			return fmt.Errorf("%w: question %d has %d choices, want %d-%d",
				ErrMalformedQuiz, i+1, n, MinChoices, MaxChoices)
		}
	}
	return nil
}

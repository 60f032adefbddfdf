package quizgen

import "github.com/abhisek/kbquiz/internal/llm"

// MaxQuestions caps a generated quiz.
const MaxQuestions = 20

// QuizSchema is the structured output asked of the model.
var QuizSchema = &llm.Schema{
	Name:        "practice-quiz",
	Description: "A multiple-choice practice quiz with an answer key",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Short quiz title",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "One sentence on what the quiz covers",
			},
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": MaxQuestions,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question prompt",
						},
						"options": map[string]any{
							"type":        "array",
							"minItems":    2,
							"maxItems":    4,
							"items":       map[string]any{"type": "string"},
							"description": "Answer options in display order, labelled A-D",
						},
						"answer": map[string]any{
							"type":        "string",
							"enum":        []any{"A", "B", "C", "D"},
							"description": "Label of the correct option",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Why the correct option is right",
						},
					},
					"required":             []any{"question", "options", "answer", "explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"title", "description", "questions"},
		"additionalProperties": false,
	},
}

// Package quizgen writes practice quiz files with a language model.
package quizgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/abhisek/kbquiz/internal/llm"
	"github.com/abhisek/kbquiz/internal/localquiz"
	"github.com/abhisek/kbquiz/internal/quiz"
)

// Input describes the quiz to generate.
type Input struct {
	Topic      string
	Difficulty quiz.Difficulty
	Questions  int

	// Source is optional reference text the questions must be drawn from.
	Source string

	// Avoid lists prompts that must not be asked again.
	Avoid []string
}

// Config controls a Generator.
type Config struct {
	// Validators run in order; the first failure rejects the attempt.
	Validators []Validator

	MaxTokens   int
	Temperature float64

	// MaxAttempts bounds how often a retryable rejection is re-asked.
	MaxAttempts int

	MaxSourceChars int
	MaxAvoid       int
	PassPercent    int
}

func DefaultConfig() Config {
	return Config{
		Validators:     []Validator{&ShapeValidator{}, &DistinctValidator{}},
		MaxTokens:      4096,
		Temperature:    0.5,
		MaxAttempts:    3,
		MaxSourceChars: 24000,
		MaxAvoid:       30,
		PassPercent:    localquiz.DefaultPassPercent,
	}
}

// Generator produces quiz documents.
type Generator struct {
	provider llm.Provider
	config   Config
	logger   *slog.Logger
}

func New(provider llm.Provider, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{provider: provider, config: cfg, logger: logger}
}

// quizOutput is the raw model output before validation.
type quizOutput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Questions   []struct {
		Question    string   `json:"question"`
		Options     []string `json:"options"`
		Answer      string   `json:"answer"`
		Explanation string   `json:"explanation"`
	} `json:"questions"`
}

// Generate asks the model for a quiz and returns it once it passes every
// validator.
func (g *Generator) Generate(ctx context.Context, in Input) (*localquiz.Document, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if in.Difficulty == "" {
		in.Difficulty = quiz.DifficultyIntermediate
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeQuizGeneration)

	attempts := max(g.config.MaxAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		doc, err := g.attempt(ctx, in)
		if err == nil {
			return doc, nil
		}
		lastErr = err

		var verr *ValidationError
		if !errors.As(err, &verr) || !verr.Retryable {
			return nil, err
		}
		g.logger.Warn("generated quiz rejected",
			"attempt", attempt,
			"validator", verr.Validator,
			"reason", verr.Message,
		)
	}
	return nil, fmt.Errorf("no valid quiz after %d attempts: %w", attempts, lastErr)
}

func (g *Generator) attempt(ctx context.Context, in Input) (*localquiz.Document, error) {
	req := llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildUserMessage(in, g.config)}},
		Schema:      QuizSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}
	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw quizOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	doc := &localquiz.Document{
		ID:          Slug(in.Topic),
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		Difficulty:  in.Difficulty,
		PassPercent: g.config.PassPercent,
		Questions:   make([]localquiz.Item, len(raw.Questions)),
	}
	if doc.Title == "" {
		doc.Title = in.Topic
	}
	for i, q := range raw.Questions {
		doc.Questions[i] = localquiz.Item{
			Question:    strings.TrimSpace(q.Question),
			Options:     q.Options,
			Answer:      strings.ToUpper(strings.TrimSpace(q.Answer)),
			Explanation: strings.TrimSpace(q.Explanation),
		}
	}
	// Roughly a minute per question.
	doc.EstimatedMinutes = len(doc.Questions)

	for _, v := range g.config.Validators {
		if verr := v.Validate(doc, in); verr != nil {
			return nil, verr
		}
	}
	return doc, nil
}

func checkInput(in Input) error {
	if strings.TrimSpace(in.Topic) == "" {
		return errors.New("topic is required")
	}
	if in.Questions < 1 || in.Questions > MaxQuestions {
		return fmt.Errorf("question count must be between 1 and %d, got %d", MaxQuestions, in.Questions)
	}
	switch in.Difficulty {
	case "", quiz.DifficultyBeginner, quiz.DifficultyIntermediate, quiz.DifficultyAdvanced:
		return nil
	}
	return fmt.Errorf("unknown difficulty %q", in.Difficulty)
}

// Slug turns a topic into a quiz ID: lower-case words joined by dashes.
func Slug(topic string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(topic) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "quiz"
	}
	return b.String()
}

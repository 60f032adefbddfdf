// Package localquiz reads quiz files that carry their own answer key, so a
// quiz can be taken and scored without the backend.
package localquiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/kbquiz/internal/quiz"
)

// DefaultPassPercent applies when a file does not set pass_percent.
const DefaultPassPercent = 70

var ErrUnsupportedFormat = errors.New("unsupported quiz file format")

// Document is a quiz file: the quiz plus its answer key.
type Document struct {
	ID               string          `json:"id" yaml:"id"`
	Title            string          `json:"title" yaml:"title"`
	Description      string          `json:"description,omitempty" yaml:"description,omitempty"`
	Difficulty       quiz.Difficulty `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	EstimatedMinutes int             `json:"estimatedMinutes,omitempty" yaml:"estimated_minutes,omitempty"`
	PassPercent      int             `json:"passPercent,omitempty" yaml:"pass_percent,omitempty"`
	Questions        []Item          `json:"questions" yaml:"questions"`
}

// Item is a question with its correct label.
type Item struct {
	Question    string          `json:"question" yaml:"question"`
	Options     []string        `json:"options" yaml:"options"`
	Answer      string          `json:"answer" yaml:"answer"`
	Explanation string          `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Difficulty  quiz.Difficulty `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
}

// Quiz returns the client-side view of the document, without answers.
func (d *Document) Quiz() *quiz.Quiz {
	q := &quiz.Quiz{
		ID:               d.ID,
		Title:            d.Title,
		Description:      d.Description,
		Difficulty:       d.Difficulty,
		EstimatedMinutes: d.EstimatedMinutes,
		Questions:        make([]quiz.Question, len(d.Questions)),
	}
	for i, it := range d.Questions {
		q.Questions[i] = quiz.Question{
			Prompt:      it.Question,
			Choices:     append([]string(nil), it.Options...),
			Explanation: it.Explanation,
			Difficulty:  it.Difficulty,
		}
	}
	return q
}

// Validate checks the quiz shape and that every answer names a choice.
func (d *Document) Validate() error {
	q := d.Quiz()
	if err := quiz.Validate(q); err != nil {
		return err
	}
	for i, it := range d.Questions {
		if !q.Questions[i].ValidLabel(it.Answer) {
			return fmt.Errorf("%w: question %d answer %q is not one of its choices",
				quiz.ErrMalformedQuiz, i+1, it.Answer)
		}
	}
	if d.PassPercent < 0 || d.PassPercent > 100 {
		return fmt.Errorf("%w: pass_percent %d out of range", quiz.ErrMalformedQuiz, d.PassPercent)
	}
	return nil
}

func (d *Document) passPercent() int {
	if d.PassPercent == 0 {
		return DefaultPassPercent
	}
	return d.PassPercent
}

// Grade scores a complete answer set. Missing or unknown answers are
// rejected with quiz.ErrInvalidAnswers, the same way the server does.
func (d *Document) Grade(answers map[int]string) (*quiz.Result, error) {
	q := d.Quiz()
	for ordinal := range answers {
		if ordinal < 1 || ordinal > len(d.Questions) {
			return nil, invalidAnswers("answer for unknown question %d", ordinal)
		}
	}

	res := &quiz.Result{Total: len(d.Questions), Outcomes: make([]quiz.Outcome, 0, len(d.Questions))}
	for i, it := range d.Questions {
		ordinal := i + 1
		chosen, ok := answers[ordinal]
		if !ok {
			return nil, invalidAnswers("question %d is unanswered", ordinal)
		}
		if !q.Questions[i].ValidLabel(chosen) {
			return nil, invalidAnswers("question %d: %q is not a choice", ordinal, chosen)
		}
		correct := chosen == it.Answer
		if correct {
			res.Correct++
		}
		res.Outcomes = append(res.Outcomes, quiz.Outcome{
			Question:    ordinal,
			Chosen:      chosen,
			Correct:     it.Answer,
			IsCorrect:   correct,
			Explanation: it.Explanation,
		})
	}
	if res.Total > 0 {
		res.Percentage = float64(res.Correct) * 100 / float64(res.Total)
	}
	res.Passed = res.Percentage >= float64(d.passPercent())
	return res, nil
}

func invalidAnswers(format string, args ...any) error {
	return &quiz.APIError{Op: "submit", Status: 422, Kind: quiz.ErrInvalidAnswers, Err: fmt.Errorf(format, args...)}
}

// Parse decodes and validates a document. format is "json" or "yaml".
func Parse(data []byte, format string) (*Document, error) {
	d, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func decode(data []byte, format string) (*Document, error) {
	var d Document
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &d)
	case "yaml":
		err = yaml.Unmarshal(data, &d)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", quiz.ErrMalformedQuiz, err)
	}
	return &d, nil
}

// FormatOf maps a file extension to a format name.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Load reads a document from a .json, .yaml or .yml file. A document
// without an id takes the file's base name.
func Load(path string) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quiz file: %w", err)
	}
	d, err := decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if d.ID == "" {
		d.ID = idFromPath(path)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func idFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// Save writes d to path in the format its extension names.
func Save(path string, d *Document) error {
	if err := d.Validate(); err != nil {
		return err
	}
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var data []byte
	if format == "yaml" {
		data, err = yaml.Marshal(d)
	} else {
		data, err = json.MarshalIndent(d, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode quiz: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create quiz dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

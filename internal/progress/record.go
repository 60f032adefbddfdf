package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/kbquiz/internal/quiz"
)

// StaleAfter is the retention window. A record saved longer ago than this
// is discarded at load time.
const StaleAfter = 7 * 24 * time.Hour

// ErrInvalidRecord is returned by Decode for anything that is not a
// well-formed progress record.
var ErrInvalidRecord = errors.New("invalid progress record")

// Record is the persisted snapshot of one quiz session.
type Record struct {
	QuizID          string         `json:"quizId,omitempty"`
	CurrentQuestion int            `json:"currentQuestion"`
	Answers         map[int]string `json:"answers"`
	StartTime       int64          `json:"startTime"` // epoch ms
	SavedAt         int64          `json:"savedAt"`   // epoch ms
}

// Equal reports whether two records hold the same snapshot. A nil and an
// empty answer map are equal.
func (r Record) Equal(o Record) bool {
	return r.QuizID == o.QuizID &&
		r.CurrentQuestion == o.CurrentQuestion &&
		r.StartTime == o.StartTime &&
		r.SavedAt == o.SavedAt &&
		maps.Equal(r.Answers, o.Answers)
}

// IsFresh reports whether the record was saved less than StaleAfter before
// now. A savedAt in the future counts as fresh.
func IsFresh(r Record, now time.Time) bool {
	return now.UnixMilli()-r.SavedAt < StaleAfter.Milliseconds()
}

// Fits reports whether the record can be restored onto q: the pointer is
// in range and every answer names a real choice of a real question.
func Fits(r Record, q *quiz.Quiz) bool {
	n := q.Len()
	if n == 0 || r.CurrentQuestion < 0 || r.CurrentQuestion >= n {
		return false
	}
	for ordinal, label := range r.Answers {
		question, ok := q.Question(ordinal)
		if !ok || !question.ValidLabel(label) {
			return false
		}
	}
	return true
}

// Encode serializes a record. It never fails for a Record value.
func Encode(r Record) []byte {
	if r.Answers == nil {
		r.Answers = map[int]string{}
	}
	// Marshal of this struct cannot fail: all fields are plain values
	// and int-keyed maps are supported.
	b, _ := json.Marshal(r)
	return b
}

// Decode parses a serialized record. Malformed input yields an error
// wrapping ErrInvalidRecord, never a panic.
func Decode(raw []byte) (Record, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	s, err := recordSchema()
	if err != nil {
		return Record{}, fmt.Errorf("compile record schema: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if r.Answers == nil {
		r.Answers = map[int]string{}
	}
	return r, nil
}

const recordSchemaURL = "schema://progress-record.json"

var recordSchemaDef = map[string]any{
	"type":     "object",
	"required": []any{"currentQuestion", "answers", "startTime", "savedAt"},
	"properties": map[string]any{
		"quizId":          map[string]any{"type": "string"},
		"currentQuestion": map[string]any{"type": "integer", "minimum": 0},
		"answers": map[string]any{
			"type":                 "object",
			"propertyNames":        map[string]any{"pattern": "^[1-9][0-9]{0,5}$"},
			"additionalProperties": map[string]any{"type": "string", "enum": []any{"A", "B", "C", "D"}},
		},
		"startTime": map[string]any{"type": "integer", "minimum": 0},
		"savedAt":   map[string]any{"type": "integer", "minimum": 0},
	},
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func recordSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(recordSchemaDef)
		if err != nil {
			schemaErr = err
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(recordSchemaURL, doc); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(recordSchemaURL)
	})
	return schema, schemaErr
}

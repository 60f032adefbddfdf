package progress

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/kbquiz/internal/store"
)

// KeyPrefix namespaces progress records in the shared store.
const KeyPrefix = "quiz_progress_"

// DefaultTimeout bounds each store call made by the Adapter.
const DefaultTimeout = 2 * time.Second

// Key returns the store key for a quiz identifier.
func Key(quizID string) string {
	return KeyPrefix + quizID
}

// Adapter persists progress records on a KV store.
//
// Persistence is best-effort: losing progress is never fatal to a quiz
// session, so no method returns an error. Store and decode failures are
// logged and then treated as "no record" (Load) or as a skipped write
// (Save, Clear).
type Adapter struct {
	kv      store.KV
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// NewAdapter wraps kv.
func NewAdapter(kv store.KV, opts ...Option) *Adapter {
	a := &Adapter{kv: kv, timeout: DefaultTimeout, logger: slog.Default()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Save stores r under the quiz's key, overwriting any earlier record.
func (a *Adapter) Save(ctx context.Context, quizID string, r Record) {
	r.QuizID = quizID
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if err := a.kv.Set(ctx, Key(quizID), Encode(r)); err != nil {
		a.logger.Warn("save progress failed", "quiz_id", quizID, "error", err)
		return
	}
	a.logger.Debug("progress saved", "quiz_id", quizID,
		"current_question", r.CurrentQuestion, "answered", len(r.Answers))
}

// Load returns the stored record for quizID. ok is false when nothing is
// stored, the store fails, or the stored value is not a valid record.
// Freshness is left to the caller.
func (a *Adapter) Load(ctx context.Context, quizID string) (Record, bool) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.kv.Get(ctx, Key(quizID))
	if errors.Is(err, store.ErrNotFound) {
		return Record{}, false
	}
	if err != nil {
		a.logger.Warn("load progress failed", "quiz_id", quizID, "error", err)
		return Record{}, false
	}

	r, err := Decode(raw)
	if err != nil {
		a.logger.Debug("discarding unreadable progress", "quiz_id", quizID, "error", err)
		return Record{}, false
	}
	if r.QuizID != "" && r.QuizID != quizID {
		a.logger.Debug("discarding progress for another quiz", "quiz_id", quizID, "record_quiz_id", r.QuizID)
		return Record{}, false
	}
	return r, true
}

// Clear removes the stored record for quizID.
func (a *Adapter) Clear(ctx context.Context, quizID string) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if err := a.kv.Remove(ctx, Key(quizID)); err != nil {
		a.logger.Warn("clear progress failed", "quiz_id", quizID, "error", err)
	}
}

// Saved is a stored record with the quiz it belongs to.
type Saved struct {
	QuizID string
	Record Record
}

// List returns every readable record in the store. Unreadable entries are
// skipped.
func (a *Adapter) List(ctx context.Context) []Saved {
	lctx, cancel := context.WithTimeout(ctx, a.timeout)
	keys, err := a.kv.List(lctx, KeyPrefix)
	cancel()
	if err != nil {
		a.logger.Warn("list progress failed", "error", err)
		return nil
	}

	var out []Saved
	for _, k := range keys {
		id := strings.TrimPrefix(k, KeyPrefix)
		if r, ok := a.Load(ctx, id); ok {
			out = append(out, Saved{QuizID: id, Record: r})
		}
	}
	return out
}

// Prune removes records that are stale at now or unreadable, and returns
// how many were removed. A key whose value cannot be read from the store
// is kept.
func (a *Adapter) Prune(ctx context.Context, now time.Time) int {
	lctx, cancel := context.WithTimeout(ctx, a.timeout)
	keys, err := a.kv.List(lctx, KeyPrefix)
	cancel()
	if err != nil {
		a.logger.Warn("list progress failed", "error", err)
		return 0
	}

	removed := 0
	for _, k := range keys {
		id := strings.TrimPrefix(k, KeyPrefix)
		if !a.prunable(ctx, id, now) {
			continue
		}
		a.Clear(ctx, id)
		removed++
	}
	if removed > 0 {
		a.logger.Info("pruned stale progress", "removed", removed)
	}
	return removed
}

// prunable reports whether the stored value for quizID is stale or not a
// record for quizID. Store errors and missing keys are never prunable.
func (a *Adapter) prunable(ctx context.Context, quizID string, now time.Time) bool {
	gctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.kv.Get(gctx, Key(quizID))
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		a.logger.Warn("prune skipped unreadable key", "quiz_id", quizID, "error", err)
		return false
	}
	r, err := Decode(raw)
	if err != nil || (r.QuizID != "" && r.QuizID != quizID) {
		return true
	}
	return !IsFresh(r, now)
}

package localquiz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/abhisek/kbquiz/internal/quiz"
)

// Library is a set of documents keyed by id. It implements quiz.Fetcher
// and quiz.Submitter.
type Library struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewLibrary returns a library holding docs.
func NewLibrary(docs ...*Document) *Library {
	l := &Library{docs: make(map[string]*Document, len(docs))}
	for _, d := range docs {
		l.docs[d.ID] = d
	}
	return l
}

// OpenDir loads every quiz file in dir. Files with other extensions are
// skipped; a malformed quiz file is an error.
func OpenDir(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read quiz dir: %w", err)
	}
	l := NewLibrary()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := FormatOf(path); err != nil {
			continue
		}
		d, err := Load(path)
		if err != nil {
			return nil, err
		}
		if _, dup := l.docs[d.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate quiz id %q", path, d.ID)
		}
		l.docs[d.ID] = d
	}
	return l, nil
}

// Add inserts or replaces a document.
func (l *Library) Add(d *Document) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs[d.ID] = d
}

// IDs returns the quiz ids in sorted order.
func (l *Library) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.docs))
	for id := range l.docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (l *Library) get(op, id string) (*Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.docs[id]
	if !ok {
		return nil, &quiz.APIError{Op: op, Status: 404, Kind: quiz.ErrNotFound, Err: fmt.Errorf("no quiz %q", id)}
	}
	return d, nil
}

// Fetch returns the quiz without its answer key.
func (l *Library) Fetch(ctx context.Context, quizID string) (*quiz.Quiz, error) {
	if err := ctx.Err(); err != nil {
		return nil, &quiz.APIError{Op: "fetch", Kind: quiz.ErrUnknown, Err: err}
	}
	d, err := l.get("fetch", quizID)
	if err != nil {
		return nil, err
	}
	return d.Quiz(), nil
}

// Submit grades answers against the quiz's key.
func (l *Library) Submit(ctx context.Context, quizID string, answers map[int]string) (*quiz.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &quiz.APIError{Op: "submit", Kind: quiz.ErrUnknown, Err: err}
	}
	d, err := l.get("submit", quizID)
	if err != nil {
		return nil, err
	}
	return d.Grade(answers)
}

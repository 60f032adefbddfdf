package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/kbquiz/internal/progress"
	"github.com/abhisek/kbquiz/internal/quiz"
	"github.com/abhisek/kbquiz/internal/results"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrUnanswered        = errors.New("current question is unanswered")
	ErrIncomplete        = errors.New("not all questions are answered")
	ErrBusy              = errors.New("request already in flight")
	ErrStale             = errors.New("stale completion")
)

// Persistence is the durable home of progress records. Implementations
// must not fail loudly: a lost write only costs the user their resume
// point. *progress.Adapter is the production implementation.
type Persistence interface {
	Save(ctx context.Context, quizID string, r progress.Record)
	Load(ctx context.Context, quizID string) (progress.Record, bool)
	Clear(ctx context.Context, quizID string)
}

// SubmitRequest is what BeginSubmit hands to the caller to send.
type SubmitRequest struct {
	Token   Token
	QuizID  string
	Answers map[int]string
}

// Machine is the controller for one quiz session. It owns the answer
// ledger and question pointer and is the only writer of the session's
// progress record.
//
// A Machine is not safe for concurrent use. Drive it from one goroutine
// (the UI event loop) and run fetches and submissions elsewhere, feeding
// their outcome back through CompleteLoad and CompleteSubmit.
type Machine struct {
	id           string
	state        state
	store        Persistence
	now          func() time.Time
	logger       *slog.Logger
	onTransition func(from, to Phase)
	signal       Signal
	seq          Token
	closed       bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithTransitionHook registers fn to be called after every transition.
func WithTransitionHook(fn func(from, to Phase)) Option {
	return func(m *Machine) { m.onTransition = fn }
}

// New returns an idle machine. p may be nil, in which case nothing is
// persisted.
func New(p Persistence, opts ...Option) *Machine {
	m := &Machine{
		id:     uuid.NewString(),
		state:  idleState{},
		store:  p,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.With("session_id", m.id)
	return m
}

// ID is a random identifier for log correlation.
func (m *Machine) ID() string { return m.id }

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.state.phase() }

// QuizID returns the identifier the session was started for.
func (m *Machine) QuizID() string {
	switch s := m.state.(type) {
	case loadingState:
		return s.quizID
	case failedState:
		return s.quizID
	case completedState:
		return s.quizID
	}
	if a := m.attempt(); a != nil {
		return a.quizID
	}
	return ""
}

// Quiz returns the loaded quiz, or nil before loading completes.
func (m *Machine) Quiz() *quiz.Quiz {
	if s, ok := m.state.(completedState); ok {
		return s.quiz
	}
	if a := m.attempt(); a != nil {
		return a.quiz
	}
	return nil
}

// Pointer returns the zero-based index of the current question.
func (m *Machine) Pointer() int {
	if a := m.attempt(); a != nil {
		return a.pointer
	}
	return 0
}

// Current returns the current question.
func (m *Machine) Current() (quiz.Question, bool) {
	a := m.attempt()
	if a == nil {
		return quiz.Question{}, false
	}
	return a.current(), true
}

// Answer returns the recorded answer for a 1-based ordinal.
func (m *Machine) Answer(ordinal int) (string, bool) {
	if a := m.attempt(); a != nil {
		return a.ledger.Get(ordinal)
	}
	return "", false
}

// Answers returns a copy of the ledger.
func (m *Machine) Answers() map[int]string {
	if a := m.attempt(); a != nil {
		return a.ledger.Snapshot()
	}
	return nil
}

// Answered returns the number of answered questions.
func (m *Machine) Answered() int {
	if a := m.attempt(); a != nil {
		return a.ledger.CompletedCount()
	}
	return 0
}

// Restored reports whether the attempt was resumed from saved progress.
func (m *Machine) Restored() bool {
	if a := m.attempt(); a != nil {
		return a.restored
	}
	return false
}

// StartedAt returns when the current attempt began.
func (m *Machine) StartedAt() time.Time {
	if a := m.attempt(); a != nil {
		return a.startedAt
	}
	return time.Time{}
}

// Result returns the submission result once completed.
func (m *Machine) Result() *quiz.Result {
	if s, ok := m.state.(completedState); ok {
		return s.result
	}
	return nil
}

// Breakdown returns the presented result once completed.
func (m *Machine) Breakdown() *results.Breakdown {
	if s, ok := m.state.(completedState); ok {
		return s.breakdown
	}
	return nil
}

// Err returns the load failure in the failed phase.
func (m *Machine) Err() error {
	if s, ok := m.state.(failedState); ok {
		return s.err
	}
	return nil
}

// Signal returns the current advisory. Expired validation signals read as
// SignalNone.
func (m *Machine) Signal() Signal {
	if m.signal.expiredAt(m.now()) {
		return Signal{}
	}
	return m.signal
}

// ExpireSignal drops an expired validation signal and reports whether it
// did. The UI calls it from a timer.
func (m *Machine) ExpireSignal() bool {
	if m.signal.Kind != SignalNone && m.signal.expiredAt(m.now()) {
		m.signal = Signal{}
		return true
	}
	return false
}

// Close stops all further persistence writes. Writes already made stay.
func (m *Machine) Close() {
	m.closed = true
}

// BeginLoad starts loading quizID and returns the token the fetch result
// must be completed with. A second call while loading supersedes the
// first.
func (m *Machine) BeginLoad(quizID string) (Token, error) {
	if quizID == "" {
		return 0, errors.New("quiz id is required")
	}
	m.seq++
	tok := m.seq
	if err := m.transition(loadingState{quizID: quizID, token: tok}); err != nil {
		return 0, err
	}
	return tok, nil
}

// CompleteLoad delivers the fetch outcome for tok. On success the machine
// becomes active, restoring saved progress if a fresh record fits the
// quiz. On failure it moves to the terminal failed phase. A completion for
// a superseded request returns ErrStale and changes nothing.
func (m *Machine) CompleteLoad(ctx context.Context, tok Token, q *quiz.Quiz, err error) error {
	s, ok := m.state.(loadingState)
	if !ok || s.token != tok {
		return ErrStale
	}

	if err == nil {
		err = quiz.Validate(q)
	}
	if err != nil {
		m.logger.Warn("quiz load failed", "quiz_id", s.quizID, "error", err)
		return m.transition(failedState{quizID: s.quizID, err: err})
	}

	now := m.now()
	a := newAttempt(s.quizID, q, now)
	if rec, ok := m.loadProgress(ctx, s.quizID); ok {
		switch {
		case !progress.IsFresh(rec, now):
			m.logger.Debug("ignoring stale progress", "quiz_id", s.quizID, "saved_at", rec.SavedAt)
		case !progress.Fits(rec, q):
			m.logger.Debug("ignoring progress that does not fit quiz", "quiz_id", s.quizID)
		default:
			a.ledger = LedgerFrom(rec.Answers)
			a.pointer = rec.CurrentQuestion
			if rec.StartTime > 0 {
				a.startedAt = time.UnixMilli(rec.StartTime)
			}
			a.restored = true
			m.logger.Info("resumed saved progress", "quiz_id", s.quizID,
				"current_question", a.pointer, "answered", a.ledger.CompletedCount())
		}
	}
	return m.transition(activeState{attempt: a})
}

// Load fetches quizID with f and completes the load. It returns the fetch
// error, if any, after the machine has moved to the failed phase.
func (m *Machine) Load(ctx context.Context, f quiz.Fetcher, quizID string) error {
	tok, err := m.BeginLoad(quizID)
	if err != nil {
		return err
	}
	q, ferr := f.Fetch(ctx, quizID)
	if err := m.CompleteLoad(ctx, tok, q, ferr); err != nil {
		return err
	}
	return m.Err()
}

// Select records choice for the current question and writes the session
// through to persistence.
func (m *Machine) Select(ctx context.Context, choice string) error {
	a, err := m.active("select")
	if err != nil {
		return err
	}
	if !a.current().ValidLabel(choice) {
		return fmt.Errorf("%w: %q for question %d", ErrInvalidChoice, choice, a.ordinal())
	}
	a.ledger.Set(a.ordinal(), choice)
	m.signal = Signal{}
	if err := m.transition(activeState{attempt: a}); err != nil {
		return err
	}
	m.persist(ctx, a)
	return nil
}

// Next moves to the following question. It is refused, with a transient
// SignalUnanswered, while the current question is unanswered. On the last
// question it does nothing.
func (m *Machine) Next(ctx context.Context) error {
	a, err := m.active("next")
	if err != nil {
		return err
	}
	if _, ok := a.ledger.Get(a.ordinal()); !ok {
		m.signal = unansweredSignal(m.now())
		return ErrUnanswered
	}
	m.signal = Signal{}
	if a.pointer >= a.quiz.Len()-1 {
		return nil
	}
	a.pointer++
	if err := m.transition(activeState{attempt: a}); err != nil {
		return err
	}
	m.persist(ctx, a)
	return nil
}

// Previous moves back one question. It is never gated on answers and does
// nothing on the first question.
func (m *Machine) Previous(ctx context.Context) error {
	a, err := m.active("previous")
	if err != nil {
		return err
	}
	m.signal = Signal{}
	if a.pointer == 0 {
		return nil
	}
	a.pointer--
	if err := m.transition(activeState{attempt: a}); err != nil {
		return err
	}
	m.persist(ctx, a)
	return nil
}

// BeginSubmit validates the ledger and, when every question is answered,
// moves to submitting and returns the request to send. An incomplete
// ledger is refused with ErrIncomplete and a transient SignalIncomplete.
func (m *Machine) BeginSubmit() (SubmitRequest, error) {
	if _, ok := m.state.(submittingState); ok {
		return SubmitRequest{}, ErrBusy
	}
	a, err := m.active("submit")
	if err != nil {
		return SubmitRequest{}, err
	}

	if err := m.transition(validatingState{attempt: a}); err != nil {
		return SubmitRequest{}, err
	}
	total := a.quiz.Len()
	if !a.ledger.IsComplete(total) {
		missing := total - a.ledger.CompletedCount()
		if err := m.transition(activeState{attempt: a}); err != nil {
			return SubmitRequest{}, err
		}
		m.signal = incompleteSignal(m.now(), missing)
		return SubmitRequest{}, ErrIncomplete
	}

	m.seq++
	tok := m.seq
	if err := m.transition(submittingState{attempt: a, token: tok}); err != nil {
		return SubmitRequest{}, err
	}
	m.signal = Signal{}
	return SubmitRequest{Token: tok, QuizID: a.quizID, Answers: a.ledger.Snapshot()}, nil
}

// CompleteSubmit delivers the scoring outcome for tok. A result completes
// the session and clears its saved progress. An error returns to active
// with every answer and the pointer untouched and raises a sticky
// SignalSubmitFailed; saved progress is left as it was.
func (m *Machine) CompleteSubmit(ctx context.Context, tok Token, res *quiz.Result, err error) error {
	s, ok := m.state.(submittingState)
	if !ok || s.token != tok {
		return ErrStale
	}
	a := s.attempt

	if err == nil && res == nil {
		err = fmt.Errorf("%w: empty result", quiz.ErrUnknown)
	}
	if err != nil {
		m.logger.Warn("quiz submission failed", "quiz_id", a.quizID, "error", err)
		if terr := m.transition(activeState{attempt: a}); terr != nil {
			return terr
		}
		m.signal = Signal{Kind: SignalSubmitFailed, Message: quiz.UserMessage(err), Err: err}
		return nil
	}

	if !m.closed && m.store != nil {
		m.store.Clear(ctx, a.quizID)
	}
	m.logger.Info("quiz submitted", "quiz_id", a.quizID,
		"correct", res.Correct, "total", res.Total, "passed", res.Passed)
	return m.transition(completedState{
		quizID:    a.quizID,
		quiz:      a.quiz,
		result:    res,
		breakdown: results.Present(res, a.quiz),
	})
}

// Submit runs BeginSubmit, sends the answers with s and completes the
// submission. It returns the refusal or the submitter's error.
func (m *Machine) Submit(ctx context.Context, s quiz.Submitter) error {
	req, err := m.BeginSubmit()
	if err != nil {
		return err
	}
	res, serr := s.Submit(ctx, req.QuizID, req.Answers)
	if err := m.CompleteSubmit(ctx, req.Token, res, serr); err != nil {
		return err
	}
	return serr
}

// Retry starts the completed quiz over with no answers. Saved progress is
// not consulted.
func (m *Machine) Retry() error {
	s, ok := m.state.(completedState)
	if !ok {
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, m.Phase())
	}
	m.signal = Signal{}
	return m.transition(activeState{attempt: newAttempt(s.quizID, s.quiz, m.now())})
}

func (m *Machine) attempt() *attempt {
	switch s := m.state.(type) {
	case activeState:
		return s.attempt
	case validatingState:
		return s.attempt
	case submittingState:
		return s.attempt
	}
	return nil
}

func (m *Machine) active(op string) (*attempt, error) {
	s, ok := m.state.(activeState)
	if !ok {
		return nil, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, m.Phase())
	}
	return s.attempt, nil
}

func (m *Machine) transition(next state) error {
	from, to := m.state.phase(), next.phase()
	if !canTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.state = next
	if from != to {
		m.logger.Debug("session transition", "from", from, "to", to)
	}
	if m.onTransition != nil {
		m.onTransition(from, to)
	}
	return nil
}

func (m *Machine) loadProgress(ctx context.Context, quizID string) (progress.Record, bool) {
	if m.store == nil {
		return progress.Record{}, false
	}
	return m.store.Load(ctx, quizID)
}

// persist writes the full current snapshot, so the last write always
// holds a consistent record.
func (m *Machine) persist(ctx context.Context, a *attempt) {
	if m.closed || m.store == nil {
		return
	}
	m.store.Save(ctx, a.quizID, progress.Record{
		CurrentQuestion: a.pointer,
		Answers:         a.ledger.Snapshot(),
		StartTime:       a.startedAt.UnixMilli(),
		SavedAt:         m.now().UnixMilli(),
	})
}

package session

import (
	"time"

	"github.com/abhisek/kbquiz/internal/quiz"
	"github.com/abhisek/kbquiz/internal/results"
)

// Phase names the machine's current state.
type Phase int

const (
	PhaseIdle       Phase = iota // No quiz requested yet
	PhaseLoading                 // Quiz fetch in flight
	PhaseActive                  // Answering and navigating
	PhaseValidating              // Checking completeness before submit
	PhaseSubmitting              // Submission in flight
	PhaseCompleted               // Showing the scored result
	PhaseFailed                  // Quiz could not be loaded; terminal
)

var phaseNames = [...]string{"idle", "loading", "active", "validating", "submitting", "completed", "failed"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// allowed lists the legal transitions. Self-transitions on Active are
// navigation and answer selection; Loading to Loading is a superseding
// load request.
var allowed = map[Phase][]Phase{
	PhaseIdle:       {PhaseLoading},
	PhaseLoading:    {PhaseLoading, PhaseActive, PhaseFailed},
	PhaseActive:     {PhaseActive, PhaseValidating},
	PhaseValidating: {PhaseActive, PhaseSubmitting},
	PhaseSubmitting: {PhaseActive, PhaseCompleted},
	PhaseCompleted:  {PhaseActive},
	PhaseFailed:     nil,
}

func canTransition(from, to Phase) bool {
	for _, p := range allowed[from] {
		if p == to {
			return true
		}
	}
	return false
}

// state is one variant per phase. Each variant carries exactly the data
// that phase owns, so e.g. a completed state without a result cannot be
// built.
type state interface {
	phase() Phase
}

type idleState struct{}

type loadingState struct {
	quizID string
	token  Token
}

type activeState struct {
	attempt *attempt
}

type validatingState struct {
	attempt *attempt
}

type submittingState struct {
	attempt *attempt
	token   Token
}

type completedState struct {
	quizID    string
	quiz      *quiz.Quiz
	result    *quiz.Result
	breakdown *results.Breakdown
}

type failedState struct {
	quizID string
	err    error
}

func (idleState) phase() Phase       { return PhaseIdle }
func (loadingState) phase() Phase    { return PhaseLoading }
func (activeState) phase() Phase     { return PhaseActive }
func (validatingState) phase() Phase { return PhaseValidating }
func (submittingState) phase() Phase { return PhaseSubmitting }
func (completedState) phase() Phase  { return PhaseCompleted }
func (failedState) phase() Phase     { return PhaseFailed }

// attempt is the user's in-progress work on a loaded quiz. It survives a
// failed submission unchanged.
type attempt struct {
	quizID    string
	quiz      *quiz.Quiz
	ledger    *Ledger
	pointer   int
	startedAt time.Time
	restored  bool
}

func newAttempt(quizID string, q *quiz.Quiz, now time.Time) *attempt {
	return &attempt{
		quizID:    quizID,
		quiz:      q,
		ledger:    NewLedger(),
		startedAt: now,
	}
}

// ordinal is the 1-based number of the current question.
func (a *attempt) ordinal() int {
	return a.pointer + 1
}

func (a *attempt) current() quiz.Question {
	q, _ := a.quiz.Question(a.ordinal())
	return q
}

// Token identifies one load or submit request. Completions carrying an
// older token are ignored.
type Token uint64

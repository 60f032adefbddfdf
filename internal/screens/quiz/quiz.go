// Package quiz is the screen a quiz is taken on: it drives a
// session.Machine from key presses and renders each phase.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "charm.land/bubbletea/v2"

	qz "github.com/abhisek/kbquiz/internal/quiz"
	"github.com/abhisek/kbquiz/internal/router"
	"github.com/abhisek/kbquiz/internal/screen"
	"github.com/abhisek/kbquiz/internal/session"
	"github.com/abhisek/kbquiz/internal/ui/components"
	"github.com/abhisek/kbquiz/internal/ui/layout"
)

// RequestTimeout bounds each fetch and submission.
const RequestTimeout = 30 * time.Second

// Screen implements screen.Screen for one quiz session.
type Screen struct {
	machine *session.Machine
	source  qz.Source
	quizID  string
	logger  *slog.Logger

	choice        components.MultiChoice
	showResumed   bool
	resultsOffset int
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.StatusProvider = (*Screen)(nil)
var _ screen.Closer = (*Screen)(nil)

// New returns a screen that loads quizID from source into m.
func New(m *session.Machine, source qz.Source, quizID string, logger *slog.Logger) *Screen {
	if logger == nil {
		logger = slog.Default()
	}
	return &Screen{machine: m, source: source, quizID: quizID, logger: logger}
}

// Machine exposes the session for tests and the app shell.
func (s *Screen) Machine() *session.Machine { return s.machine }

func (s *Screen) Init() tea.Cmd {
	if s.machine.Phase() != session.PhaseIdle {
		return nil
	}
	return s.load()
}

func (s *Screen) Title() string {
	if q := s.machine.Quiz(); q != nil && q.Title != "" {
		return q.Title
	}
	return "Quiz"
}

// Close stops progress writes once the screen is gone.
func (s *Screen) Close() {
	s.machine.Close()
}

func (s *Screen) Status() string {
	q := s.machine.Quiz()
	if q == nil {
		return ""
	}
	switch s.machine.Phase() {
	case session.PhaseCompleted:
		if b := s.machine.Breakdown(); b != nil {
			return fmt.Sprintf("%d/%d correct", b.Correct, b.Total)
		}
		return ""
	case session.PhaseFailed, session.PhaseIdle, session.PhaseLoading:
		return ""
	}
	return fmt.Sprintf("Q %d/%d  ·  %d answered", s.machine.Pointer()+1, q.Len(), s.machine.Answered())
}

func (s *Screen) KeyHints() []layout.KeyHint {
	switch s.machine.Phase() {
	case session.PhaseActive:
		return []layout.KeyHint{
			{Key: "A-D", Description: "Answer"},
			{Key: "←/p", Description: "Prev"},
			{Key: "→/n", Description: "Next"},
			{Key: "s", Description: "Submit"},
			{Key: "Esc", Description: "Leave"},
		}
	case session.PhaseCompleted:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Scroll"},
			{Key: "r", Description: "Retry"},
			{Key: "Enter", Description: "Done"},
		}
	case session.PhaseFailed:
		return []layout.KeyHint{{Key: "any key", Description: "Back"}}
	}
	return []layout.KeyHint{{Key: "Esc", Description: "Cancel"}}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case quizLoadedMsg:
		return s.handleLoaded(msg)
	case submittedMsg:
		return s.handleSubmitted(msg)
	case signalTickMsg:
		return s.handleSignalTick()
	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *Screen) load() tea.Cmd {
	tok, err := s.machine.BeginLoad(s.quizID)
	if err != nil {
		s.logger.Error("begin load", "quiz_id", s.quizID, "error", err)
		return nil
	}
	source, quizID := s.source, s.quizID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		q, err := source.Fetch(ctx, quizID)
		return quizLoadedMsg{Token: tok, Quiz: q, Err: err}
	}
}

func (s *Screen) handleLoaded(msg quizLoadedMsg) (screen.Screen, tea.Cmd) {
	if err := s.machine.CompleteLoad(context.Background(), msg.Token, msg.Quiz, msg.Err); err != nil {
		if !errors.Is(err, session.ErrStale) {
			s.logger.Error("complete load", "quiz_id", s.quizID, "error", err)
		}
		return s, nil
	}
	if s.machine.Phase() == session.PhaseActive {
		s.showResumed = s.machine.Restored()
		s.syncChoice()
	}
	return s, nil
}

func (s *Screen) submit() tea.Cmd {
	req, err := s.machine.BeginSubmit()
	if err != nil {
		if errors.Is(err, session.ErrIncomplete) {
			return signalTick()
		}
		return nil
	}
	source := s.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		res, err := source.Submit(ctx, req.QuizID, req.Answers)
		return submittedMsg{Token: req.Token, Result: res, Err: err}
	}
}

func (s *Screen) handleSubmitted(msg submittedMsg) (screen.Screen, tea.Cmd) {
	if err := s.machine.CompleteSubmit(context.Background(), msg.Token, msg.Result, msg.Err); err != nil {
		if !errors.Is(err, session.ErrStale) {
			s.logger.Error("complete submit", "quiz_id", s.quizID, "error", err)
		}
		return s, nil
	}
	s.resultsOffset = 0
	s.syncChoice()
	return s, nil
}

func (s *Screen) handleSignalTick() (screen.Screen, tea.Cmd) {
	s.machine.ExpireSignal()
	if s.machine.Signal().Transient() {
		return s, signalTick()
	}
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch s.machine.Phase() {
	case session.PhaseFailed:
		return s, pop
	case session.PhaseActive:
		return s.handleActiveKey(msg)
	case session.PhaseCompleted:
		return s.handleResultsKey(msg)
	}
	// Loading and submitting ignore input.
	return s, nil
}

func (s *Screen) handleActiveKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	ctx := context.Background()
	s.showResumed = false

	switch msg.String() {
	case "right", "n", "tab":
		if err := s.machine.Next(ctx); errors.Is(err, session.ErrUnanswered) {
			return s, signalTick()
		} else if err != nil {
			s.logger.Debug("next refused", "error", err)
		}
		s.syncChoice()
		return s, nil
	case "left", "p", "shift+tab":
		if err := s.machine.Previous(ctx); err != nil {
			s.logger.Debug("previous refused", "error", err)
		}
		s.syncChoice()
		return s, nil
	case "s":
		return s, s.submit()
	}

	var pick string
	s.choice, pick = s.choice.Update(msg)
	if pick == "" {
		return s, nil
	}
	if err := s.machine.Select(ctx, pick); err != nil {
		s.logger.Debug("select refused", "choice", pick, "error", err)
	}
	s.syncChoice()
	return s, nil
}

func (s *Screen) handleResultsKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "r":
		if err := s.machine.Retry(); err != nil {
			s.logger.Error("retry", "error", err)
			return s, nil
		}
		s.syncChoice()
	case "up", "k":
		s.resultsOffset = max(s.resultsOffset-1, 0)
	case "down", "j":
		s.resultsOffset++
	case "enter", "q":
		return s, pop
	}
	return s, nil
}

// syncChoice rebuilds the option list for the current question, keeping
// the cursor when the question is unchanged.
func (s *Screen) syncChoice() {
	q, ok := s.machine.Current()
	if !ok {
		return
	}
	chosen, _ := s.machine.Answer(s.machine.Pointer() + 1)
	next := components.NewMultiChoice(q, chosen)
	if next.Prompt == s.choice.Prompt && chosen == "" && s.choice.Cursor < len(next.Options) {
		next.Cursor = s.choice.Cursor
	}
	s.choice = next
}

func (s *Screen) View(width, height int) string {
	switch s.machine.Phase() {
	case session.PhaseIdle, session.PhaseLoading:
		return renderLoading(width, "Loading quiz...")
	case session.PhaseFailed:
		return renderError(width, s.machine.QuizID(), s.machine.Err())
	case session.PhaseCompleted:
		return renderResults(s.machine.Breakdown(), width, height, &s.resultsOffset)
	}
	return s.renderQuestion(width)
}

func signalTick() tea.Cmd {
	return tea.Tick(session.SignalWindow, func(t time.Time) tea.Msg {
		return signalTickMsg(t)
	})
}

func pop() tea.Msg { return router.PopScreenMsg{} }

package quiz

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/kbquiz/internal/localquiz"
	"github.com/abhisek/kbquiz/internal/progress"
	qz "github.com/abhisek/kbquiz/internal/quiz"
	"github.com/abhisek/kbquiz/internal/router"
	"github.com/abhisek/kbquiz/internal/screen"
	"github.com/abhisek/kbquiz/internal/session"
	"github.com/abhisek/kbquiz/internal/store"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func securityDoc() *localquiz.Document {
	return &localquiz.Document{
		ID:    "security-101",
		Title: "Security basics",
		Questions: []localquiz.Item{
			{Question: "Where do you report phishing?", Options: []string{"Reply to sender", "security@", "Ignore it"}, Answer: "B"},
			{Question: "Minimum password length?", Options: []string{"8", "12", "16", "20"}, Answer: "C"},
			{Question: "Is MFA required for VPN?", Options: []string{"Yes", "No"}, Answer: "A", Explanation: "Always."},
		},
	}
}

// failingSubmitter fetches normally and rejects every submission.
type failingSubmitter struct {
	qz.Source
	err error
}

func (f failingSubmitter) Submit(context.Context, string, map[int]string) (*qz.Result, error) {
	return nil, f.err
}

type harness struct {
	screen *Screen
	kv     *store.Memory
}

func newHarness(t *testing.T, src qz.Source) *harness {
	t.Helper()
	kv := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := progress.NewAdapter(kv, progress.WithLogger(logger))
	m := session.New(adapter, session.WithLogger(logger))
	return &harness{screen: New(m, src, "security-101", logger), kv: kv}
}

// run executes cmd and feeds its message back, as the runtime would.
// Timer commands are not run.
func (h *harness) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	switch msg.(type) {
	case quizLoadedMsg, submittedMsg:
		_, next := h.screen.Update(msg)
		h.run(t, next)
	}
}

func (h *harness) press(t *testing.T, msgs ...tea.Msg) tea.Cmd {
	t.Helper()
	var last tea.Cmd
	for _, msg := range msgs {
		var scr screen.Screen
		scr, last = h.screen.Update(msg)
		h.screen = scr.(*Screen)
	}
	return last
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	h.run(t, h.screen.Init())
	if got := h.screen.Machine().Phase(); got != session.PhaseActive {
		t.Fatalf("phase after load = %s, want active", got)
	}
}

func TestScreen_LoadAndRender(t *testing.T) {
	h := newHarness(t, localquiz.NewLibrary(securityDoc()))

	if !strings.Contains(h.screen.View(80, 24), "Loading quiz") {
		t.Error("expected loading view before Init")
	}
	h.start(t)

	view := h.screen.View(80, 24)
	if !strings.Contains(view, "Where do you report phishing?") {
		t.Errorf("question prompt missing:\n%s", view)
	}
	if h.screen.Title() != "Security basics" {
		t.Errorf("Title = %q", h.screen.Title())
	}
	if got := h.screen.Status(); got != "Q 1/3  ·  0 answered" {
		t.Errorf("Status = %q", got)
	}
}

func TestScreen_AnswerAndNavigate(t *testing.T) {
	h := newHarness(t, localquiz.NewLibrary(securityDoc()))
	h.start(t)

	h.press(t, keyPress('b'), keyPress('n'))

	m := h.screen.Machine()
	if got, _ := m.Answer(1); got != "B" {
		t.Errorf("answer 1 = %q, want B", got)
	}
	if m.Pointer() != 1 {
		t.Errorf("Pointer = %d, want 1", m.Pointer())
	}

	h.press(t, specialKey(tea.KeyLeft))
	if m.Pointer() != 0 {
		t.Errorf("Pointer after left = %d, want 0", m.Pointer())
	}
	if !strings.Contains(h.screen.View(80, 24), "(•) B)") {
		t.Error("recorded answer not marked after navigating back")
	}

	if _, err := h.kv.Get(context.Background(), progress.Key("security-101")); err != nil {
		t.Errorf("progress not written through: %v", err)
	}
}

func TestScreen_NextUnansweredShowsSignal(t *testing.T) {
	h := newHarness(t, localquiz.NewLibrary(securityDoc()))
	h.start(t)

	cmd := h.press(t, keyPress('n'))
	if cmd == nil {
		t.Error("expected a signal tick command")
	}
	if h.screen.Machine().Pointer() != 0 {
		t.Error("moved past an unanswered question")
	}
	if !strings.Contains(h.screen.View(80, 24), "Please select an answer") {
		t.Error("unanswered signal not rendered")
	}
}

func TestScreen_SubmitIncomplete(t *testing.T) {
	h := newHarness(t, localquiz.NewLibrary(securityDoc()))
	h.start(t)

	h.press(t, keyPress('a'))
	cmd := h.press(t, keyPress('s'))

	if cmd == nil {
		t.Error("expected a signal tick command")
	}
	if h.screen.Machine().Phase() != session.PhaseActive {
		t.Errorf("phase = %s, want active", h.screen.Machine().Phase())
	}
	if !strings.Contains(h.screen.View(80, 24), "Please answer all questions") {
		t.Error("incomplete signal not rendered")
	}
}

func answerAll(t *testing.T, h *harness, labels ...rune) {
	t.Helper()
	for i, l := range labels {
		h.press(t, keyPress(l))
		if i < len(labels)-1 {
			h.press(t, keyPress('n'))
		}
	}
}

func TestScreen_SubmitAndRetry(t *testing.T) {
	h := newHarness(t, localquiz.NewLibrary(securityDoc()))
	h.start(t)

	answerAll(t, h, 'b', 'a', 'a')
	h.run(t, h.press(t, keyPress('s')))

	m := h.screen.Machine()
	if m.Phase() != session.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", m.Phase())
	}
	view := h.screen.View(80, 40)
	for _, want := range []string{"2/3 correct (67%)", "Not passed", "Correct: C) 16"} {
		if !strings.Contains(view, want) {
			t.Errorf("results view missing %q:\n%s", want, view)
		}
	}
	if got := h.screen.Status(); got != "2/3 correct" {
		t.Errorf("Status = %q", got)
	}
	if _, err := h.kv.Get(context.Background(), progress.Key("security-101")); err != store.ErrNotFound {
		t.Errorf("progress not cleared after submit: %v", err)
	}

	h.press(t, keyPress('r'))
	if m.Phase() != session.PhaseActive || m.Answered() != 0 || m.Pointer() != 0 {
		t.Errorf("after retry: phase %s, answered %d, pointer %d", m.Phase(), m.Answered(), m.Pointer())
	}
}

func TestScreen_SubmitFailureKeepsAnswers(t *testing.T) {
	src := failingSubmitter{
		Source: localquiz.NewLibrary(securityDoc()),
		err:    &qz.APIError{Op: "submit", Status: 401, Kind: qz.ErrUnauthorized},
	}
	h := newHarness(t, src)
	h.start(t)

	answerAll(t, h, 'b', 'c', 'a')
	h.run(t, h.press(t, keyPress('s')))

	m := h.screen.Machine()
	if m.Phase() != session.PhaseActive {
		t.Fatalf("phase = %s, want active", m.Phase())
	}
	if m.Answered() != 3 || m.Pointer() != 2 {
		t.Errorf("answered %d pointer %d, want 3 and 2", m.Answered(), m.Pointer())
	}
	if !strings.Contains(h.screen.View(80, 24), "Your session has expired") {
		t.Error("submit failure message not rendered")
	}
}

func TestScreen_LoadFailure(t *testing.T) {
	h := newHarness(t, localquiz.NewLibrary())
	h.run(t, h.screen.Init())

	if h.screen.Machine().Phase() != session.PhaseFailed {
		t.Fatalf("phase = %s, want failed", h.screen.Machine().Phase())
	}
	if !strings.Contains(h.screen.View(80, 24), "Quiz not found.") {
		t.Errorf("error view missing message:\n%s", h.screen.View(80, 24))
	}

	cmd := h.press(t, keyPress('x'))
	if cmd == nil {
		t.Fatal("expected a command on key press")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("any key should return to the previous screen")
	}
}

func TestScreen_ResumesSavedProgress(t *testing.T) {
	h := newHarness(t, localquiz.NewLibrary(securityDoc()))
	adapter := progress.NewAdapter(h.kv)
	adapter.Save(context.Background(), "security-101", progress.Record{
		CurrentQuestion: 1,
		Answers:         map[int]string{1: "B"},
		StartTime:       time.Now().Add(-time.Hour).UnixMilli(),
		SavedAt:         time.Now().Add(-time.Hour).UnixMilli(),
	})

	h.start(t)

	if h.screen.Machine().Pointer() != 1 {
		t.Errorf("Pointer = %d, want 1", h.screen.Machine().Pointer())
	}
	if !strings.Contains(h.screen.View(80, 24), "Resumed where you left off") {
		t.Error("resume notice missing")
	}
}

func TestScreen_CloseStopsWrites(t *testing.T) {
	h := newHarness(t, localquiz.NewLibrary(securityDoc()))
	h.start(t)

	h.screen.Close()
	h.press(t, keyPress('a'))

	if _, err := h.kv.Get(context.Background(), progress.Key("security-101")); err != store.ErrNotFound {
		t.Errorf("write after Close: %v", err)
	}
}

func TestScreen_KeyHintsPerPhase(t *testing.T) {
	h := newHarness(t, localquiz.NewLibrary(securityDoc()))
	if len(h.screen.KeyHints()) == 0 {
		t.Error("no hints while loading")
	}
	h.start(t)
	if hints := h.screen.KeyHints(); hints[0].Key != "A-D" {
		t.Errorf("active hints = %v", hints)
	}
}

func TestScreen_RefusedNavigationIsLogged(t *testing.T) {
	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := session.New(nil, session.WithLogger(logger))
	s := New(m, localquiz.NewLibrary(securityDoc()), "security-101", logger)

	// Nothing is loaded, so the machine refuses both moves.
	s.handleActiveKey(keyPress('p'))
	s.handleActiveKey(keyPress('n'))

	for _, want := range []string{"previous refused", "next refused"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log missing %q:\n%s", want, logs.String())
		}
	}
}

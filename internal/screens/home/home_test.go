package home

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/kbquiz/internal/progress"
	"github.com/abhisek/kbquiz/internal/router"
	"github.com/abhisek/kbquiz/internal/screen"
)

type fakeSaved []progress.Saved

func (f fakeSaved) List(context.Context) []progress.Saved { return f }

type fakeCatalog []string

func (f fakeCatalog) IDs() []string { return f }

type stubScreen struct{ id string }

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.id }
func (s *stubScreen) Title() string                           { return s.id }

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func saved(id string, age time.Duration, answers int) progress.Saved {
	rec := progress.Record{Answers: map[int]string{}, SavedAt: now.Add(-age).UnixMilli()}
	for i := 1; i <= answers; i++ {
		rec.Answers[i] = "A"
	}
	return progress.Saved{QuizID: id, Record: rec}
}

func TestCollectEntries(t *testing.T) {
	list := fakeSaved{
		saved("old", 8*24*time.Hour, 1),
		saved("recent", time.Hour, 2),
		saved("older", 3*time.Hour, 1),
	}
	entries := collectEntries(list, fakeCatalog{"older", "catalog-only"}, now)

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.quizID)
	}
	want := []string{"recent", "older", "catalog-only"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("entries = %v, want %v", ids, want)
	}
	if entries[0].detail != "2 answered, saved 1 hour ago" {
		t.Errorf("detail = %q", entries[0].detail)
	}
	if entries[2].detail != "offline" {
		t.Errorf("catalog detail = %q", entries[2].detail)
	}
}

func TestCollectEntries_NilSources(t *testing.T) {
	if got := collectEntries(nil, nil, now); len(got) != 0 {
		t.Errorf("entries = %v, want none", got)
	}
}

func newTestHome(started *string) *HomeScreen {
	return New(Options{
		Saved:   fakeSaved{saved("resume-me", time.Hour, 1)},
		Catalog: fakeCatalog{"handbook"},
		Now:     func() time.Time { return now },
		Start: func(id string) screen.Screen {
			*started = id
			return &stubScreen{id: id}
		},
	})
}

func loadEntries(t *testing.T, h *HomeScreen) {
	t.Helper()
	msg := h.refresh()()
	h.Update(msg)
}

func TestHome_StartFromInput(t *testing.T) {
	var started string
	h := newTestHome(&started)

	for _, r := range "  vpn-101 " {
		h.Update(keyPress(r))
	}
	_, cmd := h.Update(specialKey(tea.KeyEnter))

	if started != "vpn-101" {
		t.Errorf("started %q, want vpn-101", started)
	}
	if cmd == nil {
		t.Fatal("expected a push command")
	}
	push, ok := cmd().(router.PushScreenMsg)
	if !ok || push.Screen.Title() != "vpn-101" {
		t.Errorf("cmd produced %#v", push)
	}
}

func TestHome_EmptyInputDoesNothing(t *testing.T) {
	var started string
	h := newTestHome(&started)

	if _, cmd := h.Update(specialKey(tea.KeyEnter)); cmd != nil || started != "" {
		t.Error("empty input should not start a quiz")
	}
}

func TestHome_StartFromMenu(t *testing.T) {
	var started string
	h := newTestHome(&started)
	loadEntries(t, h)

	h.Update(specialKey(tea.KeyTab))
	h.Update(specialKey(tea.KeyDown))
	_, cmd := h.Update(specialKey(tea.KeyEnter))

	if started != "handbook" {
		t.Errorf("started %q, want handbook", started)
	}
	if cmd == nil {
		t.Error("expected a push command")
	}
	view := h.View(100, 30)
	if !strings.Contains(view, "resume-me") || !strings.Contains(view, "1 answered") {
		t.Errorf("saved quiz missing from view:\n%s", view)
	}
}

func TestHome_TabStaysOnInputWithoutEntries(t *testing.T) {
	h := New(Options{Start: func(id string) screen.Screen { return &stubScreen{id: id} }})
	loadEntries(t, h)

	h.Update(specialKey(tea.KeyTab))
	if h.focus != focusInput {
		t.Error("focus moved to an empty menu")
	}
}

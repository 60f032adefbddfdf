package app

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/kbquiz/internal/localquiz"
	"github.com/abhisek/kbquiz/internal/progress"
	"github.com/abhisek/kbquiz/internal/router"
	"github.com/abhisek/kbquiz/internal/store"
)

func testLibrary() *localquiz.Library {
	return localquiz.NewLibrary(&localquiz.Document{
		ID:    "onboarding",
		Title: "Onboarding",
		Questions: []localquiz.Item{
			{Question: "Where is the handbook?", Options: []string{"Wiki", "Drive"}, Answer: "A"},
		},
	})
}

func TestNewAppModel_StartsOnHome(t *testing.T) {
	m := newAppModel(Options{Source: testLibrary(), Catalog: testLibrary()})

	if m.router.Depth() != 1 {
		t.Errorf("Depth = %d, want 1", m.router.Depth())
	}
	if m.router.Active().Title() != "Home" {
		t.Errorf("Active = %q, want Home", m.router.Active().Title())
	}
}

func TestNewAppModel_OpensQuizDirectly(t *testing.T) {
	lib := testLibrary()
	m := newAppModel(Options{
		Source:   lib,
		Progress: progress.NewAdapter(store.NewMemory()),
		QuizID:   "onboarding",
	})

	if m.router.Depth() != 2 {
		t.Fatalf("Depth = %d, want 2", m.router.Depth())
	}
	if m.Init() == nil {
		t.Error("expected start commands")
	}
}

func TestAppModel_EscPopsOnlyAboveHome(t *testing.T) {
	m := newAppModel(Options{Source: testLibrary(), QuizID: "onboarding"})

	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("expected a pop command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("esc above home should pop")
	}

	m.router.Pop()
	if _, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape}); cmd != nil {
		t.Error("esc on home should do nothing")
	}
}

func TestAppModel_KeyHints(t *testing.T) {
	m := newAppModel(Options{Source: testLibrary(), QuizID: "onboarding"})

	// The quiz screen supplies its own hints while loading.
	hints := m.keyHints(m.router.Active())
	if len(hints) == 0 || hints[0].Key != "Esc" {
		t.Errorf("quiz hints = %v", hints)
	}

	m.router.Pop()
	hints = m.keyHints(m.router.Active())
	if len(hints) == 0 || hints[0].Key != "Enter" {
		t.Errorf("home hints = %v", hints)
	}
}

func TestAppModel_ViewBeforeSize(t *testing.T) {
	var model tea.Model = newAppModel(Options{Source: testLibrary()})
	model.View()

	model, _ = model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	if am := model.(AppModel); am.width != 100 || am.height != 30 {
		t.Errorf("size = %dx%d, want 100x30", am.width, am.height)
	}
	model.View()
}

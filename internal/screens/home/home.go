// Package home is the start screen: enter a quiz ID or pick a saved or
// available quiz.
package home

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/dustin/go-humanize"

	"github.com/abhisek/kbquiz/internal/progress"
	"github.com/abhisek/kbquiz/internal/router"
	"github.com/abhisek/kbquiz/internal/screen"
	"github.com/abhisek/kbquiz/internal/ui/components"
	"github.com/abhisek/kbquiz/internal/ui/layout"
	"github.com/abhisek/kbquiz/internal/ui/theme"
)

// SavedLister lists resumable progress. *progress.Adapter implements it.
type SavedLister interface {
	List(ctx context.Context) []progress.Saved
}

// Catalog lists quizzes available offline. *localquiz.Library implements it.
type Catalog interface {
	IDs() []string
}

// Options wires the home screen.
type Options struct {
	Saved   SavedLister // may be nil
	Catalog Catalog     // may be nil
	Start   func(quizID string) screen.Screen
	Now     func() time.Time
}

type focus int

const (
	focusInput focus = iota
	focusMenu
)

// entriesMsg carries the refreshed quiz list.
type entriesMsg struct {
	entries []entry
}

type entry struct {
	quizID string
	detail string
}

// HomeScreen is the start screen.
type HomeScreen struct {
	opts  Options
	input components.TextInput
	menu  components.Menu
	focus focus
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)

func New(opts Options) *HomeScreen {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	menu := components.NewMenu(nil)
	menu.Empty = "No saved or offline quizzes."
	return &HomeScreen{
		opts:  opts,
		input: components.NewTextInput("quiz id, e.g. onboarding-security", 128),
		menu:  menu,
	}
}

// Init refreshes the list; the router calls it again when the user
// returns from a quiz.
func (h *HomeScreen) Init() tea.Cmd {
	return tea.Batch(h.input.Init(), h.refresh())
}

func (h *HomeScreen) Title() string { return "Home" }

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	if h.focus == focusMenu {
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Choose"},
			{Key: "Enter", Description: "Start"},
			{Key: "Tab", Description: "Type an ID"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Start"},
		{Key: "Tab", Description: "Saved quizzes"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (h *HomeScreen) refresh() tea.Cmd {
	saved, catalog, now := h.opts.Saved, h.opts.Catalog, h.opts.Now
	return func() tea.Msg {
		return entriesMsg{entries: collectEntries(saved, catalog, now())}
	}
}

// collectEntries lists fresh saved sessions, most recent first, followed
// by catalog quizzes without saved progress.
func collectEntries(saved SavedLister, catalog Catalog, now time.Time) []entry {
	var out []entry
	seen := map[string]bool{}
	if saved != nil {
		list := saved.List(context.Background())
		slices.SortFunc(list, func(a, b progress.Saved) int {
			return int(b.Record.SavedAt - a.Record.SavedAt)
		})
		for _, s := range list {
			if !progress.IsFresh(s.Record, now) {
				continue
			}
			seen[s.QuizID] = true
			out = append(out, entry{
				quizID: s.QuizID,
				detail: fmt.Sprintf("%d answered, saved %s", len(s.Record.Answers),
					humanize.RelTime(time.UnixMilli(s.Record.SavedAt), now, "ago", "from now")),
			})
		}
	}
	if catalog != nil {
		for _, id := range catalog.IDs() {
			if !seen[id] {
				out = append(out, entry{quizID: id, detail: "offline"})
			}
		}
	}
	return out
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case entriesMsg:
		h.setEntries(msg.entries)
		return h, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab":
			return h, h.toggleFocus()
		case "enter":
			if h.focus == focusInput {
				return h, h.start(h.input.Value())
			}
		}
	}

	var cmd tea.Cmd
	if h.focus == focusMenu {
		h.menu, cmd = h.menu.Update(msg)
	} else {
		h.input, cmd = h.input.Update(msg)
	}
	return h, cmd
}

func (h *HomeScreen) setEntries(entries []entry) {
	items := make([]components.MenuItem, len(entries))
	for i, e := range entries {
		id := e.quizID
		items[i] = components.MenuItem{
			Label:  id,
			Detail: e.detail,
			Action: func() tea.Cmd { return h.start(id) },
		}
	}
	h.menu.Items = items
	h.menu.Selected = min(h.menu.Selected, max(len(items)-1, 0))
}

func (h *HomeScreen) toggleFocus() tea.Cmd {
	if h.focus == focusInput && len(h.menu.Items) > 0 {
		h.focus = focusMenu
		h.input.Blur()
		return nil
	}
	h.focus = focusInput
	return h.input.Focus()
}

func (h *HomeScreen) start(quizID string) tea.Cmd {
	quizID = strings.TrimSpace(quizID)
	if quizID == "" || h.opts.Start == nil {
		return nil
	}
	h.input.Reset()
	next := h.opts.Start(quizID)
	return func() tea.Msg { return router.PushScreenMsg{Screen: next} }
}

func (h *HomeScreen) View(width, height int) string {
	cw := min(width-4, 72)
	box := lipgloss.NewStyle().Width(cw)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Centered(theme.Title, width, "Knowledge check"))
	b.WriteString("\n")
	b.WriteString(theme.Centered(theme.Subtitle, width, "Take a quiz on internal docs and policies"))
	b.WriteString("\n\n")

	label := theme.Subtitle
	if h.focus == focusInput {
		label = theme.Selected
	}
	b.WriteString(center(width, box.Render(label.Render("Quiz ID")+"\n"+h.input.View())))
	b.WriteString("\n\n")

	label = theme.Subtitle
	if h.focus == focusMenu {
		label = theme.Selected
	}
	b.WriteString(center(width, box.Render(label.Render("Resume or pick")+"\n"+h.menu.View())))
	return b.String()
}

func center(width int, block string) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, block)
}

// Package app is the Bubble Tea shell: it frames the active screen with
// a header and footer and routes navigation.
package app

import (
	"fmt"
	"log/slog"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/kbquiz/internal/progress"
	"github.com/abhisek/kbquiz/internal/quiz"
	"github.com/abhisek/kbquiz/internal/router"
	"github.com/abhisek/kbquiz/internal/screen"
	"github.com/abhisek/kbquiz/internal/screens/home"
	quizscreen "github.com/abhisek/kbquiz/internal/screens/quiz"
	"github.com/abhisek/kbquiz/internal/session"
	"github.com/abhisek/kbquiz/internal/ui/layout"
)

// Options holds the dependencies the screens need.
type Options struct {
	Source   quiz.Source
	Progress *progress.Adapter // nil disables resume
	Catalog  home.Catalog      // nil when quizzes come from the backend
	Logger   *slog.Logger

	// QuizID, when set, opens that quiz straight away.
	QuizID string
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	start  tea.Cmd
	width  int
	height int
}

func newAppModel(opts Options) AppModel {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	startQuiz := func(quizID string) screen.Screen {
		var p session.Persistence
		if opts.Progress != nil {
			p = opts.Progress
		}
		m := session.New(p, session.WithLogger(opts.Logger))
		return quizscreen.New(m, opts.Source, quizID, opts.Logger)
	}

	homeOpts := home.Options{Catalog: opts.Catalog, Start: startQuiz}
	if opts.Progress != nil {
		homeOpts.Saved = opts.Progress
	}
	r := router.New(home.New(homeOpts))

	start := r.Active().Init()
	if opts.QuizID != "" {
		start = tea.Batch(start, r.Push(startQuiz(opts.QuizID)))
	}
	return AppModel{router: r, start: start}
}

func (m AppModel) Init() tea.Cmd {
	return m.start
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	var title, status string
	if active != nil {
		title = active.Title()
		if sp, ok := active.(screen.StatusProvider); ok {
			status = sp.Status()
		}
	}
	header := layout.RenderHeader(title, status, m.width)
	footer := layout.RenderFooter(m.keyHints(active), m.width)

	content := m.router.View(m.width, layout.ContentHeight(m.height, header, footer))
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

func (m AppModel) keyHints(active screen.Screen) []layout.KeyHint {
	if hp, ok := active.(screen.KeyHintProvider); ok {
		if hints := hp.KeyHints(); len(hints) > 0 {
			return hints
		}
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	model := newAppModel(opts)
	defer model.router.CloseAll()

	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}

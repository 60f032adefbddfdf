package components

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/kbquiz/internal/ui/theme"
)

// MenuItem is one selectable row.
type MenuItem struct {
	Label  string
	Detail string // dimmed text after the label
	Action func() tea.Cmd
}

// Menu is a vertical list with a cursor.
type Menu struct {
	Items    []MenuItem
	Selected int
	Empty    string // shown when there are no items
}

func NewMenu(items []MenuItem) Menu {
	return Menu{Items: items}
}

// Update moves the cursor and runs the selected item's action on Enter.
func (m Menu) Update(msg tea.Msg) (Menu, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || len(m.Items) == 0 {
		return m, nil
	}

	switch kmsg.String() {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Items)-1 {
			m.Selected++
		}
	case "enter":
		if item := m.Items[m.Selected]; item.Action != nil {
			return m, item.Action()
		}
	}
	return m, nil
}

func (m Menu) View() string {
	if len(m.Items) == 0 {
		return theme.Hint.Render("    " + m.Empty)
	}
	var s string
	for i, item := range m.Items {
		style, prefix := theme.Unselected, "    "
		if i == m.Selected {
			style, prefix = theme.Selected, "  ▸ "
		}
		line := style.Render(prefix + item.Label)
		if item.Detail != "" {
			line += lipgloss.NewStyle().Foreground(theme.TextDim).Render("  " + item.Detail)
		}
		s += line + "\n"
	}
	return s
}

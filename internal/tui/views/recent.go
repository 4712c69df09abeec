package views

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/bioconnect/internal/model"
	"github.com/rendis/bioconnect/internal/tui/styles"
)

// RecentSearch is one entry of the search history.
type RecentSearch struct {
	Query      string
	Filters    model.FilterSet
	SearchedAt time.Time
}

// SearchStarted is sent when a session starts so the history can record it.
type SearchStarted struct {
	Search RecentSearch
}

// NavigateToRecent opens the search history.
type NavigateToRecent struct{}

// RerunSearch opens the search screen on a past query and filter set.
type RerunSearch struct {
	Search RecentSearch
}

type RecentModel struct {
	entries []RecentSearch
	cursor  int
	now     func() time.Time
}

func NewRecentModel(entries []RecentSearch) RecentModel {
	return RecentModel{entries: entries, now: time.Now}
}

func (m RecentModel) Init() tea.Cmd {
	return nil
}

func (m RecentModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.entries) {
				return m, navigate(RerunSearch{Search: m.entries[m.cursor]})
			}
		case "esc", "q":
			return m, navigate(NavigateToHome{})
		}
	}
	return m, nil
}

func (m RecentModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Recherches récentes"))
	b.WriteString("\n")

	if len(m.entries) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("Aucune recherche récente"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc retour"))
		return styles.Border.Render(b.String())
	}

	for i, e := range m.entries {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		query := e.Query
		if query == "" {
			query = "(tous les opérateurs)"
		}
		detail := timeAgo(m.now().Sub(e.SearchedAt))
		if e.Filters.Len() > 0 {
			labels := make([]string, 0, e.Filters.Len())
			for _, f := range e.Filters.Sorted() {
				labels = append(labels, f.Label())
			}
			detail = strings.Join(labels, ", ") + "  " + detail
		}

		b.WriteString(fmt.Sprintf("%s%s\n%s\n", cursor, style.Render(query),
			lipgloss.NewStyle().Foreground(styles.Muted).Render("  "+detail)))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("entrée relancer • esc retour"))

	return styles.Border.Render(b.String())
}

func timeAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "à l'instant"
	case d < time.Hour:
		return fmt.Sprintf("il y a %d min", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("il y a %d h", int(d.Hours()))
	default:
		return fmt.Sprintf("il y a %d j", int(d.Hours()/24))
	}
}

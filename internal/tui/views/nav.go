package views

import (
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/rendis/bioconnect/internal/model"
	"github.com/rendis/bioconnect/internal/tui/styles"
)

// Navigation messages
type NavigateToHome struct{}
type NavigateToSearch struct{}
type NavigateToFavorites struct{}
type NavigateToPreferences struct{}

// ReturnToSearch goes back to the running search without restarting it.
type ReturnToSearch struct{}

// ReturnToFavorites goes back to the favorites list.
type ReturnToFavorites struct{}

// NavigateToFilters opens the filter picker over the given active set.
type NavigateToFilters struct {
	Active model.FilterSet
}

// NavigateToDetail opens the card of one operator. Back names the view to return to.
type NavigateToDetail struct {
	Operator model.Operator
	Back     tea.Msg
}

// NavigateToMap opens the map of the current search results.
type NavigateToMap struct{}

// FiltersChosen is sent by the filter picker; Apply is false on cancel.
type FiltersChosen struct {
	Filters model.FilterSet
	Apply   bool
}

func navigate(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	return runewidth.Truncate(s, max, "…")
}

func focusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.Primary).
		Bold(true)
	return s
}

func unfocusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Muted)
	s.Selected = s.Selected.
		Foreground(styles.Text).
		Background(lipgloss.Color("#333333")).
		Bold(false)
	return s
}

func favoriteMark(on bool) string {
	if on {
		return "★"
	}
	return " "
}

package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/bioconnect/internal/tui/styles"
)

type menuItem struct {
	key   string
	label string
	desc  string
	msg   tea.Msg
}

type HomeModel struct {
	items     []menuItem
	cursor    int
	version   string
	favorites int
}

func NewHomeModel(version string, favorites int) HomeModel {
	return HomeModel{
		version:   version,
		favorites: favorites,
		items: []menuItem{
			{key: "s", label: "Rechercher", desc: "Trouver des opérateurs bio", msg: NavigateToSearch{}},
			{key: "r", label: "Récentes", desc: "Relancer une recherche passée", msg: NavigateToRecent{}},
			{key: "f", label: "Favoris", desc: "Vos opérateurs enregistrés", msg: NavigateToFavorites{}},
			{key: "p", label: "Préférences", desc: "Adresse, rayon et filtres par défaut", msg: NavigateToPreferences{}},
			{key: "q", label: "Quitter", desc: "Fermer bioconnect"},
		},
	}
}

func (m HomeModel) Init() tea.Cmd {
	return nil
}

func (m HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter":
			return m, m.handleSelect()
		default:
			for i, item := range m.items {
				if item.key == key {
					m.cursor = i
					return m, m.handleSelect()
				}
			}
		}
	}
	return m, nil
}

func (m HomeModel) handleSelect() tea.Cmd {
	item := m.items[m.cursor]
	if item.msg == nil {
		return tea.Quit
	}
	return navigate(item.msg)
}

func (m HomeModel) View() string {
	var b strings.Builder

	logo := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Render("  bioconnect")

	version := lipgloss.NewStyle().
		Foreground(styles.Muted).
		Render(" " + m.version)

	tagline := lipgloss.NewStyle().
		Foreground(styles.Secondary).
		Italic(true).
		Render("  Annuaire des opérateurs bio")

	b.WriteString(logo + version + "\n")
	b.WriteString(tagline + "\n\n")

	for i, item := range m.items {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		key := lipgloss.NewStyle().
			Foreground(styles.Secondary).
			Bold(true).
			Render(fmt.Sprintf("[%s]", item.key))

		desc := item.desc
		if item.key == "f" && m.favorites > 0 {
			desc = fmt.Sprintf("%s (%d)", desc, m.favorites)
		}

		b.WriteString(fmt.Sprintf("%s%s %s%s\n", cursor, key, style.Render(item.label),
			lipgloss.NewStyle().Foreground(styles.Muted).Render(" - "+desc)))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("↑↓ naviguer • entrée choisir • q quitter"))

	return styles.Border.Render(b.String())
}

package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/bioconnect/internal/model"
	"github.com/rendis/bioconnect/internal/tui/styles"
)

// FiltersModel toggles the activity filters of the running search.
type FiltersModel struct {
	toggles  map[model.Filter]bool
	defaults model.FilterSet
	cursor   int
}

func NewFiltersModel(active, defaults model.FilterSet) FiltersModel {
	return FiltersModel{
		toggles:  active.Toggles(),
		defaults: defaults,
	}
}

func (m FiltersModel) Init() tea.Cmd {
	return nil
}

// Selected returns the filters currently switched on.
func (m FiltersModel) Selected() model.FilterSet {
	return model.FilterSetFromToggles(m.toggles)
}

func (m FiltersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(model.AllFilters)-1 {
				m.cursor++
			}
		case " ", "x":
			f := model.AllFilters[m.cursor]
			m.toggles[f] = !m.toggles[f]
		case "c":
			m.toggles = model.NewFilterSet().Toggles()
		case "d":
			m.toggles = m.defaults.Toggles()
		case "enter":
			return m, navigate(FiltersChosen{Filters: m.Selected(), Apply: true})
		case "esc":
			return m, navigate(FiltersChosen{})
		}
	}
	return m, nil
}

func (m FiltersModel) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Filtres"))
	b.WriteString("\n")

	for i, f := range model.AllFilters {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}
		box := "[ ]"
		if m.toggles[f] {
			box = lipgloss.NewStyle().Foreground(styles.Primary).Render("[x]")
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, box, style.Render(f.Label())))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("espace cocher • c tout décocher • d défauts • entrée appliquer • esc annuler"))
	return styles.Border.Render(b.String())
}

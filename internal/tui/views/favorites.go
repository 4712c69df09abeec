package views

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/bioconnect/internal/app"
	"github.com/rendis/bioconnect/internal/export"
	"github.com/rendis/bioconnect/internal/model"
	"github.com/rendis/bioconnect/internal/tui/styles"
)

type favoritesFocus int

const (
	favFocusTable favoritesFocus = iota
	favFocusFilter
)

// FavoritesModel lists pinned operators, newest first, with a text filter.
type FavoritesModel struct {
	app     *app.App
	filter  textinput.Model
	table   table.Model
	focus   favoritesFocus
	records []model.FavoriteRecord
	notice  string
	width   int
	height  int
}

func NewFavoritesModel(a *app.App) FavoritesModel {
	ti := textinput.New()
	ti.Placeholder = "filtrer..."
	ti.CharLimit = 60
	ti.Width = 40

	m := FavoritesModel{app: a, filter: ti}
	m.refresh()
	return m
}

func (m FavoritesModel) Init() tea.Cmd {
	return nil
}

func (m *FavoritesModel) refresh() {
	m.records = m.app.Favorites.Search(m.filter.Value())
	m.buildTable()
}

func (m *FavoritesModel) buildTable() {
	nameW, cityW, actW := 30, 18, 30
	if m.width > 100 {
		extra := m.width - 100
		nameW += extra / 2
		actW += extra / 2
	}

	columns := []table.Column{
		{Title: "Nom", Width: nameW},
		{Title: "Ville", Width: cityW},
		{Title: "Activités", Width: actW},
		{Title: "Ajouté le", Width: 10},
	}

	rows := make([]table.Row, len(m.records))
	for i, r := range m.records {
		rows[i] = table.Row{
			truncate(r.RaisonSociale, nameW),
			truncate(r.Ville, cityW),
			truncate(r.Activites, actW),
			r.DateAdded.Local().Format("02/01/2006"),
		}
	}

	height := m.height - 12
	if height < 5 {
		height = 5
	}

	cursor := m.table.Cursor()
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(m.focus == favFocusTable),
		table.WithHeight(height),
	)
	if m.focus == favFocusTable {
		t.SetStyles(focusedTableStyles())
	} else {
		t.SetStyles(unfocusedTableStyles())
	}
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor > 0 {
		t.SetCursor(cursor)
	}
	m.table = t
}

func (m FavoritesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.buildTable()
		return m, nil

	case tea.KeyMsg:
		key := msg.String()

		if m.focus == favFocusFilter {
			switch key {
			case "esc", "enter", "tab":
				m.focus = favFocusTable
				m.filter.Blur()
				m.buildTable()
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.refresh()
			return m, cmd
		}

		switch key {
		case "esc", "q":
			return m, navigate(NavigateToHome{})
		case "/":
			m.focus = favFocusFilter
			m.filter.Focus()
			m.buildTable()
			return m, textinput.Blink
		case "enter":
			if r, ok := m.current(); ok {
				return m, navigate(NavigateToDetail{Operator: r.Operator(), Back: ReturnToFavorites{}})
			}
			return m, nil
		case "d", "delete":
			if r, ok := m.current(); ok {
				m.app.Favorites.Remove(r.ID)
				m.notice = fmt.Sprintf("%s retiré des favoris", r.RaisonSociale)
				m.refresh()
			}
			return m, nil
		case "e":
			m.exportCSV()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m FavoritesModel) current() (model.FavoriteRecord, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.records) {
		return model.FavoriteRecord{}, false
	}
	return m.records[c], true
}

// exportCSV writes the listed favorites next to the database file.
func (m *FavoritesModel) exportCSV() {
	path := filepath.Join(filepath.Dir(m.app.Config.DBPath), "favoris.csv")

	f, err := os.Create(path)
	if err != nil {
		m.notice = fmt.Sprintf("Erreur d'export : %v", err)
		return
	}
	defer f.Close()

	if err := export.Favorites(f, export.CSV, m.records); err != nil {
		m.notice = fmt.Sprintf("Erreur d'export : %v", err)
		return
	}
	m.notice = fmt.Sprintf("%d favoris exportés vers %s", len(m.records), path)
}

func (m FavoritesModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(fmt.Sprintf("Favoris (%d)", m.app.Favorites.Len())))
	b.WriteString("\n")

	label := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == favFocusFilter {
		label = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(label.Render("Filtre : "))
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	if len(m.records) == 0 {
		msg := "Aucun favori pour l'instant. Appuyez sur f dans une recherche pour en ajouter."
		if m.filter.Value() != "" {
			msg = "Aucun favori ne correspond au filtre"
		}
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).Render(msg))
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")

	if n := m.app.Favorites.Failures(); n > 0 {
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("%d écriture(s) non enregistrée(s), voir le journal", n)))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(styles.Notice.Render(m.notice))
		b.WriteString("\n")
	}

	if m.focus == favFocusFilter {
		b.WriteString(styles.StatusBar.Render("entrée/esc terminer"))
	} else {
		b.WriteString(styles.StatusBar.Render("↑↓ naviguer • entrée fiche • d retirer • / filtrer • e exporter CSV • esc retour"))
	}
	return b.String()
}

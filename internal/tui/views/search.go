package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/bioconnect/internal/app"
	"github.com/rendis/bioconnect/internal/engine/geo"
	"github.com/rendis/bioconnect/internal/engine/search"
	"github.com/rendis/bioconnect/internal/model"
	"github.com/rendis/bioconnect/internal/tui/styles"
)

type searchFocus int

const (
	focusQuery searchFocus = iota
	focusResults
)

// SearchModel is the search screen: query input, paged result table and
// status line. All state lives in the shared controller.
type SearchModel struct {
	app      *app.App
	input    textinput.Model
	table    table.Model
	spinner  spinner.Model
	progress progress.Model
	focus    searchFocus
	initial  model.FilterSet
	entries  []search.Entry
	locating bool
	notice   string
	width    int
	height   int
}

type pageMsg struct {
	outcome search.Outcome
}

type locatedMsg struct {
	origin *model.Coordinates
	err    error
}

func NewSearchModel(a *app.App) SearchModel {
	input := textinput.New()
	input.Placeholder = "nom, produit, ville..."
	input.CharLimit = 100
	input.Width = 50
	input.SetValue(a.Search.State().Query)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	m := SearchModel{
		app:      a,
		input:    input,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		focus:    focusResults,
	}

	// Coming back from the detail or map view keeps the running session.
	if !a.Search.State().Active {
		m.focus = focusQuery
		m.locating = true
		m.input.Focus()
	}
	m.refresh()
	return m
}

// NewSearchModelFor opens the search screen on a past query. The session
// starts once the location attempt settles, like a fresh search.
func NewSearchModelFor(a *app.App, rs RecentSearch) SearchModel {
	a.Search.EndSession()
	a.Search.SetQuery(rs.Query)
	m := NewSearchModel(a)
	m.input.SetValue(rs.Query)
	m.initial = rs.Filters.Clone()
	return m
}

// Init locates the user and runs the initial search, unless a session is
// being resumed.
func (m SearchModel) Init() tea.Cmd {
	if !m.locating {
		return tea.Batch(m.spinner.Tick, m.progress.SetPercent(m.loadedRatio()))
	}
	return tea.Batch(textinput.Blink, m.spinner.Tick, locate(m.app))
}

func locate(a *app.App) tea.Cmd {
	return func() tea.Msg {
		origin, err := a.Locate(context.Background())
		return locatedMsg{origin: origin, err: err}
	}
}

func waitPage(t *search.Ticket) tea.Cmd {
	return func() tea.Msg {
		out, _ := t.Wait(context.Background())
		return pageMsg{outcome: out}
	}
}

func (m *SearchModel) startSession(filters model.FilterSet) tea.Cmd {
	query := strings.TrimSpace(m.input.Value())
	t, err := m.app.Search.StartSession(context.Background(), query, filters, nil)
	if errors.Is(err, search.ErrBusy) {
		m.notice = "Une recherche est déjà en cours"
		return nil
	}
	m.refresh()
	st := m.app.Search.State()
	started := RecentSearch{Query: st.Query, Filters: st.Filters, SearchedAt: time.Now()}
	return tea.Batch(waitPage(t), navigate(SearchStarted{Search: started}))
}

func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.buildTable()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case locatedMsg:
		m.locating = false
		switch {
		case msg.origin != nil:
			m.notice = fmt.Sprintf("Position : %.4f, %.4f", msg.origin.Lat, msg.origin.Lng)
		case errors.Is(msg.err, geo.ErrPermissionDenied):
			m.notice = "Géolocalisation désactivée, recherche générale"
		default:
			m.notice = "Position indisponible, recherche générale"
		}
		if m.app.Search.State().Loading {
			return m, nil
		}
		filters := m.initial
		if st := m.app.Search.State(); st.Active {
			filters = st.Filters
		}
		cmd := m.startSession(filters)
		return m, cmd

	case pageMsg:
		if msg.outcome.Stale {
			return m, nil
		}
		m.refresh()
		return m, m.progress.SetPercent(m.loadedRatio())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	if m.focus == focusQuery {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m SearchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.focus == focusQuery {
		switch key {
		case "esc":
			m.app.Search.EndSession()
			return m, navigate(NavigateToHome{})
		case "enter":
			m.input.Blur()
			m.focus = focusResults
			m.table.SetStyles(focusedTableStyles())
			cmd := m.startSession(m.app.Search.State().Filters)
			return m, cmd
		case "tab", "down":
			m.input.Blur()
			m.focus = focusResults
			m.table.SetStyles(focusedTableStyles())
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key {
	case "esc", "q":
		m.app.Search.EndSession()
		return m, navigate(NavigateToHome{})
	case "/", "tab":
		m.focus = focusQuery
		m.table.SetStyles(unfocusedTableStyles())
		m.input.Focus()
		return m, textinput.Blink
	case "enter":
		if op, ok := m.current(); ok {
			return m, navigate(NavigateToDetail{Operator: op, Back: ReturnToSearch{}})
		}
		return m, nil
	case "f":
		if op, ok := m.current(); ok {
			if m.app.Favorites.Toggle(op) {
				m.notice = fmt.Sprintf("%s ajouté aux favoris", op.DisplayName())
			} else {
				m.notice = fmt.Sprintf("%s retiré des favoris", op.DisplayName())
			}
			m.refresh()
		}
		return m, nil
	case "F":
		return m, navigate(NavigateToFilters{Active: m.app.Search.State().Filters})
	case "m":
		return m, navigate(NavigateToMap{})
	case "r":
		t, err := m.app.Search.Retry(context.Background())
		if err != nil {
			return m, nil
		}
		m.refresh()
		return m, waitPage(t)
	case "l":
		if m.locating {
			return m, nil
		}
		m.locating = true
		return m, tea.Batch(m.spinner.Tick, locate(m.app))
	case "L":
		m.app.Search.ClearLocation()
		cmd := m.startSession(m.app.Search.State().Filters)
		m.notice = "Position effacée"
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	more := m.maybeLoadMore()
	return m, tea.Batch(cmd, more)
}

// maybeLoadMore asks for the next page once the cursor sits on the last row.
func (m *SearchModel) maybeLoadMore() tea.Cmd {
	if len(m.entries) == 0 || m.table.Cursor() < len(m.entries)-1 {
		return nil
	}
	t, ok := m.app.Search.LoadNextPage(context.Background())
	if !ok {
		return nil
	}
	m.refresh()
	return waitPage(t)
}

// ApplyFilters restarts the session with filters chosen in the picker.
func (m SearchModel) ApplyFilters(fs model.FilterSet) (SearchModel, tea.Cmd) {
	t, err := m.app.Search.ApplyFilters(context.Background(), fs)
	if err != nil {
		m.notice = "Une recherche est déjà en cours"
		return m, nil
	}
	m.refresh()
	return m, waitPage(t)
}

func (m SearchModel) current() (model.Operator, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.entries) {
		return model.Operator{}, false
	}
	return m.entries[c].Operator, true
}

func (m SearchModel) loadedRatio() float64 {
	st := m.app.Search.State()
	if st.Total == 0 {
		return 0
	}
	return float64(len(st.Results)) / float64(st.Total)
}

func (m *SearchModel) refresh() {
	m.entries = m.app.Search.Decorate(m.app.Favorites)
	m.buildTable()
}

func (m *SearchModel) buildTable() {
	nameW, cityW, actW := 30, 18, 34
	if m.width > 100 {
		extra := m.width - 100
		nameW += extra * 4 / 10
		actW += extra * 4 / 10
		cityW += extra * 2 / 10
	}

	columns := []table.Column{
		{Title: "★", Width: 1},
		{Title: "Nom", Width: nameW},
		{Title: "Ville", Width: cityW},
		{Title: "CP", Width: 5},
		{Title: "Activités", Width: actW},
	}

	rows := make([]table.Row, len(m.entries))
	for i, e := range m.entries {
		addr, _ := e.Operator.PrimaryAddress()
		rows[i] = table.Row{
			favoriteMark(e.Favorite),
			truncate(e.Operator.DisplayName(), nameW),
			truncate(addr.Ville, cityW),
			addr.CodePostal,
			truncate(e.Operator.ActivitiesText(), actW),
		}
	}

	height := m.height - 14
	if height < 5 {
		height = 5
	}

	cursor := m.table.Cursor()
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(m.focus == focusResults),
		table.WithHeight(height),
	)
	if m.focus == focusResults {
		t.SetStyles(focusedTableStyles())
	} else {
		t.SetStyles(unfocusedTableStyles())
	}
	if cursor > 0 && cursor < len(rows) {
		t.SetCursor(cursor)
	}
	m.table = t
}

func (m SearchModel) View() string {
	st := m.app.Search.State()
	var b strings.Builder

	b.WriteString(styles.Title.Render("Recherche d'opérateurs bio"))
	b.WriteString("\n")

	label := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == focusQuery {
		label = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(label.Render("Recherche : "))
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if st.Filters.Len() > 0 {
		names := make([]string, 0, st.Filters.Len())
		for _, f := range st.Filters.Sorted() {
			names = append(names, f.Label())
		}
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Secondary).Render("Filtres : " + strings.Join(names, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.table.View())
	b.WriteString("\n")

	var status string
	switch {
	case m.locating:
		status = m.spinner.View() + " Localisation..."
	case st.Loading && len(st.Results) == 0:
		status = m.spinner.View() + " Recherche..."
	case st.Loading:
		status = m.spinner.View() + " Chargement de la page suivante..."
	case st.Err != nil:
		status = styles.ErrorText.Render("Erreur de recherche : "+st.Err.Error()) +
			label.Render("  (r pour réessayer)")
	case st.Active && len(st.Results) == 0:
		status = label.Render("Aucun opérateur trouvé")
	case st.Active:
		status = fmt.Sprintf("%d opérateurs trouvés", st.Total)
		if st.HasMore {
			status += label.Render(fmt.Sprintf(" (%d affichés)", len(st.Results)))
		}
		status += "  " + m.progress.View()
	}
	b.WriteString(status)
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(styles.Notice.Render(m.notice))
		b.WriteString("\n")
	}

	if m.focus == focusQuery {
		b.WriteString(styles.StatusBar.Render("entrée rechercher • tab résultats • esc retour"))
	} else {
		b.WriteString(styles.StatusBar.Render("↑↓ naviguer • entrée détail • f favori • F filtres • m carte • l localiser • L sans position • r réessayer • / recherche • esc retour"))
	}
	return b.String()
}

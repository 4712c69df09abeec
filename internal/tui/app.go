package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/bioconnect/internal/app"
	"github.com/rendis/bioconnect/internal/tui/views"
)

type viewID int

const (
	viewHome viewID = iota
	viewSearch
	viewFilters
	viewDetail
	viewMap
	viewFavorites
	viewPreferences
	viewRecent
)

// Model is the root bubbletea model.
type Model struct {
	app         *app.App
	version     string
	recentPath  string
	currentView viewID
	width       int
	height      int
	home        views.HomeModel
	search      views.SearchModel
	filters     views.FiltersModel
	detail      views.DetailModel
	mapView     views.MapModel
	favorites   views.FavoritesModel
	preferences views.PreferencesModel
	recent      views.RecentModel
}

func NewModel(a *app.App, version string) Model {
	return Model{
		app:         a,
		version:     version,
		recentPath:  recentFilePath(),
		currentView: viewHome,
		home:        views.NewHomeModel(version, a.Favorites.Len()),
	}
}

func (m Model) Init() tea.Cmd {
	return m.home.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case views.NavigateToHome:
		m.currentView = viewHome
		m.home = views.NewHomeModel(m.version, m.app.Favorites.Len())
		return m, nil
	case views.NavigateToSearch:
		m.currentView = viewSearch
		m.search = views.NewSearchModel(m.app)
		return m, tea.Batch(m.search.Init(), m.sizeCmd())
	case views.RerunSearch:
		m.currentView = viewSearch
		m.search = views.NewSearchModelFor(m.app, msg.Search)
		return m, tea.Batch(m.search.Init(), m.sizeCmd())
	case views.ReturnToSearch:
		m.currentView = viewSearch
		m.search = views.NewSearchModel(m.app)
		return m, tea.Batch(m.search.Init(), m.sizeCmd())
	case views.SearchStarted:
		if err := SaveRecent(m.recentPath, msg.Search); err != nil {
			m.app.Logger.Printf("APP recent save failed err=%v", err)
		}
		return m, nil
	case views.NavigateToRecent:
		m.currentView = viewRecent
		m.recent = views.NewRecentModel(LoadRecent(m.recentPath))
		return m, m.recent.Init()
	case views.NavigateToFilters:
		m.currentView = viewFilters
		m.filters = views.NewFiltersModel(msg.Active, m.app.Prefs.Current().Filters())
		return m, m.filters.Init()
	case views.FiltersChosen:
		m.currentView = viewSearch
		if !msg.Apply {
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.ApplyFilters(msg.Filters)
		return m, cmd
	case views.NavigateToDetail:
		m.currentView = viewDetail
		m.detail = views.NewDetailModel(m.app, msg.Operator, msg.Back)
		return m, tea.Batch(m.detail.Init(), m.sizeCmd())
	case views.NavigateToMap:
		m.currentView = viewMap
		m.mapView = views.NewMapModel(m.app)
		return m, tea.Batch(m.mapView.Init(), m.sizeCmd())
	case views.NavigateToFavorites, views.ReturnToFavorites:
		m.currentView = viewFavorites
		m.favorites = views.NewFavoritesModel(m.app)
		return m, tea.Batch(m.favorites.Init(), m.sizeCmd())
	case views.NavigateToPreferences:
		m.currentView = viewPreferences
		m.preferences = views.NewPreferencesModel(m.app)
		return m, m.preferences.Init()
	}

	var cmd tea.Cmd
	var next tea.Model
	switch m.currentView {
	case viewHome:
		next, cmd = m.home.Update(msg)
		m.home = next.(views.HomeModel)
	case viewSearch:
		next, cmd = m.search.Update(msg)
		m.search = next.(views.SearchModel)
	case viewFilters:
		next, cmd = m.filters.Update(msg)
		m.filters = next.(views.FiltersModel)
	case viewDetail:
		next, cmd = m.detail.Update(msg)
		m.detail = next.(views.DetailModel)
	case viewMap:
		next, cmd = m.mapView.Update(msg)
		m.mapView = next.(views.MapModel)
	case viewFavorites:
		next, cmd = m.favorites.Update(msg)
		m.favorites = next.(views.FavoritesModel)
	case viewPreferences:
		next, cmd = m.preferences.Update(msg)
		m.preferences = next.(views.PreferencesModel)
	case viewRecent:
		next, cmd = m.recent.Update(msg)
		m.recent = next.(views.RecentModel)
	}

	return m, cmd
}

func (m Model) View() string {
	var content string
	switch m.currentView {
	case viewHome:
		content = m.home.View()
	case viewSearch:
		content = m.search.View()
	case viewFilters:
		content = m.filters.View()
	case viewDetail:
		content = m.detail.View()
	case viewMap:
		content = m.mapView.View()
	case viewFavorites:
		content = m.favorites.View()
	case viewPreferences:
		content = m.preferences.View()
	case viewRecent:
		content = m.recent.View()
	}

	return lipgloss.Place(
		m.width, m.height,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// sizeCmd sends a WindowSizeMsg so newly created views get the current terminal size.
func (m Model) sizeCmd() tea.Cmd {
	w, h := m.width, m.height
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	}
}

// Run starts the TUI over an opened application.
func Run(a *app.App, version string) error {
	p := tea.NewProgram(NewModel(a, version), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

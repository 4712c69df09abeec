package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/bioconnect/internal/app"
	"github.com/rendis/bioconnect/internal/engine/geo"
	"github.com/rendis/bioconnect/internal/model"
	"github.com/rendis/bioconnect/internal/tui/components"
	"github.com/rendis/bioconnect/internal/tui/styles"
)

// MapModel plots the current results that have coordinates.
type MapModel struct {
	app      *app.App
	mapView  components.MapView
	markers  []geo.Marker
	ops      map[int]model.Operator
	origin   *model.Coordinates
	radiusKm int
	skipped  int
	selected int
	width    int
	height   int
}

func NewMapModel(a *app.App) MapModel {
	st := a.Search.State()
	prefs := a.Prefs.Current()

	m := MapModel{
		app:      a,
		mapView:  components.NewMapView(60, 20),
		ops:      make(map[int]model.Operator, len(st.Results)),
		origin:   st.Origin,
		radiusKm: prefs.DefaultRadius,
	}
	for _, op := range st.Results {
		m.ops[op.ID] = op
	}
	m.markers = geo.Markers(st.Results, a.Favorites)
	m.skipped = len(st.Results) - len(m.markers)
	m.layout()
	return m
}

func (m *MapModel) layout() {
	points := make([]components.Point, len(m.markers))
	for i, mk := range m.markers {
		points[i] = components.Point{Lat: mk.Position.Lat, Lng: mk.Position.Lng, Highlight: mk.Favorite}
	}
	m.mapView.SetPoints(points)
	m.mapView.SetSelected(m.selected)

	if m.origin != nil {
		m.mapView.SetOrigin(&components.Point{Lat: m.origin.Lat, Lng: m.origin.Lng})
		ring := geo.RadiusRing(*m.origin, float64(m.radiusKm), 72)
		rp := make([]components.Point, len(ring))
		for i, c := range ring {
			rp[i] = components.Point{Lat: c.Lat, Lng: c.Lng}
		}
		m.mapView.SetRing(rp)
	}
	if b, ok := geo.Bound(m.markers, m.origin, float64(m.radiusKm)); ok {
		m.mapView.SetBounds(b)
	}
}

func (m MapModel) Init() tea.Cmd {
	return nil
}

func (m MapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := m.width - 6
		h := m.height - 10
		if w < 20 {
			w = 20
		}
		if h < 8 {
			h = 8
		}
		m.mapView.SetSize(w, h)
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return m, navigate(ReturnToSearch{})
		case "+", "=":
			m.mapView.ZoomIn()
		case "-":
			m.mapView.ZoomOut()
		case "0":
			m.mapView.ZoomReset()
		case "up", "k":
			m.mapView.Pan(1, 0)
		case "down", "j":
			m.mapView.Pan(-1, 0)
		case "left", "h":
			m.mapView.Pan(0, -1)
		case "right", "l":
			m.mapView.Pan(0, 1)
		case "tab", "n":
			if len(m.markers) > 0 {
				m.selected = (m.selected + 1) % len(m.markers)
				m.mapView.SetSelected(m.selected)
			}
		case "shift+tab", "p":
			if len(m.markers) > 0 {
				m.selected = (m.selected - 1 + len(m.markers)) % len(m.markers)
				m.mapView.SetSelected(m.selected)
			}
		case "enter":
			if m.selected < len(m.markers) {
				op := m.ops[m.markers[m.selected].ID]
				return m, navigate(NavigateToDetail{Operator: op, Back: NavigateToMap{}})
			}
		}
	}
	return m, nil
}

func (m MapModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(fmt.Sprintf("Carte : %d opérateurs", len(m.markers))))
	if m.skipped > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf(" (%d sans coordonnées)", m.skipped)))
	}
	b.WriteString("\n")

	if len(m.markers) == 0 && m.origin == nil {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("Aucun opérateur à placer sur la carte"))
	} else {
		b.WriteString(styles.Border.Padding(0, 1).Render(m.mapView.View()))
	}
	b.WriteString("\n")

	if m.selected < len(m.markers) {
		mk := m.markers[m.selected]
		line := fmt.Sprintf("%s %s, %s", favoriteMark(mk.Favorite), mk.Title, mk.Address)
		if m.origin != nil {
			line += fmt.Sprintf("  (%.1f km)", geo.DistanceKm(*m.origin, mk.Position))
		}
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Link).Render(truncate(line, m.width-2)))
		b.WriteString("\n")
	}

	legend := lipgloss.NewStyle().Foreground(styles.Success).Render("⣿ opérateur") + "  " +
		styles.Favorite.Render("⣿ favori") + "  " +
		lipgloss.NewStyle().Foreground(styles.Link).Render("⣿ sélection")
	if m.origin != nil {
		legend += "  " + lipgloss.NewStyle().Foreground(styles.Error).Render("⣿ vous") +
			lipgloss.NewStyle().Foreground(styles.Muted).Render(fmt.Sprintf("  rayon %d km", m.radiusKm))
	}
	b.WriteString(legend)
	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("tab suivant • entrée fiche • +/- zoom • 0 réinitialiser • ←↑↓→ déplacer • esc retour"))
	return b.String()
}

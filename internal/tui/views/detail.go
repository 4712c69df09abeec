package views

import (
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/bioconnect/internal/app"
	"github.com/rendis/bioconnect/internal/engine/geo"
	"github.com/rendis/bioconnect/internal/model"
	"github.com/rendis/bioconnect/internal/tui/styles"
)

type detailFocus int

const (
	focusCard detailFocus = iota
	focusJSON
)

// DetailModel shows one operator as a card and as raw JSON.
type DetailModel struct {
	app       *app.App
	op        model.Operator
	back      tea.Msg
	focus     detailFocus
	cardLines []string
	jsonLines []string
	scrollY   int
	notice    string
	width     int
	height    int
}

func NewDetailModel(a *app.App, op model.Operator, back tea.Msg) DetailModel {
	if back == nil {
		back = NavigateToHome{}
	}
	m := DetailModel{app: a, op: op, back: back}
	m.cardLines = m.buildCardLines()
	if data, err := json.MarshalIndent(op, "", "  "); err == nil {
		m.jsonLines = strings.Split(string(data), "\n")
	} else {
		m.jsonLines = []string{"JSON error"}
	}
	return m
}

func (m DetailModel) Init() tea.Cmd {
	return nil
}

func (m DetailModel) buildCardLines() []string {
	op := m.op
	var lines []string

	lines = append(lines, op.DisplayName())
	if op.DenominationCourante != "" && op.DenominationCourante != op.DisplayName() {
		lines = append(lines, op.DenominationCourante)
	}
	if acts := op.ActivitiesText(); acts != "" {
		lines = append(lines, acts)
	}
	lines = append(lines, "")

	addRow := func(label, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("%-11s %s", label, value))
		}
	}

	if addr, ok := op.PrimaryAddress(); ok {
		addRow("Adresse :", addr.Line())
	}
	addRow("Téléphone :", op.Telephone)
	switch email, ok := op.ContactEmail(); {
	case ok:
		addRow("Email :", email)
	case email != "":
		addRow("Email :", email+" (invalide)")
	}
	addRow("Site web :", op.Website())
	addRow("N° bio :", op.NumeroBio.String())
	addRow("SIRET :", op.Siret)
	addRow("Code NAF :", op.CodeNAF)
	addRow("Mis à jour :", op.DateMaj)

	if c, ok := op.Coordinates(); ok {
		addRow("Position :", fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lng))
		addRow("Plus code :", geo.PlusCode(c))
		if origin := m.app.Search.State().Origin; origin != nil {
			addRow("Distance :", fmt.Sprintf("%.1f km", geo.DistanceKm(*origin, c)))
		}
	}

	if len(op.Addresses) > 1 {
		lines = append(lines, "", "Autres adresses :")
		for _, a := range op.Addresses[1:] {
			lines = append(lines, "  "+a.Line())
		}
	}
	return lines
}

func (m DetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		lines := m.lines()
		maxScroll := len(lines) - m.panelHeight()
		if maxScroll < 0 {
			maxScroll = 0
		}
		switch msg.String() {
		case "esc", "q":
			return m, navigate(m.back)
		case "tab", "1", "2":
			if m.focus == focusCard {
				m.focus = focusJSON
			} else {
				m.focus = focusCard
			}
			m.scrollY = 0
		case "up", "k":
			if m.scrollY > 0 {
				m.scrollY--
			}
		case "down", "j":
			if m.scrollY < maxScroll {
				m.scrollY++
			}
		case "f":
			if m.app.Favorites.Toggle(m.op) {
				m.notice = "Ajouté aux favoris"
			} else {
				m.notice = "Retiré des favoris"
			}
		}
	}
	return m, nil
}

func (m DetailModel) lines() []string {
	if m.focus == focusJSON {
		return m.jsonLines
	}
	return m.cardLines
}

func (m DetailModel) panelHeight() int {
	h := m.height - 8
	if h < 6 {
		h = 6
	}
	return h
}

func (m DetailModel) View() string {
	w := m.width - 6
	if w < 40 {
		w = 40
	}
	h := m.panelHeight()

	lines := m.lines()
	scrollY := m.scrollY
	if scrollY > len(lines)-h {
		scrollY = len(lines) - h
	}
	if scrollY < 0 {
		scrollY = 0
	}
	end := scrollY + h
	if end > len(lines) {
		end = len(lines)
	}

	label := lipgloss.NewStyle().Foreground(styles.Muted)
	var sb strings.Builder
	for i, line := range lines[scrollY:end] {
		switch {
		case m.focus == focusJSON:
			sb.WriteString(label.Render(truncate(line, w)))
		case scrollY+i == 0:
			sb.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Text).Render(truncate(line, w)))
		case strings.HasPrefix(line, "Site web :") || strings.HasPrefix(line, "Email :"):
			parts := strings.SplitN(line, ":", 2)
			sb.WriteString(label.Render(parts[0] + ":"))
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Link).Render(truncate(parts[1], w-12)))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Text).Render(truncate(line, w)))
		}
		sb.WriteString("\n")
	}
	if scrollY > 0 {
		sb.WriteString(label.Render("  ▲ suite au-dessus\n"))
	}
	if end < len(lines) {
		sb.WriteString(label.Render("  ▼ suite en dessous\n"))
	}

	title := "[1] Fiche"
	if m.focus == focusJSON {
		title = "[2] JSON"
	}
	if m.app.Favorites.IsFavorite(m.op.ID) {
		title += "  " + styles.Favorite.Render("★ favori")
	}

	var b strings.Builder
	b.WriteString(styles.Subtitle.Render(title))
	b.WriteString("\n")
	b.WriteString(styles.FocusedBorder.Width(w).Render(strings.TrimRight(sb.String(), "\n")))
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(styles.Notice.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(styles.StatusBar.Render("↑↓ défiler • tab fiche/json • f favori • esc retour"))
	return b.String()
}

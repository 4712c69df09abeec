package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/bioconnect/internal/app"
	"github.com/rendis/bioconnect/internal/model"
	"github.com/rendis/bioconnect/internal/tui/styles"
)

const (
	rowAddress = iota
	rowRadius
	rowGeolocation
	rowFirstFilter
)

const maxRadiusKm = 500

// PreferencesModel edits the stored search defaults. Nothing is written
// until the user saves.
type PreferencesModel struct {
	app      *app.App
	address  textinput.Model
	radius   textinput.Model
	geoloc   bool
	toggles  map[model.Filter]bool
	cursor   int
	editing  bool
	saving   bool
	checking bool
	dirty    bool
	notice   string
	err      string
}

type prefsSavedMsg struct {
	err error
}

type addressCheckedMsg struct {
	coords model.Coordinates
	err    error
}

func NewPreferencesModel(a *app.App) PreferencesModel {
	p := a.Prefs.Current()

	address := textinput.New()
	address.Placeholder = "ex. 12 rue de la Paix, Nantes"
	address.CharLimit = 200
	address.Width = 50
	address.SetValue(p.DefaultAddress)

	radius := textinput.New()
	radius.CharLimit = 3
	radius.Width = 5
	radius.SetValue(strconv.Itoa(p.DefaultRadius))

	return PreferencesModel{
		app:     a,
		address: address,
		radius:  radius,
		geoloc:  p.UseGeolocation,
		toggles: p.Filters().Toggles(),
	}
}

func (m PreferencesModel) Init() tea.Cmd {
	return nil
}

func (m PreferencesModel) rows() int {
	return rowFirstFilter + len(model.AllFilters)
}

// Value builds the preferences from the form. The radius must be a whole
// number of kilometres between 1 and maxRadiusKm.
func (m PreferencesModel) Value() (model.Preferences, error) {
	r, err := strconv.Atoi(strings.TrimSpace(m.radius.Value()))
	if err != nil || r < 1 || r > maxRadiusKm {
		return model.Preferences{}, fmt.Errorf("le rayon doit être compris entre 1 et %d km", maxRadiusKm)
	}
	filters := make(map[model.Filter]bool, len(m.toggles))
	for f, on := range m.toggles {
		filters[f] = on
	}
	return model.Preferences{
		DefaultAddress: strings.TrimSpace(m.address.Value()),
		DefaultRadius:  r,
		DefaultFilters: filters,
		UseGeolocation: m.geoloc,
	}, nil
}

func (m PreferencesModel) save() (PreferencesModel, tea.Cmd) {
	p, err := m.Value()
	if err != nil {
		m.err = err.Error()
		return m, nil
	}
	m.saving = true
	m.err = ""
	m.notice = ""
	store := m.app.Prefs
	return m, func() tea.Msg {
		return prefsSavedMsg{err: store.Save(context.Background(), p)}
	}
}

func (m PreferencesModel) checkAddress() (PreferencesModel, tea.Cmd) {
	addr := strings.TrimSpace(m.address.Value())
	if addr == "" {
		m.err = "aucune adresse à vérifier"
		return m, nil
	}
	m.checking = true
	m.err = ""
	gc := m.app.Geocoder
	return m, func() tea.Msg {
		c, err := gc.Geocode(context.Background(), addr)
		return addressCheckedMsg{coords: c, err: err}
	}
}

func (m *PreferencesModel) input() *textinput.Model {
	switch m.cursor {
	case rowAddress:
		return &m.address
	case rowRadius:
		return &m.radius
	}
	return nil
}

func (m PreferencesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case prefsSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.err = "Enregistrement impossible : " + msg.err.Error()
			return m, nil
		}
		m.dirty = false
		m.notice = "Préférences enregistrées"
		return m, nil

	case addressCheckedMsg:
		m.checking = false
		if msg.err != nil {
			m.err = "Adresse introuvable : " + msg.err.Error()
			return m, nil
		}
		m.notice = fmt.Sprintf("Adresse localisée : %.4f, %.4f", msg.coords.Lat, msg.coords.Lng)
		return m, nil

	case tea.KeyMsg:
		key := msg.String()

		if m.editing {
			in := m.input()
			switch key {
			case "enter", "esc", "tab":
				in.Blur()
				m.editing = false
				return m, nil
			}
			before := in.Value()
			var cmd tea.Cmd
			*in, cmd = in.Update(msg)
			if in.Value() != before {
				m.dirty = true
			}
			return m, cmd
		}

		switch key {
		case "esc", "q":
			return m, navigate(NavigateToHome{})
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < m.rows()-1 {
				m.cursor++
			}
		case "enter", " ", "x":
			switch {
			case m.cursor == rowAddress || m.cursor == rowRadius:
				m.editing = true
				cmd := m.input().Focus()
				return m, cmd
			case m.cursor == rowGeolocation:
				m.geoloc = !m.geoloc
				m.dirty = true
			default:
				f := model.AllFilters[m.cursor-rowFirstFilter]
				m.toggles[f] = !m.toggles[f]
				m.dirty = true
			}
		case "s", "ctrl+s":
			if m.saving {
				return m, nil
			}
			return m.save()
		case "g":
			if m.checking {
				return m, nil
			}
			return m.checkAddress()
		case "u":
			return NewPreferencesModel(m.app), nil
		}
	}
	return m, nil
}

func (m PreferencesModel) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Préférences"))
	b.WriteString("\n")

	row := func(i int, label, value string) {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}
		b.WriteString(cursor + style.Render(fmt.Sprintf("%-16s", label)) + " " + value + "\n")
	}
	check := func(on bool) string {
		if on {
			return lipgloss.NewStyle().Foreground(styles.Primary).Render("[x]")
		}
		return "[ ]"
	}

	row(rowAddress, "Adresse", m.address.View())
	row(rowRadius, "Rayon (km)", m.radius.View())
	row(rowGeolocation, "Géolocalisation", check(m.geoloc))

	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render("Filtres par défaut"))
	b.WriteString("\n")
	for i, f := range model.AllFilters {
		row(rowFirstFilter+i, f.Label(), check(m.toggles[f]))
	}
	b.WriteString("\n")

	switch {
	case m.saving:
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render("Enregistrement..."))
		b.WriteString("\n")
	case m.checking:
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render("Recherche de l'adresse..."))
		b.WriteString("\n")
	case m.err != "":
		b.WriteString(styles.ErrorText.Render(m.err))
		b.WriteString("\n")
	case m.notice != "":
		b.WriteString(styles.Notice.Render(m.notice))
		b.WriteString("\n")
	}
	if m.dirty {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Render("Modifications non enregistrées"))
		b.WriteString("\n")
	}

	if m.editing {
		b.WriteString(styles.StatusBar.Render("entrée/esc terminer la saisie"))
	} else {
		b.WriteString(styles.StatusBar.Render("↑↓ naviguer • entrée modifier • espace cocher • g vérifier l'adresse • s enregistrer • u annuler • esc retour"))
	}
	return styles.Border.Render(b.String())
}

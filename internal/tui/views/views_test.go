package views

import (
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/bioconnect/internal/model"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	return cmd()
}

func TestFiltersModelTogglesAndApplies(t *testing.T) {
	m := NewFiltersModel(model.NewFilterSet(model.FilterRestaurants), model.NewFilterSet(model.FilterDirectSale))

	next, _ := m.Update(key(" "))
	m = next.(FiltersModel)
	assert.Equal(t, model.NewFilterSet(model.FilterDirectSale, model.FilterRestaurants), m.Selected())

	next, _ = m.Update(key("c"))
	m = next.(FiltersModel)
	assert.Zero(t, m.Selected().Len())

	next, _ = m.Update(key("d"))
	m = next.(FiltersModel)
	assert.Equal(t, model.NewFilterSet(model.FilterDirectSale), m.Selected())

	_, cmd := m.Update(key("enter"))
	msg, ok := run(t, cmd).(FiltersChosen)
	require.True(t, ok)
	assert.True(t, msg.Apply)
	assert.True(t, msg.Filters.Has(model.FilterDirectSale))

	_, cmd = m.Update(key("esc"))
	assert.False(t, run(t, cmd).(FiltersChosen).Apply)
}

func TestPreferencesValueValidatesRadius(t *testing.T) {
	m := PreferencesModel{
		address: textinput.New(),
		radius:  textinput.New(),
		toggles: model.NewFilterSet(model.FilterWholesalers).Toggles(),
		geoloc:  true,
	}
	m.address.SetValue("  Lyon ")

	for _, bad := range []string{"", "0", "abc", "501"} {
		m.radius.SetValue(bad)
		_, err := m.Value()
		assert.Error(t, err, bad)
	}

	m.radius.SetValue("35")
	p, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, "Lyon", p.DefaultAddress)
	assert.Equal(t, 35, p.DefaultRadius)
	assert.True(t, p.UseGeolocation)
	assert.True(t, p.DefaultFilters[model.FilterWholesalers])
}

func TestRecentModelRerunsSelected(t *testing.T) {
	m := NewRecentModel([]RecentSearch{{Query: "miel"}, {Query: "pain"}})

	next, _ := m.Update(key("down"))
	_, cmd := next.Update(key("enter"))
	msg, ok := run(t, cmd).(RerunSearch)
	require.True(t, ok)
	assert.Equal(t, "pain", msg.Search.Query)
}

func TestTimeAgo(t *testing.T) {
	assert.Equal(t, "à l'instant", timeAgo(10*time.Second))
	assert.Equal(t, "il y a 5 min", timeAgo(5*time.Minute))
	assert.Equal(t, "il y a 3 h", timeAgo(3*time.Hour))
	assert.Equal(t, "il y a 2 j", timeAgo(49*time.Hour))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", truncate("abc", 0))
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "Éco…", truncate("Écoferme", 4))
}

package model

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOperator = `{
	"id": 7,
	"raisonSociale": "",
	"denominationcourante": "La Ferme du Bois",
	"numeroBio": 12345,
	"telephone": "0102030405",
	"sitesWeb": [{"url": "https://ferme.example"}],
	"adressesOperateurs": [
		{"lieu": "1 chemin des Prés", "codePostal": "35000", "ville": "Rennes", "lat": "48.1173", "long": -1.6778},
		{"lieu": "ignored", "ville": "Brest"}
	],
	"activites": [{"id": 1, "nom": "Production"}, {"id": 2, "nom": "Distribution"}],
	"productions": [{"code": "01.1", "nom": "Céréales"}]
}`

func TestOperatorDecode(t *testing.T) {
	var op Operator
	require.NoError(t, json.Unmarshal([]byte(sampleOperator), &op))

	assert.Equal(t, 7, op.ID)
	assert.Equal(t, "La Ferme du Bois", op.DisplayName())
	assert.Equal(t, "12345", op.NumeroBio.String())
	assert.Equal(t, "https://ferme.example", op.Website())
	assert.Equal(t, "Production, Distribution", op.ActivitiesText())
	assert.JSONEq(t, `[{"code": "01.1", "nom": "Céréales"}]`, string(op.Productions))

	c, ok := op.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 48.1173, c.Lat, 1e-9)
	assert.InDelta(t, -1.6778, c.Lng, 1e-9)
	assert.Equal(t, "1 chemin des Prés, 35000 Rennes", op.Addresses[0].Line())
}

func TestDisplayNameFallback(t *testing.T) {
	assert.Equal(t, "ACME", Operator{RaisonSociale: " ACME ", DenominationCourante: "other"}.DisplayName())
	assert.Equal(t, fallbackName, Operator{}.DisplayName())
}

func TestAddressCoordinates(t *testing.T) {
	tests := []struct {
		name string
		lat  NumericString
		long NumericString
		ok   bool
	}{
		{"valid", "45.5", "4.8", true},
		{"comma decimal", "45,5", "4,8", true},
		{"empty lat", "", "4.8", false},
		{"garbage", "abc", "4.8", false},
		{"nan", "NaN", "4.8", false},
		{"out of range", "95", "4.8", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Address{Lat: tt.lat, Long: tt.long}.Coordinates()
			assert.Equal(t, tt.ok, ok)
		})
	}

	_, ok := Operator{}.Coordinates()
	assert.False(t, ok, "operator without address has no coordinates")
}

func TestNumericStringNull(t *testing.T) {
	var a Address
	require.NoError(t, json.Unmarshal([]byte(`{"lat": null, "long": "2.1"}`), &a))
	_, ok := a.Coordinates()
	assert.False(t, ok)
}

func TestFilterSetEncodeOnlyActive(t *testing.T) {
	fs := FilterSetFromToggles(map[Filter]bool{
		FilterRestaurants: true,
		FilterDirectSale:  false,
		FilterWholesalers: true,
	})

	v := url.Values{}
	fs.Encode(v)

	assert.Equal(t, "1", v.Get(string(FilterRestaurants)))
	assert.Equal(t, "1", v.Get(string(FilterWholesalers)))
	_, present := v[string(FilterDirectSale)]
	assert.False(t, present, "inactive filters must not be sent")
	assert.Len(t, v, 2)
	assert.Equal(t, []Filter{FilterRestaurants, FilterWholesalers}, fs.Sorted())
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("FILTRERMAGASINSPEC")
	require.NoError(t, err)
	assert.Equal(t, FilterSpecialistShops, f)

	_, err = ParseFilter("filtrerNothing")
	assert.Error(t, err)

	assert.Equal(t, 0, NewFilterSet("bogus").Len())
}

func TestNewFavoriteRecord(t *testing.T) {
	var op Operator
	require.NoError(t, json.Unmarshal([]byte(sampleOperator), &op))
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	rec := NewFavoriteRecord(op, at)
	assert.Equal(t, 7, rec.ID)
	assert.Equal(t, "La Ferme du Bois", rec.RaisonSociale)
	assert.Equal(t, "Rennes", rec.Ville)
	assert.Equal(t, "35000", rec.CodePostal)
	assert.Equal(t, "1 chemin des Prés", rec.Adresse)
	assert.Equal(t, "Production, Distribution", rec.Activites)
	assert.Equal(t, "2026-03-01T09:00:00.000Z", FormatTimestamp(rec.DateAdded))

	parsed, err := ParseTimestamp("2026-03-01T09:00:00.000Z")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(rec.DateAdded))
}

func TestPreferencesNormalized(t *testing.T) {
	p := Preferences{
		DefaultRadius:  0,
		DefaultFilters: map[Filter]bool{FilterRestaurants: true, "unknown": true},
	}.Normalized()

	assert.Equal(t, DefaultRadiusKm, p.DefaultRadius)
	assert.Len(t, p.DefaultFilters, len(AllFilters))
	assert.True(t, p.DefaultFilters[FilterRestaurants])
	assert.Equal(t, []Filter{FilterRestaurants}, p.Filters().Sorted())

	def := DefaultPreferences()
	assert.Equal(t, 20, def.DefaultRadius)
	assert.False(t, def.UseGeolocation)
	assert.Equal(t, 0, def.Filters().Len())
}

func TestFavoriteRecordOperator(t *testing.T) {
	rec := FavoriteRecord{
		ID:            3,
		RaisonSociale: "Le Potager",
		Ville:         "Dijon",
		CodePostal:    "21000",
		Adresse:       "4 rue Verte",
		Activites:     "Production, Préparation",
		Telephone:     "0380000000",
	}
	op := rec.Operator()

	assert.Equal(t, 3, op.ID)
	assert.Equal(t, "Le Potager", op.DisplayName())
	assert.Equal(t, "4 rue Verte, 21000 Dijon", op.Addresses[0].Line())
	assert.Equal(t, []string{"Production", "Préparation"}, op.ActivityLabels())
	_, ok := op.Coordinates()
	assert.False(t, ok)

	assert.Empty(t, FavoriteRecord{ID: 1}.Operator().Addresses)
}

func TestContactEmail(t *testing.T) {
	e, ok := Operator{Email: " contact@ferme-bio.fr "}.ContactEmail()
	assert.True(t, ok)
	assert.Equal(t, "contact@ferme-bio.fr", e)

	e, ok = Operator{Email: "pas un email"}.ContactEmail()
	assert.False(t, ok)
	assert.Equal(t, "pas un email", e)

	_, ok = Operator{}.ContactEmail()
	assert.False(t, ok)
}

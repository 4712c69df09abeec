package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/bioconnect/internal/model"
)

type favSet map[int]bool

func (f favSet) IsFavorite(id int) bool { return f[id] }

var sample = []model.Operator{
	{
		ID:            1,
		RaisonSociale: "Ferme, du Pré",
		Activities:    []model.Activity{{Nom: "Production"}},
		Addresses:     []model.Address{{Lieu: "2 route", CodePostal: "44000", Ville: "Nantes", Lat: "47.2184", Long: "-1.5536"}},
	},
	{ID: 2, DenominationCourante: "Sans adresse"},
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" GeoJSON ")
	require.NoError(t, err)
	assert.Equal(t, GeoJSON, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestOperatorsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Operators(&buf, CSV, sample, favSet{1: true}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, operatorHeader, records[0])
	assert.Equal(t, "Ferme, du Pré", records[1][1])
	assert.Equal(t, "47.218400", records[1][6])
	assert.Regexp(t, `^8CVW[23456789CFGHJMPQRVWX]{4}\+[23456789CFGHJMPQRVWX]{2}$`, records[1][8])
	assert.Equal(t, "true", records[1][14])
	assert.Equal(t, "Sans adresse", records[2][1])
	assert.Empty(t, records[2][6])
}

func TestOperatorsGeoJSONSkipsUnplaceable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Operators(&buf, GeoJSON, sample, nil))

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	assert.Len(t, fc.Features, 1)
}

func TestFavorites(t *testing.T) {
	recs := []model.FavoriteRecord{{ID: 4, RaisonSociale: "A", DateAdded: time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)}}

	var buf bytes.Buffer
	require.NoError(t, Favorites(&buf, CSV, recs))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01T08:30:00.000Z", records[1][8])

	assert.Error(t, Favorites(&bytes.Buffer{}, GeoJSON, recs))
}

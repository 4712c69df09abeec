package geo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/bioconnect/internal/model"
)

var paris = model.Coordinates{Lat: 48.8566, Lng: 2.3522}

type stubProvider struct {
	granted bool
	permErr error
	pos     model.Coordinates
	posErr  error
	delay   time.Duration
}

func (s stubProvider) RequestPermission(context.Context) (bool, error) {
	return s.granted, s.permErr
}

func (s stubProvider) CurrentPosition(ctx context.Context) (model.Coordinates, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return model.Coordinates{}, ctx.Err()
		}
	}
	return s.pos, s.posErr
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name    string
		p       Provider
		wantErr error
	}{
		{"granted", stubProvider{granted: true, pos: paris}, nil},
		{"denied", stubProvider{granted: false}, ErrPermissionDenied},
		{"permission error", stubProvider{permErr: errors.New("no service")}, ErrLocationUnavailable},
		{"provider error", stubProvider{granted: true, posErr: errors.New("no fix")}, ErrLocationUnavailable},
		{"timeout", stubProvider{granted: true, pos: paris, delay: time.Second}, ErrLocationUnavailable},
		{"out of range", stubProvider{granted: true, pos: model.Coordinates{Lat: 123}}, ErrLocationUnavailable},
		{"nil provider", nil, ErrLocationUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Locate(context.Background(), tt.p, 50*time.Millisecond)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, paris, got)
		})
	}
}

func TestFixedProvider(t *testing.T) {
	got, err := Locate(context.Background(), Fixed(paris), 0)
	require.NoError(t, err)
	assert.Equal(t, paris, got)
}

func TestGeocoder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fr", r.URL.Query().Get("countrycodes"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		if r.URL.Query().Get("q") == "nowhere" {
			w.Write([]byte(`[]`))
			return
		}
		json.NewEncoder(w).Encode([]nominatimResult{{Lat: "45.764", Lon: "4.8357", DisplayName: "Lyon"}})
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL, nil)

	c, err := g.Geocode(context.Background(), "Lyon")
	require.NoError(t, err)
	assert.InDelta(t, 45.764, c.Lat, 1e-9)
	assert.InDelta(t, 4.8357, c.Lng, 1e-9)

	_, err = g.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrAddressNotFound)

	_, err = g.Geocode(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

type fakeGeocoder struct {
	c   model.Coordinates
	err error
}

func (f fakeGeocoder) Geocode(context.Context, string) (model.Coordinates, error) {
	return f.c, f.err
}

func TestAddressProvider(t *testing.T) {
	prefs := model.DefaultPreferences()
	prefs.DefaultAddress = "Paris"

	_, err := Locate(context.Background(), AddressProvider{Geocoder: fakeGeocoder{c: paris}, Prefs: prefs}, 0)
	assert.ErrorIs(t, err, ErrPermissionDenied, "opt-in is off by default")

	prefs.UseGeolocation = true
	got, err := Locate(context.Background(), AddressProvider{Geocoder: fakeGeocoder{c: paris}, Prefs: prefs}, 0)
	require.NoError(t, err)
	assert.Equal(t, paris, got)

	_, err = Locate(context.Background(), AddressProvider{Geocoder: fakeGeocoder{err: ErrAddressNotFound}, Prefs: prefs}, 0)
	assert.ErrorIs(t, err, ErrLocationUnavailable)
}

func withAddress(id int, lat, lng string) model.Operator {
	return model.Operator{
		ID:            id,
		RaisonSociale: "op",
		Addresses:     []model.Address{{Ville: "Paris", Lat: model.NumericString(lat), Long: model.NumericString(lng)}},
	}
}

type favSet map[int]bool

func (f favSet) IsFavorite(id int) bool { return f[id] }

func TestMarkersSkipUnplaceableOperators(t *testing.T) {
	ops := []model.Operator{
		withAddress(1, "48.85", "2.35"),
		withAddress(2, "", "2.35"),
		withAddress(3, "abc", "2.35"),
		{ID: 4},
		withAddress(5, "45,76", "4,83"),
	}
	markers := Markers(ops, favSet{5: true})

	require.Len(t, markers, 2)
	assert.Equal(t, 1, markers[0].ID)
	assert.False(t, markers[0].Favorite)
	assert.Equal(t, 5, markers[1].ID)
	assert.True(t, markers[1].Favorite)
}

func TestDistanceAndRadius(t *testing.T) {
	lyon := model.Coordinates{Lat: 45.764, Lng: 4.8357}
	assert.InDelta(t, 392, DistanceKm(paris, lyon), 5)

	markers := []Marker{
		{ID: 1, Position: model.Coordinates{Lat: 48.86, Lng: 2.36}},
		{ID: 2, Position: lyon},
	}
	near := WithinRadius(markers, paris, model.DefaultRadiusKm)
	require.Len(t, near, 1)
	assert.Equal(t, 1, near[0].ID)
}

func TestBound(t *testing.T) {
	_, ok := Bound(nil, nil, 0)
	assert.False(t, ok)

	b, ok := Bound(nil, &paris, 20)
	require.True(t, ok)
	assert.True(t, b.Contains(paris.Point()))
	assert.InDelta(t, 40, DistanceKm(
		model.Coordinates{Lat: b.Min.Lat(), Lng: paris.Lng},
		model.Coordinates{Lat: b.Max.Lat(), Lng: paris.Lng}), 1)

	far := Marker{Position: model.Coordinates{Lat: 43.3, Lng: 5.37}}
	b, ok = Bound([]Marker{far}, &paris, 20)
	require.True(t, ok)
	assert.True(t, b.Contains(far.Position.Point()))
}

func TestRadiusRing(t *testing.T) {
	ring := RadiusRing(paris, 20, 32)
	require.Len(t, ring, 32)
	for _, p := range ring {
		assert.InDelta(t, 20, DistanceKm(paris, p), 0.2)
	}
	assert.Len(t, RadiusRing(paris, 5, 1), 3)
}

func TestFeatureCollection(t *testing.T) {
	fc := FeatureCollection([]Marker{{ID: 3, Title: "Ferme", City: "Paris", Position: paris, Favorite: true}})
	raw, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 1)
	assert.Equal(t, "Point", decoded.Features[0].Geometry.Type)
	assert.Equal(t, []float64{2.3522, 48.8566}, decoded.Features[0].Geometry.Coordinates)
	assert.Equal(t, "Ferme", decoded.Features[0].Properties["name"])
	assert.Equal(t, true, decoded.Features[0].Properties["favorite"])
}

func TestPlusCode(t *testing.T) {
	code := PlusCode(paris)
	assert.True(t, strings.HasPrefix(code, "8FW4V942+"), code)
	assert.Len(t, code, 11)

	ms := Markers([]model.Operator{withAddress(1, "48.8566", "2.3522")}, nil)
	require.Len(t, ms, 1)
	assert.Equal(t, code, ms[0].PlusCode)
}

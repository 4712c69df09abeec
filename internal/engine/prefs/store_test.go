package prefs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/bioconnect/internal/engine/storage"
	"github.com/rendis/bioconnect/internal/model"
)

type memRecords struct {
	data   map[string][]byte
	putErr error
}

func (m *memRecords) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (m *memRecords) Put(_ context.Context, key string, value []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = value
	return nil
}

func TestLoadDefaultsWhenAbsent(t *testing.T) {
	s := New(&memRecords{}, Options{})
	p := s.Load(context.Background())

	assert.Equal(t, model.DefaultRadiusKm, p.DefaultRadius)
	assert.False(t, p.UseGeolocation)
	assert.Len(t, p.DefaultFilters, len(model.AllFilters))
}

func TestLoadDefaultsWhenUnparsable(t *testing.T) {
	s := New(&memRecords{data: map[string][]byte{Key: []byte("{not json")}}, Options{})
	assert.Equal(t, model.DefaultPreferences(), s.Load(context.Background()))
}

func TestLoadFillsMissingFilters(t *testing.T) {
	raw := `{"defaultAddress":"Lyon","defaultRadius":35,"defaultFilters":{"filtrerRestaurants":true},"useGeolocation":true}`
	s := New(&memRecords{data: map[string][]byte{Key: []byte(raw)}}, Options{})

	p := s.Load(context.Background())
	assert.Equal(t, "Lyon", p.DefaultAddress)
	assert.Equal(t, 35, p.DefaultRadius)
	assert.True(t, p.UseGeolocation)
	assert.True(t, p.DefaultFilters[model.FilterRestaurants])
	assert.False(t, p.DefaultFilters[model.FilterSupermarkets])
	assert.Len(t, p.DefaultFilters, len(model.AllFilters))
}

func TestSaveRoundTripsThroughSQLite(t *testing.T) {
	db, err := storage.NewStore(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	s := New(db, Options{})
	s.Load(ctx)
	require.NoError(t, s.Update(ctx, func(p *model.Preferences) {
		p.DefaultAddress = "12 rue de la Paix, Paris"
		p.DefaultFilters[model.FilterDirectSale] = true
	}))

	reloaded := New(db, Options{}).Load(ctx)
	assert.Equal(t, "12 rue de la Paix, Paris", reloaded.DefaultAddress)
	assert.True(t, reloaded.DefaultFilters[model.FilterDirectSale])
	assert.Equal(t, model.DefaultRadiusKm, reloaded.DefaultRadius)
}

func TestSaveFailureLeavesLiveValue(t *testing.T) {
	rec := &memRecords{}
	s := New(rec, Options{})
	ctx := context.Background()
	s.Load(ctx)

	var notified int
	s.OnChange(func(model.Preferences) { notified++ })

	rec.putErr = &storage.Error{Op: "put", Err: errors.New("read-only")}
	p := s.Current()
	p.DefaultRadius = 50
	err := s.Save(ctx, p)

	var serr *storage.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, model.DefaultRadiusKm, s.Current().DefaultRadius)
	assert.Zero(t, notified)
}

func TestSaveNotifiesListeners(t *testing.T) {
	s := New(&memRecords{}, Options{})
	var got []model.Preferences
	s.OnChange(func(p model.Preferences) { got = append(got, p) })

	p := model.DefaultPreferences()
	p.DefaultFilters[model.FilterWholesalers] = true
	require.NoError(t, s.Save(context.Background(), p))

	require.Len(t, got, 1)
	assert.True(t, got[0].Filters().Has(model.FilterWholesalers))
}

func TestCurrentIsACopy(t *testing.T) {
	s := New(&memRecords{}, Options{})
	p := s.Current()
	p.DefaultFilters[model.FilterRestaurants] = true
	assert.False(t, s.Current().DefaultFilters[model.FilterRestaurants])
}

package favorites

import (
	"bytes"
	"context"
	"errors"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/bioconnect/internal/engine/storage"
	"github.com/rendis/bioconnect/internal/model"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func operator(id int, name, city string) model.Operator {
	return model.Operator{
		ID:            id,
		RaisonSociale: name,
		Addresses:     []model.Address{{Ville: city, CodePostal: "69001", Lieu: "1 rue du Bio"}},
		Activities:    []model.Activity{{Nom: "Production"}},
	}
}

func openStore(t *testing.T) (*Store, *storage.Store) {
	t.Helper()
	db, err := storage.NewStore(filepath.Join(t.TempDir(), "favorites.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db, Options{Now: newClock().Now})
	t.Cleanup(func() { s.Close() })
	return s, db
}

func TestAddIsVisibleImmediately(t *testing.T) {
	block := make(chan struct{})
	p := &blockingPersister{release: block}
	s := New(p, Options{})
	defer func() {
		close(block)
		s.Close()
	}()

	assert.True(t, s.Add(operator(3, "Ferme", "Lyon")))
	assert.True(t, s.IsFavorite(3), "visible before the write completes")
	assert.False(t, s.IsFavorite(4))
}

func TestDuplicateAddKeepsOneEntry(t *testing.T) {
	s, db := openStore(t)

	assert.True(t, s.Add(operator(5, "Ferme", "Lyon")))
	assert.False(t, s.Add(operator(5, "Ferme", "Lyon")))
	assert.Len(t, s.List(), 1)

	require.NoError(t, s.Flush(context.Background()))
	n, err := db.CountFavorites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRemoveThenReAddRefreshesDateAdded(t *testing.T) {
	s, db := openStore(t)
	ctx := context.Background()

	s.Add(operator(7, "Maraîcher", "Nantes"))
	require.NoError(t, s.Flush(ctx))
	first, err := db.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	assert.True(t, s.Remove(7))
	assert.False(t, s.IsFavorite(7))
	s.Add(operator(7, "Maraîcher", "Nantes"))
	require.NoError(t, s.Flush(ctx))

	rows, err := db.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0].ID)
	assert.True(t, rows[0].DateAdded.After(first[0].DateAdded))
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	s, _ := openStore(t)
	assert.False(t, s.Remove(42))
	assert.Zero(t, s.Len())
}

func TestToggle(t *testing.T) {
	s, _ := openStore(t)
	op := operator(9, "Boulangerie", "Paris")

	assert.True(t, s.Toggle(op))
	assert.True(t, s.IsFavorite(9))
	assert.False(t, s.Toggle(op))
	assert.False(t, s.IsFavorite(9))
}

func TestLoadAllHydratesCache(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.NewStore(filepath.Join(dir, "favorites.db"))
	require.NoError(t, err)
	defer db.Close()

	first := New(db, Options{Now: newClock().Now})
	first.Add(operator(1, "A", "Lyon"))
	first.Add(operator(2, "B", "Lyon"))
	require.NoError(t, first.Close())

	second := New(db, Options{})
	defer second.Close()
	recs, err := second.LoadAll(context.Background())
	require.NoError(t, err)

	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].ID, "newest first")
	assert.True(t, second.IsFavorite(1))
	assert.Equal(t, []int{2, 1}, ids(second.List()))
}

func TestPersistFailureIsLoggedNotSurfaced(t *testing.T) {
	var buf bytes.Buffer
	s := New(failingPersister{}, Options{Logger: log.New(&buf, "", 0)})
	defer s.Close()

	assert.True(t, s.Add(operator(11, "Ferme", "Lille")))
	require.NoError(t, s.Flush(context.Background()))

	assert.True(t, s.IsFavorite(11), "cache keeps the favorite")
	assert.EqualValues(t, 1, s.Failures())
	assert.Contains(t, buf.String(), "FAVORITES persist failed op=upsert id=11")
}

func TestLoadAllFailureReturnsStorageError(t *testing.T) {
	s := New(failingPersister{}, Options{})
	defer s.Close()

	_, err := s.LoadAll(context.Background())
	var serr *storage.Error
	assert.True(t, errors.As(err, &serr))
}

func TestSearchIgnoresAccentsAndCase(t *testing.T) {
	s, _ := openStore(t)
	s.Add(operator(1, "Fromagerie du Léman", "Thonon"))
	s.Add(operator(2, "Boulangerie Martin", "Évian"))

	assert.Equal(t, []int{1}, ids(s.Search("leman")))
	assert.Equal(t, []int{2}, ids(s.Search("EVIAN boulangerie")))
	assert.Len(t, s.Search("  "), 2)
	assert.Empty(t, s.Search("poisson"))
}

func TestFlushAfterClose(t *testing.T) {
	s := New(failingPersister{}, Options{})
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Flush(context.Background()), ErrClosed)

	// Cache still works after the writer stopped.
	assert.True(t, s.Add(operator(1, "A", "B")))
	assert.True(t, s.IsFavorite(1))
}

func ids(recs []model.FavoriteRecord) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

type failingPersister struct{}

func (failingPersister) UpsertFavorite(context.Context, model.FavoriteRecord) error {
	return &storage.Error{Op: "upsert favorite", Err: errors.New("disk full")}
}

func (failingPersister) DeleteFavorite(context.Context, int) error {
	return &storage.Error{Op: "delete favorite", Err: errors.New("disk full")}
}

func (failingPersister) Favorites(context.Context) ([]model.FavoriteRecord, error) {
	return nil, &storage.Error{Op: "list favorites", Err: errors.New("corrupt")}
}

type blockingPersister struct {
	release chan struct{}
}

func (b *blockingPersister) UpsertFavorite(ctx context.Context, _ model.FavoriteRecord) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func (b *blockingPersister) DeleteFavorite(context.Context, int) error { return nil }

func (b *blockingPersister) Favorites(context.Context) ([]model.FavoriteRecord, error) {
	return nil, nil
}

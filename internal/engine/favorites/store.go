package favorites

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rendis/bioconnect/internal/model"
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("favorites: store closed")

// Persister is the durable side of the cache. *storage.Store satisfies it.
type Persister interface {
	UpsertFavorite(ctx context.Context, f model.FavoriteRecord) error
	DeleteFavorite(ctx context.Context, id int) error
	Favorites(ctx context.Context) ([]model.FavoriteRecord, error)
}

type Options struct {
	Logger *log.Logger
	Now    func() time.Time
	// WriteTimeout bounds each background persistence call.
	WriteTimeout time.Duration
}

type opKind int

const (
	opUpsert opKind = iota
	opDelete
	opFlush
)

type op struct {
	kind opKind
	rec  model.FavoriteRecord
	id   int
	done chan struct{}
}

// Store is the in-memory favorites cache. Reads never touch the persister;
// writes update the cache synchronously and are persisted in enqueue order
// by a single background writer.
type Store struct {
	persister    Persister
	logger       *log.Logger
	now          func() time.Time
	writeTimeout time.Duration

	mu      sync.RWMutex
	cache   map[int]model.FavoriteRecord
	closed  bool
	ops     chan op
	stopped chan struct{}

	failures atomic.Int64
}

func New(p Persister, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	s := &Store{
		persister:    p,
		logger:       logger,
		now:          now,
		writeTimeout: opts.WriteTimeout,
		cache:        make(map[int]model.FavoriteRecord),
		ops:          make(chan op, 64),
		stopped:      make(chan struct{}),
	}
	go s.writer()
	return s
}

// LoadAll replaces the cache with the persisted set, newest first.
func (s *Store) LoadAll(ctx context.Context) ([]model.FavoriteRecord, error) {
	recs, err := s.persister.Favorites(ctx)
	if err != nil {
		s.logger.Printf("FAVORITES load failed err=%v", err)
		return nil, err
	}

	s.mu.Lock()
	s.cache = make(map[int]model.FavoriteRecord, len(recs))
	for _, r := range recs {
		s.cache[r.ID] = r
	}
	s.mu.Unlock()

	s.logger.Printf("FAVORITES loaded count=%d", len(recs))
	return recs, nil
}

// Add pins op. It returns false when the id is already a favorite.
func (s *Store) Add(o model.Operator) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache[o.ID]; ok {
		return false
	}
	rec := model.NewFavoriteRecord(o, s.now())
	s.cache[o.ID] = rec
	s.enqueue(op{kind: opUpsert, rec: rec})
	return true
}

// Remove unpins id. Unknown ids are a no-op.
func (s *Store) Remove(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache[id]; !ok {
		return false
	}
	delete(s.cache, id)
	s.enqueue(op{kind: opDelete, id: id})
	return true
}

// Toggle adds or removes o and returns the resulting membership.
func (s *Store) Toggle(o model.Operator) bool {
	if s.Remove(o.ID) {
		return false
	}
	s.Add(o)
	return true
}

func (s *Store) IsFavorite(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[id]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// List returns the cache ordered by DateAdded, newest first.
func (s *Store) List() []model.FavoriteRecord {
	s.mu.RLock()
	out := make([]model.FavoriteRecord, 0, len(s.cache))
	for _, r := range s.cache {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateAdded.Equal(out[j].DateAdded) {
			return out[i].DateAdded.After(out[j].DateAdded)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Search filters List by every word of text, ignoring case and accents.
func (s *Store) Search(text string) []model.FavoriteRecord {
	all := s.List()
	words := strings.Fields(normalize(text))
	if len(words) == 0 {
		return all
	}

	var out []model.FavoriteRecord
	for _, r := range all {
		haystack := normalize(strings.Join([]string{
			r.RaisonSociale, r.Ville, r.CodePostal, r.Activites,
		}, " "))
		match := true
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, r)
		}
	}
	return out
}

// Failures is the number of persistence writes that failed since start.
func (s *Store) Failures() int64 {
	return s.failures.Load()
}

// Flush waits until every write enqueued before the call has been attempted.
func (s *Store) Flush(ctx context.Context) error {
	done := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.enqueue(op{kind: opFlush, done: done})
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending writes and stops the writer. Later mutations only
// touch the cache.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ops)
	s.mu.Unlock()

	<-s.stopped
	return nil
}

// enqueue must be called with s.mu held so the queue order matches the
// order of cache mutations.
func (s *Store) enqueue(o op) {
	if s.closed {
		id := o.id
		if o.kind == opUpsert {
			id = o.rec.ID
		}
		s.logger.Printf("FAVORITES write dropped after close id=%d", id)
		return
	}
	s.ops <- o
}

func (s *Store) writer() {
	defer close(s.stopped)
	for o := range s.ops {
		switch o.kind {
		case opFlush:
			close(o.done)
		case opUpsert:
			s.apply("upsert", o.rec.ID, func(ctx context.Context) error {
				return s.persister.UpsertFavorite(ctx, o.rec)
			})
		case opDelete:
			s.apply("delete", o.id, func(ctx context.Context) error {
				return s.persister.DeleteFavorite(ctx, o.id)
			})
		}
	}
}

func (s *Store) apply(name string, id int, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.failures.Add(1)
		s.logger.Printf("FAVORITES persist failed op=%s id=%d err=%v", name, id, err)
		return
	}
	s.logger.Printf("FAVORITES persisted op=%s id=%d", name, id)
}

func normalize(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}

package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/rendis/bioconnect/internal/engine/storage"
	"github.com/rendis/bioconnect/internal/model"
)

// Key is the record the preferences are stored under.
const Key = "preferences"

// RecordStore is a single-key blob store. *storage.Store satisfies it.
type RecordStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

type Options struct {
	Logger *log.Logger
}

// Store holds the live preferences and persists them as one JSON record.
type Store struct {
	records RecordStore
	logger  *log.Logger

	mu        sync.RWMutex
	current   model.Preferences
	listeners []func(model.Preferences)
}

func New(records RecordStore, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{
		records: records,
		logger:  logger,
		current: model.DefaultPreferences(),
	}
}

// Load reads the persisted record into the live value. A missing or
// unreadable record yields the defaults; Load never fails.
func (s *Store) Load(ctx context.Context) model.Preferences {
	p := model.DefaultPreferences()

	raw, err := s.records.Get(ctx, Key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Printf("PREFS none stored, using defaults")
	case err != nil:
		s.logger.Printf("PREFS load failed, using defaults err=%v", err)
	default:
		var stored model.Preferences
		if err := json.Unmarshal(raw, &stored); err != nil {
			s.logger.Printf("PREFS unparsable record, using defaults err=%v", err)
		} else {
			p = stored.Normalized()
		}
	}

	s.set(p)
	return p.Clone()
}

// Save overwrites the persisted record. On failure the live value is left
// unchanged and the error is returned.
func (s *Store) Save(ctx context.Context, p model.Preferences) error {
	p = p.Normalized()
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	if err := s.records.Put(ctx, Key, raw); err != nil {
		s.logger.Printf("PREFS save failed err=%v", err)
		return fmt.Errorf("saving preferences: %w", err)
	}
	s.logger.Printf("PREFS saved radius=%d filters=%s geolocation=%t", p.DefaultRadius, p.Filters(), p.UseGeolocation)
	s.set(p)
	return nil
}

// Update applies fn to a copy of the live value and saves the result.
func (s *Store) Update(ctx context.Context, fn func(*model.Preferences)) error {
	p := s.Current()
	fn(&p)
	return s.Save(ctx, p)
}

// Current returns a copy of the live value.
func (s *Store) Current() model.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// OnChange registers fn to be called with every loaded or saved value.
func (s *Store) OnChange(fn func(model.Preferences)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) set(p model.Preferences) {
	s.mu.Lock()
	s.current = p.Clone()
	listeners := append(([]func(model.Preferences))(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(p.Clone())
	}
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rendis/bioconnect/internal/model"
)

// ErrNotFound is returned by Get when the key has no record.
var ErrNotFound = errors.New("record not found")

// Error is a persistence failure. Op names the failing operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, wrap("open", fmt.Errorf("creating db dir: %w", err))
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap("open", fmt.Errorf("opening db: %w", err))
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, wrap("open", fmt.Errorf("setting pragma %q: %w", p, err))
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, wrap("open", err)
	}

	return &Store{db: db}, nil
}

// Column names follow the database written by the mobile app so an existing
// favorites file can be opened as is.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS favorites (
		id INTEGER PRIMARY KEY,
		raisonSociale TEXT,
		ville TEXT,
		codePostal TEXT,
		activites TEXT,
		telephone TEXT,
		email TEXT,
		adresse TEXT,
		dateAdded TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_favorites_date_added ON favorites(dateAdded);

	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// UpsertFavorite inserts or replaces the record with the same id.
func (s *Store) UpsertFavorite(ctx context.Context, f model.FavoriteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO favorites
		(id, raisonSociale, ville, codePostal, activites, telephone, email, adresse, dateAdded)
		VALUES (?,?,?,?,?,?,?,?,?)
	`,
		f.ID, f.RaisonSociale, f.Ville, f.CodePostal, f.Activites,
		f.Telephone, f.Email, f.Adresse, model.FormatTimestamp(f.DateAdded),
	)
	return wrap("upsert favorite", err)
}

// DeleteFavorite removes the record; a missing id is not an error.
func (s *Store) DeleteFavorite(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE id = ?", id)
	return wrap("delete favorite", err)
}

// Favorites returns every record, most recently added first.
func (s *Store) Favorites(ctx context.Context) ([]model.FavoriteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, raisonSociale, ville, codePostal, activites, telephone, email, adresse, dateAdded
		FROM favorites ORDER BY dateAdded DESC, id DESC`)
	if err != nil {
		return nil, wrap("list favorites", err)
	}
	defer rows.Close()

	var favorites []model.FavoriteRecord
	for rows.Next() {
		var (
			f     model.FavoriteRecord
			name  sql.NullString
			ville sql.NullString
			cp    sql.NullString
			act   sql.NullString
			tel   sql.NullString
			email sql.NullString
			addr  sql.NullString
			added sql.NullString
		)
		if err := rows.Scan(&f.ID, &name, &ville, &cp, &act, &tel, &email, &addr, &added); err != nil {
			return nil, wrap("list favorites", err)
		}
		f.RaisonSociale = name.String
		f.Ville = ville.String
		f.CodePostal = cp.String
		f.Activites = act.String
		f.Telephone = tel.String
		f.Email = email.String
		f.Adresse = addr.String
		if added.Valid {
			// A malformed timestamp leaves the zero time; the record itself is kept.
			f.DateAdded, _ = model.ParseTimestamp(added.String)
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list favorites", err)
	}
	return favorites, nil
}

func (s *Store) CountFavorites(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM favorites").Scan(&count)
	return count, wrap("count favorites", err)
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("get "+key, err)
	}
	return []byte(value), nil
}

// Put overwrites the value stored under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value), model.FormatTimestamp(time.Now()))
	return wrap("put "+key, err)
}

func (s *Store) Close() error {
	return s.db.Close()
}

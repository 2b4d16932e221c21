package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/spinplate/internal/model"
)

// historyKey is the kv_state row holding the serialized visit history.
const historyKey = "visit_history"

// SQLiteStore implements Store as a single JSON document in a key-value table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS kv_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database handle is usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Load returns the saved history, or an empty one when nothing was saved yet.
func (s *SQLiteStore) Load(ctx context.Context) (model.History, error) {
	raw, err := s.get(ctx, historyKey)
	if eris.Is(err, ErrNotFound) {
		return emptyHistory(), nil
	}
	if err != nil {
		return model.History{}, err
	}

	var h model.History
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return model.History{}, eris.Wrap(err, "sqlite: decode history")
	}
	if h.Version > model.HistoryVersion {
		return model.History{}, eris.Errorf("sqlite: history version %d is newer than %d", h.Version, model.HistoryVersion)
	}
	return normalize(h), nil
}

// Save overwrites the stored history.
func (s *SQLiteStore) Save(ctx context.Context, h model.History) error {
	data, err := json.Marshal(normalize(h))
	if err != nil {
		return eris.Wrap(err, "sqlite: encode history")
	}
	return s.put(ctx, historyKey, string(data))
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", eris.Wrapf(ErrNotFound, "sqlite: get %s", key)
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: get %s", key)
	}
	return value, nil
}

func (s *SQLiteStore) put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put %s", key)
}

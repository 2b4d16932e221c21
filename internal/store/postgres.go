package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spinplate/internal/db"
	"github.com/sells-group/spinplate/internal/model"
)

// visitsTable holds one row per visit; position preserves most-recent-first order.
const visitsTable = "visit_history"

var visitColumns = []string{
	"position", "id", "candidate_id", "candidate_name", "visited_at",
	"user_rating", "notes", "dining_type",
}

// PostgresStore implements Store using pgxpool. Save replaces the whole
// table in one transaction.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS visit_history (
	position       INTEGER     NOT NULL,
	id             TEXT        PRIMARY KEY,
	candidate_id   TEXT        NOT NULL,
	candidate_name TEXT        NOT NULL DEFAULT '',
	visited_at     TIMESTAMPTZ NOT NULL,
	user_rating    SMALLINT    NOT NULL DEFAULT 0 CHECK (user_rating BETWEEN 0 AND 5),
	notes          TEXT        NOT NULL DEFAULT '',
	dining_type    TEXT        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_visit_history_position ON visit_history(position);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (model.History, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, candidate_id, candidate_name, visited_at, user_rating, notes, dining_type
		 FROM visit_history ORDER BY position`)
	if err != nil {
		return model.History{}, eris.Wrap(err, "postgres: load history")
	}
	defer rows.Close()

	h := emptyHistory()
	for rows.Next() {
		var (
			v      model.VisitRecord
			rating int16
			dt     string
		)
		if err := rows.Scan(&v.ID, &v.CandidateID, &v.CandidateName, &v.VisitedAt, &rating, &v.Notes, &dt); err != nil {
			return model.History{}, eris.Wrap(err, "postgres: scan visit")
		}
		v.UserRating = int(rating)
		v.DiningTypeAtVisit = model.DiningType(dt)
		h.Visits = append(h.Visits, v)
	}
	if err := rows.Err(); err != nil {
		return model.History{}, eris.Wrap(err, "postgres: iterate visits")
	}
	return h, nil
}

func (s *PostgresStore) Save(ctx context.Context, h model.History) error {
	rows := make([][]any, len(h.Visits))
	for i, v := range h.Visits {
		rows[i] = []any{
			int32(i), v.ID, v.CandidateID, v.CandidateName, v.VisitedAt.UTC(),
			int16(v.UserRating), v.Notes, string(v.DiningTypeAtVisit),
		}
	}
	if _, err := db.ReplaceAll(ctx, s.pool, visitsTable, visitColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: save history")
	}
	return nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

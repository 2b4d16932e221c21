// Package store persists the visit history, the only piece of spinplate
// state that outlives the process.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/spinplate/internal/db"
	"github.com/sells-group/spinplate/internal/model"
)

// ErrNotFound marks an absent persisted value. Load maps it to an empty
// history; it never reaches callers.
var ErrNotFound = eris.New("store: not found")

// Store loads and saves the visit history.
type Store interface {
	Load(ctx context.Context) (model.History, error)
	Save(ctx context.Context, h model.History) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Open builds the store for driver and runs its migrations.
func Open(ctx context.Context, driver, dsn string, poolCfg *db.PoolConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = "spinplate.db"
		}
		s, err = NewSQLite(dsn)
	case DriverPostgres:
		if dsn == "" {
			return nil, eris.New("store: postgres requires a database_url")
		}
		s, err = NewPostgres(ctx, dsn, poolCfg)
	case DriverMemory:
		s = NewMemory()
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func emptyHistory() model.History {
	return model.History{Version: model.HistoryVersion, Visits: []model.VisitRecord{}}
}

// normalize stamps the current schema version and replaces a nil slice.
func normalize(h model.History) model.History {
	if h.Version == 0 {
		h.Version = model.HistoryVersion
	}
	if h.Visits == nil {
		h.Visits = []model.VisitRecord{}
	}
	return h
}

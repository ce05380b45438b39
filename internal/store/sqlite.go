package store

import (
	"database/sql"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// SQLiteStore keeps runs in a SQLite database file.
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string, logger *logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to open sqlite", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	store, err := newSQLStore(db, logger, sqliteIndexes)
	if err != nil {
		db.Close()

		return nil, err
	}

	return &SQLiteStore{sqlStore: store}, nil
}

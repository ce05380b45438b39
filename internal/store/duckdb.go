package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBStore keeps runs in a DuckDB database file.
type DuckDBStore struct {
	*sqlStore
}

// NewDuckDBStore opens (or creates) the DuckDB database at path. An empty path or
// ":memory:" keeps everything in memory.
func NewDuckDBStore(path string, logger *logger.Logger) (*DuckDBStore, error) {
	if path == ":memory:" {
		path = ""
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to open duckdb", err)
	}

	store, err := newSQLStore(db, logger, nil)
	if err != nil {
		db.Close()

		return nil, err
	}

	return &DuckDBStore{sqlStore: store}, nil
}

// Export writes every run table to dir as <table>.parquet.
func (s *DuckDBStore) Export(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, "failed to create export folder", err)
	}

	for _, table := range tables {
		path := filepath.Join(dir, table+".parquet")

		// Squirrel doesn't support COPY
		_, err := s.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, path))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeExportFailed, err, "failed to export %s", table)
		}

		s.logger.Debug("Table exported", zap.String("table", table), zap.String("path", path))
	}

	return nil
}

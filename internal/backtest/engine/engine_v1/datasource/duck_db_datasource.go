package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType

	initialized bool
	// hasIndicators is set once a long-format indicator file has been attached
	hasIndicators bool
}

// NewDataSource creates a new DuckDB data source instance with the specified database path.
// The path parameter specifies the DuckDB database file location (":memory:" or "" for in-memory).
// This is distinct from Initialize() which attaches market data files to the database.
func NewDataSource(path string, logger *logger.Logger) (*DuckDBDataSource, error) {
	if path == ":memory:" {
		path = ""
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource. path may be a single file or a glob; files ending in
// .csv are read with read_csv_auto, everything else with read_parquet.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	if err := d.createView("market_data", path); err != nil {
		return err
	}

	d.initialized = true

	return nil
}

// InitializeIndicators attaches a long-format indicator file with the columns
// symbol, time, indicator_name and value. Values found there are merged into the bars
// returned by LoadSeries and take precedence over wide columns of the same name.
func (d *DuckDBDataSource) InitializeIndicators(path string) error {
	d.logger.Debug("Initializing indicator data", zap.String("path", path))

	if err := d.createView("indicator_data", path); err != nil {
		return err
	}

	d.hasIndicators = true

	return nil
}

func (d *DuckDBDataSource) createView(name string, path string) error {
	_, err := d.db.Exec(fmt.Sprintf(`DROP VIEW IF EXISTS %s;`, name))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to drop existing view %s", name)
	}

	// Squirrel doesn't support CREATE VIEW
	query := fmt.Sprintf(`
		CREATE VIEW %s AS
		SELECT * FROM %s('%s');
	`, name, readerFor(path), strings.ReplaceAll(path, "'", "''"))

	_, err = d.db.Exec(query)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to read %s", path)
	}

	return nil
}

func readerFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return "read_csv_auto"
	}

	return "read_parquet"
}

// Symbols implements DataSource.
func (d *DuckDBDataSource) Symbols(ctx context.Context) ([]string, error) {
	if !d.initialized {
		return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	query, args, err := d.sq.
		Select("DISTINCT symbol").
		From("market_data").
		OrderBy("symbol").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to get symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating symbols", err)
	}

	return symbols, nil
}

// LoadSeries implements DataSource. Every column other than the base OHLCV columns is
// read as an indicator; NULL values are left out of the bar.
func (d *DuckDBDataSource) LoadSeries(ctx context.Context, symbol string, start time.Time, end time.Time) ([]types.Bar, error) {
	if !d.initialized {
		return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	d.logger.Debug("Loading series",
		zap.String("symbol", symbol),
		zap.Time("start", start),
		zap.Time("end", end),
	)

	// end is a calendar date; bars stamped later on that day are included
	query, args, err := d.sq.
		Select("*").
		From("market_data").
		Where(squirrel.And{
			squirrel.Eq{"symbol": symbol},
			squirrel.GtOrEq{"time": start},
			squirrel.Lt{"time": end.AddDate(0, 0, 1)},
		}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query market data for %s", symbol)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to get columns", err)
	}

	for _, column := range baseColumns {
		if !slices.Contains(columns, column) {
			return nil, errors.Newf(errors.ErrCodeUnsupportedDataFormat, "market data is missing column %q", column)
		}
	}

	bars := make([]types.Bar, 0, 256)

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))

		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan row", err)
		}

		bar, err := barFromRow(columns, values)
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating rows", err)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars found for symbol %s between %s and %s",
			symbol, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	if d.hasIndicators {
		if err := d.mergeIndicators(ctx, symbol, start, end, bars); err != nil {
			return nil, err
		}
	}

	return bars, nil
}

// mergeIndicators copies long-format indicator values onto the bars with the same timestamp.
func (d *DuckDBDataSource) mergeIndicators(ctx context.Context, symbol string, start time.Time, end time.Time, bars []types.Bar) error {
	query, args, err := d.sq.
		Select("time", "indicator_name", "value").
		From("indicator_data").
		Where(squirrel.And{
			squirrel.Eq{"symbol": symbol},
			squirrel.GtOrEq{"time": start},
			squirrel.Lt{"time": end.AddDate(0, 0, 1)},
			squirrel.NotEq{"value": nil},
		}).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query indicator data for %s", symbol)
	}
	defer rows.Close()

	index := make(map[int64]int, len(bars))
	for i, bar := range bars {
		index[bar.Date.UnixNano()] = i
	}

	for rows.Next() {
		var (
			timestamp time.Time
			name      string
			value     float64
		)

		if err := rows.Scan(&timestamp, &name, &value); err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan indicator row", err)
		}

		i, ok := index[timestamp.UnixNano()]
		if !ok {
			continue
		}

		bars[i] = bars[i].WithIndicator(name, value)
	}

	if err = rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "error iterating indicator rows", err)
	}

	return nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}

func barFromRow(columns []string, values []any) (types.Bar, error) {
	var bar types.Bar

	indicators := make(map[string]float64, len(columns)-len(baseColumns))

	for i, column := range columns {
		value := values[i]

		switch column {
		case "time":
			timestamp, ok := value.(time.Time)
			if !ok {
				return types.Bar{}, errors.Newf(errors.ErrCodeCorruptData, "unexpected time value %v", value)
			}

			bar.Date = timestamp
		case "symbol":
			symbol, ok := value.(string)
			if !ok {
				return types.Bar{}, errors.Newf(errors.ErrCodeCorruptData, "unexpected symbol value %v", value)
			}

			bar.Symbol = symbol
		default:
			number, ok := toFloat(value)
			if isBaseColumn(column) {
				if !ok {
					return types.Bar{}, errors.Newf(errors.ErrCodeCorruptData, "%s on %s has no numeric %s",
						bar.Symbol, bar.Date.Format(time.DateOnly), column)
				}

				setPrice(&bar, column, number)

				continue
			}

			if ok && !math.IsNaN(number) {
				indicators[column] = number
			}
		}
	}

	if len(indicators) > 0 {
		bar.Indicators = indicators
	}

	return bar, nil
}

func setPrice(bar *types.Bar, column string, value float64) {
	switch column {
	case "open":
		bar.Open = value
	case "high":
		bar.High = value
	case "low":
		bar.Low = value
	case "close":
		bar.Close = value
	case "volume":
		bar.Volume = value
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int8:
		return float64(v), true
	case int:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint8:
		return float64(v), true
	default:
		return 0, false
	}
}

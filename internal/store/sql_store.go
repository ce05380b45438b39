package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// insertBatchSize bounds the rows per INSERT statement for trades and equity points.
const insertBatchSize = 500

// sqlStore is the dialect-independent RunStore implementation.
type sqlStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func newSQLStore(db *sql.DB, log *logger.Logger, extra []string) (*sqlStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	s := &sqlStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	for _, statement := range append(append([]string{}, schema...), extra...) {
		if _, err := db.Exec(statement); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to create run tables", err)
		}
	}

	return s, nil
}

// GetRun implements RunStore.
func (s *sqlStore) GetRun(ctx context.Context, id string) (optional.Option[types.BacktestRun], error) {
	query := s.sq.
		Select(
			"id", "strategy_name", "strategy_kind", "strategy_fingerprint", "start_date", "end_date",
			"symbols", "capital", "status", "metrics", "succeeded_symbols", "failed_symbols",
			"skipped_signals", "warnings", "engine_version", "created_at",
		).
		From("backtest_runs").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		RunWith(s.db)

	var (
		run                               types.BacktestRun
		start, end, created               string
		symbols, metrics, warnings        string
		strategyKind, status, fingerprint sql.NullString
		succeeded, failed, skipped        int
	)

	err := query.QueryRowContext(ctx).Scan(
		&run.ID, &run.StrategyName, &strategyKind, &fingerprint, &start, &end,
		&symbols, &run.Capital, &status, &metrics, &succeeded, &failed,
		&skipped, &warnings, &run.EngineVersion, &created,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return optional.None[types.BacktestRun](), nil
		}

		return optional.None[types.BacktestRun](), errors.Wrapf(errors.ErrCodeStoreFailed, err, "failed to get run %s", id)
	}

	run.StrategyKind = types.StrategyKind(strategyKind.String)
	run.StrategyFingerprint = fingerprint.String
	run.Status = types.RunStatus(status.String)
	run.SucceededSymbols = succeeded
	run.FailedSymbols = failed
	run.SkippedSignals = skipped

	if err := decodeRunFields(&run, start, end, created, symbols, metrics, warnings); err != nil {
		return optional.None[types.BacktestRun](), err
	}

	if run.Trades, err = s.loadTrades(ctx, id); err != nil {
		return optional.None[types.BacktestRun](), err
	}

	curves, err := s.loadEquity(ctx, id)
	if err != nil {
		return optional.None[types.BacktestRun](), err
	}

	run.EquityCurve = curves[""]

	if run.SymbolResults, err = s.loadSymbolResults(ctx, id, run.Trades, curves); err != nil {
		return optional.None[types.BacktestRun](), err
	}

	return optional.Some(run), nil
}

// SaveRun implements RunStore.
func (s *sqlStore) SaveRun(ctx context.Context, run types.BacktestRun) error {
	if run.ID == "" {
		return errors.New(errors.ErrCodeStoreFailed, "run has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to begin transaction", err)
	}

	if err := s.deleteRows(ctx, tx, run.ID); err != nil {
		tx.Rollback()

		return err
	}

	if err := s.insertRun(ctx, tx, run); err != nil {
		tx.Rollback()

		return err
	}

	if err := s.insertTrades(ctx, tx, run.ID, run.Trades); err != nil {
		tx.Rollback()

		return err
	}

	if err := s.insertEquity(ctx, tx, run.ID, "", run.EquityCurve); err != nil {
		tx.Rollback()

		return err
	}

	for i, result := range run.SymbolResults {
		if err := s.insertSymbolResult(ctx, tx, run.ID, i, result); err != nil {
			tx.Rollback()

			return err
		}

		if err := s.insertEquity(ctx, tx, run.ID, result.Symbol, result.EquityCurve); err != nil {
			tx.Rollback()

			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to commit transaction", err)
	}

	s.logger.Debug("Run saved",
		zap.String("run_id", run.ID),
		zap.Int("trades", len(run.Trades)),
		zap.Int("symbols", len(run.SymbolResults)),
	)

	return nil
}

// DeleteRun implements RunStore.
func (s *sqlStore) DeleteRun(ctx context.Context, id string) error {
	existing, err := s.exists(ctx, id)
	if err != nil {
		return err
	}

	if !existing {
		return errors.Newf(errors.ErrCodeRunNotFound, "run %s not found", id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to begin transaction", err)
	}

	if err := s.deleteRows(ctx, tx, id); err != nil {
		tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to commit transaction", err)
	}

	return nil
}

// ListRuns implements RunStore.
func (s *sqlStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.sq.
		Select(
			"id", "strategy_name", "strategy_kind", "start_date", "end_date", "symbols", "capital",
			"status", "metrics", "succeeded_symbols", "failed_symbols", "created_at",
		).
		From("backtest_runs").
		OrderBy("created_at DESC", "id").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to list runs", err)
	}
	defer rows.Close()

	var summaries []RunSummary

	for rows.Next() {
		var (
			summary             RunSummary
			start, end, created string
			symbols, metrics    string
			strategyKind        sql.NullString
			status              sql.NullString
		)

		err := rows.Scan(
			&summary.ID, &summary.StrategyName, &strategyKind, &start, &end, &symbols, &summary.Capital,
			&status, &metrics, &summary.SucceededSymbols, &summary.FailedSymbols, &created,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to scan run", err)
		}

		summary.StrategyKind = types.StrategyKind(strategyKind.String)
		summary.Status = types.RunStatus(status.String)

		if summary.StartDate, err = parseTime(start); err != nil {
			return nil, err
		}

		if summary.EndDate, err = parseTime(end); err != nil {
			return nil, err
		}

		if summary.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}

		if err := decodeJSON(symbols, &summary.Symbols); err != nil {
			return nil, err
		}

		if err := decodeJSON(metrics, &summary.Metrics); err != nil {
			return nil, err
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "error iterating runs", err)
	}

	return summaries, nil
}

// Close implements RunStore.
func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

func (s *sqlStore) exists(ctx context.Context, id string) (bool, error) {
	var count int

	err := s.sq.
		Select("COUNT(*)").
		From("backtest_runs").
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&count)
	if err != nil {
		return false, errors.Wrapf(errors.ErrCodeStoreFailed, err, "failed to look up run %s", id)
	}

	return count > 0, nil
}

func (s *sqlStore) deleteRows(ctx context.Context, tx *sql.Tx, id string) error {
	for _, table := range tables {
		column := "run_id"
		if table == "backtest_runs" {
			column = "id"
		}

		_, err := s.sq.
			Delete(table).
			Where(squirrel.Eq{column: id}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeStoreFailed, err, "failed to delete from %s", table)
		}
	}

	return nil
}

func (s *sqlStore) insertRun(ctx context.Context, tx *sql.Tx, run types.BacktestRun) error {
	symbols, err := encodeJSON(run.Symbols)
	if err != nil {
		return err
	}

	metrics, err := encodeJSON(run.Metrics)
	if err != nil {
		return err
	}

	warnings, err := encodeJSON(run.Warnings)
	if err != nil {
		return err
	}

	_, err = s.sq.
		Insert("backtest_runs").
		Columns(
			"id", "strategy_name", "strategy_kind", "strategy_fingerprint", "start_date", "end_date",
			"symbols", "capital", "status", "metrics", "succeeded_symbols", "failed_symbols",
			"skipped_signals", "warnings", "engine_version", "created_at",
		).
		Values(
			run.ID, run.StrategyName, string(run.StrategyKind), run.StrategyFingerprint,
			formatTime(run.StartDate), formatTime(run.EndDate), symbols, run.Capital, string(run.Status),
			metrics, run.SucceededSymbols, run.FailedSymbols, run.SkippedSignals, warnings,
			run.EngineVersion, formatTime(run.CreatedAt),
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to insert run", err)
	}

	return nil
}

func (s *sqlStore) insertTrades(ctx context.Context, tx *sql.Tx, runID string, trades []types.Trade) error {
	for offset := 0; offset < len(trades); offset += insertBatchSize {
		batch := trades[offset:min(offset+insertBatchSize, len(trades))]

		insert := s.sq.
			Insert("backtest_trades").
			Columns(
				"run_id", "seq", "symbol", "entry_date", "entry_price", "exit_date", "exit_price",
				"shares", "gross_pnl", "commission", "slippage", "net_pnl", "return_percent",
				"holding_days", "exit_reason", "liquidated_at_end",
			)

		for i, trade := range batch {
			insert = insert.Values(
				runID, offset+i, trade.Symbol, formatTime(trade.EntryDate), trade.EntryPrice,
				formatTime(trade.ExitDate), trade.ExitPrice, trade.Shares, trade.GrossPnL,
				trade.Commission, trade.Slippage, trade.NetPnL, trade.ReturnPercent,
				trade.HoldingDays, string(trade.ExitReason), trade.LiquidatedAtEnd,
			)
		}

		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			return errors.Wrap(errors.ErrCodeStoreFailed, "failed to insert trades", err)
		}
	}

	return nil
}

func (s *sqlStore) insertEquity(ctx context.Context, tx *sql.Tx, runID string, symbol string, curve types.EquityCurve) error {
	for offset := 0; offset < len(curve); offset += insertBatchSize {
		batch := curve[offset:min(offset+insertBatchSize, len(curve))]

		insert := s.sq.
			Insert("backtest_equity").
			Columns("run_id", "symbol", "seq", "date", "value")

		for i, point := range batch {
			insert = insert.Values(runID, symbol, offset+i, formatTime(point.Date), point.Value)
		}

		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			return errors.Wrap(errors.ErrCodeStoreFailed, "failed to insert equity curve", err)
		}
	}

	return nil
}

func (s *sqlStore) insertSymbolResult(ctx context.Context, tx *sql.Tx, runID string, seq int, result types.SymbolResult) error {
	metrics, err := encodeJSON(result.Metrics)
	if err != nil {
		return err
	}

	warnings, err := encodeJSON(result.Warnings)
	if err != nil {
		return err
	}

	_, err = s.sq.
		Insert("backtest_symbol_results").
		Columns("run_id", "seq", "symbol", "status", "error", "metrics", "skipped_signals", "warnings").
		Values(runID, seq, result.Symbol, string(result.Status), result.Error, metrics, result.SkippedSignals, warnings).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to insert symbol result", err)
	}

	return nil
}

func (s *sqlStore) loadTrades(ctx context.Context, runID string) ([]types.Trade, error) {
	rows, err := s.sq.
		Select(
			"symbol", "entry_date", "entry_price", "exit_date", "exit_price", "shares", "gross_pnl",
			"commission", "slippage", "net_pnl", "return_percent", "holding_days", "exit_reason",
			"liquidated_at_end",
		).
		From("backtest_trades").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("seq").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var (
			trade       types.Trade
			entry, exit string
			reason      string
		)

		err := rows.Scan(
			&trade.Symbol, &entry, &trade.EntryPrice, &exit, &trade.ExitPrice, &trade.Shares,
			&trade.GrossPnL, &trade.Commission, &trade.Slippage, &trade.NetPnL, &trade.ReturnPercent,
			&trade.HoldingDays, &reason, &trade.LiquidatedAtEnd,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to scan trade", err)
		}

		trade.ExitReason = types.ExitReason(reason)

		if trade.EntryDate, err = parseTime(entry); err != nil {
			return nil, err
		}

		if trade.ExitDate, err = parseTime(exit); err != nil {
			return nil, err
		}

		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "error iterating trades", err)
	}

	return trades, nil
}

// loadEquity returns every curve of the run keyed by symbol; the portfolio curve has key "".
func (s *sqlStore) loadEquity(ctx context.Context, runID string) (map[string]types.EquityCurve, error) {
	rows, err := s.sq.
		Select("symbol", "date", "value").
		From("backtest_equity").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("symbol", "seq").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to query equity curves", err)
	}
	defer rows.Close()

	curves := make(map[string]types.EquityCurve)

	for rows.Next() {
		var (
			symbol string
			date   string
			point  types.EquityPoint
		)

		if err := rows.Scan(&symbol, &date, &point.Value); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to scan equity point", err)
		}

		if point.Date, err = parseTime(date); err != nil {
			return nil, err
		}

		curves[symbol] = append(curves[symbol], point)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "error iterating equity curves", err)
	}

	return curves, nil
}

func (s *sqlStore) loadSymbolResults(ctx context.Context, runID string, trades []types.Trade, curves map[string]types.EquityCurve) ([]types.SymbolResult, error) {
	rows, err := s.sq.
		Select("symbol", "status", "error", "metrics", "skipped_signals", "warnings").
		From("backtest_symbol_results").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("seq").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to query symbol results", err)
	}
	defer rows.Close()

	var results []types.SymbolResult

	for rows.Next() {
		var (
			result            types.SymbolResult
			status, message   sql.NullString
			metrics, warnings string
		)

		if err := rows.Scan(&result.Symbol, &status, &message, &metrics, &result.SkippedSignals, &warnings); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to scan symbol result", err)
		}

		result.Status = types.SymbolStatus(status.String)
		result.Error = message.String
		result.EquityCurve = curves[result.Symbol]

		if err := decodeJSON(metrics, &result.Metrics); err != nil {
			return nil, err
		}

		if err := decodeJSON(warnings, &result.Warnings); err != nil {
			return nil, err
		}

		for _, trade := range trades {
			if trade.Symbol == result.Symbol {
				result.Trades = append(result.Trades, trade)
			}
		}

		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "error iterating symbol results", err)
	}

	return results, nil
}

func decodeRunFields(run *types.BacktestRun, start, end, created, symbols, metrics, warnings string) error {
	var err error

	if run.StartDate, err = parseTime(start); err != nil {
		return err
	}

	if run.EndDate, err = parseTime(end); err != nil {
		return err
	}

	if run.CreatedAt, err = parseTime(created); err != nil {
		return err
	}

	if err := decodeJSON(symbols, &run.Symbols); err != nil {
		return err
	}

	if err := decodeJSON(metrics, &run.Metrics); err != nil {
		return err
	}

	return decodeJSON(warnings, &run.Warnings)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrCodeStoreFailed, err, "invalid stored time %q", s)
	}

	return t, nil
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStoreFailed, "failed to encode column", err)
	}

	return string(data), nil
}

func decodeJSON(s string, v any) error {
	if s == "" || s == "null" {
		return nil
	}

	if err := json.Unmarshal([]byte(s), v); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to decode column", err)
	}

	return nil
}

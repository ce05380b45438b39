package store

// Table definitions shared by every dialect. Dates are stored as RFC 3339 text and
// metrics, symbol lists and warnings as JSON so that both DuckDB and SQLite round-trip
// them identically. Run IDs are kept unique by SaveRun's delete-then-insert transaction
// instead of a primary key, since DuckDB rejects re-inserting a deleted key within one
// transaction.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS backtest_runs (
		id TEXT NOT NULL,
		strategy_name TEXT,
		strategy_kind TEXT,
		strategy_fingerprint TEXT,
		start_date TEXT,
		end_date TEXT,
		symbols TEXT,
		capital DOUBLE,
		status TEXT,
		metrics TEXT,
		succeeded_symbols INTEGER,
		failed_symbols INTEGER,
		skipped_signals INTEGER,
		warnings TEXT,
		engine_version TEXT,
		created_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS backtest_trades (
		run_id TEXT NOT NULL,
		seq INTEGER,
		symbol TEXT,
		entry_date TEXT,
		entry_price DOUBLE,
		exit_date TEXT,
		exit_price DOUBLE,
		shares BIGINT,
		gross_pnl DOUBLE,
		commission DOUBLE,
		slippage DOUBLE,
		net_pnl DOUBLE,
		return_percent DOUBLE,
		holding_days INTEGER,
		exit_reason TEXT,
		liquidated_at_end BOOLEAN
	)`,
	// symbol is empty for the portfolio curve
	`CREATE TABLE IF NOT EXISTS backtest_equity (
		run_id TEXT NOT NULL,
		symbol TEXT,
		seq INTEGER,
		date TEXT,
		value DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS backtest_symbol_results (
		run_id TEXT NOT NULL,
		seq INTEGER,
		symbol TEXT,
		status TEXT,
		error TEXT,
		metrics TEXT,
		skipped_signals INTEGER,
		warnings TEXT
	)`,
}

// sqliteIndexes are only created on SQLite; DuckDB scans these tables fast enough without ART indexes.
var sqliteIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_backtest_runs_id ON backtest_runs (id)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades (run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_equity_run ON backtest_equity (run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_symbol_results_run ON backtest_symbol_results (run_id)`,
}

var tables = []string{"backtest_runs", "backtest_trades", "backtest_equity", "backtest_symbol_results"}

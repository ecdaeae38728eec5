// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS symbols (
	symbol TEXT PRIMARY KEY,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS prices (
	seq INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	price REAL NOT NULL,
	PRIMARY KEY (seq, symbol)
);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	dataset TEXT NOT NULL,
	params TEXT NOT NULL,
	failed INTEGER NOT NULL,
	total_pnl REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL,
	symbol_a TEXT NOT NULL,
	symbol_b TEXT NOT NULL,
	pnl REAL NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	PRIMARY KEY (run_id, symbol_a, symbol_b)
);

CREATE TABLE IF NOT EXISTS screen_results (
	run_id TEXT NOT NULL,
	symbol_a TEXT NOT NULL,
	symbol_b TEXT NOT NULL,
	statistic REAL,
	p_value REAL NOT NULL,
	used_lag INTEGER NOT NULL,
	accepted INTEGER NOT NULL,
	PRIMARY KEY (run_id, symbol_a, symbol_b)
);

CREATE INDEX IF NOT EXISTS idx_prices_symbol ON prices(symbol, seq);
`

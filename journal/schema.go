package journal

const Schema = `
CREATE TABLE IF NOT EXISTS deals (
	ticket INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	order_ticket INTEGER NOT NULL,
	position_ticket INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	entry TEXT NOT NULL,
	volume REAL NOT NULL,
	price REAL NOT NULL,
	profit REAL NOT NULL,
	time DATETIME NOT NULL,
	PRIMARY KEY (run_id, ticket)
);

CREATE INDEX IF NOT EXISTS idx_deals_time ON deals(time);
CREATE INDEX IF NOT EXISTS idx_deals_position ON deals(position_ticket);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL,
	margin REAL NOT NULL,
	free_margin REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`

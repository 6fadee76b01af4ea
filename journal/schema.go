// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS actions (
	time DATETIME NOT NULL,
	type TEXT NOT NULL,
	position_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	contracts INTEGER NOT NULL,
	price REAL NOT NULL,
	pnl_pct REAL NOT NULL,
	executed INTEGER NOT NULL,
	dry_run INTEGER NOT NULL,
	order_id TEXT,
	message TEXT
);

CREATE TABLE IF NOT EXISTS positions (
	position_id TEXT PRIMARY KEY,
	ticker TEXT NOT NULL,
	option_type TEXT NOT NULL,
	strike REAL NOT NULL,
	expiration DATETIME NOT NULL,
	contracts INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_price REAL NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pnl REAL NOT NULL,
	state TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_actions_time ON actions(time);
CREATE INDEX IF NOT EXISTS idx_actions_position ON actions(position_id);
`

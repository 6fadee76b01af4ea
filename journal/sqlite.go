package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordAction(a ActionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO actions
		(time, type, position_id, ticker, contracts, price, pnl_pct, executed, dry_run, order_id, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Time, a.Type, a.PositionID, a.Ticker, a.Contracts,
		a.Price, a.PnLPct, a.Executed, a.DryRun, a.OrderID, a.Message,
	)
	return err
}

func (j *SQLiteJournal) RecordPosition(p PositionRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO positions
		(position_id, ticker, option_type, strike, expiration, contracts, entry_price, entry_time, exit_price, close_time, realized_pnl, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.PositionID, p.Ticker, p.OptionType, p.Strike, p.Expiration,
		p.Contracts, p.EntryPrice, p.EntryTime, p.ExitPrice, p.CloseTime,
		p.RealizedPnL, p.State,
	)
	return err
}

// ListActions returns actions recorded between from and to, oldest first.
func (j *SQLiteJournal) ListActions(from, to time.Time) ([]ActionRecord, error) {
	rows, err := j.db.Query(`
		SELECT time, type, position_id, ticker, contracts, price, pnl_pct, executed, dry_run, order_id, message
		FROM actions WHERE time >= ? AND time <= ? ORDER BY time`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var a ActionRecord
		var orderID, message sql.NullString
		if err := rows.Scan(&a.Time, &a.Type, &a.PositionID, &a.Ticker, &a.Contracts,
			&a.Price, &a.PnLPct, &a.Executed, &a.DryRun, &orderID, &message); err != nil {
			return nil, err
		}
		a.OrderID = orderID.String
		a.Message = message.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListPositions returns positions closed between from and to, oldest first.
func (j *SQLiteJournal) ListPositions(from, to time.Time) ([]PositionRecord, error) {
	rows, err := j.db.Query(`
		SELECT position_id, ticker, option_type, strike, expiration, contracts, entry_price, entry_time, exit_price, close_time, realized_pnl, state
		FROM positions WHERE close_time >= ? AND close_time <= ? ORDER BY close_time`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionRecord
	for rows.Next() {
		var p PositionRecord
		if err := rows.Scan(&p.PositionID, &p.Ticker, &p.OptionType, &p.Strike,
			&p.Expiration, &p.Contracts, &p.EntryPrice, &p.EntryTime,
			&p.ExitPrice, &p.CloseTime, &p.RealizedPnL, &p.State); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

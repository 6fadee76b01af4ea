// journal/journal.go
package journal

import "time"

// ActionRecord is one attempted (or simulated) executor action: a trim, a
// stop, a forced close, or an entry.
type ActionRecord struct {
	Time       time.Time
	Type       string
	PositionID string
	Ticker     string
	Contracts  int
	Price      float64
	PnLPct     float64
	Executed   bool
	DryRun     bool
	OrderID    string
	Message    string
}

// PositionRecord is the terminal snapshot of a position once it leaves the
// books.
type PositionRecord struct {
	PositionID  string
	Ticker      string
	OptionType  string
	Strike      float64
	Expiration  time.Time
	Contracts   int
	EntryPrice  float64
	EntryTime   time.Time
	ExitPrice   float64
	CloseTime   time.Time
	RealizedPnL float64
	State       string
}

type Journal interface {
	RecordAction(ActionRecord) error
	RecordPosition(PositionRecord) error
	Close() error
}

// Nop is a journal that drops everything. Used in dry runs and tests that
// don't care about persistence.
type Nop struct{}

func (Nop) RecordAction(ActionRecord) error     { return nil }
func (Nop) RecordPosition(PositionRecord) error { return nil }
func (Nop) Close() error                        { return nil }

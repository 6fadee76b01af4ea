package executor

import "time"

// ActionType names the rule that produced an action.
type ActionType string

const (
	ActionHardStop        ActionType = "hard_stop"
	Action0DTEClose       ActionType = "0dte_close"
	ActionDTEClose        ActionType = "dte_close"
	ActionATRTrailingStop ActionType = "atr_trailing_stop"
	ActionTrailingStop    ActionType = "trailing_stop"
	ActionTrim2           ActionType = "trim_2"
	ActionTrim1           ActionType = "trim_1"
	ActionEntry           ActionType = "entry"
)

// Action is the record of one attempted executor action, whether it was
// executed, simulated, or failed. One is emitted per triggered rule per
// cycle.
type Action struct {
	Type       ActionType
	PositionID string
	Ticker     string
	Contracts  int
	Price      float64
	PnLPct     float64

	Executed bool
	DryRun   bool
	OrderID  string
	Message  string
	Time     time.Time

	// Rule-specific context
	DTE         int
	HighWater   float64
	DrawdownPct float64
	StopLevel   float64
}

package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/optexec/position"
	"github.com/rustyeddy/optexec/trade"
)

// Limits are the governor's hard caps. All capital actions are checked
// against these; nothing overrides them.
type Limits struct {
	MaxRiskPerTrade float64
	MaxContracts    int
	MaxTradesPerDay int
	MaxDailyLoss    float64
}

// DailyState is the governor's ledger for one calendar date. It resets when
// the date rolls over.
type DailyState struct {
	Date            time.Time // date only
	TradesExecuted  int
	PositionsOpened int
	PositionsClosed int
	RealizedPnL     float64
	UnrealizedPnL   float64

	LockedOut     bool
	LockoutReason string
	LockoutTime   time.Time
}

// Reset clears the ledger for a new trading day.
func (d *DailyState) Reset(today time.Time) {
	*d = DailyState{Date: today}
}

// Status is a read-only snapshot of the governor for monitoring surfaces.
type Status struct {
	CanTrade   bool
	Reason     string
	Armed      bool
	KillSwitch bool
	Daily      DailyState
	Limits     Limits
}

// Governor is the single authority over capital actions. Every entry and
// every exit passes through it; it tracks the daily ledger and latches a
// lockout when the daily loss limit is breached.
type Governor struct {
	mu     sync.Mutex
	limits Limits
	armed  bool
	kill   bool
	day    DailyState
	now    func() time.Time
	log    *zap.Logger
}

// NewGovernor builds a governor with the given limits. armed must be true
// before any entry is permitted.
func NewGovernor(limits Limits, armed bool, log *zap.Logger) *Governor {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Governor{
		limits: limits,
		armed:  armed,
		now:    time.Now,
		log:    log,
	}
	g.day.Reset(dateOf(g.now()))
	return g
}

// SetClock replaces the time source. Tests use this to drive day rollover
// and lockout timestamps deterministically.
func (g *Governor) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// checkNewDayLocked resets the ledger, including any lockout, when the
// calendar date has changed since the last check.
func (g *Governor) checkNewDayLocked() {
	today := dateOf(g.now())
	if !g.day.Date.Equal(today) {
		g.log.Info("new trading day",
			zap.String("previous", g.day.Date.Format("2006-01-02")),
			zap.String("current", today.Format("2006-01-02")))
		g.day.Reset(today)
	}
}

func (g *Governor) lockoutLocked(reason string) {
	g.day.LockedOut = true
	g.day.LockoutReason = reason
	g.day.LockoutTime = g.now()
	g.log.Warn("lockout activated", zap.String("reason", reason))
}

// CanTrade is the master gate for opening new risk. Checks run in a fixed
// order: kill switch, armed, lockout, daily trade count, daily loss limit.
// Hitting the loss limit here also latches the lockout for the rest of the
// day.
func (g *Governor) CanTrade() (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canTradeLocked()
}

func (g *Governor) canTradeLocked() (bool, string) {
	g.checkNewDayLocked()

	if g.kill {
		return false, "kill switch is active"
	}
	if !g.armed {
		return false, "system is not armed"
	}
	if g.day.LockedOut {
		return false, fmt.Sprintf("locked out: %s", g.day.LockoutReason)
	}
	if g.day.TradesExecuted >= g.limits.MaxTradesPerDay {
		return false, fmt.Sprintf("daily trade limit reached (%d)", g.limits.MaxTradesPerDay)
	}
	if g.day.RealizedPnL <= -g.limits.MaxDailyLoss {
		g.lockoutLocked(fmt.Sprintf("daily loss limit hit ($%.2f)", g.day.RealizedPnL))
		return false, "daily loss limit exceeded"
	}

	return true, "OK"
}

// ValidateTrade checks one specific entry against the limits on top of the
// general CanTrade gate.
func (g *Governor) ValidateTrade(t *trade.Trade) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ok, reason := g.canTradeLocked(); !ok {
		return false, reason
	}

	if t.Grade == trade.NoTrade {
		return false, "trade grade is NO_TRADE"
	}
	if t.Contracts > g.limits.MaxContracts {
		return false, fmt.Sprintf("contracts (%d) exceeds max (%d)", t.Contracts, g.limits.MaxContracts)
	}
	if t.MaxRisk > g.limits.MaxRiskPerTrade {
		return false, fmt.Sprintf("risk ($%.2f) exceeds max ($%.2f)", t.MaxRisk, g.limits.MaxRiskPerTrade)
	}

	return true, "OK"
}

// ValidateExit gates a sell order. Exits stay allowed through lockouts and
// limit breaches; the system must always be able to get out. Only the kill
// switch blocks an exit.
func (g *Governor) ValidateExit(reason string) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.kill {
		return false, "kill switch is active - manual intervention required"
	}
	return true, "OK"
}

// CalculateSize returns how many contracts to buy for a trade at the given
// per-contract premium. Grade A gets up to the contract cap, grade B gets
// minimum exposure, anything else gets nothing.
func (g *Governor) CalculateSize(t *trade.Trade, contractPrice float64) int {
	costPerContract := contractPrice * position.Multiplier

	affordable := 0
	if costPerContract > 0 {
		affordable = int(math.Floor(g.limits.MaxRiskPerTrade / costPerContract))
	}

	switch t.Grade {
	case trade.GradeA:
		if affordable < g.limits.MaxContracts {
			return affordable
		}
		return g.limits.MaxContracts
	case trade.GradeB:
		if affordable >= 1 {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// RecordTrade bumps the daily entry counters. Call only after a confirmed
// fill.
func (g *Governor) RecordTrade(t *trade.Trade) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.checkNewDayLocked()
	g.day.TradesExecuted++
	g.day.PositionsOpened++

	g.log.Info("trade recorded",
		zap.String("ticker", t.Ticker()),
		zap.String("grade", string(t.Grade)),
		zap.Int("trades_today", g.day.TradesExecuted),
		zap.Int("max_trades", g.limits.MaxTradesPerDay))
}

// RecordPnL folds a realized delta into the daily ledger and replaces the
// unrealized snapshot. Realized accumulates across exits; unrealized is a
// point-in-time reading, not a sum. Breaching the daily loss limit here
// latches the lockout immediately.
func (g *Governor) RecordPnL(realized, unrealized float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.checkNewDayLocked()
	g.day.RealizedPnL += realized
	g.day.UnrealizedPnL = unrealized

	g.log.Info("pnl updated",
		zap.Float64("realized_today", g.day.RealizedPnL),
		zap.Float64("unrealized", unrealized))

	if g.day.RealizedPnL <= -g.limits.MaxDailyLoss && !g.day.LockedOut {
		g.lockoutLocked(fmt.Sprintf("daily loss limit hit: $%.2f", g.day.RealizedPnL))
	}
}

// RecordClose bumps the daily positions-closed counter.
func (g *Governor) RecordClose() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.day.PositionsClosed++
}

// ActivateKillSwitch halts all trading immediately. It also latches a
// lockout so entries stay blocked even after a manual deactivation later the
// same day.
func (g *Governor) ActivateKillSwitch(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.kill = true
	g.lockoutLocked("KILL SWITCH: " + reason)
	g.log.Error("kill switch activated", zap.String("reason", reason))
}

// DeactivateKillSwitch re-opens the exit path. Deliberate manual action; no
// automatic re-arming happens anywhere.
func (g *Governor) DeactivateKillSwitch() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.kill = false
	g.log.Warn("kill switch deactivated - trading may resume")
}

// ForceLockout blocks entries for the rest of the day.
func (g *Governor) ForceLockout(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lockoutLocked(reason)
}

// Arm enables entries; Disarm blocks them without touching the ledger.
func (g *Governor) Arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
}

func (g *Governor) Disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = false
}

// KillSwitchActive reports the kill switch state.
func (g *Governor) KillSwitchActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.kill
}

// GetStatus snapshots the governor for status surfaces.
func (g *Governor) GetStatus() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	ok, reason := g.canTradeLocked()
	return Status{
		CanTrade:   ok,
		Reason:     reason,
		Armed:      g.armed,
		KillSwitch: g.kill,
		Daily:      g.day,
		Limits:     g.limits,
	}
}

func (g *Governor) String() string {
	s := g.GetStatus()
	armed := "DISARMED"
	if s.Armed {
		armed = "ARMED"
	}
	return fmt.Sprintf("Governor: %s | trades: %d/%d | pnl: $%.2f",
		armed, s.Daily.TradesExecuted, s.Limits.MaxTradesPerDay, s.Daily.RealizedPnL)
}

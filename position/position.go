package position

import (
	"fmt"
	"time"
)

// Multiplier is the standard US equity options contract multiplier.
const Multiplier = 100

// State is the lifecycle state of a position. Transitions run one way toward
// a terminal state; Trim1Hit/Trim2Hit/Trailing are intermediate.
type State string

const (
	Pending  State = "pending"
	Open     State = "open"
	Trim1Hit State = "trim_1_hit"
	Trim2Hit State = "trim_2_hit"
	Trailing State = "trailing"
	Stopped  State = "stopped"
	Closed   State = "closed"
	Expired  State = "expired"
)

// Terminal reports whether no further mutation of the position is allowed.
func (s State) Terminal() bool {
	return s == Stopped || s == Closed || s == Expired
}

// OptionType is the contract direction.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Position is one open (or closed) option lot. The executor owns all
// mutation; methods here compute derived state and apply recorded fills.
type Position struct {
	// Identity
	ID         string
	Ticker     string
	OptionType OptionType
	Strike     float64
	Expiration time.Time // date only
	Contracts  int

	// Entry facts, immutable after creation
	EntryPrice float64
	EntryTime  time.Time
	EntryCost  float64 // EntryPrice * Contracts * Multiplier

	// Market state
	State         State
	CurrentPrice  float64
	CurrentValue  float64
	HighWaterMark float64
	HighWaterTime time.Time

	// ATR-based trailing stop (trails from entry, no activation threshold)
	ATRValue      float64
	ATRMultiplier float64
	ATRStopActive bool
	DeltaAtEntry  float64

	// Trim bookkeeping
	OriginalContracts  int
	ContractsRemaining int
	Trim1Executed      bool
	Trim1Price         float64
	Trim1Time          time.Time
	Trim2Executed      bool
	Trim2Price         float64
	Trim2Time          time.Time

	// P&L
	RealizedPnL   float64
	UnrealizedPnL float64

	// Metadata
	Grade    string
	Thesis   string
	Catalyst string
	Notes    []string
}

// New creates a position from an entry fill and seeds the derived fields.
// The high-water mark starts at the entry price.
func New(id, ticker string, typ OptionType, strike float64, expiration time.Time, contracts int, entryPrice float64, entryTime time.Time) *Position {
	return &Position{
		ID:                 id,
		Ticker:             ticker,
		OptionType:         typ,
		Strike:             strike,
		Expiration:         expiration,
		Contracts:          contracts,
		EntryPrice:         entryPrice,
		EntryTime:          entryTime,
		EntryCost:          entryPrice * float64(contracts) * Multiplier,
		State:              Open,
		CurrentPrice:       entryPrice,
		HighWaterMark:      entryPrice,
		HighWaterTime:      entryTime,
		DeltaAtEntry:       0.35,
		OriginalContracts:  contracts,
		ContractsRemaining: contracts,
	}
}

// UpdatePrice records a new mark for the contract, raising the high-water
// mark on a strictly higher print and recomputing unrealized P&L against the
// contracts still held. Terminal positions are left untouched.
func (p *Position) UpdatePrice(price float64, now time.Time) {
	if p.State.Terminal() {
		return
	}

	p.CurrentPrice = price
	p.CurrentValue = price * float64(p.ContractsRemaining) * Multiplier

	if price > p.HighWaterMark {
		p.HighWaterMark = price
		p.HighWaterTime = now
	}

	costBasis := p.EntryPrice * float64(p.ContractsRemaining) * Multiplier
	p.UnrealizedPnL = p.CurrentValue - costBasis
}

// PnLPercent is the current P&L as a percentage of the entry price.
func (p *Position) PnLPercent() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// HighWaterPnLPercent is the best P&L seen since entry, as a percentage.
func (p *Position) HighWaterPnLPercent() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.HighWaterMark - p.EntryPrice) / p.EntryPrice * 100
}

// DrawdownFromHigh is the pullback from the high-water mark, in percent.
func (p *Position) DrawdownFromHigh() float64 {
	if p.HighWaterMark == 0 {
		return 0
	}
	return (p.HighWaterMark - p.CurrentPrice) / p.HighWaterMark * 100
}

// DaysToExpiration is the calendar-day distance to expiration, ignoring
// time of day.
func (p *Position) DaysToExpiration(now time.Time) int {
	exp := time.Date(p.Expiration.Year(), p.Expiration.Month(), p.Expiration.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(exp.Sub(today).Hours() / 24)
}

// ShouldTrim1 reports whether the first trim should fire.
func (p *Position) ShouldTrim1(triggerPct float64) bool {
	return !p.Trim1Executed &&
		p.PnLPercent() >= triggerPct &&
		p.State == Open
}

// ShouldTrim2 reports whether the second trim should fire.
func (p *Position) ShouldTrim2(triggerPct float64) bool {
	return p.Trim1Executed &&
		!p.Trim2Executed &&
		p.PnLPercent() >= triggerPct &&
		p.State == Trim1Hit
}

// ShouldTrailingStop reports whether the percentage trailing stop should
// fire. Trailing only activates once the first trim has locked profit.
func (p *Position) ShouldTrailingStop(stopPct float64) bool {
	return p.Trim1Executed && p.DrawdownFromHigh() >= stopPct
}

// ShouldATRTrailingStop reports whether the volatility trailing stop should
// fire. The effective stop distance is multiplier*10 percent; the stop trails
// from entry with no activation threshold.
func (p *Position) ShouldATRTrailingStop() bool {
	if !p.ATRStopActive {
		return false
	}
	return p.DrawdownFromHigh() >= p.ATRMultiplier*10
}

// ATRStopLevel is the price the ATR trailing stop currently sits at.
func (p *Position) ATRStopLevel() float64 {
	if !p.ATRStopActive {
		return 0
	}
	return p.HighWaterMark * (1 - p.ATRMultiplier*10/100)
}

// ATRStopDistancePct is the ATR stop distance in percent.
func (p *Position) ATRStopDistancePct() float64 {
	if !p.ATRStopActive {
		return 0
	}
	return p.ATRMultiplier * 10
}

// ShouldHardStop reports whether the loss cap has been breached.
func (p *Position) ShouldHardStop(stopPct float64) bool {
	return p.PnLPercent() <= -stopPct
}

// ShouldForceClose reports whether the position is too close to expiration
// to keep holding.
func (p *Position) ShouldForceClose(minDTE int, now time.Time) bool {
	return p.DaysToExpiration(now) <= minDTE
}

// Should0DTEForceClose reports whether an expiring-today position has crossed
// the wall-clock cutoff (e.g. 15:30 local).
func (p *Position) Should0DTEForceClose(cutoff string, now time.Time) bool {
	if p.DaysToExpiration(now) != 0 {
		return false
	}

	var hour, minute int
	if _, err := fmt.Sscanf(cutoff, "%d:%d", &hour, &minute); err != nil {
		return false
	}

	cut := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	return !now.Before(cut)
}

// RecordTrim applies a partial-sale fill: realizes P&L on the contracts sold,
// decrements the remaining count and advances the trim state. No-op on a
// terminal position.
func (p *Position) RecordTrim(trimNumber int, price float64, contractsSold int, now time.Time) {
	if p.State.Terminal() {
		return
	}
	if contractsSold > p.ContractsRemaining {
		contractsSold = p.ContractsRemaining
	}

	pnl := (price - p.EntryPrice) * float64(contractsSold) * Multiplier

	switch trimNumber {
	case 1:
		p.Trim1Executed = true
		p.Trim1Price = price
		p.Trim1Time = now
		p.State = Trim1Hit
	case 2:
		p.Trim2Executed = true
		p.Trim2Price = price
		p.Trim2Time = now
		p.State = Trim2Hit
	}

	p.ContractsRemaining -= contractsSold
	p.RealizedPnL += pnl
}

// Close realizes P&L on every remaining contract and moves the position to a
// terminal state keyed on reason: "stop" → Stopped, "expired" → Expired,
// anything else → Closed. Calling Close on an already-terminal position is a
// no-op, so P&L is never double counted.
func (p *Position) Close(price float64, reason string, now time.Time) {
	if p.State.Terminal() {
		return
	}

	pnl := (price - p.EntryPrice) * float64(p.ContractsRemaining) * Multiplier
	p.RealizedPnL += pnl
	p.ContractsRemaining = 0
	p.CurrentPrice = price

	switch reason {
	case "stop":
		p.State = Stopped
	case "expired":
		p.State = Expired
	default:
		p.State = Closed
	}

	p.Notes = append(p.Notes, fmt.Sprintf("closed: %s at $%.2f", reason, price))
}

// MarkClosedExternally flags a position the broker no longer reports, e.g.
// one the trader sold by hand. Contracts go to zero without realizing P&L
// here because the fill happened outside our books.
func (p *Position) MarkClosedExternally() {
	if p.State.Terminal() {
		return
	}
	p.State = Closed
	p.ContractsRemaining = 0
	p.Notes = append(p.Notes, "closed externally")
}

func (p *Position) String() string {
	return fmt.Sprintf("%s %s $%.2f %s x%d [%s] pnl %.1f%%",
		p.Ticker, p.OptionType, p.Strike, p.Expiration.Format("2006-01-02"),
		p.ContractsRemaining, p.State, p.PnLPercent())
}

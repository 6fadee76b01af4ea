package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/optexec/broker"
	"github.com/rustyeddy/optexec/config"
	"github.com/rustyeddy/optexec/internal/id"
	"github.com/rustyeddy/optexec/journal"
	"github.com/rustyeddy/optexec/position"
	"github.com/rustyeddy/optexec/risk"
	"github.com/rustyeddy/optexec/trade"
)

// Executor owns every position and every order. It reconciles tracked
// positions against the broker, walks the exit table each cycle, and opens
// new positions from approved trades. Every capital action clears the
// governor first.
type Executor struct {
	mu        sync.Mutex
	broker    broker.Broker
	governor  *risk.Governor
	journal   journal.Journal
	exits     config.ExitConfig
	log       *zap.Logger
	dryRun    bool
	positions map[string]*position.Position
	lastPoll  time.Time
	now       func() time.Time
}

// Options collects the executor's collaborators.
type Options struct {
	Broker   broker.Broker
	Governor *risk.Governor
	Journal  journal.Journal
	Exits    config.ExitConfig
	Logger   *zap.Logger
	DryRun   bool
}

func New(opts Options) *Executor {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	jnl := opts.Journal
	if jnl == nil {
		jnl = journal.Nop{}
	}
	return &Executor{
		broker:    opts.Broker,
		governor:  opts.Governor,
		journal:   jnl,
		exits:     opts.Exits,
		log:       log,
		dryRun:    opts.DryRun,
		positions: make(map[string]*position.Position),
		now:       time.Now,
	}
}

// SetClock replaces the time source for deterministic tests.
func (ex *Executor) SetClock(now func() time.Time) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.now = now
}

// Poll runs one full cycle: reconcile against the broker, then walk the
// exit table. A sync failure skips the cycle; stale prices must never drive
// an exit.
func (ex *Executor) Poll(ctx context.Context) []Action {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	now := ex.now()
	ex.lastPoll = now

	if err := ex.syncLocked(ctx, now); err != nil {
		ex.log.Error("position sync failed, skipping cycle", zap.Error(err))
		return nil
	}
	return ex.checkExitsLocked(ctx, now)
}

// SyncPositions reconciles tracked positions against the broker's books.
func (ex *Executor) SyncPositions(ctx context.Context) error {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.syncLocked(ctx, ex.now())
}

func (ex *Executor) syncLocked(ctx context.Context, now time.Time) error {
	lots, err := ex.broker.GetOptionPositions(ctx)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	seen := make(map[string]bool, len(lots))
	for i := range lots {
		lot := lots[i]
		seen[lot.ID] = true

		pos, ok := ex.positions[lot.ID]
		if !ok {
			ex.adoptLocked(ctx, lot, now)
			continue
		}
		if pos.State.Terminal() {
			continue
		}

		if lot.Quantity != pos.ContractsRemaining {
			ex.log.Warn("contract count drift, adopting broker count",
				zap.String("position", pos.ID),
				zap.Int("tracked", pos.ContractsRemaining),
				zap.Int("broker", lot.Quantity))
			pos.ContractsRemaining = lot.Quantity
		}
		pos.UpdatePrice(lot.CurrentPrice, now)
	}

	// Anything we track that the broker no longer reports is done. A fully
	// trimmed position settling out is expected; anything else was closed
	// from under us, e.g. sold by hand at another terminal.
	for _, pos := range ex.positions {
		if seen[pos.ID] || pos.State.Terminal() {
			continue
		}
		if pos.ContractsRemaining == 0 {
			pos.Close(pos.CurrentPrice, "trim_complete", now)
			ex.log.Info("fully trimmed position settled",
				zap.String("position", pos.ID),
				zap.Float64("realized", pos.RealizedPnL))
		} else {
			ex.log.Warn("position gone from broker, marking closed externally",
				zap.String("position", pos.ID),
				zap.String("ticker", pos.Ticker))
			pos.MarkClosedExternally()
		}
		ex.governor.RecordClose()
		ex.recordPositionLocked(pos, now)
	}

	return nil
}

// adoptLocked starts tracking a lot the broker reports but we did not open,
// seeding entry facts from the broker's cost basis.
func (ex *Executor) adoptLocked(ctx context.Context, lot broker.OptionLot, now time.Time) {
	opened := lot.OpenedAt
	if opened.IsZero() {
		opened = now
	}

	pos := position.New(lot.ID, lot.Ticker, position.OptionType(lot.OptionType),
		lot.Strike, lot.Expiration, lot.Quantity, lot.AverageCost, opened)
	pos.UpdatePrice(lot.CurrentPrice, now)
	ex.armATRStopLocked(ctx, pos)

	ex.positions[pos.ID] = pos
	ex.log.Info("adopted position from broker",
		zap.String("position", pos.ID),
		zap.String("ticker", pos.Ticker),
		zap.Int("contracts", pos.ContractsRemaining),
		zap.Float64("entry", pos.EntryPrice))
}

// armATRStopLocked enables the volatility trailing stop on single-contract
// lots when configured. Multi-contract lots use the trim ladder instead.
func (ex *Executor) armATRStopLocked(ctx context.Context, pos *position.Position) {
	if !ex.exits.ATRTrailing.Enabled || pos.ContractsRemaining != 1 {
		return
	}

	atr, err := ex.broker.GetATR(ctx, pos.Ticker, ex.exits.ATRTrailing.Period)
	if err != nil || atr <= 0 {
		ex.log.Debug("ATR unavailable, volatility stop not armed",
			zap.String("ticker", pos.Ticker), zap.Error(err))
		return
	}

	pos.ATRValue = atr
	pos.ATRMultiplier = ex.exits.ATRTrailing.Multiplier
	pos.ATRStopActive = true
	ex.log.Info("ATR trailing stop armed",
		zap.String("position", pos.ID),
		zap.Float64("atr", atr),
		zap.Float64("stop_distance_pct", pos.ATRStopDistancePct()))
}

// CheckExits walks the exit table over every live position.
func (ex *Executor) CheckExits(ctx context.Context) []Action {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.checkExitsLocked(ctx, ex.now())
}

func (ex *Executor) checkExitsLocked(ctx context.Context, now time.Time) []Action {
	var actions []Action
	for _, pos := range ex.liveLocked() {
		if a := ex.evaluateLocked(ctx, pos, now); a != nil {
			actions = append(actions, *a)
		}
	}
	return actions
}

// liveLocked returns the non-terminal positions in entry order so each cycle
// evaluates them deterministically.
func (ex *Executor) liveLocked() []*position.Position {
	out := make([]*position.Position, 0, len(ex.positions))
	for _, pos := range ex.positions {
		if pos.State.Terminal() || pos.ContractsRemaining <= 0 {
			continue
		}
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ExecuteTrade opens a position from an approved trade. Rejections record
// their reason on the trade and return a nil position; a non-nil error means
// the broker call itself failed.
func (ex *Executor) ExecuteTrade(ctx context.Context, t *trade.Trade) (*position.Position, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	now := ex.now()

	if ok, reason := ex.governor.ValidateTrade(t); !ok {
		t.Reject(reason)
		ex.log.Warn("trade rejected by governor",
			zap.String("ticker", t.Ticker()), zap.String("reason", reason))
		return nil, nil
	}
	if !t.HasContract || t.Expiration.IsZero() {
		t.Reject("no contract selected")
		ex.log.Warn("trade rejected: no contract selected", zap.String("ticker", t.Ticker()))
		return nil, nil
	}

	ref := broker.ContractRef{
		Ticker:     t.Ticker(),
		Strike:     t.Strike,
		Expiration: t.Expiration,
		OptionType: t.Direction(),
	}

	if ex.dryRun {
		ex.log.Info("DRY RUN: would buy",
			zap.String("ticker", t.Ticker()),
			zap.String("type", t.Direction()),
			zap.Float64("strike", t.Strike),
			zap.Int("contracts", t.Contracts))
		ex.recordActionLocked(&Action{
			Type:      ActionEntry,
			Ticker:    t.Ticker(),
			Contracts: t.Contracts,
			DryRun:    true,
			Message:   "dry run",
			Time:      now,
		})
		return nil, nil
	}

	quote, err := ex.broker.GetOptionQuote(ctx, ref)
	if err != nil {
		t.Reject("could not get quote")
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if quote == nil {
		t.Reject("no quote available for contract")
		ex.log.Warn("no quote for contract", zap.String("ticker", t.Ticker()))
		return nil, nil
	}

	result, err := ex.broker.BuyOption(ctx, broker.OrderRequest{
		ContractRef: ref,
		Quantity:    t.Contracts,
		Price:       quote.Ask,
	})
	if err != nil {
		t.Reject(err.Error())
		return nil, fmt.Errorf("buy order: %w", err)
	}
	if !result.Success {
		t.Reject(result.Message)
		ex.log.Warn("buy order rejected",
			zap.String("ticker", t.Ticker()), zap.String("message", result.Message))
		ex.recordActionLocked(&Action{
			Type:      ActionEntry,
			Ticker:    t.Ticker(),
			Contracts: t.Contracts,
			Message:   result.Message,
			Time:      now,
		})
		return nil, nil
	}

	fillPrice := result.FilledPrice
	if fillPrice == 0 {
		fillPrice = quote.Ask
	}
	filled := result.FilledQty
	if filled == 0 {
		filled = t.Contracts
	}
	posID := result.OrderID
	if posID == "" {
		posID = id.New()
	}

	pos := position.New(posID, t.Ticker(), position.OptionType(t.Direction()),
		t.Strike, t.Expiration, filled, fillPrice, now)
	pos.Grade = string(t.Grade)
	pos.DeltaAtEntry = quote.Delta
	if t.Signal != nil {
		pos.Catalyst = t.Signal.CatalystDescription
	}
	ex.armATRStopLocked(ctx, pos)

	ex.positions[pos.ID] = pos
	t.MarkExecuted(pos.ID, now)
	ex.governor.RecordTrade(t)

	ex.recordActionLocked(&Action{
		Type:       ActionEntry,
		PositionID: pos.ID,
		Ticker:     pos.Ticker,
		Contracts:  filled,
		Price:      fillPrice,
		Executed:   true,
		OrderID:    result.OrderID,
		Time:       now,
	})

	ex.log.Info("position opened",
		zap.String("position", pos.ID),
		zap.String("ticker", pos.Ticker),
		zap.String("type", string(pos.OptionType)),
		zap.Float64("strike", pos.Strike),
		zap.Int("contracts", filled),
		zap.Float64("fill", fillPrice))

	return pos, nil
}

// fire* adapters bind the exit table to the two dispatch paths.

func (ex *Executor) fireHardStop(ctx context.Context, p *position.Position, now time.Time) *Action {
	ex.log.Warn("hard stop triggered",
		zap.String("position", p.ID),
		zap.Float64("pnl_pct", p.PnLPercent()))
	return ex.executeCloseLocked(ctx, p, ActionHardStop, "stop", now)
}

func (ex *Executor) fire0DTEClose(ctx context.Context, p *position.Position, now time.Time) *Action {
	ex.log.Warn("0DTE cutoff reached, force closing",
		zap.String("position", p.ID),
		zap.String("cutoff", ex.exits.ForceClose0DTETime))
	return ex.executeCloseLocked(ctx, p, Action0DTEClose, "expired", now)
}

func (ex *Executor) fireDTEClose(ctx context.Context, p *position.Position, now time.Time) *Action {
	ex.log.Info("too close to expiration, force closing",
		zap.String("position", p.ID),
		zap.Int("dte", p.DaysToExpiration(now)))
	return ex.executeCloseLocked(ctx, p, ActionDTEClose, "expired", now)
}

func (ex *Executor) fireATRTrailingStop(ctx context.Context, p *position.Position, now time.Time) *Action {
	ex.log.Info("ATR trailing stop triggered",
		zap.String("position", p.ID),
		zap.Float64("drawdown_pct", p.DrawdownFromHigh()),
		zap.Float64("stop_level", p.ATRStopLevel()))
	return ex.executeCloseLocked(ctx, p, ActionATRTrailingStop, "stop", now)
}

func (ex *Executor) fireTrailingStop(ctx context.Context, p *position.Position, now time.Time) *Action {
	ex.log.Info("trailing stop triggered",
		zap.String("position", p.ID),
		zap.Float64("drawdown_pct", p.DrawdownFromHigh()))
	return ex.executeCloseLocked(ctx, p, ActionTrailingStop, "stop", now)
}

func (ex *Executor) fireTrim1(ctx context.Context, p *position.Position, now time.Time) *Action {
	return ex.executeTrimLocked(ctx, p, 1, ex.exits.Trim1, now)
}

func (ex *Executor) fireTrim2(ctx context.Context, p *position.Position, now time.Time) *Action {
	return ex.executeTrimLocked(ctx, p, 2, ex.exits.Trim2, now)
}

// executeCloseLocked sells every remaining contract and moves the position
// to the terminal state for reason. Broker failure leaves the position
// untouched; the rule fires again next cycle.
func (ex *Executor) executeCloseLocked(ctx context.Context, p *position.Position, typ ActionType, reason string, now time.Time) *Action {
	action := &Action{
		Type:        typ,
		PositionID:  p.ID,
		Ticker:      p.Ticker,
		Contracts:   p.ContractsRemaining,
		Price:       p.CurrentPrice,
		PnLPct:      p.PnLPercent(),
		Time:        now,
		DTE:         p.DaysToExpiration(now),
		HighWater:   p.HighWaterMark,
		DrawdownPct: p.DrawdownFromHigh(),
	}
	if typ == ActionATRTrailingStop {
		action.StopLevel = p.ATRStopLevel()
	}

	if ex.dryRun {
		action.DryRun = true
		ex.log.Info("DRY RUN: would close",
			zap.String("position", p.ID),
			zap.String("rule", string(typ)),
			zap.Int("contracts", p.ContractsRemaining))
		ex.recordActionLocked(action)
		return action
	}

	result, err := ex.sellLocked(ctx, p, p.ContractsRemaining, string(typ))
	if err != nil {
		action.Message = err.Error()
		ex.log.Error("close order failed",
			zap.String("position", p.ID), zap.Error(err))
		ex.recordActionLocked(action)
		return action
	}
	action.OrderID = result.OrderID
	action.Message = result.Message
	if !result.Success {
		ex.log.Warn("close order not filled",
			zap.String("position", p.ID), zap.String("message", result.Message))
		ex.recordActionLocked(action)
		return action
	}

	fillPrice := result.FilledPrice
	if fillPrice == 0 {
		fillPrice = p.CurrentPrice
	}
	action.Executed = true
	action.Price = fillPrice

	before := p.RealizedPnL
	p.Close(fillPrice, reason, now)
	ex.governor.RecordPnL(p.RealizedPnL-before, ex.unrealizedLocked())
	ex.governor.RecordClose()

	ex.recordActionLocked(action)
	ex.recordPositionLocked(p, now)

	ex.log.Info("position closed",
		zap.String("position", p.ID),
		zap.String("rule", string(typ)),
		zap.Float64("fill", fillPrice),
		zap.Float64("realized", p.RealizedPnL))

	return action
}

// executeTrimLocked sells the configured slice of the position at a trim
// level. Single-contract lots never split: trim 1 just flips the flag so the
// trailing stop takes over, trim 2 resolves without any action.
func (ex *Executor) executeTrimLocked(ctx context.Context, p *position.Position, trimNumber int, cfg config.TrimConfig, now time.Time) *Action {
	if p.ContractsRemaining == 1 {
		if trimNumber == 1 {
			p.RecordTrim(1, p.CurrentPrice, 0, now)
			ex.log.Info("single contract at trim level, trailing stop active",
				zap.String("position", p.ID),
				zap.Float64("pnl_pct", p.PnLPercent()))
		}
		return nil
	}

	sellQty := int(float64(p.ContractsRemaining) * cfg.SellPct / 100)
	if sellQty < 1 {
		sellQty = 1
	}
	if sellQty > p.ContractsRemaining {
		sellQty = p.ContractsRemaining
	}

	typ := ActionTrim1
	if trimNumber == 2 {
		typ = ActionTrim2
	}
	action := &Action{
		Type:       typ,
		PositionID: p.ID,
		Ticker:     p.Ticker,
		Contracts:  sellQty,
		Price:      p.CurrentPrice,
		PnLPct:     p.PnLPercent(),
		Time:       now,
	}

	if ex.dryRun {
		action.DryRun = true
		ex.log.Info("DRY RUN: would trim",
			zap.String("position", p.ID),
			zap.Int("trim", trimNumber),
			zap.Int("contracts", sellQty))
		ex.recordActionLocked(action)
		return action
	}

	result, err := ex.sellLocked(ctx, p, sellQty, string(typ))
	if err != nil {
		action.Message = err.Error()
		ex.log.Error("trim order failed",
			zap.String("position", p.ID), zap.Error(err))
		ex.recordActionLocked(action)
		return action
	}
	action.OrderID = result.OrderID
	action.Message = result.Message
	if !result.Success {
		ex.log.Warn("trim order not filled",
			zap.String("position", p.ID), zap.String("message", result.Message))
		ex.recordActionLocked(action)
		return action
	}

	fillPrice := result.FilledPrice
	if fillPrice == 0 {
		fillPrice = p.CurrentPrice
	}
	action.Executed = true
	action.Price = fillPrice

	before := p.RealizedPnL
	p.RecordTrim(trimNumber, fillPrice, sellQty, now)
	p.UpdatePrice(fillPrice, now) // re-mark unrealized against what's left
	ex.governor.RecordPnL(p.RealizedPnL-before, ex.unrealizedLocked())

	ex.recordActionLocked(action)

	ex.log.Info("trim executed",
		zap.String("position", p.ID),
		zap.Int("trim", trimNumber),
		zap.Int("sold", sellQty),
		zap.Int("remaining", p.ContractsRemaining),
		zap.Float64("fill", fillPrice),
		zap.Float64("realized", p.RealizedPnL))

	return action
}

// sellLocked places a sell order after clearing the governor's exit gate. A
// blocked exit comes back as an unfilled result, not an error.
func (ex *Executor) sellLocked(ctx context.Context, p *position.Position, quantity int, reason string) (broker.OrderResult, error) {
	if ok, why := ex.governor.ValidateExit(reason); !ok {
		ex.log.Error("exit blocked by governor",
			zap.String("position", p.ID), zap.String("reason", why))
		return broker.OrderResult{Success: false, Message: why}, nil
	}

	return ex.broker.SellOption(ctx, broker.OrderRequest{
		ContractRef: broker.ContractRef{
			Ticker:     p.Ticker,
			Strike:     p.Strike,
			Expiration: p.Expiration,
			OptionType: string(p.OptionType),
		},
		Quantity: quantity,
		Price:    p.CurrentPrice,
	})
}

func (ex *Executor) unrealizedLocked() float64 {
	var total float64
	for _, pos := range ex.positions {
		if !pos.State.Terminal() {
			total += pos.UnrealizedPnL
		}
	}
	return total
}

func (ex *Executor) recordActionLocked(a *Action) {
	err := ex.journal.RecordAction(journal.ActionRecord{
		Time:       a.Time,
		Type:       string(a.Type),
		PositionID: a.PositionID,
		Ticker:     a.Ticker,
		Contracts:  a.Contracts,
		Price:      a.Price,
		PnLPct:     a.PnLPct,
		Executed:   a.Executed,
		DryRun:     a.DryRun,
		OrderID:    a.OrderID,
		Message:    a.Message,
	})
	if err != nil {
		ex.log.Warn("journal action write failed", zap.Error(err))
	}
}

func (ex *Executor) recordPositionLocked(p *position.Position, now time.Time) {
	err := ex.journal.RecordPosition(journal.PositionRecord{
		PositionID:  p.ID,
		Ticker:      p.Ticker,
		OptionType:  string(p.OptionType),
		Strike:      p.Strike,
		Expiration:  p.Expiration,
		Contracts:   p.OriginalContracts,
		EntryPrice:  p.EntryPrice,
		EntryTime:   p.EntryTime,
		ExitPrice:   p.CurrentPrice,
		CloseTime:   now,
		RealizedPnL: p.RealizedPnL,
		State:       string(p.State),
	})
	if err != nil {
		ex.log.Warn("journal position write failed", zap.Error(err))
	}
}

// Status is a read-only snapshot for monitoring surfaces.
type Status struct {
	DryRun    bool
	LastPoll  time.Time
	Open      int
	Tracked   int
	Positions []position.Position
}

func (ex *Executor) GetStatus() Status {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	live := ex.liveLocked()
	s := Status{
		DryRun:    ex.dryRun,
		LastPoll:  ex.lastPoll,
		Open:      len(live),
		Tracked:   len(ex.positions),
		Positions: make([]position.Position, 0, len(live)),
	}
	for _, pos := range live {
		s.Positions = append(s.Positions, *pos)
	}
	return s
}

func (ex *Executor) String() string {
	s := ex.GetStatus()
	mode := "live"
	if s.DryRun {
		mode = "dry-run"
	}
	return fmt.Sprintf("Executor: %s | open: %d | tracked: %d", mode, s.Open, s.Tracked)
}

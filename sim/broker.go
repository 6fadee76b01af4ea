package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/optexec/broker"
	"github.com/rustyeddy/optexec/indicators"
	"github.com/rustyeddy/optexec/internal/id"
	"github.com/rustyeddy/optexec/position"
)

// Engine is a deterministic in-memory paper broker. It fills every order it
// can afford, tracks a cash ledger, and lets tests and replays move prices
// directly. It implements broker.Broker.
type Engine struct {
	mu           sync.Mutex
	cash         float64
	startingCash float64
	lots         []*broker.OptionLot
	orders       []OrderEvent
	candles      map[string][]indicators.Candle
	now          func() time.Time
}

// OrderEvent is one fill or rejection kept for inspection.
type OrderEvent struct {
	OrderID  string
	Side     string // "buy" or "sell"
	Ref      broker.ContractRef
	Quantity int
	Price    float64
	PnL      float64
	Time     time.Time
}

func NewEngine(startingCash float64) *Engine {
	return &Engine{
		cash:         startingCash,
		startingCash: startingCash,
		candles:      make(map[string][]indicators.Candle),
		now:          time.Now,
	}
}

// SetClock replaces the time source for deterministic fills in tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

func sameContract(lot *broker.OptionLot, ref broker.ContractRef) bool {
	return lot.Ticker == ref.Ticker &&
		lot.Strike == ref.Strike &&
		lot.OptionType == ref.OptionType &&
		sameDate(lot.Expiration, ref.Expiration)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (e *Engine) findLocked(ref broker.ContractRef) *broker.OptionLot {
	for _, lot := range e.lots {
		if sameContract(lot, ref) {
			return lot
		}
	}
	return nil
}

func (e *Engine) GetOptionPositions(ctx context.Context) ([]broker.OptionLot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]broker.OptionLot, len(e.lots))
	for i, lot := range e.lots {
		out[i] = *lot
	}
	return out, nil
}

func (e *Engine) GetOptionQuote(ctx context.Context, ref broker.ContractRef) (*broker.OptionQuote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mark := 1.05
	if lot := e.findLocked(ref); lot != nil {
		mark = lot.CurrentPrice
	}

	delta := 0.35
	if ref.OptionType == "put" {
		delta = -0.35
	}

	return &broker.OptionQuote{
		ContractRef:     ref,
		Bid:             mark * 0.98,
		Ask:             mark * 1.02,
		Mark:            mark,
		Last:            mark,
		Volume:          1000,
		OpenInterest:    5000,
		ImpliedVol:      0.30,
		Delta:           delta,
		UnderlyingPrice: 100.0,
	}, nil
}

func (e *Engine) BuyOption(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fillPrice := req.Price
	if fillPrice == 0 {
		fillPrice = 1.05
	}
	cost := fillPrice * float64(req.Quantity) * position.Multiplier

	if cost > e.cash {
		return broker.OrderResult{
			Success: false,
			Message: fmt.Sprintf("insufficient funds: need $%.2f, have $%.2f", cost, e.cash),
			Time:    e.now(),
		}, nil
	}

	e.cash -= cost

	lot := &broker.OptionLot{
		ID:           id.New(),
		Ticker:       req.Ticker,
		OptionType:   req.OptionType,
		Strike:       req.Strike,
		Expiration:   req.Expiration,
		Quantity:     req.Quantity,
		AverageCost:  fillPrice,
		CurrentPrice: fillPrice,
		OpenedAt:     e.now(),
	}
	e.lots = append(e.lots, lot)

	e.orders = append(e.orders, OrderEvent{
		OrderID:  lot.ID,
		Side:     "buy",
		Ref:      req.ContractRef,
		Quantity: req.Quantity,
		Price:    fillPrice,
		Time:     e.now(),
	})

	return broker.OrderResult{
		Success:     true,
		OrderID:     lot.ID,
		FilledQty:   req.Quantity,
		FilledPrice: fillPrice,
		Message:     "paper order filled",
		Time:        e.now(),
	}, nil
}

func (e *Engine) SellOption(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lot := e.findLocked(req.ContractRef)
	if lot == nil {
		return broker.OrderResult{
			Success: false,
			Message: "no matching position found",
			Time:    e.now(),
		}, nil
	}
	if req.Quantity > lot.Quantity {
		return broker.OrderResult{
			Success: false,
			Message: fmt.Sprintf("insufficient quantity: have %d, trying to sell %d", lot.Quantity, req.Quantity),
			Time:    e.now(),
		}, nil
	}

	fillPrice := req.Price
	if fillPrice == 0 {
		fillPrice = lot.CurrentPrice
	}

	proceeds := fillPrice * float64(req.Quantity) * position.Multiplier
	costBasis := lot.AverageCost * float64(req.Quantity) * position.Multiplier
	e.cash += proceeds

	lot.Quantity -= req.Quantity
	if lot.Quantity <= 0 {
		e.removeLocked(lot)
	}

	orderID := id.New()
	e.orders = append(e.orders, OrderEvent{
		OrderID:  orderID,
		Side:     "sell",
		Ref:      req.ContractRef,
		Quantity: req.Quantity,
		Price:    fillPrice,
		PnL:      proceeds - costBasis,
		Time:     e.now(),
	})

	return broker.OrderResult{
		Success:     true,
		OrderID:     orderID,
		FilledQty:   req.Quantity,
		FilledPrice: fillPrice,
		Message:     fmt.Sprintf("paper order filled, pnl $%.2f", proceeds-costBasis),
		Time:        e.now(),
	}, nil
}

// GetATR computes the Average True Range from the candle history loaded for
// the ticker. Returns 0 with no error when history is too short, matching
// the "unavailable" contract.
func (e *Engine) GetATR(ctx context.Context, ticker string, period int) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	candles := e.candles[ticker]
	atr, err := indicators.ATRFunc(candles, period)
	if err != nil {
		return 0, nil
	}
	return atr, nil
}

func (e *Engine) removeLocked(lot *broker.OptionLot) {
	for i, l := range e.lots {
		if l == lot {
			e.lots = append(e.lots[:i], e.lots[i+1:]...)
			return
		}
	}
}

// SetPrice moves the mark of a held contract. Tests and replays use this to
// drive trims and stops.
func (e *Engine) SetPrice(ref broker.ContractRef, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if lot := e.findLocked(ref); lot != nil {
		lot.CurrentPrice = price
	}
}

// SetCandles loads underlying OHLC history used by GetATR.
func (e *Engine) SetCandles(ticker string, candles []indicators.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.candles[ticker] = candles
}

// Inject places a lot directly on the books, as if it had been opened
// outside the engine. Used to test reconciliation of externally opened
// positions.
func (e *Engine) Inject(lot broker.OptionLot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if lot.ID == "" {
		lot.ID = id.New()
	}
	cp := lot
	e.lots = append(e.lots, &cp)
}

// Remove drops a lot from the books without a fill, as if the trader closed
// it by hand at another terminal.
func (e *Engine) Remove(ref broker.ContractRef) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if lot := e.findLocked(ref); lot != nil {
		e.removeLocked(lot)
	}
}

// Summary reports the ledger for end-of-run inspection.
type Summary struct {
	StartingCash  float64
	CurrentCash   float64
	OpenPositions int
	TotalOrders   int
	RealizedPnL   float64
}

func (e *Engine) GetSummary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	var realized float64
	for _, o := range e.orders {
		if o.Side == "sell" {
			realized += o.PnL
		}
	}

	return Summary{
		StartingCash:  e.startingCash,
		CurrentCash:   e.cash,
		OpenPositions: len(e.lots),
		TotalOrders:   len(e.orders),
		RealizedPnL:   realized,
	}
}

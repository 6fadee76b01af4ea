package broker

import (
	"context"
	"time"
)

// Broker is the narrow surface the executor needs from any brokerage.
// Implementations handle their own transport, retries and auth; callers only
// see filled-or-not results.
type Broker interface {
	GetOptionPositions(ctx context.Context) ([]OptionLot, error)
	GetOptionQuote(ctx context.Context, ref ContractRef) (*OptionQuote, error)
	BuyOption(ctx context.Context, req OrderRequest) (OrderResult, error)
	SellOption(ctx context.Context, req OrderRequest) (OrderResult, error)

	// GetATR returns the Average True Range of the underlying over the
	// given lookback period, 0 if unavailable.
	GetATR(ctx context.Context, ticker string, period int) (float64, error)
}

// ContractRef identifies a single option contract.
type ContractRef struct {
	Ticker     string
	Strike     float64
	Expiration time.Time // date only
	OptionType string    // "call" or "put"
}

// OptionLot is an open option position as reported by the broker.
type OptionLot struct {
	ID         string
	Ticker     string
	OptionType string
	Strike     float64
	Expiration time.Time

	Quantity     int
	AverageCost  float64 // per-contract premium paid
	CurrentPrice float64

	OpenedAt time.Time
}

// OptionQuote is the current market for one contract.
type OptionQuote struct {
	ContractRef

	Bid  float64
	Ask  float64
	Mark float64
	Last float64

	Volume          int
	OpenInterest    int
	ImpliedVol      float64
	Delta           float64
	UnderlyingPrice float64
}

// OrderRequest asks for a fill on a specific contract. Price is a limit
// reference; zero means market.
type OrderRequest struct {
	ContractRef
	Quantity int
	Price    float64
}

// OrderResult reports what the broker did with an order. Success=false is an
// ordinary outcome (rejected, insufficient funds), not a transport error.
type OrderResult struct {
	Success     bool
	OrderID     string
	FilledQty   int
	FilledPrice float64
	Message     string
	Time        time.Time
}

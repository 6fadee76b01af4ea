package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/optexec/broker"
	"github.com/rustyeddy/optexec/config"
	"github.com/rustyeddy/optexec/executor"
	"github.com/rustyeddy/optexec/risk"
	"github.com/rustyeddy/optexec/sim"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run example scenarios against the paper broker",
	Long: `Run scripted scenarios to learn how the exit table behaves.

Available demos:
  trims - Four contracts ride the trim ladder, then the trailing stop
  stop  - A losing position hits the hard stop

Examples:
  optexec demo trims
  optexec demo stop`,
}

var demoTrimsCmd = &cobra.Command{
	Use:   "trims",
	Short: "Run the trim ladder demo",
	Long: `Walks a four-contract position through both trims and the
trailing stop:
  1. Position adopted from the broker at $2.00
  2. Price hits $2.50: trim 1 sells half, locking profit
  3. Price hits $3.00: trim 2 sells the rest of the slice
  4. Price pulls back: trailing stop closes whatever remains`,
	RunE: runDemoTrims,
}

var demoStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Run the hard stop demo",
	Long: `Shows the hard stop firing first even when other rules also
match. The position loses half its value and is closed in full on the
next cycle.`,
	RunE: runDemoStop,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.AddCommand(demoTrimsCmd)
	demoCmd.AddCommand(demoStopCmd)
}

func demoSetup(contracts int, entry float64) (*sim.Engine, *executor.Executor, broker.ContractRef) {
	cfg := config.Default()
	cfg.Risk.MaxContracts = 4
	cfg.Risk.MaxTradesPerDay = 5
	cfg.Exits.ATRTrailing.Enabled = false

	gov := risk.NewGovernor(cfg.Risk.Limits(), true, zap.NewNop())
	b := sim.NewEngine(10_000)
	ex := executor.New(executor.Options{
		Broker:   b,
		Governor: gov,
		Exits:    cfg.Exits,
		Logger:   zap.NewNop(),
	})

	ref := broker.ContractRef{
		Ticker:     "SPY",
		Strike:     500,
		Expiration: time.Now().AddDate(0, 0, 14),
		OptionType: "call",
	}
	b.Inject(broker.OptionLot{
		Ticker:       ref.Ticker,
		OptionType:   ref.OptionType,
		Strike:       ref.Strike,
		Expiration:   ref.Expiration,
		Quantity:     contracts,
		AverageCost:  entry,
		CurrentPrice: entry,
		OpenedAt:     time.Now(),
	})

	return b, ex, ref
}

func demoStep(ctx context.Context, b *sim.Engine, ex *executor.Executor, ref broker.ContractRef, price float64) {
	b.SetPrice(ref, price)
	fmt.Printf("Price -> $%.2f\n", price)
	for _, a := range ex.Poll(ctx) {
		fmt.Printf("  [%s] %s x%d @ $%.2f (pnl %.1f%%) executed=%v %s\n",
			a.Type, a.Ticker, a.Contracts, a.Price, a.PnLPct, a.Executed, a.Message)
	}
}

func runDemoTrims(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fmt.Println("=== Trim Ladder Demo ===")
	fmt.Println()

	b, ex, ref := demoSetup(4, 2.00)

	// First poll adopts the injected lot.
	ex.Poll(ctx)
	fmt.Println("Adopted 4 contracts of SPY $500 call at $2.00")
	fmt.Println()

	demoStep(ctx, b, ex, ref, 2.50) // +25%: trim 1
	demoStep(ctx, b, ex, ref, 3.00) // +50%: trim 2
	demoStep(ctx, b, ex, ref, 2.10) // -30% off the high: trailing stop

	s := b.GetSummary()
	fmt.Printf("\nPaper account: cash $%.2f, realized $%.2f over %d orders\n",
		s.CurrentCash, s.RealizedPnL, s.TotalOrders)
	return nil
}

func runDemoStop(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fmt.Println("=== Hard Stop Demo ===")
	fmt.Println()

	b, ex, ref := demoSetup(2, 2.00)

	ex.Poll(ctx)
	fmt.Println("Adopted 2 contracts of SPY $500 call at $2.00")
	fmt.Println()

	demoStep(ctx, b, ex, ref, 1.40) // -30%: nothing fires yet
	demoStep(ctx, b, ex, ref, 0.95) // -52.5%: hard stop

	s := b.GetSummary()
	fmt.Printf("\nPaper account: cash $%.2f, realized $%.2f over %d orders\n",
		s.CurrentCash, s.RealizedPnL, s.TotalOrders)
	return nil
}

package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/optexec/broker"
	"github.com/rustyeddy/optexec/config"
	"github.com/rustyeddy/optexec/executor"
	"github.com/rustyeddy/optexec/journal"
	"github.com/rustyeddy/optexec/position"
	"github.com/rustyeddy/optexec/risk"
	"github.com/rustyeddy/optexec/trade"
)

// Engine drives the poll loop: every interval it has the executor reconcile
// against the broker and walk the exit table. One bad cycle never kills the
// loop; an open position with a dead babysitter is the worst failure mode.
type Engine struct {
	cfg      *config.Config
	governor *risk.Governor
	exec     *executor.Executor
	journal  journal.Journal
	log      *zap.Logger
	interval time.Duration
	dryRun   bool
}

// Options collects the engine's collaborators. Governor and executor are
// built here from the config.
type Options struct {
	Config  *config.Config
	Broker  broker.Broker
	Journal journal.Journal
	Logger  *zap.Logger
	DryRun  bool
}

func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Broker == nil {
		return nil, fmt.Errorf("broker is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	jnl := opts.Journal
	if jnl == nil {
		jnl = journal.Nop{}
	}

	interval, err := opts.Config.Engine.ParsePollInterval()
	if err != nil {
		return nil, fmt.Errorf("poll interval: %w", err)
	}

	gov := risk.NewGovernor(opts.Config.Risk.Limits(), opts.Config.Armed, log)
	if opts.Config.Risk.KillSwitch {
		gov.ActivateKillSwitch("enabled in config")
	}

	exec := executor.New(executor.Options{
		Broker:   opts.Broker,
		Governor: gov,
		Journal:  jnl,
		Exits:    opts.Config.Exits,
		Logger:   log,
		DryRun:   opts.DryRun,
	})

	return &Engine{
		cfg:      opts.Config,
		governor: gov,
		exec:     exec,
		journal:  jnl,
		log:      log,
		interval: interval,
		dryRun:   opts.DryRun,
	}, nil
}

// Run polls until the context is cancelled. The first cycle runs
// immediately so a restart picks up existing positions without waiting out
// an interval.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine starting",
		zap.String("environment", e.cfg.Environment),
		zap.Duration("poll_interval", e.interval),
		zap.Bool("armed", e.cfg.Armed),
		zap.Bool("dry_run", e.dryRun))

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopping")
			return nil
		case <-ticker.C:
			e.cycle(ctx)
		}
	}
}

func (e *Engine) cycle(ctx context.Context) {
	actions := e.exec.Poll(ctx)
	for _, a := range actions {
		e.log.Info("cycle action",
			zap.String("type", string(a.Type)),
			zap.String("position", a.PositionID),
			zap.String("ticker", a.Ticker),
			zap.Int("contracts", a.Contracts),
			zap.Float64("price", a.Price),
			zap.Bool("executed", a.Executed),
			zap.Bool("dry_run", a.DryRun))
	}

	gs := e.governor.GetStatus()
	e.log.Debug("cycle complete",
		zap.Int("actions", len(actions)),
		zap.Int("open_positions", e.exec.GetStatus().Open),
		zap.Float64("realized_today", gs.Daily.RealizedPnL),
		zap.Bool("can_trade", gs.CanTrade))
}

// Submit runs an approved trade through the entry path.
func (e *Engine) Submit(ctx context.Context, t *trade.Trade) (*position.Position, error) {
	return e.exec.ExecuteTrade(ctx, t)
}

// Arm enables entries; Disarm blocks them. Exits keep running either way.
func (e *Engine) Arm()    { e.governor.Arm() }
func (e *Engine) Disarm() { e.governor.Disarm() }

// Kill halts everything until a human deactivates it.
func (e *Engine) Kill(reason string) { e.governor.ActivateKillSwitch(reason) }
func (e *Engine) KillOff()           { e.governor.DeactivateKillSwitch() }
func (e *Engine) Lockout(why string) { e.governor.ForceLockout(why) }

// Status is a combined snapshot for the status command.
type Status struct {
	Environment string
	DryRun      bool
	Governor    risk.Status
	Executor    executor.Status
}

func (e *Engine) GetStatus() Status {
	return Status{
		Environment: e.cfg.Environment,
		DryRun:      e.dryRun,
		Governor:    e.governor.GetStatus(),
		Executor:    e.exec.GetStatus(),
	}
}

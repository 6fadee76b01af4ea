package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	actions   *csv.Writer
	positions *csv.Writer
	af, pf    *os.File
}

func NewCSV(actionsPath, positionsPath string) (*CSVJournal, error) {
	af, err := os.Create(actionsPath)
	if err != nil {
		return nil, err
	}
	pf, err := os.Create(positionsPath)
	if err != nil {
		return nil, err
	}

	aw := csv.NewWriter(af)
	pw := csv.NewWriter(pf)

	if err := aw.Write([]string{"time", "type", "position_id", "ticker", "contracts", "price", "pnl_pct", "executed", "dry_run", "order_id", "message"}); err != nil {
		return nil, err
	}
	if err := pw.Write([]string{"position_id", "ticker", "option_type", "strike", "expiration", "contracts", "entry_price", "entry_time", "exit_price", "close_time", "realized_pnl", "state"}); err != nil {
		return nil, err
	}

	aw.Flush()
	if err := aw.Error(); err != nil {
		return nil, err
	}
	pw.Flush()
	if err := pw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{aw, pw, af, pf}, nil
}

func (j *CSVJournal) RecordAction(a ActionRecord) error {
	err := j.actions.Write([]string{
		a.Time.Format(time.RFC3339),
		a.Type,
		a.PositionID,
		a.Ticker,
		strconv.Itoa(a.Contracts),
		f(a.Price),
		f(a.PnLPct),
		strconv.FormatBool(a.Executed),
		strconv.FormatBool(a.DryRun),
		a.OrderID,
		a.Message,
	})
	if err != nil {
		return err
	}
	j.actions.Flush()
	return j.actions.Error()
}

func (j *CSVJournal) RecordPosition(p PositionRecord) error {
	err := j.positions.Write([]string{
		p.PositionID,
		p.Ticker,
		p.OptionType,
		f(p.Strike),
		p.Expiration.Format("2006-01-02"),
		strconv.Itoa(p.Contracts),
		f(p.EntryPrice),
		p.EntryTime.Format(time.RFC3339),
		f(p.ExitPrice),
		p.CloseTime.Format(time.RFC3339),
		f(p.RealizedPnL),
		p.State,
	})
	if err != nil {
		return err
	}
	j.positions.Flush()
	return j.positions.Error()
}

func (j *CSVJournal) Close() error {
	j.actions.Flush()
	if err := j.actions.Error(); err != nil {
		return err
	}
	j.positions.Flush()
	if err := j.positions.Error(); err != nil {
		return err
	}

	if err := j.af.Close(); err != nil {
		return err
	}
	if err := j.pf.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func sampleAction(tm time.Time, typ string) ActionRecord {
	return ActionRecord{
		Time:       tm,
		Type:       typ,
		PositionID: "pos-1",
		Ticker:     "SPY",
		Contracts:  2,
		Price:      2.50,
		PnLPct:     25,
		Executed:   true,
		OrderID:    "ord-1",
		Message:    "filled",
	}
}

func samplePosition() PositionRecord {
	return PositionRecord{
		PositionID:  "pos-1",
		Ticker:      "SPY",
		OptionType:  "call",
		Strike:      500,
		Expiration:  time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC),
		Contracts:   4,
		EntryPrice:  2.00,
		EntryTime:   t0,
		ExitPrice:   2.50,
		CloseTime:   t0.Add(2 * time.Hour),
		RealizedPnL: 200,
		State:       "closed",
	}
}

func TestSQLite_RoundTrip(t *testing.T) {
	t.Parallel()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordAction(sampleAction(t0, "trim_1")))
	require.NoError(t, j.RecordAction(sampleAction(t0.Add(time.Hour), "trim_2")))
	require.NoError(t, j.RecordAction(sampleAction(t0.Add(48*time.Hour), "hard_stop")))

	// Range query clips to the window, oldest first.
	got, err := j.ListActions(t0, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "trim_1", got[0].Type)
	assert.Equal(t, "trim_2", got[1].Type)
	assert.Equal(t, "ord-1", got[0].OrderID)
	assert.Equal(t, 2, got[0].Contracts)
}

func TestSQLite_PositionUpsert(t *testing.T) {
	t.Parallel()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	rec := samplePosition()
	rec.State = "open"
	require.NoError(t, j.RecordPosition(rec))

	rec.State = "closed"
	rec.RealizedPnL = 210
	require.NoError(t, j.RecordPosition(rec))

	var count int
	var state string
	row := j.db.QueryRow(`SELECT COUNT(*), state FROM positions WHERE position_id = ?`, rec.PositionID)
	require.NoError(t, row.Scan(&count, &state))
	assert.Equal(t, 1, count, "same position id must replace, not duplicate")
	assert.Equal(t, "closed", state)
}

func TestSQLite_ListPositionsByCloseTime(t *testing.T) {
	t.Parallel()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	today := samplePosition()
	require.NoError(t, j.RecordPosition(today))

	old := samplePosition()
	old.PositionID = "pos-0"
	old.CloseTime = t0.AddDate(0, 0, -3)
	require.NoError(t, j.RecordPosition(old))

	got, err := j.ListPositions(t0, t0.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pos-1", got[0].PositionID)
	assert.InDelta(t, 200.0, got[0].RealizedPnL, 1e-9)
}

func TestCSV_WritesHeadersAndRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	actionsPath := filepath.Join(dir, "actions.csv")
	positionsPath := filepath.Join(dir, "positions.csv")

	j, err := NewCSV(actionsPath, positionsPath)
	require.NoError(t, err)

	require.NoError(t, j.RecordAction(sampleAction(t0, "trim_1")))
	require.NoError(t, j.RecordPosition(samplePosition()))
	require.NoError(t, j.Close())

	af, err := os.Open(actionsPath)
	require.NoError(t, err)
	defer af.Close()

	rows, err := csv.NewReader(af).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "time", rows[0][0])
	assert.Equal(t, "trim_1", rows[1][1])
	assert.Equal(t, "SPY", rows[1][3])

	pf, err := os.Open(positionsPath)
	require.NoError(t, err)
	defer pf.Close()

	prows, err := csv.NewReader(pf).ReadAll()
	require.NoError(t, err)
	require.Len(t, prows, 2)
	assert.Equal(t, "position_id", prows[0][0])
	assert.Equal(t, "closed", prows[1][11])
}

func TestNop_SwallowsEverything(t *testing.T) {
	t.Parallel()

	var j Journal = Nop{}
	assert.NoError(t, j.RecordAction(ActionRecord{}))
	assert.NoError(t, j.RecordPosition(PositionRecord{}))
	assert.NoError(t, j.Close())
}

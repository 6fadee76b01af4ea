package trade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVolumeRatio(t *testing.T) {
	t.Parallel()

	s := &Signal{Volume: 3_000_000, AvgVolume: 1_000_000}
	assert.InDelta(t, 3.0, s.VolumeRatio(), 1e-9)

	assert.Equal(t, 0.0, (&Signal{Volume: 100}).VolumeRatio())
	assert.Equal(t, 0.0, (&Signal{AvgVolume: 100}).VolumeRatio())
}

func TestCatalystAge(t *testing.T) {
	t.Parallel()

	fired := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	s := &Signal{CatalystTime: fired}
	assert.Equal(t, 45*time.Minute, s.CatalystAge(fired.Add(45*time.Minute)))
}

func TestTradeLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	tr := &Trade{
		Signal: &Signal{Ticker: "SPY", Direction: "call"},
		Grade:  GradeA,
	}

	assert.Equal(t, "SPY", tr.Ticker())
	assert.Equal(t, "call", tr.Direction())

	tr.Approve(now)
	assert.True(t, tr.Approved)
	assert.Equal(t, now, tr.ApprovedAt)

	tr.MarkExecuted("pos-1", now.Add(time.Minute))
	assert.True(t, tr.Executed)
	assert.Equal(t, "pos-1", tr.PositionID)

	tr2 := &Trade{Signal: &Signal{Ticker: "QQQ"}}
	tr2.Reject("risk too high")
	assert.True(t, tr2.Rejected)
	assert.Equal(t, "risk too high", tr2.RejectionReason)
}

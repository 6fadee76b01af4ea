package trade

import "time"

// Grade is the externally computed quality tag on an approved candidate. The
// lifecycle engine consumes it for sizing and gating but never recomputes it.
type Grade string

const (
	GradeA  Grade = "A"
	GradeB  Grade = "B"
	NoTrade Grade = "NO_TRADE"
)

// Signal is the catalyst context a trade candidate came from. Produced
// upstream; carried along for journaling.
type Signal struct {
	ID        string
	Ticker    string
	Direction string // "call" or "put"

	CatalystType        string
	CatalystDescription string
	CatalystTime        time.Time

	CurrentPrice float64
	Volume       int64
	AvgVolume    int64

	DetectedAt time.Time
}

// VolumeRatio is current volume relative to average, 0 if unknown.
func (s *Signal) VolumeRatio() float64 {
	if s.Volume == 0 || s.AvgVolume == 0 {
		return 0
	}
	return float64(s.Volume) / float64(s.AvgVolume)
}

// CatalystAge is the time since the catalyst fired.
func (s *Signal) CatalystAge(now time.Time) time.Duration {
	return now.Sub(s.CatalystTime)
}

// Trade is an approved candidate handed to the executor. It becomes a
// Position once filled.
type Trade struct {
	Signal *Signal

	Grade     Grade
	Contracts int
	MaxRisk   float64 // dollars at risk if the position goes to zero

	Strike      float64
	Expiration  time.Time
	HasContract bool // strike+expiration were selected upstream

	Approved   bool
	ApprovedAt time.Time
	Executed   bool
	ExecutedAt time.Time
	PositionID string

	Rejected        bool
	RejectionReason string
}

func (t *Trade) Ticker() string {
	return t.Signal.Ticker
}

func (t *Trade) Direction() string {
	return t.Signal.Direction
}

// Approve marks the trade cleared for execution.
func (t *Trade) Approve(now time.Time) {
	t.Approved = true
	t.ApprovedAt = now
}

// Reject records why the trade will not execute.
func (t *Trade) Reject(reason string) {
	t.Rejected = true
	t.RejectionReason = reason
}

// MarkExecuted links the trade to the position it opened.
func (t *Trade) MarkExecuted(positionID string, now time.Time) {
	t.Executed = true
	t.ExecutedAt = now
	t.PositionID = positionID
}

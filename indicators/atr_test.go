package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func steadyCandles(n int) []Candle {
	// Each bar spans exactly 2.0 with no gaps, so every TR is 2.0 and the
	// ATR must be 2.0 regardless of smoothing.
	out := make([]Candle, n)
	for i := range out {
		out[i] = Candle{High: 101, Low: 99, Close: 100}
	}
	return out
}

func TestATRFunc_SteadyRange(t *testing.T) {
	t.Parallel()

	atr, err := ATRFunc(steadyCandles(20), 14)
	assert.NoError(t, err)
	assert.InDelta(t, 2.0, atr, 1e-9)
}

func TestATRFunc_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		candles []Candle
		period  int
	}{
		{"zero period", steadyCandles(20), 0},
		{"negative period", steadyCandles(20), -3},
		{"too few candles", steadyCandles(14), 14},
		{"empty", nil, 14},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ATRFunc(tt.candles, tt.period)
			assert.Error(t, err)
		})
	}
}

func TestATRFunc_GapUsesTrueRange(t *testing.T) {
	t.Parallel()

	// The second bar gaps up: TR is measured from the previous close, not
	// just the bar's own range.
	candles := []Candle{
		{High: 101, Low: 99, Close: 100},
		{High: 106, Low: 105, Close: 105}, // TR = 106 - 100 = 6
		{High: 106, Low: 104, Close: 105}, // TR = 2
	}

	atr, err := ATRFunc(candles, 2)
	assert.NoError(t, err)
	assert.InDelta(t, 4.0, atr, 1e-9)
}

func TestATR_Streaming(t *testing.T) {
	t.Parallel()

	a := NewATR(3)
	assert.Equal(t, "ATR(3)", a.Name())
	assert.Equal(t, 4, a.Warmup())
	assert.False(t, a.Ready())
	assert.Equal(t, 0.0, a.Value())

	for _, c := range steadyCandles(4) {
		a.Update(c)
	}
	assert.True(t, a.Ready())
	assert.InDelta(t, 2.0, a.Value(), 1e-9)

	// Streaming output matches the batch calculation over the same bars.
	candles := []Candle{
		{High: 101, Low: 99, Close: 100},
		{High: 103, Low: 100, Close: 102},
		{High: 104, Low: 101, Close: 103},
		{High: 102, Low: 98, Close: 99},
		{High: 100, Low: 97, Close: 98},
	}
	want, err := ATRFunc(candles, 3)
	assert.NoError(t, err)

	a.Reset()
	for _, c := range candles {
		a.Update(c)
	}
	assert.InDelta(t, want, a.Value(), 1e-9)
}

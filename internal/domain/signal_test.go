package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultThresholds = Thresholds{Buy: -0.01, Sell: 0.10}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		diff float64
		want Signal
	}{
		{"exactly buy threshold", -0.01, SignalBuy},
		{"below buy threshold", -0.05, SignalBuy},
		{"just above buy threshold", -0.0099, SignalHold},
		{"zero", 0, SignalHold},
		{"just below sell threshold", 0.0999, SignalHold},
		{"exactly sell threshold", 0.10, SignalSell},
		{"above sell threshold", 0.25, SignalSell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.diff, defaultThresholds))
		})
	}
}

func TestClassify_Monotonic(t *testing.T) {
	rank := map[Signal]int{SignalBuy: 0, SignalHold: 1, SignalSell: 2}
	prev := Classify(-1, defaultThresholds)
	for d := -1.0; d <= 1.0; d += 0.001 {
		cur := Classify(d, defaultThresholds)
		assert.GreaterOrEqual(t, rank[cur], rank[prev], "diff %.4f", d)
		prev = cur
	}
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, defaultThresholds.Validate())
	assert.NoError(t, Thresholds{Buy: 0, Sell: 0.01}.Validate())

	for _, th := range []Thresholds{
		{Buy: 0.01, Sell: 0.10},
		{Buy: -0.01, Sell: 0},
		{Buy: -0.01, Sell: -0.02},
	} {
		err := th.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidParams))
	}
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.Period = 0
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
}

func TestParseSignal(t *testing.T) {
	sig, err := ParseSignal(" sell ")
	require.NoError(t, err)
	assert.Equal(t, SignalSell, sig)

	_, err = ParseSignal("maybe")
	assert.Error(t, err)

	for _, s := range AllSignals {
		parsed, err := ParseSignal(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestRationale_MentionsThresholds(t *testing.T) {
	assert.Contains(t, Rationale(SignalBuy, -0.02, defaultThresholds), "-2.00%")
	assert.Contains(t, Rationale(SignalSell, 0.12, defaultThresholds), "10.00%")
	hold := Rationale(SignalHold, 0.03, defaultThresholds)
	assert.Contains(t, hold, "-1.00%")
	assert.Contains(t, hold, "10.00%")
}

func TestSignal_AdviceNotEmpty(t *testing.T) {
	for _, s := range AllSignals {
		assert.Len(t, s.Advice(), 3, s.String())
		assert.NotEmpty(t, s.Action())
	}
}

// --- SignalHistory ---

func diffsOf(values ...float64) []ReturnDiffPoint {
	out := make([]ReturnDiffPoint, len(values))
	for i, v := range values {
		out[i] = ReturnDiffPoint{Diff: v, Valid: true}
	}
	return out
}

func TestSignalHistory_CountsAndRun(t *testing.T) {
	diffs := append([]ReturnDiffPoint{{}, {}}, diffsOf(-0.05, 0.0, 0.2, 0.3, 0.0, 0.01, 0.02)...)

	stats := SignalHistory(diffs, defaultThresholds)

	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 1, stats.Counts[SignalBuy])
	assert.Equal(t, 4, stats.Counts[SignalHold])
	assert.Equal(t, 2, stats.Counts[SignalSell])
	assert.Equal(t, SignalHold, stats.Current)
	assert.Equal(t, 3, stats.CurrentRun)
	assert.InDelta(t, 100.0*4/7, stats.Percent(SignalHold), 1e-9)
}

func TestSignalHistory_Empty(t *testing.T) {
	stats := SignalHistory([]ReturnDiffPoint{{}, {}}, defaultThresholds)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.CurrentRun)
	assert.Zero(t, stats.Percent(SignalBuy))
}

func TestSignalHistory_WholeSeriesOneRun(t *testing.T) {
	stats := SignalHistory(diffsOf(0.5, 0.4, 0.3), defaultThresholds)
	assert.Equal(t, SignalSell, stats.Current)
	assert.Equal(t, 3, stats.CurrentRun)
}

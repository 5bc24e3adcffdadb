package sizing

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/riskgate/budget"
)

func day(n int) time.Time {
	return time.Date(2026, 8, n, 15, 0, 0, 0, time.UTC)
}

func newSizer() (*Sizer, *budget.Tracker) {
	tr := budget.NewTracker(budget.DefaultConfig())
	return NewSizer(tr, NewPerTradeRisk(0.45), DefaultParams()), tr
}

func condor(width, credit float64) Spec {
	return Spec{Kind: IronCondor, Width: width, NetCredit: credit}
}

func TestStandardDerivation(t *testing.T) {
	t.Parallel()

	s, tr := newSizer()
	tr.StartNewDay(day(1))

	// remaining 500, fraction 0.45 -> allowance 225, buffered 213.75,
	// max loss 78 -> floor 2.
	res := s.MaxContracts(day(1), condor(1.0, 0.22))

	require.True(t, res.Valid)
	assert.Equal(t, 2, res.Contracts)
	assert.Equal(t, 2, res.DerivedContracts)
	assert.Equal(t, DerivationStandard, res.Derivation)
	assert.False(t, res.DynamicFraction)
	assert.InDelta(t, 0.45, res.AppliedFraction, 1e-9)
	assert.True(t, res.SafetyBufferApplied)
	assert.InDelta(t, 78.0, res.MaxLossPerContract, 1e-9)
	assert.InDelta(t, 225.0, res.Allowance, 1e-9)
	assert.InDelta(t, 500.0, res.Remaining, 1e-9)
}

func TestHardCapClamps(t *testing.T) {
	t.Parallel()

	s, tr := newSizer()
	tr.StartNewDay(day(1))

	// max loss 10 -> buffered 213.75 derives 21, clamped to 8.
	res := s.MaxContracts(day(1), condor(1.0, 0.90))

	assert.Equal(t, 8, res.Contracts)
	assert.Equal(t, 21, res.DerivedContracts)
	assert.Equal(t, DerivationStandard, res.Derivation)
}

func TestDynamicFractionAtLowCap(t *testing.T) {
	t.Parallel()

	s, tr := newSizer()

	// Three losing days drop the daily limit to 100, at or below the
	// 150 threshold.
	tr.StartNewDay(day(1))
	for i := 0; i < 3; i++ {
		tr.RecordTradeLoss(day(1+i), 40)
		tr.StartNewDay(day(2 + i))
	}
	require.InDelta(t, 100.0, tr.DailyLimit(day(4)), 1e-9)

	// remaining 100, fraction 0.80 -> allowance 80, buffered 76,
	// max loss 40 -> 1 contract without any fallback.
	res := s.MaxContracts(day(4), condor(1.0, 0.60))

	assert.Equal(t, 1, res.Contracts)
	assert.Equal(t, DerivationStandard, res.Derivation)
	assert.True(t, res.DynamicFraction)
	assert.InDelta(t, 0.80, res.AppliedFraction, 1e-9)
}

func TestNormalFractionAboveLowCap(t *testing.T) {
	t.Parallel()

	s, tr := newSizer()
	tr.StartNewDay(day(1))

	res := s.MaxContracts(day(1), condor(1.0, 0.22))
	assert.False(t, res.DynamicFraction)
	assert.InDelta(t, 0.45, res.AppliedFraction, 1e-9)
}

func TestProbeTrade(t *testing.T) {
	t.Parallel()

	s, tr := newSizer()
	tr.StartNewDay(day(1))
	tr.RecordTradeLoss(day(1), 400)

	// remaining 100: buffered allowance 42.75 derives zero, but one
	// contract's 78 fits the absolute remaining budget.
	res := s.MaxContracts(day(1), condor(1.0, 0.22))

	assert.Equal(t, 1, res.Contracts)
	assert.Equal(t, 0, res.DerivedContracts)
	assert.Equal(t, DerivationProbe, res.Derivation)
	assert.Contains(t, res.Details, "probe")
}

func TestProbeRespectsAbsoluteBudget(t *testing.T) {
	t.Parallel()

	s, tr := newSizer()
	tr.StartNewDay(day(1))
	tr.RecordTradeLoss(day(1), 460)

	// remaining 40 < one contract's 78: the probe must not fire, and
	// at the minimum width there is no narrower retry either.
	res := s.MaxContracts(day(1), condor(1.0, 0.22))

	require.True(t, res.Valid)
	assert.Equal(t, 0, res.Contracts)
	assert.Equal(t, DerivationStandard, res.Derivation)
}

func TestProbeOnlyWhenNoOpenPositions(t *testing.T) {
	t.Parallel()

	s, tr := newSizer()
	tr.StartNewDay(day(1))
	tr.RecordTradeLoss(day(1), 400)
	tr.RecordPositionOpened(day(1))

	res := s.MaxContracts(day(1), condor(1.0, 0.22))
	assert.Equal(t, 0, res.Contracts)
	assert.NotEqual(t, DerivationProbe, res.Derivation)
}

func TestScaleToFit(t *testing.T) {
	t.Parallel()

	s, tr := newSizer()
	tr.StartNewDay(day(1))
	tr.RecordTradeLoss(day(1), 350)

	// remaining 150, width 5 -> max loss 450: division and probe both
	// come up empty. The single retry at width 1.0 (max loss 50) fits
	// one contract inside the buffered allowance 64.125.
	res := s.MaxContracts(day(1), condor(5.0, 0.50))

	require.True(t, res.Valid)
	assert.Equal(t, 1, res.Contracts)
	assert.Equal(t, DerivationScaleToFit, res.Derivation)
	assert.InDelta(t, 50.0, res.MaxLossPerContract, 1e-9)
	assert.Contains(t, res.Details, "[SCALED]")
}

func TestScaleToFitSkippedAtMinWidth(t *testing.T) {
	t.Parallel()

	s, tr := newSizer()
	tr.StartNewDay(day(1))
	tr.RecordTradeLoss(day(1), 460)

	res := s.MaxContracts(day(1), condor(1.0, 0.22))
	assert.Equal(t, 0, res.Contracts)
	assert.NotEqual(t, DerivationScaleToFit, res.Derivation)
	assert.False(t, strings.Contains(res.Details, "[SCALED]"))
}

func TestStructurallyInvalidSpecs(t *testing.T) {
	t.Parallel()

	s, tr := newSizer()
	tr.StartNewDay(day(1))

	tests := []struct {
		name string
		spec Spec
	}{
		{"negative width", condor(-1.0, 0.22)},
		{"zero width", condor(0, 0.22)},
		{"negative credit", condor(1.0, -0.5)},
		{"credit above width", condor(1.0, 1.2)},
		{"unknown kind", Spec{Kind: "calendar", Width: 1.0, NetCredit: 0.2}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := s.MaxContracts(day(1), tt.spec)
			assert.False(t, res.Valid)
			assert.Equal(t, 0, res.Contracts)
			assert.Contains(t, res.Details, "rejected")
		})
	}
}

func TestValidateContracts(t *testing.T) {
	t.Parallel()

	s, tr := newSizer()
	tr.StartNewDay(day(1))

	spec := condor(1.0, 0.22) // max loss 78, remaining 500

	assert.NoError(t, s.ValidateContracts(day(1), spec, 1))
	assert.NoError(t, s.ValidateContracts(day(1), spec, 6))

	assert.ErrorIs(t, s.ValidateContracts(day(1), spec, 0), ErrNoContracts)
	assert.ErrorIs(t, s.ValidateContracts(day(1), spec, 9), ErrHardCapExceeded)
	assert.ErrorIs(t, s.ValidateContracts(day(1), spec, 7), ErrInsufficientBudget) // 546 > 500
	assert.ErrorIs(t, s.ValidateContracts(day(1), condor(-1, 0.2), 1), ErrInvalidWidth)
}

// TestSizingInvariants sweeps randomized specs and budget states and
// checks the properties no derivation path may violate: counts are
// whole, bounded by the hard cap, and the worst case never exceeds
// the absolute remaining budget.
func TestSizingInvariants(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	params := DefaultParams()

	for i := 0; i < 2000; i++ {
		tr := budget.NewTracker(budget.DefaultConfig())
		d := day(1 + rng.Intn(20))
		tr.StartNewDay(d)

		// Random prior losses, sometimes past the whole budget.
		if rng.Intn(2) == 0 {
			tr.RecordTradeLoss(d, rng.Float64()*600)
		}

		s := NewSizer(tr, NewPerTradeRisk(0.40+rng.Float64()*0.10), params)

		width := 0.5 + rng.Float64()*5
		credit := rng.Float64() * width * 0.9
		res := s.MaxContracts(d, condor(width, credit))
		if !res.Valid {
			continue
		}

		require.LessOrEqual(t, res.Contracts, params.HardCapContracts, "iteration %d", i)
		require.GreaterOrEqual(t, res.Contracts, 0, "iteration %d", i)

		worst := float64(res.Contracts) * res.MaxLossPerContract
		require.LessOrEqual(t, worst, tr.Remaining(d)+1e-9,
			"iteration %d: worst case %.4f exceeds remaining %.4f (%s)",
			i, worst, tr.Remaining(d), res.Details)

		// The dynamic fraction fires exactly when the daily limit is
		// at or below the low-cap threshold.
		wantDynamic := tr.DailyLimit(d) <= params.LowCapThreshold
		require.Equal(t, wantDynamic, res.DynamicFraction, "iteration %d", i)
	}
}

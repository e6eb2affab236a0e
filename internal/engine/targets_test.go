package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"humpday-trader/internal/types"
)

func portfolioWithRatios(ratios map[string]float64, order ...string) *types.Portfolio {
	p := &types.Portfolio{}
	for _, s := range order {
		p.Positions = append(p.Positions, &types.Position{Symbol: s, Qty: decimal.Zero, RatioChange: ratio(ratios[s])})
	}
	return p
}

func TestCalculateTargetsProportionalWithinBand(t *testing.T) {
	p := portfolioWithRatios(map[string]float64{"A": 1.2, "B": 1.0, "C": 0.8}, "A", "B", "C")

	targets, err := CalculateTargets(p)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, targets["A"], 1e-9)
	assert.InDelta(t, 1.0/3, targets["B"], 1e-9)
	assert.InDelta(t, 0.8/3, targets["C"], 1e-9)
	assert.InDelta(t, 1.0, targets.Sum(), 1e-9)
}

func TestCalculateTargetsClampsAndNormalizes(t *testing.T) {
	p := portfolioWithRatios(map[string]float64{"A": 3.0, "B": 0.1, "C": 0.1}, "A", "B", "C")

	targets, err := CalculateTargets(p)
	require.NoError(t, err)

	// clamped to 0.5667/0.1/0.1, then rescaled by the 0.7667 total
	assert.InDelta(t, 0.7391, targets["A"], 1e-4)
	assert.InDelta(t, 0.1304, targets["B"], 1e-4)
	assert.InDelta(t, 0.1304, targets["C"], 1e-4)
	assert.InDelta(t, 1.0, targets.Sum(), 1e-9)
}

func TestCalculateTargetsStaysInBandWithoutRescale(t *testing.T) {
	p := portfolioWithRatios(map[string]float64{"A": 1.05, "B": 0.98, "C": 1.01, "D": 0.96}, "A", "B", "C", "D")

	targets, err := CalculateTargets(p)
	require.NoError(t, err)

	lower, _, upper := Band(4)
	for sym, v := range targets {
		assert.GreaterOrEqual(t, v, lower, sym)
		assert.LessOrEqual(t, v, upper, sym)
	}
	assert.InDelta(t, 1.0, targets.Sum(), 0.01)
}

func TestCalculateTargetsSinglePosition(t *testing.T) {
	targets, err := CalculateTargets(portfolioWithRatios(map[string]float64{"SPY": 0.9}, "SPY"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, targets["SPY"], 1e-9)
}

func TestCalculateTargetsErrors(t *testing.T) {
	_, err := CalculateTargets(&types.Portfolio{})
	assert.ErrorIs(t, err, ErrEmptyPortfolio)

	p := portfolioWithRatios(map[string]float64{"A": 1.0}, "A")
	p.Positions = append(p.Positions, &types.Position{Symbol: "B"})
	_, err = CalculateTargets(p)
	assert.ErrorIs(t, err, ErrMissingRatio)
}

func TestBand(t *testing.T) {
	lower, baseline, upper := Band(3)
	assert.InDelta(t, 0.1, lower, 1e-9)
	assert.InDelta(t, 1.0/3, baseline, 1e-9)
	assert.InDelta(t, 0.5667, upper, 1e-4)
}

// skewedRatio mostly returns ordinary day-over-day changes with occasional
// collapses and spikes.
func skewedRatio(r *rand.Rand) float64 {
	switch r.IntN(5) {
	case 0:
		return 0.001 + r.Float64()*0.05
	case 1:
		return 2 + r.ExpFloat64()*20
	default:
		return 0.5 + r.Float64()
	}
}

func randomRatioPortfolio(r *rand.Rand, n int) *types.Portfolio {
	p := &types.Portfolio{}
	for i := 0; i < n; i++ {
		p.Positions = append(p.Positions, &types.Position{
			Symbol:      fmt.Sprintf("S%02d", i),
			Qty:         decimal.Zero,
			RatioChange: ratio(skewedRatio(r)),
		})
	}
	return p
}

func TestCalculateTargetsSumStaysNearOneUnderSkew(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 5000; i++ {
		n := 1 + r.IntN(12)
		p := randomRatioPortfolio(r, n)

		targets, err := CalculateTargets(p)
		require.NoError(t, err)
		require.Len(t, targets, n)

		sum := targets.Sum()
		require.LessOrEqualf(t, math.Abs(sum-1), 0.01+1e-9, "case %d n=%d sum=%v", i, n, sum)
		for sym, v := range targets {
			require.Positivef(t, v, "case %d %s", i, sym)
		}
	}
}

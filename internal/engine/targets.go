package engine

import (
	"fmt"
	"math"

	"humpday-trader/internal/types"
)

const (
	// deviationBand bounds targets to baseline*(1±deviationBand).
	deviationBand = 0.7
	sumTolerance  = 0.99
)

// Band returns the allowed target range for n positions.
func Band(n int) (lower, baseline, upper float64) {
	baseline = 1 / float64(n)
	return baseline * (1 - deviationBand), baseline, baseline * (1 + deviationBand)
}

// CalculateTargets turns ratio changes into target proportions: allocation
// proportional to performance, clamped to the band, then rescaled when the
// sum drifts outside [0.99, 1].
func CalculateTargets(p *types.Portfolio) (types.RebalanceTargets, error) {
	n := len(p.Positions)
	if n == 0 {
		return nil, ErrEmptyPortfolio
	}

	var changeSum float64
	for _, pos := range p.Positions {
		if pos.RatioChange == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingRatio, pos.Symbol)
		}
		changeSum += *pos.RatioChange
	}
	if changeSum <= 0 || math.IsNaN(changeSum) || math.IsInf(changeSum, 0) {
		return nil, fmt.Errorf("invalid ratio change sum %v", changeSum)
	}

	lower, baseline, upper := Band(n)
	targets := make(types.RebalanceTargets, n)
	for _, pos := range p.Positions {
		raw := *pos.RatioChange / changeSum
		if raw > baseline {
			targets[pos.Symbol] = math.Min(raw, upper)
		} else {
			targets[pos.Symbol] = math.Max(raw, lower)
		}
	}

	if total := targets.Sum(); total < sumTolerance || total > 1 {
		for sym := range targets {
			targets[sym] /= total
		}
	}
	return targets, nil
}

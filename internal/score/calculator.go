package score

import (
	"math"

	"github.com/vigiapp/vigia/internal/domain"
)

// Scoring constants. Closer and more recent incidents weigh more; each
// severity unit costs pointsPerIncident off the 100-point base.
const (
	baseScore         = 100.0
	pointsPerIncident = 2.0
)

var radiusWeights = map[domain.Radius]float64{
	domain.Radius500m: 1.0,
	domain.Radius1km:  0.6,
	domain.Radius2km:  0.3,
}

var timeframeWeights = map[domain.Timeframe]float64{
	domain.Timeframe30d:  1.0,
	domain.Timeframe90d:  0.6,
	domain.Timeframe365d: 0.3,
}

// RadiusScore computes the 0-100 score for one radius: the timeframe-weighted
// severity sum is converted into a deduction from the base. Intermediate
// arithmetic stays in floating point; only the result is clamped and rounded.
func RadiusScore(agg domain.AggregatedIncidents, radius domain.Radius) int {
	deduction := 0.0
	for _, timeframe := range domain.Timeframes {
		deduction += timeframeWeights[timeframe] * agg.Cell(radius, timeframe).WeightedTotal
	}
	deduction *= pointsPerIncident
	return clampRound(baseScore - deduction)
}

// OverallScore combines the three radius scores into one number using a
// radius-weight-normalized average. Averaging rather than summing the
// deductions avoids penalizing the same incident once per radius that
// contains it, while still weighting closer incidents more heavily.
func OverallScore(agg domain.AggregatedIncidents) int {
	weightedSum := 0.0
	weightTotal := 0.0
	for _, radius := range domain.Radii {
		weightedSum += float64(RadiusScore(agg, radius)) * radiusWeights[radius]
		weightTotal += radiusWeights[radius]
	}
	return clampRound(weightedSum / weightTotal)
}

func clampRound(v float64) int {
	return int(math.Round(math.Min(100, math.Max(0, v))))
}

package score

import (
	"math"

	"github.com/vigiapp/vigia/internal/domain"
)

// Trend classification thresholds: a change inside ±10% reads as noise.
const trendThresholdPct = 10.0

// AnalyzeTrend classifies whether a location's incident rate is improving,
// stable, or worsening, using only the 1 km radius data. The previous
// 30-day window is estimated as half of the 31-90-day remainder, assuming
// uniform distribution across that span.
func AnalyzeTrend(agg domain.AggregatedIncidents) domain.TrendAnalysis {
	recent := agg.Cell(domain.Radius1km, domain.Timeframe30d).Total
	total90 := agg.Cell(domain.Radius1km, domain.Timeframe90d).Total
	previous := int(math.Round(float64(total90-recent) / 2))

	var change float64
	switch {
	case previous == 0 && recent == 0:
		change = 0
	case previous == 0:
		change = 100
	default:
		change = float64(recent-previous) / float64(previous) * 100
	}

	direction := domain.TrendStable
	switch {
	case change < -trendThresholdPct:
		direction = domain.TrendImproving
	case change > trendThresholdPct:
		direction = domain.TrendWorsening
	}

	return domain.TrendAnalysis{
		Direction:      direction,
		Percentage:     math.Abs(change),
		Confidence:     trendConfidence(recent + previous),
		Recent30Days:   recent,
		Previous30Days: previous,
	}
}

// trendConfidence grades the classification by combined sample size.
func trendConfidence(samples int) float64 {
	switch {
	case samples >= 20:
		return 0.9
	case samples >= 10:
		return 0.7
	case samples >= 5:
		return 0.5
	default:
		return 0.3
	}
}

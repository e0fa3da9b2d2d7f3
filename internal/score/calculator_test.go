package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vigiapp/vigia/internal/domain"
)

// aggFrom builds an aggregation matrix from weighted totals keyed by
// radius/timeframe; unnamed cells stay zero.
func aggFrom(weighted map[domain.Radius]map[domain.Timeframe]float64) domain.AggregatedIncidents {
	cells := make(map[domain.Radius]map[domain.Timeframe]domain.AggregationCell)
	for _, r := range domain.Radii {
		cells[r] = make(map[domain.Timeframe]domain.AggregationCell)
		for _, tf := range domain.Timeframes {
			cells[r][tf] = domain.AggregationCell{WeightedTotal: weighted[r][tf]}
		}
	}
	return domain.AggregatedIncidents{Cells: cells}
}

func TestRadiusScore(t *testing.T) {
	t.Run("no incidents scores exactly 100", func(t *testing.T) {
		agg := aggFrom(nil)
		for _, r := range domain.Radii {
			assert.Equal(t, 100, RadiusScore(agg, r))
		}
	})

	t.Run("known deduction", func(t *testing.T) {
		// 5 severity units in the 30d window: 1.0 * 5 * 2 = 10 off the base.
		agg := aggFrom(map[domain.Radius]map[domain.Timeframe]float64{
			domain.Radius500m: {domain.Timeframe30d: 5},
		})
		assert.Equal(t, 90, RadiusScore(agg, domain.Radius500m))
		assert.Equal(t, 100, RadiusScore(agg, domain.Radius1km))
	})

	t.Run("timeframe weights", func(t *testing.T) {
		// 10 units in each window: (1.0 + 0.6 + 0.3) * 10 * 2 = 38.
		agg := aggFrom(map[domain.Radius]map[domain.Timeframe]float64{
			domain.Radius1km: {
				domain.Timeframe30d:  10,
				domain.Timeframe90d:  10,
				domain.Timeframe365d: 10,
			},
		})
		assert.Equal(t, 62, RadiusScore(agg, domain.Radius1km))
	})

	t.Run("clamped at zero", func(t *testing.T) {
		agg := aggFrom(map[domain.Radius]map[domain.Timeframe]float64{
			domain.Radius500m: {domain.Timeframe30d: 1000},
		})
		assert.Equal(t, 0, RadiusScore(agg, domain.Radius500m))
	})
}

func TestOverallScore(t *testing.T) {
	t.Run("no incidents scores exactly 100", func(t *testing.T) {
		assert.Equal(t, 100, OverallScore(aggFrom(nil)))
	})

	t.Run("radius-weight-normalized average", func(t *testing.T) {
		// 500m scores 90, the others 100:
		// (90*1.0 + 100*0.6 + 100*0.3) / 1.9 = 94.74 → 95.
		agg := aggFrom(map[domain.Radius]map[domain.Timeframe]float64{
			domain.Radius500m: {domain.Timeframe30d: 5},
		})
		assert.Equal(t, 95, OverallScore(agg))
	})

	t.Run("identical incidents at every radius are not compounded", func(t *testing.T) {
		// Each radius deducts the same 10 points; a normalized average
		// keeps the overall at 90 instead of stacking three deductions.
		agg := aggFrom(map[domain.Radius]map[domain.Timeframe]float64{
			domain.Radius500m: {domain.Timeframe30d: 5},
			domain.Radius1km:  {domain.Timeframe30d: 5},
			domain.Radius2km:  {domain.Timeframe30d: 5},
		})
		assert.Equal(t, 90, OverallScore(agg))
	})
}

func TestScore_Bounds(t *testing.T) {
	weights := []float64{0, 0.5, 1, 3, 7.5, 20, 100, 1e6}
	for _, w := range weights {
		agg := aggFrom(map[domain.Radius]map[domain.Timeframe]float64{
			domain.Radius500m: {domain.Timeframe30d: w},
			domain.Radius1km:  {domain.Timeframe90d: w},
			domain.Radius2km:  {domain.Timeframe365d: w},
		})
		for _, r := range domain.Radii {
			s := RadiusScore(agg, r)
			assert.GreaterOrEqual(t, s, 0)
			assert.LessOrEqual(t, s, 100)
		}
		overall := OverallScore(agg)
		assert.GreaterOrEqual(t, overall, 0)
		assert.LessOrEqual(t, overall, 100)
	}
}

func TestScore_MonotonicallyNonIncreasing(t *testing.T) {
	weights := []float64{0, 1, 2, 5, 10, 25, 60, 200}

	for _, r := range domain.Radii {
		for _, tf := range domain.Timeframes {
			prevRadius, prevOverall := 101, 101
			for _, w := range weights {
				agg := aggFrom(map[domain.Radius]map[domain.Timeframe]float64{
					r: {tf: w},
				})
				radiusScore := RadiusScore(agg, r)
				overall := OverallScore(agg)

				assert.LessOrEqual(t, radiusScore, prevRadius,
					"radius %d timeframe %d weight %v", r, tf, w)
				assert.LessOrEqual(t, overall, prevOverall,
					"radius %d timeframe %d weight %v", r, tf, w)

				prevRadius, prevOverall = radiusScore, overall
			}
		}
	}
}

package score

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigiapp/vigia/internal/domain"
	"github.com/vigiapp/vigia/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(querier IncidentQuerier, history ScoreHistory, clock clockwork.Clock) *Engine {
	metrics := observability.NewMetricsForTesting()
	return NewEngine(
		NewAggregator(querier, clock, metrics),
		NewComparator(history, clock),
		clock,
		discardLogger(),
		metrics,
	)
}

func TestEngine_CalculateScore(t *testing.T) {
	geo := domain.Geo{Lat: -22.9068, Lon: -43.1729}
	now := time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)

	t.Run("assembles a complete score", func(t *testing.T) {
		querier := &fakeQuerier{
			byRadius: map[domain.Radius][]domain.TypeAggregate{
				domain.Radius500m: {
					{Type: domain.TypeShooting, Count: 1, SeveritySum: 9},
				},
			},
		}
		history := &fakeHistory{
			neighborhoodAvg: 70, neighborhoodN: 3,
			cityAvg: 80, cityN: 10,
			below: 4, total: 10,
		}
		e := newTestEngine(querier, history, clockwork.NewFakeClockAt(now))

		result, err := e.CalculateScore(context.Background(), geo, "Icaraí", "Niterói")
		require.NoError(t, err)

		// 9 severity units at 500m across all three timeframes:
		// (1.0 + 0.6 + 0.3) * 9 * 2 = 34.2 off the base.
		assert.Equal(t, 66, result.Score500m)
		assert.Equal(t, 100, result.Score1km)
		assert.Equal(t, 100, result.Score2km)
		// (66*1.0 + 100*0.6 + 100*0.3) / 1.9 = 82.1 → 82.
		assert.Equal(t, 82, result.OverallScore)

		assert.Equal(t, domain.TrendStable, result.Trend.Direction)
		assert.Equal(t, 70.0, result.Comparison.NeighborhoodAvgScore)
		assert.Equal(t, 40, result.Comparison.PercentileRank)
		assert.True(t, result.Comparison.BetterThanNeighborhood)
		assert.False(t, result.Comparison.BetterThanCity)

		assert.Equal(t, "Icaraí", result.Neighborhood)
		assert.Equal(t, "Niterói", result.Municipality)
		assert.Equal(t, now, result.CalculatedAt)
		assert.Equal(t, 1, result.Incidents.Cell(domain.Radius500m, domain.Timeframe30d).Total)
	})

	t.Run("no incidents anywhere is a perfect score", func(t *testing.T) {
		e := newTestEngine(&fakeQuerier{}, &fakeHistory{}, clockwork.NewFakeClockAt(now))

		result, err := e.CalculateScore(context.Background(), geo, "Icaraí", "Niterói")
		require.NoError(t, err)

		assert.Equal(t, 100, result.OverallScore)
		assert.Equal(t, domain.TrendStable, result.Trend.Direction)
		assert.Equal(t, 50, result.Comparison.PercentileRank)
	})

	t.Run("aggregation failure yields no partial score", func(t *testing.T) {
		querier := &fakeQuerier{failFor: domain.Radius2km}
		e := newTestEngine(querier, &fakeHistory{}, clockwork.NewFakeClockAt(now))

		result, err := e.CalculateScore(context.Background(), geo, "Icaraí", "Niterói")
		require.Error(t, err)
		assert.Zero(t, result)
	})

	t.Run("comparison failure yields no partial score", func(t *testing.T) {
		history := &fakeHistory{err: errors.New("pool exhausted")}
		e := newTestEngine(&fakeQuerier{}, history, clockwork.NewFakeClockAt(now))

		_, err := e.CalculateScore(context.Background(), geo, "Icaraí", "Niterói")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pool exhausted")
	})
}

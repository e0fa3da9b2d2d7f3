package score

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigiapp/vigia/internal/domain"
	"github.com/vigiapp/vigia/internal/observability"
)

type queriedCell struct {
	radius domain.Radius
	since  time.Time
}

type fakeQuerier struct {
	mu      sync.Mutex
	queries []queriedCell

	byRadius map[domain.Radius][]domain.TypeAggregate
	failFor  domain.Radius
	barrier  chan struct{}
}

func (f *fakeQuerier) IncidentsNear(ctx context.Context, _ domain.Geo, radius domain.Radius, since time.Time) ([]domain.TypeAggregate, error) {
	f.mu.Lock()
	f.queries = append(f.queries, queriedCell{radius: radius, since: since})
	arrived := len(f.queries)
	f.mu.Unlock()

	if f.barrier != nil {
		if arrived == 9 {
			close(f.barrier)
		}
		select {
		case <-f.barrier:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.failFor != 0 && radius == f.failFor {
		return nil, errors.New("query timeout")
	}
	return f.byRadius[radius], nil
}

func TestAggregator_Aggregate(t *testing.T) {
	geo := domain.Geo{Lat: -22.9068, Lon: -43.1729}

	t.Run("reduces aggregates into the full grid", func(t *testing.T) {
		querier := &fakeQuerier{
			byRadius: map[domain.Radius][]domain.TypeAggregate{
				domain.Radius500m: {
					{Type: domain.TypeShooting, Count: 2, SeveritySum: 18},
				},
				domain.Radius1km: {
					{Type: domain.TypeShooting, Count: 2, SeveritySum: 18},
					{Type: domain.TypeFire, Count: 1, SeveritySum: 2},
				},
			},
		}
		a := NewAggregator(querier, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

		agg, err := a.Aggregate(context.Background(), geo)
		require.NoError(t, err)

		cell := agg.Cell(domain.Radius1km, domain.Timeframe30d)
		assert.Equal(t, 3, cell.Total)
		assert.Equal(t, 20.0, cell.WeightedTotal)
		assert.Equal(t, map[domain.IncidentType]int{
			domain.TypeShooting: 2,
			domain.TypeFire:     1,
		}, cell.ByType)

		// The 2 km queries matched nothing; the cells still exist.
		empty := agg.Cell(domain.Radius2km, domain.Timeframe365d)
		assert.Zero(t, empty.Total)
		assert.Zero(t, empty.WeightedTotal)
	})

	t.Run("issues one query per radius and timeframe", func(t *testing.T) {
		now := time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)
		querier := &fakeQuerier{}
		a := NewAggregator(querier, clockwork.NewFakeClockAt(now), observability.NewMetricsForTesting())

		_, err := a.Aggregate(context.Background(), geo)
		require.NoError(t, err)
		require.Len(t, querier.queries, 9)

		seen := make(map[queriedCell]int)
		for _, q := range querier.queries {
			seen[q]++
		}
		for _, radius := range domain.Radii {
			for _, timeframe := range domain.Timeframes {
				want := queriedCell{radius: radius, since: now.AddDate(0, 0, -int(timeframe))}
				assert.Equal(t, 1, seen[want], "radius %d timeframe %d", radius, timeframe)
			}
		}
	})

	t.Run("queries run concurrently", func(t *testing.T) {
		// Every query blocks until all nine have arrived; a sequential
		// aggregator would never release the barrier.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		querier := &fakeQuerier{barrier: make(chan struct{})}
		a := NewAggregator(querier, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

		_, err := a.Aggregate(ctx, geo)
		require.NoError(t, err)
	})

	t.Run("any leaf failure fails the whole aggregation", func(t *testing.T) {
		querier := &fakeQuerier{failFor: domain.Radius1km}
		a := NewAggregator(querier, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

		_, err := a.Aggregate(context.Background(), geo)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query timeout")
	})
}

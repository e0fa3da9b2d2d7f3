package score

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/vigiapp/vigia/internal/domain"
	"github.com/vigiapp/vigia/internal/observability"
)

// IncidentQuerier is the slice of the store the aggregator reads.
type IncidentQuerier interface {
	IncidentsNear(ctx context.Context, geo domain.Geo, radius domain.Radius, since time.Time) ([]domain.TypeAggregate, error)
}

// Aggregator issues the radius/timeframe grid of store queries for a point
// and reduces them into the 3x3 matrix the calculator consumes.
type Aggregator struct {
	store   IncidentQuerier
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewAggregator creates an Aggregator over the given store.
func NewAggregator(store IncidentQuerier, clock clockwork.Clock, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{store: store, clock: clock, metrics: metrics}
}

// Aggregate runs all 9 leaf queries concurrently and waits for every one.
// Any leaf failure fails the whole call: there is no meaningful partial
// aggregation for a score.
func (a *Aggregator) Aggregate(ctx context.Context, geo domain.Geo) (domain.AggregatedIncidents, error) {
	now := a.clock.Now()

	var results [3][3]domain.AggregationCell
	g, ctx := errgroup.WithContext(ctx)

	for i, radius := range domain.Radii {
		for j, timeframe := range domain.Timeframes {
			g.Go(func() error {
				since := now.AddDate(0, 0, -int(timeframe))
				start := time.Now()
				aggregates, err := a.store.IncidentsNear(ctx, geo, radius, since)
				a.metrics.AggregateQueries.Observe(time.Since(start).Seconds())
				if err != nil {
					return fmt.Errorf("aggregate %dm/%dd: %w", radius, timeframe, err)
				}
				results[i][j] = reduceCell(aggregates)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return domain.AggregatedIncidents{}, err
	}

	cells := make(map[domain.Radius]map[domain.Timeframe]domain.AggregationCell, len(domain.Radii))
	for i, radius := range domain.Radii {
		cells[radius] = make(map[domain.Timeframe]domain.AggregationCell, len(domain.Timeframes))
		for j, timeframe := range domain.Timeframes {
			cells[radius][timeframe] = results[i][j]
		}
	}
	return domain.AggregatedIncidents{Cells: cells}, nil
}

func reduceCell(aggregates []domain.TypeAggregate) domain.AggregationCell {
	cell := domain.AggregationCell{ByType: make(map[domain.IncidentType]int, len(aggregates))}
	for _, agg := range aggregates {
		cell.Total += agg.Count
		cell.ByType[agg.Type] += agg.Count
		cell.WeightedTotal += agg.SeveritySum
	}
	return cell
}

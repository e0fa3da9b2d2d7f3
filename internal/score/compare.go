package score

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/vigiapp/vigia/internal/domain"
)

const (
	// peerWindow restricts the comparison population to recently computed
	// scores; older ones no longer describe current conditions.
	peerWindow = 7 * 24 * time.Hour

	// defaultAvgScore is the neutral midpoint reported when a peer
	// population is empty. Absence of data is not an error.
	defaultAvgScore = 60.0

	// defaultPercentile treats "no peer data" as exactly median.
	defaultPercentile = 50
)

// ScoreHistory is the slice of the store holding previously computed scores.
// The population itself is maintained by whoever persists engine results.
type ScoreHistory interface {
	NeighborhoodAverage(ctx context.Context, neighborhood, municipality string, since time.Time) (avg float64, n int, err error)
	CityAverage(ctx context.Context, municipality string, since time.Time) (avg float64, n int, err error)
	CityPercentile(ctx context.Context, municipality string, score int, since time.Time) (below, total int, err error)
}

// Comparator positions a freshly computed score against its neighborhood
// and city peers.
type Comparator struct {
	history ScoreHistory
	clock   clockwork.Clock
}

// NewComparator creates a Comparator over the score history.
func NewComparator(history ScoreHistory, clock clockwork.Clock) *Comparator {
	return &Comparator{history: history, clock: clock}
}

// Compare computes peer averages and the percentile rank for a score. The
// three sub-queries are independent and run concurrently. A store error is
// fatal; an empty population is not, defaults apply instead.
func (c *Comparator) Compare(ctx context.Context, score int, neighborhood, municipality string) (domain.ComparisonMetrics, error) {
	since := c.clock.Now().Add(-peerWindow)

	var (
		neighborhoodAvg float64
		neighborhoodN   int
		cityAvg         float64
		cityN           int
		below, total    int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		neighborhoodAvg, neighborhoodN, err = c.history.NeighborhoodAverage(ctx, neighborhood, municipality, since)
		if err != nil {
			return fmt.Errorf("neighborhood average: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cityAvg, cityN, err = c.history.CityAverage(ctx, municipality, since)
		if err != nil {
			return fmt.Errorf("city average: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		below, total, err = c.history.CityPercentile(ctx, municipality, score, since)
		if err != nil {
			return fmt.Errorf("city percentile: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.ComparisonMetrics{}, err
	}

	if neighborhoodN == 0 {
		neighborhoodAvg = defaultAvgScore
	}
	if cityN == 0 {
		cityAvg = defaultAvgScore
	}

	percentile := defaultPercentile
	if total > 0 {
		percentile = int(math.Round(100 * float64(below) / float64(total)))
	}

	return domain.ComparisonMetrics{
		NeighborhoodAvgScore:   neighborhoodAvg,
		CityAvgScore:           cityAvg,
		PercentileRank:         percentile,
		BetterThanNeighborhood: float64(score) > neighborhoodAvg,
		BetterThanCity:         float64(score) > cityAvg,
	}, nil
}

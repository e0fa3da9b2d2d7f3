// Package score implements the safety score engine: aggregation of stored
// incidents around a point, the 0-100 score calculation, trend
// classification, and peer comparison. The engine is stateless per call; it
// only reads the incident store and the historical-score population.
package score

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vigiapp/vigia/internal/domain"
	"github.com/vigiapp/vigia/internal/observability"
)

// Engine wires the aggregator, calculator, trend analyzer, and comparator
// into the single entry point collaborators call.
type Engine struct {
	aggregator *Aggregator
	comparator *Comparator
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewEngine creates the score engine.
func NewEngine(aggregator *Aggregator, comparator *Comparator, clock clockwork.Clock,
	logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		aggregator: aggregator,
		comparator: comparator,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// CalculateScore computes the safety score for a coordinate. There is no
// partial-result path: if aggregation or comparison fails, the error
// propagates and no score is returned.
func (e *Engine) CalculateScore(ctx context.Context, geo domain.Geo, neighborhood, municipality string) (domain.SafetyScore, error) {
	start := time.Now()

	agg, err := e.aggregator.Aggregate(ctx, geo)
	if err != nil {
		e.metrics.ScoreRequests.WithLabelValues("error").Inc()
		return domain.SafetyScore{}, err
	}

	overall := OverallScore(agg)

	comparison, err := e.comparator.Compare(ctx, overall, neighborhood, municipality)
	if err != nil {
		e.metrics.ScoreRequests.WithLabelValues("error").Inc()
		return domain.SafetyScore{}, err
	}

	result := domain.SafetyScore{
		OverallScore: overall,
		Score500m:    RadiusScore(agg, domain.Radius500m),
		Score1km:     RadiusScore(agg, domain.Radius1km),
		Score2km:     RadiusScore(agg, domain.Radius2km),
		Incidents:    agg,
		Trend:        AnalyzeTrend(agg),
		Comparison:   comparison,
		Neighborhood: neighborhood,
		Municipality: municipality,
		CalculatedAt: e.clock.Now(),
	}

	e.metrics.ScoreRequests.WithLabelValues("success").Inc()
	e.metrics.ScoreDuration.Observe(time.Since(start).Seconds())
	e.logger.Debug("score calculated",
		"neighborhood", neighborhood,
		"municipality", municipality,
		"overall", result.OverallScore,
		"trend", result.Trend.Direction,
	)
	return result, nil
}

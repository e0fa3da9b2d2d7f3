// Package postgres adapts the persistent geospatial store. Schema
// management lives with the deployment; this package only consumes the
// query contract: an incidents table with a geography(Point,4326) location
// column and a unique (source, source_id) constraint, a safety_scores table
// for the peer-comparison population, and a scraper_logs audit table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vigiapp/vigia/internal/domain"
)

// Store wraps database access for incidents, scores, and run logs.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping reports whether the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CheckReadiness satisfies the HTTP server's readiness probe: the service
// is ready when the database answers.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.Ping(ctx)
}

const insertIncidentSQL = `
	INSERT INTO incidents (
		incident_type, occurred_at, neighborhood, municipality, state,
		location, severity_score, source, source_id, scraped_at
	)
	VALUES ($1, $2, $3, $4, $5,
		ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography,
		$8, $9, $10, $11)
	ON CONFLICT (source, source_id) DO NOTHING
	RETURNING id
`

// BulkInsert persists a geocoded batch. Records without coordinates are
// skipped and logged; a (source, source_id) conflict is an expected no-op
// counted as a duplicate; any other per-record error is logged and counted
// without aborting the batch.
func (s *Store) BulkInsert(ctx context.Context, batch []domain.GeocodedIncident) domain.InsertSummary {
	summary := domain.InsertSummary{Inserted: make([]domain.Incident, 0, len(batch))}

	for _, g := range batch {
		if g.Geo == nil {
			s.logger.Debug("skipping incident without coordinates",
				"neighborhood", g.Neighborhood,
				"municipality", g.Municipality,
			)
			summary.Skipped++
			continue
		}

		inc := domain.Materialize(g)
		err := s.pool.QueryRow(ctx, insertIncidentSQL,
			string(inc.Type), inc.OccurredAt, inc.Neighborhood, inc.Municipality, inc.State,
			inc.Geo.Lon, inc.Geo.Lat,
			inc.SeverityScore, inc.Source, inc.SourceID, inc.ScrapedAt,
		).Scan(&inc.ID)

		switch {
		case errors.Is(err, pgx.ErrNoRows):
			summary.Duplicates++
		case err != nil:
			s.logger.Warn("incident insert failed",
				"source", inc.Source, "source_id", inc.SourceID, "error", err)
			summary.Failed++
		default:
			summary.Inserted = append(summary.Inserted, inc)
		}
	}

	return summary
}

const incidentsNearSQL = `
	SELECT incident_type, COUNT(*), COALESCE(SUM(severity_score), 0)
	FROM incidents
	WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
	  AND occurred_at >= $4
	GROUP BY incident_type
`

// IncidentsNear counts and sums severity of incidents grouped by type,
// within radius meters of the point, with occurred_at >= since.
func (s *Store) IncidentsNear(ctx context.Context, geo domain.Geo, radius domain.Radius, since time.Time) ([]domain.TypeAggregate, error) {
	rows, err := s.pool.Query(ctx, incidentsNearSQL, geo.Lon, geo.Lat, int(radius), since)
	if err != nil {
		return nil, fmt.Errorf("incidents near query: %w", err)
	}
	defer rows.Close()

	aggregates := make([]domain.TypeAggregate, 0)
	for rows.Next() {
		var agg domain.TypeAggregate
		var typ string
		if err := rows.Scan(&typ, &agg.Count, &agg.SeveritySum); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		agg.Type = domain.IncidentType(typ)
		aggregates = append(aggregates, agg)
	}
	return aggregates, rows.Err()
}

const saveScoreSQL = `
	INSERT INTO safety_scores (
		overall_score, score_500m, score_1km, score_2km,
		neighborhood, municipality, location, calculated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6,
		ST_SetSRID(ST_MakePoint($7, $8), 4326)::geography, $9)
`

// SaveScore persists a computed score so it can join the trailing 7-day
// peer population for later comparisons.
func (s *Store) SaveScore(ctx context.Context, score domain.SafetyScore, geo domain.Geo) error {
	_, err := s.pool.Exec(ctx, saveScoreSQL,
		score.OverallScore, score.Score500m, score.Score1km, score.Score2km,
		score.Neighborhood, score.Municipality,
		geo.Lon, geo.Lat, score.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

const neighborhoodAvgSQL = `
	SELECT COALESCE(AVG(overall_score), 0), COUNT(*)
	FROM safety_scores
	WHERE neighborhood = $1 AND municipality = $2 AND calculated_at >= $3
`

// NeighborhoodAverage returns the mean overall score and sample size for a
// neighborhood over the peer window.
func (s *Store) NeighborhoodAverage(ctx context.Context, neighborhood, municipality string, since time.Time) (float64, int, error) {
	var avg float64
	var n int
	err := s.pool.QueryRow(ctx, neighborhoodAvgSQL, neighborhood, municipality, since).Scan(&avg, &n)
	if err != nil {
		return 0, 0, fmt.Errorf("neighborhood average query: %w", err)
	}
	return avg, n, nil
}

const cityAvgSQL = `
	SELECT COALESCE(AVG(overall_score), 0), COUNT(*)
	FROM safety_scores
	WHERE municipality = $1 AND calculated_at >= $2
`

// CityAverage returns the mean overall score and sample size for a
// municipality over the peer window.
func (s *Store) CityAverage(ctx context.Context, municipality string, since time.Time) (float64, int, error) {
	var avg float64
	var n int
	err := s.pool.QueryRow(ctx, cityAvgSQL, municipality, since).Scan(&avg, &n)
	if err != nil {
		return 0, 0, fmt.Errorf("city average query: %w", err)
	}
	return avg, n, nil
}

const cityPercentileSQL = `
	SELECT COUNT(*) FILTER (WHERE overall_score < $2), COUNT(*)
	FROM safety_scores
	WHERE municipality = $1 AND calculated_at >= $3
`

// CityPercentile returns how many peer scores in the municipality fall
// below the given score, and the total peer count.
func (s *Store) CityPercentile(ctx context.Context, municipality string, score int, since time.Time) (below, total int, err error) {
	err = s.pool.QueryRow(ctx, cityPercentileSQL, municipality, score, since).Scan(&below, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("city percentile query: %w", err)
	}
	return below, total, nil
}

const createRunLogSQL = `
	INSERT INTO scraper_logs (source, status, started_at)
	VALUES ($1, $2, $3)
	RETURNING id
`

// CreateRunLog opens the audit row for a run in RUNNING state.
func (s *Store) CreateRunLog(ctx context.Context, source string, startedAt time.Time) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, createRunLogSQL, source, string(domain.RunRunning), startedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create run log: %w", err)
	}
	return id, nil
}

const finishRunLogSQL = `
	UPDATE scraper_logs
	SET status = $2, records_found = $3, records_new = $4,
	    records_duplicate = $5, records_failed = $6,
	    duration_ms = $7, error_message = NULLIF($8, ''), error_stack = NULLIF($9, '')
	WHERE id = $1
`

// FinishRunLog records a run's terminal state. Called exactly once per run.
func (s *Store) FinishRunLog(ctx context.Context, log domain.ScraperLog) error {
	_, err := s.pool.Exec(ctx, finishRunLogSQL,
		log.ID, string(log.Status),
		log.RecordsFound, log.RecordsNew, log.RecordsDuplicate, log.RecordsFailed,
		log.DurationMs, log.ErrorMessage, log.ErrorStack,
	)
	if err != nil {
		return fmt.Errorf("finish run log: %w", err)
	}
	return nil
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vigiapp/vigia/internal/domain"
	"github.com/vigiapp/vigia/internal/observability"
)

// ErrNoRecordsParsed marks a run whose fetch succeeded but whose payload
// yielded zero records: the source format has most likely changed, which is
// a structural failure, not an empty day.
var ErrNoRecordsParsed = errors.New("no records parsed from source")

// Geocoder resolves a raw batch to coordinates, sequentially.
type Geocoder interface {
	BatchGeocode(ctx context.Context, raws []domain.RawIncident) []domain.GeocodedIncident
}

// IncidentStore is the slice of the persistent store the orchestrator uses.
type IncidentStore interface {
	BulkInsert(ctx context.Context, batch []domain.GeocodedIncident) domain.InsertSummary
	CreateRunLog(ctx context.Context, source string, startedAt time.Time) (int64, error)
	FinishRunLog(ctx context.Context, log domain.ScraperLog) error
}

// Publisher announces newly inserted incidents to downstream consumers.
type Publisher interface {
	PublishIncidents(ctx context.Context, incidents []domain.Incident) error
}

// Summary is the structured result of one ingestion run. Err is set only
// for FAILED runs; callers never see a raw panic or exception.
type Summary struct {
	Source           string           `json:"source"`
	Status           domain.RunStatus `json:"status"`
	RecordsFound     int              `json:"records_found"`
	RecordsNew       int              `json:"records_new"`
	RecordsDuplicate int              `json:"records_duplicate"`
	RecordsFailed    int              `json:"records_failed"`
	DurationMs       int64            `json:"duration_ms"`
	Err              error            `json:"-"`
}

// Success reports whether the run reached a non-FAILED terminal state.
func (s Summary) Success() bool { return s.Status != domain.RunFailed }

// Orchestrator drives fetch → parse → geocode → insert for each source and
// keeps the scraper log honest: every run that starts is finished, whatever
// happens in between.
type Orchestrator struct {
	sources   []Source
	geocoder  Geocoder
	store     IncidentStore
	publisher Publisher // optional; nil disables event publishing
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates an Orchestrator. Pass a nil publisher to disable incident
// event publishing.
func New(sources []Source, geocoder Geocoder, store IncidentStore, publisher Publisher,
	clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		sources:   sources,
		geocoder:  geocoder,
		store:     store,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// RunAll ingests every configured source in order, one run per source.
func (o *Orchestrator) RunAll(ctx context.Context) []Summary {
	summaries := make([]Summary, 0, len(o.sources))
	for _, src := range o.sources {
		summaries = append(summaries, o.Run(ctx, src))
	}
	return summaries
}

// Run executes one ingestion run for a source. The run's log row moves
// RUNNING → {SUCCESS | PARTIAL_SUCCESS | FAILED}; it is never left in
// RUNNING, and duration is recorded on every path.
func (o *Orchestrator) Run(ctx context.Context, src Source) Summary {
	start := o.clock.Now()

	logID, err := o.store.CreateRunLog(ctx, src.Name(), start)
	if err != nil {
		o.logger.Error("create run log failed", "source", src.Name(), "error", err)
		o.metrics.IngestRuns.WithLabelValues(string(domain.RunFailed)).Inc()
		return Summary{
			Source: src.Name(),
			Status: domain.RunFailed,
			Err:    fmt.Errorf("create run log: %w", err),
		}
	}

	outcome := o.runGuarded(ctx, src)

	duration := o.clock.Since(start)
	summary := Summary{
		Source:           src.Name(),
		Status:           outcome.status,
		RecordsFound:     outcome.found,
		RecordsNew:       outcome.inserted,
		RecordsDuplicate: outcome.duplicates(),
		RecordsFailed:    outcome.failed,
		DurationMs:       duration.Milliseconds(),
		Err:              outcome.err,
	}

	runLog := domain.ScraperLog{
		ID:               logID,
		Source:           src.Name(),
		Status:           summary.Status,
		RecordsFound:     summary.RecordsFound,
		RecordsNew:       summary.RecordsNew,
		RecordsDuplicate: summary.RecordsDuplicate,
		RecordsFailed:    summary.RecordsFailed,
		DurationMs:       summary.DurationMs,
		ErrorStack:       outcome.stack,
		StartedAt:        start,
	}
	if outcome.err != nil {
		runLog.ErrorMessage = outcome.err.Error()
	}
	if err := o.store.FinishRunLog(ctx, runLog); err != nil {
		o.logger.Error("finish run log failed", "source", src.Name(), "error", err)
	}

	o.recordMetrics(summary, outcome.skipped, duration.Seconds())

	if summary.Status == domain.RunFailed {
		o.logger.Error("ingestion run failed",
			"source", src.Name(), "error", outcome.err, "duration_ms", summary.DurationMs)
	} else {
		o.logger.Info("ingestion run finished",
			"source", src.Name(),
			"status", summary.Status,
			"found", summary.RecordsFound,
			"new", summary.RecordsNew,
			"duplicate", summary.RecordsDuplicate,
			"failed", summary.RecordsFailed,
			"skipped_no_coords", outcome.skipped,
			"duration_ms", summary.DurationMs,
		)
	}
	return summary
}

// runOutcome carries the counters out of the guarded section.
type runOutcome struct {
	status   domain.RunStatus
	found    int
	inserted int
	skipped  int
	failed   int
	err      error
	stack    string
}

// duplicates derives the duplicate count as found − new, the bookkeeping
// the scraper log has always used.
func (r runOutcome) duplicates() int {
	if r.status == domain.RunFailed {
		return 0
	}
	return r.found - r.inserted
}

// runGuarded performs the fallible middle of a run. A panic anywhere inside
// is converted into a FAILED outcome with its stack captured, so the
// caller's finish handler always executes.
func (o *Orchestrator) runGuarded(ctx context.Context, src Source) (outcome runOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = runOutcome{
				status: domain.RunFailed,
				err:    fmt.Errorf("ingestion panic: %v", r),
				stack:  string(debug.Stack()),
			}
		}
	}()

	text, err := src.Fetch(ctx)
	if err != nil {
		return runOutcome{status: domain.RunFailed, err: err}
	}

	raws := src.Parse(text, o.clock.Now())
	if len(raws) == 0 {
		return runOutcome{status: domain.RunFailed, err: ErrNoRecordsParsed}
	}

	geocoded := o.geocoder.BatchGeocode(ctx, raws)
	result := o.store.BulkInsert(ctx, geocoded)

	o.publish(ctx, src.Name(), result.Inserted)

	status := domain.RunSuccess
	if result.Failed > 0 {
		status = domain.RunPartialSuccess
	}
	return runOutcome{
		status:   status,
		found:    len(raws),
		inserted: len(result.Inserted),
		skipped:  result.Skipped,
		failed:   result.Failed,
	}
}

// publish is best-effort: the incidents are already durable, so a broker
// failure only costs downstream notifications.
func (o *Orchestrator) publish(ctx context.Context, source string, incidents []domain.Incident) {
	if o.publisher == nil || len(incidents) == 0 {
		return
	}
	if err := o.publisher.PublishIncidents(ctx, incidents); err != nil {
		o.logger.Warn("publish incidents failed", "source", source, "count", len(incidents), "error", err)
		return
	}
	o.metrics.IncidentsPublished.Add(float64(len(incidents)))
}

func (o *Orchestrator) recordMetrics(summary Summary, skipped int, seconds float64) {
	o.metrics.IngestRuns.WithLabelValues(string(summary.Status)).Inc()
	o.metrics.IngestDuration.Observe(seconds)
	o.metrics.IngestRecords.WithLabelValues("found").Add(float64(summary.RecordsFound))
	o.metrics.IngestRecords.WithLabelValues("new").Add(float64(summary.RecordsNew))
	o.metrics.IngestRecords.WithLabelValues("duplicate").Add(float64(summary.RecordsDuplicate))
	o.metrics.IngestRecords.WithLabelValues("skipped").Add(float64(skipped))
	o.metrics.IngestRecords.WithLabelValues("failed").Add(float64(summary.RecordsFailed))
}

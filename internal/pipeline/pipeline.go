package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/TravisH0301/weather-analysis/internal/archive"
	"github.com/TravisH0301/weather-analysis/internal/domain"
	"github.com/TravisH0301/weather-analysis/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ArchiveSource opens the archive to stage and reports its name.
type ArchiveSource interface {
	Open(ctx context.Context) (string, io.ReadCloser, error)
}

// Loader writes a validated batch with insert-if-absent semantics.
type Loader interface {
	Load(ctx context.Context, batch domain.Batch) (domain.LoadResult, error)
}

// Reporter publishes the outcome of a run.
type Reporter interface {
	Publish(ctx context.Context, report domain.RunReport) error
}

// Options tune a run.
type Options struct {
	Filter       archive.Filter
	Exceptions   []domain.StateException
	Location     *time.Location
	ParseWorkers int
}

// Pipeline orchestrates one extract-transform-load pass over an archive.
type Pipeline struct {
	source   ArchiveSource
	loader   Loader
	reporter Reporter
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	opts     Options
	ready    atomic.Bool
	last     atomic.Pointer[domain.RunReport]
}

// New creates a Pipeline. A nil reporter disables report publishing.
func New(source ArchiveSource, loader Loader, reporter Reporter, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.ParseWorkers <= 0 {
		opts.ParseWorkers = 1
	}
	return &Pipeline{
		source:   source,
		loader:   loader,
		reporter: reporter,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no staging run has succeeded yet")
	}
	return nil
}

// LastReport returns the report of the most recent run, if any.
func (p *Pipeline) LastReport() (domain.RunReport, bool) {
	r := p.last.Load()
	if r == nil {
		return domain.RunReport{}, false
	}
	return *r, true
}

// Run stages one archive. The returned report is complete whether or not
// the run failed.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	loadDate := domain.LoadDate(p.clock, p.opts.Location)
	report := domain.RunReport{
		RunID:     uuid.NewString(),
		LoadDate:  loadDate.Format(time.DateOnly),
		StartedAt: p.clock.Now(),
	}
	logger := p.logger.With("run_id", report.RunID)
	logger.Info("staging run started", "load_date", report.LoadDate)

	err := p.run(ctx, logger, loadDate, &report)

	report.FinishedAt = p.clock.Now()
	if err != nil {
		report.Status = domain.RunFailed
		report.Error = err.Error()
	} else {
		report.Status = domain.RunSucceeded
		p.ready.Store(true)
	}
	p.record(logger, report)
	p.last.Store(&report)

	if p.reporter != nil {
		if perr := p.reporter.Publish(ctx, report); perr != nil {
			logger.Warn("publish run report failed", "error", perr)
		}
	}
	return report, err
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, loadDate time.Time, report *domain.RunReport) error {
	name, rc, err := p.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer rc.Close()
	report.Archive = name

	ar, err := archive.NewReader(rc, p.opts.Filter)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", name, err)
	}
	defer ar.Close()

	ex, err := Extract(ctx, ar, loadDate, p.opts.ParseWorkers)
	if err != nil {
		return fmt.Errorf("extract %s: %w", name, err)
	}
	report.ObservationMembers = ex.ObservationMembers
	report.StationMembers = ex.StationMembers
	report.SkippedMembers = ex.SkippedMembers
	report.ObservationsRead = len(ex.Observations)
	report.StationsRead = len(ex.Stations)
	if ex.StationMembers > 1 {
		logger.Warn("archive holds more than one station directory", "members", ex.StationMembers)
	}

	observations, dedup, validation := Transform(ex.Observations, p.opts.Exceptions)
	report.Dedup = dedup
	report.Validation = validation
	logger.Info("batch prepared",
		"archive", name,
		"observations_read", report.ObservationsRead,
		"exception_removed", dedup.ExceptionRemoved,
		"duplicates_removed", dedup.DuplicatesRemoved,
		"rejected", validation.Total(),
		"observations", len(observations),
		"stations", len(ex.Stations),
	)

	start := p.clock.Now()
	result, err := p.loader.Load(ctx, domain.Batch{Observations: observations, Stations: ex.Stations})
	p.metrics.LoadSeconds.Observe(p.clock.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	report.Load = result
	return nil
}

// record emits the report to metrics and the log.
func (p *Pipeline) record(logger *slog.Logger, r domain.RunReport) {
	m := p.metrics
	m.Runs.WithLabelValues(string(r.Status)).Inc()
	m.RunDuration.Observe(r.Duration().Seconds())
	if r.Status == domain.RunSucceeded {
		m.LastSuccess.Set(float64(r.FinishedAt.Unix()))
	}

	m.Members.WithLabelValues(archive.KindObservation.String()).Add(float64(r.ObservationMembers))
	m.Members.WithLabelValues(archive.KindStation.String()).Add(float64(r.StationMembers))
	m.Members.WithLabelValues(archive.KindSkip.String()).Add(float64(r.SkippedMembers))

	m.Records.WithLabelValues("observation", "read").Add(float64(r.ObservationsRead))
	m.Records.WithLabelValues("observation", "inserted").Add(float64(r.Load.ObservationsInserted))
	m.Records.WithLabelValues("station", "read").Add(float64(r.StationsRead))
	m.Records.WithLabelValues("station", "inserted").Add(float64(r.Load.StationsInserted))

	m.Duplicates.WithLabelValues("exception").Add(float64(r.Dedup.ExceptionRemoved))
	m.Duplicates.WithLabelValues("key").Add(float64(r.Dedup.DuplicatesRemoved))
	for rule, n := range r.Validation.Rejected {
		m.Rejections.WithLabelValues(rule.String()).Add(float64(n))
	}

	attrs := []any{
		"archive", r.Archive,
		"status", r.Status,
		"duration", r.Duration(),
		"observations_inserted", r.Load.ObservationsInserted,
		"stations_inserted", r.Load.StationsInserted,
	}
	if r.Status == domain.RunFailed {
		logger.Error("staging run failed", append(attrs, "error", r.Error)...)
		return
	}
	logger.Info("staging run finished", attrs...)
}

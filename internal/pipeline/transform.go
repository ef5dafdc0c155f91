package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/TravisH0301/weather-analysis/internal/archive"
	"github.com/TravisH0301/weather-analysis/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Extracted is everything parsed out of one archive, in traversal order.
type Extracted struct {
	Observations []domain.ObservationRecord
	Stations     []domain.StationRecord

	ObservationMembers int
	StationMembers     int
	SkippedMembers     int
}

// Extract parses every member of r. Observation members are parsed by up to
// workers goroutines; results keep tar order. The first member error aborts
// extraction, and an archive with nothing to stage is an ErrExtraction.
func Extract(ctx context.Context, r *archive.Reader, loadDate time.Time, workers int) (Extracted, error) {
	var out Extracted

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	var slots []*[]domain.ObservationRecord
	for gctx.Err() == nil {
		m, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = g.Wait()
			return Extracted{}, err
		}

		switch m.Kind {
		case archive.KindObservation:
			out.ObservationMembers++
			slot := new([]domain.ObservationRecord)
			slots = append(slots, slot)
			g.Go(func() error {
				recs, err := domain.ParseObservations(bytes.NewReader(m.Body), m.State, loadDate)
				if err != nil {
					return fmt.Errorf("%s: %w", m.Path, err)
				}
				*slot = recs
				return nil
			})
		case archive.KindStation:
			out.StationMembers++
			stations, err := domain.ParseStations(bytes.NewReader(m.Body), loadDate)
			if err != nil {
				_ = g.Wait()
				return Extracted{}, fmt.Errorf("%s: %w", m.Path, err)
			}
			out.Stations = append(out.Stations, stations...)
		}
	}

	if err := g.Wait(); err != nil {
		return Extracted{}, err
	}
	if err := ctx.Err(); err != nil {
		return Extracted{}, err
	}
	if out.ObservationMembers == 0 && out.StationMembers == 0 {
		return Extracted{}, fmt.Errorf("%w: no observation or station members (%d skipped)", archive.ErrExtraction, r.Skipped())
	}

	n := 0
	for _, s := range slots {
		n += len(*s)
	}
	out.Observations = make([]domain.ObservationRecord, 0, n)
	for _, s := range slots {
		out.Observations = append(out.Observations, *s...)
	}
	out.SkippedMembers = r.Skipped()
	return out, nil
}

// Transform deduplicates the combined batch and then drops implausible
// records. It must see every parsed observation of the run.
func Transform(records []domain.ObservationRecord, exceptions []domain.StateException) ([]domain.ObservationRecord, domain.DedupStats, domain.ValidationResult) {
	deduped, stats := domain.Deduplicate(records, exceptions)
	valid, result := domain.Validate(deduped)
	return valid, stats, result
}

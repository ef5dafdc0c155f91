package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TravisH0301/weather-analysis/internal/archive"
	"github.com/TravisH0301/weather-analysis/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// observationMember renders rows in the published CSV layout: 12 banner
// lines, a heading, the rows and a copyright footer.
func observationMember(rows ...string) []byte {
	var b strings.Builder
	for i := 0; i < domain.ObservationPreambleLines; i++ {
		fmt.Fprintf(&b, "Daily Weather Observations line %d\r\n", i+1)
	}
	b.WriteString(`"Station Name","Date","ET","Rain","Pan","Tmax","Tmin","RHmax","RHmin","Wind","Solar"` + "\r\n")
	for _, r := range rows {
		b.WriteString(r + "\r\n")
	}
	b.WriteString("Copyright Commonwealth of Australia 2023\r\n")
	return []byte(b.String())
}

func stationMember(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func stationLine(id, state, name string) string {
	return fmt.Sprintf("%8s%-4s%-6s%-41s%-16s%9s%10s", id, state, "86", name, "19700101", "-37.6655", "144.8321")
}

func buildArchive(t *testing.T, entries ...archive.Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, archive.Write(&buf, entries, true, time.Date(2023, 11, 12, 0, 0, 0, 0, time.UTC)))
	return buf.Bytes()
}

// --- fakes ---

type memSource struct {
	name string
	data []byte
	err  error
}

func (s *memSource) Open(_ context.Context) (string, io.ReadCloser, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	return s.name, io.NopCloser(bytes.NewReader(s.data)), nil
}

// memStore is an insert-if-absent store keyed like the real tables.
type memStore struct {
	mu           sync.Mutex
	observations map[domain.ObservationKey]domain.ObservationRecord
	stations     map[string]domain.StationRecord
	calls        int
	err          error
}

func newMemStore() *memStore {
	return &memStore{
		observations: make(map[domain.ObservationKey]domain.ObservationRecord),
		stations:     make(map[string]domain.StationRecord),
	}
}

func (s *memStore) Load(_ context.Context, batch domain.Batch) (domain.LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return domain.LoadResult{}, s.err
	}

	var res domain.LoadResult
	for _, rec := range batch.Observations {
		if _, ok := s.observations[rec.Key()]; ok {
			continue
		}
		s.observations[rec.Key()] = rec
		res.ObservationsInserted++
	}
	for _, st := range batch.Stations {
		if _, ok := s.stations[st.StationID]; ok {
			continue
		}
		s.stations[st.StationID] = st
		res.StationsInserted++
	}
	return res, nil
}

type recordingReporter struct {
	reports []domain.RunReport
	err     error
}

func (r *recordingReporter) Publish(_ context.Context, report domain.RunReport) error {
	r.reports = append(r.reports, report)
	return r.err
}

var errStoreDown = errors.New("store unavailable")

// metricValue reads the current value of a counter or gauge.
func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

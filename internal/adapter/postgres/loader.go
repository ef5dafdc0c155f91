package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TravisH0301/weather-analysis/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrStore marks a failed store operation. The run's transaction has been
// rolled back when it is returned.
var ErrStore = errors.New("store error")

// mergeSpec describes how one dataset is staged and merged.
type mergeSpec struct {
	target  string
	holding string
	columns []string
	key     []string
}

var observationSpec = mergeSpec{
	target:  observationTable,
	holding: "stage_" + observationTable,
	columns: observationColumns(),
	key:     []string{"station_name", "observation_date"},
}

var stationSpec = mergeSpec{
	target:  stationTable,
	holding: "stage_" + stationTable,
	columns: []string{
		"station_id", "state", "district_code", "station_name",
		"station_since", "latitude", "longitude", "load_date",
	},
	key: []string{"station_id"},
}

func observationColumns() []string {
	cols := []string{"station_name", "observation_date"}
	for _, m := range domain.Measures() {
		cols = append(cols, m.Column())
	}
	return append(cols, "state", "load_date")
}

func (s mergeSpec) createHolding() string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (stage_seq BIGSERIAL, LIKE %s) ON COMMIT DROP", s.holding, s.target)
}

func (s mergeSpec) insertHolding() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
		s.holding, strings.Join(s.columns, ", "), strings.Join(s.columns, ", :"))
}

// merge inserts holding rows whose key is absent from the target. Within
// the holding table the earliest staged row per key wins.
func (s mergeSpec) merge() string {
	cols := strings.Join(s.columns, ", ")
	key := strings.Join(s.key, ", ")
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT DISTINCT ON (%s) %s FROM %s ORDER BY %s, stage_seq ON CONFLICT (%s) DO NOTHING",
		s.target, cols, key, cols, s.holding, key, key)
}

// Loader stages a batch into run-scoped holding tables and merges it into
// the target tables in one transaction.
type Loader struct {
	db        *sqlx.DB
	batchSize int
	logger    *slog.Logger
}

// NewLoader creates a Loader that bulk-inserts batchSize rows per statement.
func NewLoader(db *sqlx.DB, batchSize int, logger *slog.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Loader{db: db, batchSize: batchSize, logger: logger}
}

// Load merges batch into the store. Rows whose natural key already exists
// are left untouched. Nothing is committed unless every step succeeds.
func (l *Loader) Load(ctx context.Context, batch domain.Batch) (domain.LoadResult, error) {
	var res domain.LoadResult
	if len(batch.Observations) == 0 && len(batch.Stations) == 0 {
		return res, nil
	}

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, describe("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if len(batch.Observations) > 0 {
		res.ObservationsInserted, err = stageAndMerge(ctx, tx, observationSpec, batch.Observations, l.batchSize)
		if err != nil {
			return domain.LoadResult{}, err
		}
	}
	if len(batch.Stations) > 0 {
		res.StationsInserted, err = stageAndMerge(ctx, tx, stationSpec, batch.Stations, l.batchSize)
		if err != nil {
			return domain.LoadResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.LoadResult{}, describe("commit", err)
	}

	l.logger.Info("batch merged",
		"observations_staged", len(batch.Observations),
		"observations_inserted", res.ObservationsInserted,
		"stations_staged", len(batch.Stations),
		"stations_inserted", res.StationsInserted,
	)
	return res, nil
}

func stageAndMerge[T any](ctx context.Context, tx *sqlx.Tx, spec mergeSpec, rows []T, batchSize int) (int, error) {
	if _, err := tx.ExecContext(ctx, spec.createHolding()); err != nil {
		return 0, describe("create "+spec.holding, err)
	}

	insert := spec.insertHolding()
	for start := 0; start < len(rows); start += batchSize {
		chunk := rows[start:min(start+batchSize, len(rows))]
		if _, err := tx.NamedExecContext(ctx, insert, chunk); err != nil {
			return 0, describe("stage "+spec.target, err)
		}
	}

	result, err := tx.ExecContext(ctx, spec.merge())
	if err != nil {
		return 0, describe("merge "+spec.target, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, describe("merge "+spec.target, err)
	}
	return int(n), nil
}

// describe wraps err with the operation and, for server errors, the
// PostgreSQL condition name.
func describe(op string, err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: %s: transaction already closed: %w", ErrStore, op, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w: %s: %s (%s): %w", ErrStore, op, pqErr.Code.Name(), pqErr.Code, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/TravisH0301/weather-analysis/internal/adapter/postgres"
	"github.com/TravisH0301/weather-analysis/internal/archive"
	"github.com/TravisH0301/weather-analysis/internal/domain"
	"github.com/jmoiron/sqlx"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startPostgres runs a disposable PostgreSQL and returns a connection with
// the staging schema in place.
func startPostgres(ctx context.Context, t *testing.T) *sqlx.DB {
	t.Helper()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("weather"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start postgres container")

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.EnsureSchema(ctx, db))
	return db
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("weather-staging-test"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func observationMember(rows ...string) []byte {
	var b strings.Builder
	for i := 0; i < domain.ObservationPreambleLines; i++ {
		fmt.Fprintf(&b, "banner %d\r\n", i+1)
	}
	for _, r := range rows {
		b.WriteString(r + "\r\n")
	}
	b.WriteString("Copyright Commonwealth of Australia\r\n")
	return []byte(b.String())
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

type memSource struct {
	name string
	data []byte
}

func (s memSource) Open(_ context.Context) (string, io.ReadCloser, error) {
	return s.name, io.NopCloser(bytes.NewReader(s.data)), nil
}

func countRows(ctx context.Context, t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table))
	return n
}

// Package postgres stages validated batches into PostgreSQL with
// insert-if-absent semantics.
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const (
	observationTable = "weather_observation"
	stationTable     = "weather_station"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS weather_observation (
		station_name              TEXT NOT NULL,
		observation_date          DATE NOT NULL,
		evapotranspiration        DOUBLE PRECISION,
		rainfall                  DOUBLE PRECISION,
		pan_evaporation           DOUBLE PRECISION,
		maximum_temperature       DOUBLE PRECISION,
		minimum_temperature       DOUBLE PRECISION,
		maximum_relative_humidity DOUBLE PRECISION,
		minimum_relative_humidity DOUBLE PRECISION,
		average_10m_wind_speed    DOUBLE PRECISION,
		solar_radiation           DOUBLE PRECISION,
		state                     TEXT NOT NULL,
		load_date                 DATE NOT NULL,
		PRIMARY KEY (station_name, observation_date)
	)`,
	`CREATE TABLE IF NOT EXISTS weather_station (
		station_id    CHAR(6) PRIMARY KEY,
		state         TEXT NOT NULL,
		district_code TEXT NOT NULL,
		station_name  TEXT NOT NULL,
		station_since DATE,
		latitude      DOUBLE PRECISION NOT NULL,
		longitude     DOUBLE PRECISION NOT NULL,
		load_date     DATE NOT NULL
	)`,
}

// Open connects to the database at url and verifies the connection.
func Open(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the target tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return describe("ensure schema", err)
		}
	}
	return nil
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// State is an Australian state or territory code as used in the archive.
type State string

const (
	StateACT State = "ACT"
	StateNSW State = "NSW"
	StateNT  State = "NT"
	StateQLD State = "QLD"
	StateSA  State = "SA"
	StateTAS State = "TAS"
	StateVIC State = "VIC"
	StateWA  State = "WA"
)

// ParseState normalizes a region path segment or state code ("vic", " WA ")
// into a State.
func ParseState(s string) (State, error) {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StateACT, StateNSW, StateNT, StateQLD, StateSA, StateTAS, StateVIC, StateWA:
		return st, nil
	default:
		return "", fmt.Errorf("unknown state %q", s)
	}
}

// Measure enumerates the measurement columns of an observation file in
// their positional order.
type Measure int

const (
	Evapotranspiration Measure = iota
	Rainfall
	PanEvaporation
	MaximumTemperature
	MinimumTemperature
	MaximumRelativeHumidity
	MinimumRelativeHumidity
	AverageWindSpeed
	SolarRadiation

	measureCount
)

// Measures returns every Measure in column order.
func Measures() []Measure {
	ms := make([]Measure, 0, measureCount)
	for m := Measure(0); m < measureCount; m++ {
		ms = append(ms, m)
	}
	return ms
}

// Column is the staging table column holding the measure.
func (m Measure) Column() string {
	switch m {
	case Evapotranspiration:
		return "evapotranspiration"
	case Rainfall:
		return "rainfall"
	case PanEvaporation:
		return "pan_evaporation"
	case MaximumTemperature:
		return "maximum_temperature"
	case MinimumTemperature:
		return "minimum_temperature"
	case MaximumRelativeHumidity:
		return "maximum_relative_humidity"
	case MinimumRelativeHumidity:
		return "minimum_relative_humidity"
	case AverageWindSpeed:
		return "average_10m_wind_speed"
	case SolarRadiation:
		return "solar_radiation"
	default:
		return ""
	}
}

func (m Measure) String() string {
	if c := m.Column(); c != "" {
		return c
	}
	return fmt.Sprintf("measure(%d)", int(m))
}

// ObservationRecord is one station-day of measurements. A nil measurement
// is absent, which is distinct from a measured zero.
type ObservationRecord struct {
	StationName string    `db:"station_name" json:"station_name"`
	Date        time.Time `db:"observation_date" json:"date"`

	Evapotranspiration      *float64 `db:"evapotranspiration" json:"evapotranspiration"`
	Rainfall                *float64 `db:"rainfall" json:"rainfall"`
	PanEvaporation          *float64 `db:"pan_evaporation" json:"pan_evaporation"`
	MaximumTemperature      *float64 `db:"maximum_temperature" json:"maximum_temperature"`
	MinimumTemperature      *float64 `db:"minimum_temperature" json:"minimum_temperature"`
	MaximumRelativeHumidity *float64 `db:"maximum_relative_humidity" json:"maximum_relative_humidity"`
	MinimumRelativeHumidity *float64 `db:"minimum_relative_humidity" json:"minimum_relative_humidity"`
	AverageWindSpeed        *float64 `db:"average_10m_wind_speed" json:"average_10m_wind_speed"`
	SolarRadiation          *float64 `db:"solar_radiation" json:"solar_radiation"`

	State    State     `db:"state" json:"state"`
	LoadDate time.Time `db:"load_date" json:"load_date"`
}

// ObservationKey is the natural key of an observation.
type ObservationKey struct {
	StationName string
	Date        string // YYYY-MM-DD
}

// Key returns the record's natural key.
func (r ObservationRecord) Key() ObservationKey {
	return ObservationKey{StationName: r.StationName, Date: r.Date.Format(time.DateOnly)}
}

// Value returns the measurement for m, or nil when it is absent.
func (r ObservationRecord) Value(m Measure) *float64 {
	if f := r.field(m); f != nil {
		return *f
	}
	return nil
}

// Set stores v as the measurement for m. A nil v marks it absent.
func (r *ObservationRecord) Set(m Measure, v *float64) {
	if f := r.field(m); f != nil {
		*f = v
	}
}

func (r *ObservationRecord) field(m Measure) **float64 {
	switch m {
	case Evapotranspiration:
		return &r.Evapotranspiration
	case Rainfall:
		return &r.Rainfall
	case PanEvaporation:
		return &r.PanEvaporation
	case MaximumTemperature:
		return &r.MaximumTemperature
	case MinimumTemperature:
		return &r.MinimumTemperature
	case MaximumRelativeHumidity:
		return &r.MaximumRelativeHumidity
	case MinimumRelativeHumidity:
		return &r.MinimumRelativeHumidity
	case AverageWindSpeed:
		return &r.AverageWindSpeed
	case SolarRadiation:
		return &r.SolarRadiation
	default:
		return nil
	}
}

// StationRecord is one entry of the station directory.
type StationRecord struct {
	StationID    string     `db:"station_id" json:"station_id"`
	State        string     `db:"state" json:"state"`
	DistrictCode string     `db:"district_code" json:"district_code"`
	StationName  string     `db:"station_name" json:"station_name"`
	StationSince *time.Time `db:"station_since" json:"station_since"`
	Latitude     float64    `db:"latitude" json:"latitude"`
	Longitude    float64    `db:"longitude" json:"longitude"`
	LoadDate     time.Time  `db:"load_date" json:"load_date"`
}

// Batch is the validated set of records handed to the loader.
type Batch struct {
	Observations []ObservationRecord
	Stations     []StationRecord
}

// LoadResult reports how many rows the loader inserted. Rows whose natural
// key already existed are not counted.
type LoadResult struct {
	ObservationsInserted int `json:"observations_inserted"`
	StationsInserted     int `json:"stations_inserted"`
}

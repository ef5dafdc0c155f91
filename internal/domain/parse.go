package domain

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// ErrMemberParse marks an archive member whose structure does not match the
// expected format. It aborts the run.
var ErrMemberParse = errors.New("member parse error")

const (
	// ObservationPreambleLines is the number of banner lines before the body.
	ObservationPreambleLines = 12
	// ObservationFooterLines is the number of trailing banner lines.
	ObservationFooterLines = 1

	observationFields     = 11
	observationDateLayout = "2/1/2006"

	// StationIDWidth is the staged width of a station id.
	StationIDWidth = 6
)

// stationColumns are the byte ranges of the station directory fields.
var stationColumns = [7][2]int{
	{0, 8},   // station id
	{8, 12},  // state
	{12, 18}, // district code
	{18, 59}, // station name
	{59, 75}, // station since
	{75, 84}, // latitude
	{84, 94}, // longitude
}

// stationSinceRe matches the leading YYYYMMDD of the station since field.
var stationSinceRe = regexp.MustCompile(`^(\d{8})`)

type numberedLine struct {
	num  int
	text string
}

// ParseObservations reads one observation member and returns its records.
// Every record is stamped with state and loadDate.
func ParseObservations(r io.Reader, state State, loadDate time.Time) ([]ObservationRecord, error) {
	data, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(r))
	if err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}

	body := observationBody(string(data))
	records := make([]ObservationRecord, 0, len(body))
	for _, line := range body {
		rec, err := parseObservationLine(line.text, state, loadDate)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMemberParse, line.num, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// observationBody drops the preamble, blank lines, the column heading row
// and the footer, keeping original line numbers for error reporting.
func observationBody(text string) []numberedLine {
	lines := strings.Split(text, "\n")
	if len(lines) <= ObservationPreambleLines {
		return nil
	}

	body := make([]numberedLine, 0, len(lines)-ObservationPreambleLines)
	for i := ObservationPreambleLines; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		body = append(body, numberedLine{num: i + 1, text: line})
	}

	if len(body) <= ObservationFooterLines {
		return nil
	}
	body = body[:len(body)-ObservationFooterLines]

	if isHeadingRow(body[0].text) {
		body = body[1:]
	}
	return body
}

func isHeadingRow(line string) bool {
	first, _, _ := strings.Cut(line, ",")
	first = strings.Trim(strings.TrimSpace(first), `"`)
	return strings.EqualFold(first, "Station Name")
}

func parseObservationLine(line string, state State, loadDate time.Time) (ObservationRecord, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = observationFields
	fields, err := cr.Read()
	if err != nil {
		return ObservationRecord{}, err
	}

	name := strings.TrimSpace(fields[0])
	if name == "" {
		return ObservationRecord{}, errors.New("empty station name")
	}

	date, err := time.Parse(observationDateLayout, strings.TrimSpace(fields[1]))
	if err != nil {
		return ObservationRecord{}, fmt.Errorf("date %q: %w", fields[1], err)
	}

	rec := ObservationRecord{
		StationName: name,
		Date:        date,
		State:       state,
		LoadDate:    loadDate,
	}
	for _, m := range Measures() {
		v, err := parseOptionalFloat(fields[2+int(m)])
		if err != nil {
			return ObservationRecord{}, fmt.Errorf("%s: %w", m, err)
		}
		rec.Set(m, v)
	}
	return rec, nil
}

// missingTokens are cell values that mean "not reported", matched
// case-insensitively.
var missingTokens = map[string]struct{}{
	"na": {}, "n/a": {}, "#n/a": {}, "#n/a n/a": {}, "#na": {}, "<na>": {},
	"nan": {}, "-nan": {}, "null": {}, "none": {},
	"-1.#ind": {}, "1.#ind": {}, "-1.#qnan": {}, "1.#qnan": {},
}

// parseOptionalFloat returns nil for empty, whitespace-only or missing-value
// text. Infinities are rejected.
func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if _, ok := missingTokens[strings.ToLower(s)]; ok {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	switch {
	case math.IsNaN(v):
		return nil, nil
	case math.IsInf(v, 0):
		return nil, fmt.Errorf("non-finite value %q", s)
	}
	return &v, nil
}

// ParseStations reads the fixed-width station directory.
func ParseStations(r io.Reader, loadDate time.Time) ([]StationRecord, error) {
	var stations []StationRecord

	sc := bufio.NewScanner(r)
	num := 0
	for sc.Scan() {
		num++
		line := bytes.TrimRight(sc.Bytes(), "\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		st, err := parseStationLine(line, loadDate)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMemberParse, num, err)
		}
		stations = append(stations, st)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}
	return stations, nil
}

func parseStationLine(line []byte, loadDate time.Time) (StationRecord, error) {
	var f [len(stationColumns)]string
	for i, col := range stationColumns {
		f[i] = fixedField(line, col[0], col[1])
	}

	id, err := padStationID(f[0])
	if err != nil {
		return StationRecord{}, err
	}

	since, err := parseStationSince(f[4])
	if err != nil {
		return StationRecord{}, err
	}

	lat, err := strconv.ParseFloat(f[5], 64)
	if err != nil {
		return StationRecord{}, fmt.Errorf("latitude %q: %w", f[5], err)
	}
	lon, err := strconv.ParseFloat(f[6], 64)
	if err != nil {
		return StationRecord{}, fmt.Errorf("longitude %q: %w", f[6], err)
	}

	return StationRecord{
		StationID:    id,
		State:        f[1],
		DistrictCode: f[2],
		StationName:  f[3],
		StationSince: since,
		Latitude:     lat,
		Longitude:    lon,
		LoadDate:     loadDate,
	}, nil
}

// fixedField slices [start,end) out of line, tolerating short lines, and
// returns the trimmed ISO-8859-1 text.
func fixedField(line []byte, start, end int) string {
	if start >= len(line) {
		return ""
	}
	end = min(end, len(line))
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(line[start:end])
	if err != nil {
		s = line[start:end]
	}
	return strings.TrimSpace(string(s))
}

// padStationID zero-pads a numeric id to StationIDWidth. Leading zeros
// beyond the width are dropped; more significant digits are an error.
func padStationID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("station id %q: want 1-%d digits", s, StationIDWidth)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("station id %q: not numeric", s)
		}
	}
	digits := s
	if len(digits) > StationIDWidth {
		digits = strings.TrimLeft(digits, "0")
		if len(digits) > StationIDWidth {
			return "", fmt.Errorf("station id %q: want at most %d significant digits", s, StationIDWidth)
		}
	}
	return strings.Repeat("0", StationIDWidth-len(digits)) + digits, nil
}

func parseStationSince(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	m := stationSinceRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("station since %q: want YYYYMMDD", s)
	}
	t, err := time.Parse("20060102", m[1])
	if err != nil {
		return nil, fmt.Errorf("station since %q: %w", s, err)
	}
	return &t, nil
}

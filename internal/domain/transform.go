package domain

import (
	"fmt"
	"strings"
)

// StateException names a station whose records are also published, wrongly,
// under another state's directory.
type StateException struct {
	StationName string
	WrongState  State
}

// DefaultStateExceptions lists the cross-state duplicate publications
// identified in the BOM archive. The station directory is incomplete, so it
// cannot be used to derive this list.
func DefaultStateExceptions() []StateException {
	return []StateException{
		{StationName: "ALBURY AIRPORT", WrongState: StateVIC},
		{StationName: "ALICE SPRINGS AIRPORT", WrongState: StateSA},
		{StationName: "ALICE SPRINGS AIRPORT", WrongState: StateVIC},
		{StationName: "DENILIQUIN AIRPORT", WrongState: StateVIC},
		{StationName: "EUCLA", WrongState: StateSA},
		{StationName: "EVANS HEAD RAAF BOMBING RANGE", WrongState: StateQLD},
		{StationName: "FORREST", WrongState: StateSA},
		{StationName: "WANGARATTA AERO", WrongState: StateWA},
	}
}

// ParseStateExceptions parses "NAME:STATE;NAME:STATE" pairs.
func ParseStateExceptions(s string) ([]StateException, error) {
	var out []StateException
	for _, pair := range strings.Split(s, ";") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		name, state, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("state exception %q: want NAME:STATE", pair)
		}
		st, err := ParseState(state)
		if err != nil {
			return nil, fmt.Errorf("state exception %q: %w", pair, err)
		}
		out = append(out, StateException{StationName: name, WrongState: st})
	}
	return out, nil
}

// DedupStats counts the records removed by each deduplication stage.
type DedupStats struct {
	ExceptionRemoved  int `json:"exception_removed"`
	DuplicatesRemoved int `json:"duplicates_removed"`
}

// Deduplicate drops records listed in exceptions, then keeps one record per
// (station name, date). The first record in input order wins, so callers
// must pass records in archive traversal order. The result preserves input
// order.
func Deduplicate(records []ObservationRecord, exceptions []StateException) ([]ObservationRecord, DedupStats) {
	var stats DedupStats

	wrong := make(map[StateException]struct{}, len(exceptions))
	for _, e := range exceptions {
		wrong[e] = struct{}{}
	}

	seen := make(map[ObservationKey]struct{}, len(records))
	kept := make([]ObservationRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := wrong[StateException{StationName: rec.StationName, WrongState: rec.State}]; ok {
			stats.ExceptionRemoved++
			continue
		}
		key := rec.Key()
		if _, ok := seen[key]; ok {
			stats.DuplicatesRemoved++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, rec)
	}
	return kept, stats
}

// Rule is a plausibility constraint on an observation.
type Rule int

const (
	RuleEvapotranspiration Rule = iota
	RuleRainfall
	RulePanEvaporation
	RuleTemperatureRange
	RuleRelativeHumidity
	RuleWindSpeed
	RuleSolarRadiation
)

// Rules returns every Rule in evaluation order.
func Rules() []Rule {
	return []Rule{
		RuleEvapotranspiration,
		RuleRainfall,
		RulePanEvaporation,
		RuleTemperatureRange,
		RuleRelativeHumidity,
		RuleWindSpeed,
		RuleSolarRadiation,
	}
}

func (r Rule) String() string {
	switch r {
	case RuleEvapotranspiration:
		return "evapotranspiration_negative"
	case RuleRainfall:
		return "rainfall_negative"
	case RulePanEvaporation:
		return "pan_evaporation_negative"
	case RuleTemperatureRange:
		return "temperature_max_below_min"
	case RuleRelativeHumidity:
		return "relative_humidity_negative"
	case RuleWindSpeed:
		return "wind_speed_negative"
	case RuleSolarRadiation:
		return "solar_radiation_negative"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// MarshalText lets Rule key JSON objects.
func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses the name produced by String.
func (r *Rule) UnmarshalText(b []byte) error {
	for _, c := range Rules() {
		if c.String() == string(b) {
			*r = c
			return nil
		}
	}
	return fmt.Errorf("unknown rule %q", b)
}

// Check reports whether rec satisfies r. Absent values satisfy their own
// constraint.
func (r Rule) Check(rec ObservationRecord) bool {
	switch r {
	case RuleEvapotranspiration:
		return nonNegative(rec.Evapotranspiration)
	case RuleRainfall:
		return nonNegative(rec.Rainfall)
	case RulePanEvaporation:
		return nonNegative(rec.PanEvaporation)
	case RuleTemperatureRange:
		if rec.MaximumTemperature == nil || rec.MinimumTemperature == nil {
			return true
		}
		return *rec.MaximumTemperature >= *rec.MinimumTemperature
	case RuleRelativeHumidity:
		return nonNegative(rec.MaximumRelativeHumidity) && nonNegative(rec.MinimumRelativeHumidity)
	case RuleWindSpeed:
		return nonNegative(rec.AverageWindSpeed)
	case RuleSolarRadiation:
		return nonNegative(rec.SolarRadiation)
	default:
		return true
	}
}

func nonNegative(v *float64) bool {
	return v == nil || *v >= 0
}

// FirstViolation returns the first rule rec breaks.
func FirstViolation(rec ObservationRecord) (Rule, bool) {
	for _, r := range Rules() {
		if !r.Check(rec) {
			return r, true
		}
	}
	return 0, false
}

// ValidationResult counts rejected records by the first rule they broke.
type ValidationResult struct {
	Rejected map[Rule]int `json:"rejected"`
}

// Total is the number of rejected records.
func (v ValidationResult) Total() int {
	n := 0
	for _, c := range v.Rejected {
		n += c
	}
	return n
}

// Validate drops records that break any rule. Invalid records are not
// repaired.
func Validate(records []ObservationRecord) ([]ObservationRecord, ValidationResult) {
	res := ValidationResult{Rejected: make(map[Rule]int)}
	kept := make([]ObservationRecord, 0, len(records))
	for _, rec := range records {
		if rule, bad := FirstViolation(rec); bad {
			res.Rejected[rule]++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, res
}

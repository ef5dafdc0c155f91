// Command inspect performs a dry run of the staging pipeline over a local
// archive: it classifies members, parses them, deduplicates and validates
// the batch, and prints per-phase counts without touching the store.
//
// Usage:
//
//	go run ./cmd/inspect \
//	  -archive data/IDCKWCDEA0_2023-11-12.tgz \
//	  -json out/batch.json \
//	  -exceptions 'WANGARATTA AERO:WA;EUCLA:SA'
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/TravisH0301/weather-analysis/internal/archive"
	"github.com/TravisH0301/weather-analysis/internal/config"
	"github.com/TravisH0301/weather-analysis/internal/domain"
	"github.com/TravisH0301/weather-analysis/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for an inspection phase.
type phase struct {
	name   string
	notes  []string
	errors []string
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	archivePath string
	jsonOut     string
	regions     string
	minYear     int
	noFilter    bool
	workers     int
	samples     int
	timezone    string
	exceptions  string
}

func main() {
	var o options
	flag.StringVar(&o.archivePath, "archive", "", "path to a BOM daily observation archive (.tgz or .tar)")
	flag.StringVar(&o.jsonOut, "json", "", "optional output path for the validated batch as JSON")
	flag.StringVar(&o.regions, "regions", "vic,wa", "comma-separated regions under tables/")
	flag.IntVar(&o.minYear, "min-year", 2012, "earliest observation year to read")
	flag.BoolVar(&o.noFilter, "no-filter", false, "read every region and year")
	flag.IntVar(&o.workers, "workers", 4, "concurrent observation member parsers")
	flag.IntVar(&o.samples, "samples", 5, "rejected records to print per rule")
	flag.StringVar(&o.timezone, "tz", "Australia/Melbourne", "time zone of the load date")
	flag.StringVar(&o.exceptions, "exceptions", os.Getenv("STATE_EXCEPTIONS"),
		"state exception list as NAME:STATE;NAME:STATE (default: $STATE_EXCEPTIONS, else the built-in list)")
	flag.Parse()

	if o.archivePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(o))
}

func run(o options) int {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: time zone: %v\n", err)
		return 1
	}
	loadDate := domain.LoadDate(clockwork.NewRealClock(), loc)

	exceptions, err := config.StateExceptions(o.exceptions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: exceptions: %v\n", err)
		return 1
	}

	filter := archive.Filter{Enabled: !o.noFilter, Regions: splitRegions(o.regions), MinYear: o.minYear}

	fmt.Println("=== Weather Archive Inspection ===")
	fmt.Printf("Archive: %s\nLoad date: %s\n\n", o.archivePath, loadDate.Format(time.DateOnly))

	ex, extractPhase := extract(o.archivePath, filter, loadDate, o.workers)
	phases := []*phase{extractPhase}

	var batch domain.Batch
	if extractPhase.passed() {
		deduped, stats := domain.Deduplicate(ex.Observations, exceptions)
		phases = append(phases, dedupPhase(ex, stats))

		valid, result := domain.Validate(deduped)
		phases = append(phases, validationPhase(deduped, result, o.samples))

		batch = domain.Batch{Observations: valid, Stations: ex.Stations}
		phases = append(phases, invariantPhase(batch))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if len(p.notes) == 0 && p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for _, n := range p.notes {
			fmt.Printf("  %s\n", n)
		}
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed && o.jsonOut != "" {
		if err := writeJSON(o.jsonOut, batch); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: write batch: %v\n", err)
			return 1
		}
		fmt.Printf("\nWrote %d observations and %d stations to %s\n",
			len(batch.Observations), len(batch.Stations), o.jsonOut)
	}

	if allPassed {
		fmt.Println("\nArchive is ready to stage.")
		return 0
	}
	fmt.Println("\nInspection FAILED.")
	return 1
}

// ── Phase 1: Extraction ──

func extract(path string, filter archive.Filter, loadDate time.Time, workers int) (pipeline.Extracted, *phase) {
	p := &phase{name: "Phase 1: Extraction and parsing"}

	ctx := context.Background()
	_, rc, err := archive.FileSource{Path: path}.Open(ctx)
	if err != nil {
		p.errorf("%v", err)
		return pipeline.Extracted{}, p
	}
	defer rc.Close()

	r, err := archive.NewReader(rc, filter)
	if err != nil {
		p.errorf("%v", err)
		return pipeline.Extracted{}, p
	}
	defer r.Close()

	ex, err := pipeline.Extract(ctx, r, loadDate, workers)
	if err != nil {
		p.errorf("%v", err)
		return pipeline.Extracted{}, p
	}

	p.notef("members: %d observation, %d station, %d skipped",
		ex.ObservationMembers, ex.StationMembers, ex.SkippedMembers)
	p.notef("records: %d observations, %d stations", len(ex.Observations), len(ex.Stations))
	if ex.StationMembers == 0 {
		p.notef("no station directory found")
	}
	if ex.StationMembers > 1 {
		p.notef("%d station directories found; their records are combined", ex.StationMembers)
	}
	return ex, p
}

// ── Phase 2: Deduplication ──

func dedupPhase(ex pipeline.Extracted, stats domain.DedupStats) *phase {
	p := &phase{name: "Phase 2: Deduplication"}
	p.notef("exception list removed %d records", stats.ExceptionRemoved)
	p.notef("key collapse removed %d records", stats.DuplicatesRemoved)

	states := map[domain.State]int{}
	for i := range ex.Observations {
		states[ex.Observations[i].State]++
	}
	keys := make([]string, 0, len(states))
	for s := range states {
		keys = append(keys, string(s))
	}
	sort.Strings(keys)
	for _, s := range keys {
		p.notef("read from %s: %d", s, states[domain.State(s)])
	}
	return p
}

// ── Phase 3: Validation ──

func validationPhase(records []domain.ObservationRecord, result domain.ValidationResult, samples int) *phase {
	p := &phase{name: "Phase 3: Validation"}
	p.notef("rejected %d of %d records", result.Total(), len(records))

	shown := map[domain.Rule]int{}
	for _, rule := range domain.Rules() {
		if n := result.Rejected[rule]; n > 0 {
			p.notef("%-30s %d", rule, n)
		}
	}
	for i := range records {
		rule, bad := domain.FirstViolation(records[i])
		if !bad || shown[rule] >= samples {
			continue
		}
		shown[rule]++
		p.notef("  %s: %s %s", rule, records[i].StationName, records[i].Date.Format(time.DateOnly))
	}
	return p
}

// ── Phase 4: Invariants ──
// Re-checks the batch handed to the loader.

func invariantPhase(batch domain.Batch) *phase {
	p := &phase{name: "Phase 4: Batch invariants"}

	seen := make(map[domain.ObservationKey]struct{}, len(batch.Observations))
	for i := range batch.Observations {
		rec := &batch.Observations[i]
		if _, dup := seen[rec.Key()]; dup {
			p.errorf("duplicate key %s %s", rec.StationName, rec.Key().Date)
		}
		seen[rec.Key()] = struct{}{}
		if rule, bad := domain.FirstViolation(*rec); bad {
			p.errorf("%s %s breaks %s", rec.StationName, rec.Key().Date, rule)
		}
	}

	ids := make(map[string]struct{}, len(batch.Stations))
	for _, st := range batch.Stations {
		if _, dup := ids[st.StationID]; dup {
			p.notef("station id %s appears more than once; the first entry is kept", st.StationID)
		}
		ids[st.StationID] = struct{}{}
	}
	return p
}

func splitRegions(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// Command genarchive writes a deterministic synthetic archive in the BOM
// daily observation layout for local runs and demos. The output exercises
// every staging path: filtered regions and years, the state exception list,
// cross-member duplicates, absent measurements, and implausible values.
//
// Usage:
//
//	go run ./cmd/genarchive \
//	  -out data/IDCKWCDEA0_2023-11-12.tgz \
//	  -months 3 -seed 7
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/TravisH0301/weather-analysis/internal/archive"
	"github.com/TravisH0301/weather-analysis/internal/domain"
)

var baseDate = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

type stationDef struct {
	id       int
	region   string
	district string
	name     string
	lat, lon float64
}

var stationDefs = []stationDef{
	{id: 86282, region: "vic", district: "86", name: "MELBOURNE AIRPORT", lat: -37.6655, lon: 144.8321},
	{id: 82138, region: "vic", district: "82", name: "WANGARATTA AERO", lat: -36.4206, lon: 146.3056},
	{id: 87031, region: "vic", district: "87", name: "LAVERTON RAAF", lat: -37.8565, lon: 144.7566},
	{id: 9021, region: "wa", district: "9", name: "PERTH AIRPORT", lat: -31.9275, lon: 115.9764},
	{id: 11003, region: "wa", district: "11", name: "EUCLA", lat: -31.6797, lon: 128.8969},
	{id: 66037, region: "nsw", district: "66", name: "SYDNEY AIRPORT AMO", lat: -33.9465, lon: 151.1731},
}

// misplaced are stations also published under a wrong state directory.
var misplaced = map[string]string{
	"WANGARATTA AERO": "wa",
	"EUCLA":           "sa",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the archive")
	months := flag.Int("months", 2, "months of observations per station")
	seed := flag.Uint64("seed", 1, "random seed")
	invalidEvery := flag.Int("invalid-every", 17, "make every n-th row implausible (0 disables)")
	plain := flag.Bool("plain", false, "write an uncompressed tar")
	flag.Parse()

	if *out == "" || *months <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -months > 0")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	g := &generator{rng: rng, invalidEvery: *invalidEvery}

	var entries []archive.Entry //nolint:prealloc // size depends on station and month counts
	for _, st := range stationDefs {
		for m := 0; m < *months; m++ {
			month := baseDate.AddDate(0, m, 0)
			entries = append(entries, g.member(st.region, st.name, month))
			if wrong, ok := misplaced[st.name]; ok {
				entries = append(entries, g.member(wrong, st.name, month))
			}
		}
		// Pre-cutoff history that the default filter skips.
		entries = append(entries, g.member(st.region, st.name, time.Date(2011, time.December, 1, 0, 0, 0, 0, time.UTC)))
	}
	// A month republished under a second file name duplicates its keys.
	entries = append(entries, g.memberAs("vic", "MELBOURNE AIRPORT", baseDate, "melbourne_airport_rev"))
	entries = append(entries, archive.Entry{Path: "tables/stations_db.txt", Body: stationsDB()})
	entries = append(entries, archive.Entry{Path: "tables/README.pdf", Body: []byte("%PDF-1.4\n")})

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := archive.Write(f, entries, !*plain, baseDate); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Printf("wrote %s: %d members, %d rows (%d implausible)", *out, len(entries), g.rows, g.invalid)
	return nil
}

type generator struct {
	rng          *rand.Rand
	invalidEvery int
	rows         int
	invalid      int
}

func (g *generator) member(region, name string, month time.Time) archive.Entry {
	return g.memberAs(region, name, month, slug(name))
}

func (g *generator) memberAs(region, name string, month time.Time, file string) archive.Entry {
	path := fmt.Sprintf("tables/%s/%s/%s-%s.csv", region, slug(name), file, month.Format("200601"))

	var b strings.Builder
	fmt.Fprintf(&b, "Daily Weather Observations for %s, %s\r\n", name, month.Format("January 2006"))
	for i := 1; i < domain.ObservationPreambleLines; i++ {
		fmt.Fprintf(&b, "Prepared at %s\r\n", baseDate.Format(time.RFC1123))
	}
	b.WriteString(`"Station Name","Date","Evapo-Transpiration 0000-2400 (mm)","Rain 0900-0900 (mm)",` +
		`"Pan-Evaporation 0900-0900 (mm)","Maximum Temperature (°C)","Minimum Temperature (°C)",` +
		`"Maximum Relative Humidity (%)","Minimum Relative Humidity (%)","Average 10m Wind Speed (m/sec)",` +
		`"Solar Radiation (MJ/sq m)"` + "\r\n")

	for d := month; d.Month() == month.Month(); d = d.AddDate(0, 0, 1) {
		b.WriteString(g.row(name, d))
		b.WriteString("\r\n")
	}
	b.WriteString("Copyright of Bureau of Meteorology\r\n")

	return archive.Entry{Path: path, Body: []byte(b.String())}
}

func (g *generator) row(name string, d time.Time) string {
	g.rows++
	tmin := 5 + g.rng.Float64()*15
	tmax := tmin + g.rng.Float64()*15

	cells := []string{
		num(g.rng.Float64() * 8),
		num(g.rng.ExpFloat64() * 2),
		num(g.rng.Float64() * 10),
		num(tmax),
		num(tmin),
		strconv.Itoa(60 + g.rng.IntN(40)),
		strconv.Itoa(10 + g.rng.IntN(50)),
		num(g.rng.Float64() * 9),
		num(5 + g.rng.Float64()*25),
	}
	// Leave some cells blank; absent is not zero.
	for i := range cells {
		if g.rng.IntN(20) == 0 {
			cells[i] = ""
		}
	}
	if g.invalidEvery > 0 && g.rows%g.invalidEvery == 0 {
		g.invalid++
		cells[3], cells[4] = num(tmin), num(tmax+1)
	}
	return fmt.Sprintf("%q,%s,%s", name, d.Format("02/01/2006"), strings.Join(cells, ","))
}

func stationsDB() []byte {
	var b strings.Builder
	for _, st := range stationDefs {
		fmt.Fprintf(&b, "%8d%-4s%-6s%-41s%-16s%9.4f%10.4f\n",
			st.id, strings.ToUpper(st.region), st.district, st.name, "19700101  ", st.lat, st.lon)
	}
	return []byte(b.String())
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }

func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

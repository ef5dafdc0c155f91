// Package archive walks a BOM daily observation archive and classifies its
// members.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/TravisH0301/weather-analysis/internal/domain"
	"github.com/klauspost/compress/gzip"
)

// ErrExtraction marks an archive that cannot be opened or read to the end.
var ErrExtraction = errors.New("archive extraction error")

// Kind classifies an archive member.
type Kind int

const (
	KindSkip Kind = iota
	KindObservation
	KindStation
)

func (k Kind) String() string {
	switch k {
	case KindObservation:
		return "observation"
	case KindStation:
		return "station"
	default:
		return "skipped"
	}
}

// Filter restricts which observation members are read.
type Filter struct {
	Enabled bool
	Regions []string // lower-case path segments under tables/
	MinYear int
}

// DefaultFilter admits Victoria and Western Australia from 2012 onwards.
func DefaultFilter() Filter {
	return Filter{Enabled: true, Regions: []string{"vic", "wa"}, MinYear: 2012}
}

// Member is one classified archive entry. Body holds the whole member.
type Member struct {
	Path  string
	Kind  Kind
	State domain.State // set for observation members
	Body  []byte
}

var memberYearRe = regexp.MustCompile(`(?i)(\d{4})\d{2}\.csv$`)

var gzipMagic = []byte{0x1f, 0x8b}

// Reader yields the observation and station members of an archive in tar
// order. Skipped members are counted, not returned.
type Reader struct {
	tr      *tar.Reader
	gz      *gzip.Reader
	filter  Filter
	files   int
	skipped int
}

// NewReader opens r as a tar stream, gunzipping it first when it starts with
// the gzip magic bytes. A zero-byte stream is an extraction error.
func NewReader(r io.Reader, filter Filter) (*Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if len(head) == 0 {
		return nil, fmt.Errorf("%w: empty stream", ErrExtraction)
	}

	ar := &Reader{filter: filter}
	if bytes.Equal(head, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrExtraction, err)
		}
		ar.gz = gz
		ar.tr = tar.NewReader(gz)
	} else {
		ar.tr = tar.NewReader(br)
	}
	return ar, nil
}

// Next returns the next observation or station member. It returns io.EOF
// after the last member, or ErrExtraction when the archive held no regular
// files at all.
func (r *Reader) Next() (Member, error) {
	for {
		hdr, err := r.tr.Next()
		if errors.Is(err, io.EOF) {
			if r.files == 0 {
				return Member{}, fmt.Errorf("%w: archive holds no files", ErrExtraction)
			}
			return Member{}, io.EOF
		}
		if err != nil {
			return Member{}, fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		r.files++

		m := r.filter.Classify(hdr.Name)
		if m.Kind == KindSkip {
			r.skipped++
			continue
		}

		body, err := io.ReadAll(r.tr)
		if err != nil {
			return Member{}, fmt.Errorf("%w: read %s: %w", ErrExtraction, m.Path, err)
		}
		m.Body = body
		return m, nil
	}
}

// Skipped is the number of regular-file members not returned by Next.
func (r *Reader) Skipped() int { return r.skipped }

// Close releases the gzip stream, if any. The underlying reader is not
// closed.
func (r *Reader) Close() error {
	if r.gz != nil {
		return r.gz.Close()
	}
	return nil
}

// Classify decides what a member path holds. The returned Member has no
// Body.
func (f Filter) Classify(name string) Member {
	p := strings.TrimPrefix(name, "./")
	lower := strings.ToLower(p)

	switch {
	case strings.HasSuffix(lower, ".txt"):
		return Member{Path: p, Kind: KindStation}
	case strings.HasSuffix(lower, ".csv"):
		region, ok := tablesRegion(lower)
		if !ok {
			return Member{Path: p, Kind: KindSkip}
		}
		state, err := domain.ParseState(region)
		if err != nil {
			return Member{Path: p, Kind: KindSkip}
		}
		if f.Enabled && !f.admits(region, path.Base(lower)) {
			return Member{Path: p, Kind: KindSkip}
		}
		return Member{Path: p, Kind: KindObservation, State: state}
	default:
		return Member{Path: p, Kind: KindSkip}
	}
}

func (f Filter) admits(region, base string) bool {
	allowed := false
	for _, r := range f.Regions {
		if strings.EqualFold(r, region) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}

	m := memberYearRe.FindStringSubmatch(base)
	if m == nil {
		return false
	}
	year, err := strconv.Atoi(m[1])
	return err == nil && year >= f.MinYear
}

// tablesRegion returns the path segment following "tables".
func tablesRegion(p string) (string, bool) {
	segs := strings.Split(p, "/")
	for i := 0; i+1 < len(segs); i++ {
		if segs[i] == "tables" && segs[i+1] != "" {
			return segs[i+1], true
		}
	}
	return "", false
}

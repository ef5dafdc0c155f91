package archive

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/TravisH0301/weather-analysis/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2023, 11, 12, 0, 0, 0, 0, time.UTC)

func buildArchive(t *testing.T, compress bool, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries, compress, fixedTime))
	return buf.Bytes()
}

func readAll(t *testing.T, data []byte, f Filter) ([]Member, int) {
	t.Helper()
	r, err := NewReader(bytes.NewReader(data), f)
	require.NoError(t, err)
	defer r.Close()

	var members []Member
	for {
		m, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		members = append(members, m)
	}
	return members, r.Skipped()
}

func TestFilterClassify(t *testing.T) {
	f := DefaultFilter()

	tests := []struct {
		name  string
		path  string
		kind  Kind
		state domain.State
	}{
		{"vic observation", "tables/vic/melbourne_airport/melbourne_airport-201201.csv", KindObservation, domain.StateVIC},
		{"wa observation", "./tables/wa/perth/perth-202310.csv", KindObservation, domain.StateWA},
		{"upper-case extension", "tables/vic/x/x-201512.CSV", KindObservation, domain.StateVIC},
		{"year before minimum", "tables/vic/x/x-201112.csv", KindSkip, ""},
		{"region not allowed", "tables/nsw/sydney/sydney-201501.csv", KindSkip, ""},
		{"no year stamp", "tables/vic/x/readme.csv", KindSkip, ""},
		{"outside tables", "other/vic/x-201501.csv", KindSkip, ""},
		{"station directory", "tables/stations_db.txt", KindStation, ""},
		{"other file", "tables/vic/x/x-201501.pdf", KindSkip, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := f.Classify(tt.path)
			assert.Equal(t, tt.kind, m.Kind)
			assert.Equal(t, tt.state, m.State)
			assert.False(t, strings.HasPrefix(m.Path, "./"))
		})
	}
}

func TestFilterClassify_Disabled(t *testing.T) {
	f := Filter{}

	m := f.Classify("tables/nsw/sydney/sydney-199001.csv")
	assert.Equal(t, KindObservation, m.Kind)
	assert.Equal(t, domain.StateNSW, m.State)

	// The state must still be derivable from the path.
	assert.Equal(t, KindSkip, f.Classify("tables/unknown/x-201501.csv").Kind)
}

func TestReader_GzipAndPlain(t *testing.T) {
	entries := []Entry{
		{Path: "tables/vic/a/a-201201.csv", Body: []byte("vic body")},
		{Path: "tables/nsw/b/b-201201.csv", Body: []byte("nsw body")},
		{Path: "tables/stations_db.txt", Body: []byte("stations")},
		{Path: "tables/wa/c/c-201905.csv", Body: []byte("wa body")},
	}

	for _, compress := range []bool{true, false} {
		members, skipped := readAll(t, buildArchive(t, compress, entries...), DefaultFilter())

		require.Len(t, members, 3)
		assert.Equal(t, "tables/vic/a/a-201201.csv", members[0].Path)
		assert.Equal(t, KindObservation, members[0].Kind)
		assert.Equal(t, []byte("vic body"), members[0].Body)
		assert.Equal(t, KindStation, members[1].Kind)
		assert.Equal(t, []byte("stations"), members[1].Body)
		assert.Equal(t, domain.StateWA, members[2].State)
		assert.Equal(t, 1, skipped)
	}
}

func TestReader_ZeroByteStream(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil), DefaultFilter())
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestReader_EmptyArchive(t *testing.T) {
	for _, compress := range []bool{true, false} {
		r, err := NewReader(bytes.NewReader(buildArchive(t, compress)), DefaultFilter())
		require.NoError(t, err)

		_, err = r.Next()
		assert.ErrorIs(t, err, ErrExtraction)
		assert.NotErrorIs(t, err, io.EOF)
	}
}

func TestReader_OnlySkippedMembers(t *testing.T) {
	data := buildArchive(t, true, Entry{Path: "README.pdf", Body: []byte("%PDF")})
	members, skipped := readAll(t, data, DefaultFilter())
	assert.Empty(t, members)
	assert.Equal(t, 1, skipped)
}

func TestReader_Truncated(t *testing.T) {
	body := bytes.Repeat([]byte("STATION A,01/01/2012,,,,,,,,,\n"), 200)
	for _, compress := range []bool{true, false} {
		data := buildArchive(t, compress, Entry{Path: "tables/vic/a/a-201201.csv", Body: body})
		data = data[:len(data)/2]

		r, err := NewReader(bytes.NewReader(data), DefaultFilter())
		require.NoError(t, err)

		_, err = r.Next()
		assert.ErrorIs(t, err, ErrExtraction)
	}
}

func TestReader_NotAnArchive(t *testing.T) {
	r, err := NewReader(strings.NewReader("definitely not a tar stream"), DefaultFilter())
	require.NoError(t, err)

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestReader_CorruptGzipHeader(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}), DefaultFilter())
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestFileSource(t *testing.T) {
	_, _, err := FileSource{Path: t.TempDir() + "/missing.tgz"}.Open(t.Context())
	assert.ErrorIs(t, err, ErrExtraction)
}

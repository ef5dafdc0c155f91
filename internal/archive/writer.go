package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Entry is a file to place in a generated archive.
type Entry struct {
	Path string
	Body []byte
}

// Write lays entries out as a tar stream in the given order, gzipped when
// compress is set. Member timestamps are fixed at modTime so output is
// reproducible.
func Write(w io.Writer, entries []Entry, compress bool, modTime time.Time) error {
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(w)
		w = gz
	}

	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.Path,
			Mode:     0o644,
			Size:     int64(len(e.Body)),
			ModTime:  modTime,
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header %s: %w", e.Path, err)
		}
		if _, err := tw.Write(e.Body); err != nil {
			return fmt.Errorf("write %s: %w", e.Path, err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("close gzip: %w", err)
		}
	}
	return nil
}

package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSource opens an archive from the local filesystem.
type FileSource struct {
	Path string
}

// Open returns the archive's base name and its contents.
func (s FileSource) Open(_ context.Context) (string, io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	return filepath.Base(s.Path), f, nil
}

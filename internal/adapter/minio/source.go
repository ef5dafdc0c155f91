// Package minio locates and downloads the latest landed archive from an
// S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"time"

	"github.com/TravisH0301/weather-analysis/internal/archive"
	"github.com/TravisH0301/weather-analysis/internal/config"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// keyDateRe matches the landing date stamp, e.g. IDCKWCDEA0_2023-11-12.tgz.
var keyDateRe = regexp.MustCompile(`_(\d{4}-\d{2}-\d{2})\.[A-Za-z0-9.]+$`)

// Source opens the most recently landed archive in a bucket.
type Source struct {
	client *miniogo.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewSource creates a MinIO client for the configured landing bucket.
func NewSource(cfg config.MinIOConfig, logger *slog.Logger) (*Source, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Source{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, logger: logger}, nil
}

// Open downloads the archive with the latest date stamp into memory.
func (s *Source) Open(ctx context.Context) (string, io.ReadCloser, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, miniogo.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return "", nil, fmt.Errorf("%w: list bucket %s: %w", archive.ErrExtraction, s.bucket, obj.Err)
		}
		keys = append(keys, obj.Key)
	}

	key, ok := latestKey(keys)
	if !ok {
		return "", nil, fmt.Errorf("%w: no date-stamped archive in bucket %s under %q", archive.ErrExtraction, s.bucket, s.prefix)
	}
	s.logger.Info("latest archive selected", "bucket", s.bucket, "key", key, "candidates", len(keys))

	obj, err := s.client.GetObject(ctx, s.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return "", nil, fmt.Errorf("%w: get %s: %w", archive.ErrExtraction, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", nil, fmt.Errorf("%w: download %s: %w", archive.ErrExtraction, key, err)
	}
	return path.Base(key), io.NopCloser(bytes.NewReader(data)), nil
}

// latestKey picks the key with the newest date stamp. Keys without a valid
// stamp are ignored; equal dates resolve to the lexically greatest key.
func latestKey(keys []string) (string, bool) {
	var (
		best     string
		bestDate time.Time
		found    bool
	)
	for _, k := range keys {
		m := keyDateRe.FindStringSubmatch(k)
		if m == nil {
			continue
		}
		d, err := time.Parse(time.DateOnly, m[1])
		if err != nil {
			continue
		}
		if !found || d.After(bestDate) || (d.Equal(bestDate) && k > best) {
			best, bestDate, found = k, d, true
		}
	}
	return best, found
}

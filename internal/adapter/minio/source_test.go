package minio

import (
	"log/slog"
	"testing"

	"github.com/TravisH0301/weather-analysis/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestKey(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
		ok   bool
	}{
		{
			name: "newest date wins regardless of listing order",
			keys: []string{
				"bom/IDCKWCDEA0_2023-11-10.tgz",
				"bom/IDCKWCDEA0_2023-11-12.tgz",
				"bom/IDCKWCDEA0_2023-11-11.tgz",
			},
			want: "bom/IDCKWCDEA0_2023-11-12.tgz",
			ok:   true,
		},
		{
			name: "unstamped and invalid keys are ignored",
			keys: []string{
				"bom/readme.txt",
				"bom/IDCKWCDEA0_2023-13-40.tgz",
				"bom/IDCKWCDEA0_2022-01-01.tar.gz",
			},
			want: "bom/IDCKWCDEA0_2022-01-01.tar.gz",
			ok:   true,
		},
		{
			name: "same date resolves deterministically",
			keys: []string{"b_2023-01-01.tgz", "a_2023-01-01.tgz"},
			want: "b_2023-01-01.tgz",
			ok:   true,
		},
		{
			name: "empty listing",
			keys: nil,
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := latestKey(tt.keys)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(config.MinIOConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "bom-landing",
	}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "bom-landing", src.bucket)

	_, err = NewSource(config.MinIOConfig{Endpoint: "http://bad endpoint"}, slog.Default())
	assert.Error(t, err)
}

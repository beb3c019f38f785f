package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"gzip", Gzip, false},
		{"zstd", Zstd, false},
		{"lz4", LZ4, false},
		{"brotli", None, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	payload := strings.Repeat("id,name,updated_at\n42,widget,2024-01-15\n", 500)

	for _, alg := range []Algorithm{None, Gzip, Zstd, LZ4} {
		t.Run(string(alg), func(t *testing.T) {
			var buf bytes.Buffer

			w, err := NewWriter(alg, &buf)
			require.NoError(t, err)
			_, err = io.WriteString(w, payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := NewReader(alg, bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())

			assert.Equal(t, payload, string(got))
		})
	}
}

func TestCompressedSmallerThanPlain(t *testing.T) {
	payload := strings.Repeat("the same line over and over\n", 1000)

	for _, alg := range []Algorithm{Gzip, Zstd, LZ4} {
		var buf bytes.Buffer
		w, err := NewWriter(alg, &buf)
		require.NoError(t, err)
		_, err = io.WriteString(w, payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		assert.Less(t, buf.Len(), len(payload), "%s produced no compression", alg)
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "", None.Extension())
	assert.Equal(t, ".gz", Gzip.Extension())
	assert.Equal(t, ".zst", Zstd.Extension())
	assert.Equal(t, ".lz4", LZ4.Extension())
}

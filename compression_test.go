package refrance

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCompressionType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		expected CompressionType
	}{
		{name: "gzip", path: "2020full.csv.gz", expected: CompressionGZ},
		{name: "bzip2", path: "2020full.csv.bz2", expected: CompressionBZ2},
		{name: "xz", path: "2020full.csv.xz", expected: CompressionXZ},
		{name: "zstd", path: "2020full.csv.zst", expected: CompressionZSTD},
		{name: "uncompressed", path: "2020full.csv", expected: CompressionNone},
		{name: "uppercase", path: "2020full.CSV.GZ", expected: CompressionGZ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, DetectCompressionType(tt.path))
		})
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	t.Parallel()

	payload := []byte("id,price\n1,100000\n2,250000\n")

	for _, c := range []CompressionType{CompressionNone, CompressionGZ, CompressionXZ, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			writer, closeWriter, err := NewCompressingWriter(&buf, c)
			require.NoError(t, err)
			_, err = writer.Write(payload)
			require.NoError(t, err)
			require.NoError(t, closeWriter())

			reader, closeReader, err := NewDecompressingReader(&buf, c)
			require.NoError(t, err)
			decoded, err := io.ReadAll(reader)
			require.NoError(t, err)
			require.NoError(t, closeReader())

			assert.Equal(t, payload, decoded)
		})
	}
}

func TestNewCompressingWriter_BZ2Unsupported(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	_, _, err := NewCompressingWriter(&buf, CompressionBZ2)
	require.Error(t, err)
}

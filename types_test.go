package refrance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{name: "positive size", size: 500, expected: 500},
		{name: "minimum size", size: 1, expected: 1},
		{name: "zero falls back to default", size: 0, expected: DefaultRowsPerChunk},
		{name: "negative falls back to default", size: -10, expected: DefaultRowsPerChunk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NewChunkSize(tt.size).Int())
		})
	}
}

func TestHeader_Equal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header1  Header
		header2  Header
		expected bool
	}{
		{
			name:     "equal headers",
			header1:  newHeader([]string{"id", "price"}),
			header2:  newHeader([]string{"id", "price"}),
			expected: true,
		},
		{
			name:     "different length",
			header1:  newHeader([]string{"id", "price"}),
			header2:  newHeader([]string{"id"}),
			expected: false,
		},
		{
			name:     "different content",
			header1:  newHeader([]string{"id", "price"}),
			header2:  newHeader([]string{"id", "area"}),
			expected: false,
		},
		{
			name:     "both empty",
			header1:  newHeader(nil),
			header2:  newHeader(nil),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.header1.equal(tt.header2))
		})
	}
}

func TestValidateColumnNames(t *testing.T) {
	t.Parallel()

	t.Run("unique names pass", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, validateColumnNames([]string{"id", "price", "area"}))
	})

	t.Run("duplicate name is a schema conflict", func(t *testing.T) {
		t.Parallel()
		err := validateColumnNames([]string{"id", "price", "id"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchemaConflict)
	})

	t.Run("duplicate after trimming whitespace", func(t *testing.T) {
		t.Parallel()
		err := validateColumnNames([]string{"id", " id"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchemaConflict)
	})
}

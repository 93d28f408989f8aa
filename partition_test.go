package refrance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDiscoverPartitions(t *testing.T) {
	t.Parallel()

	t.Run("finds yearly files in name order", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTestFile(t, dir, "2021full.csv", "id\n")
		writeTestFile(t, dir, "2019full.csv.gz", "x")
		writeTestFile(t, dir, "2020full.csv", "id\n")
		writeTestFile(t, dir, "README.md", "not a partition")
		writeTestFile(t, dir, "notes.txt", "also not")

		parts, skipped, err := DiscoverPartitions(dir, "", false)
		require.NoError(t, err)
		assert.Empty(t, skipped)
		require.Len(t, parts, 3)
		assert.Equal(t, []int{2019, 2020, 2021}, []int{parts[0].Year, parts[1].Year, parts[2].Year})
		assert.Equal(t, "2019full.csv.gz", parts[0].Name())
	})

	t.Run("empty directory", func(t *testing.T) {
		t.Parallel()
		_, _, err := DiscoverPartitions(t.TempDir(), "", false)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoPartitionsFound)
	})

	t.Run("directory without matching files", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTestFile(t, dir, "summary.csv", "a\n")

		_, _, err := DiscoverPartitions(dir, "", false)
		assert.ErrorIs(t, err, ErrNoPartitionsFound)
	})

	t.Run("malformed year is skipped in lenient mode", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTestFile(t, dir, "2020full.csv", "id\n")
		writeTestFile(t, dir, "20x1full.csv", "id\n")
		writeTestFile(t, dir, "999full.csv", "id\n")

		parts, skipped, err := DiscoverPartitions(dir, "", false)
		require.NoError(t, err)
		require.Len(t, parts, 1)
		assert.Equal(t, 2020, parts[0].Year)
		assert.ElementsMatch(t, []string{"20x1full.csv", "999full.csv"}, skipped)
	})

	t.Run("malformed year is fatal in strict mode", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTestFile(t, dir, "2020full.csv", "id\n")
		writeTestFile(t, dir, "20x1full.csv", "id\n")

		_, _, err := DiscoverPartitions(dir, "", true)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedPartitionName)
	})

	t.Run("custom suffix", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeTestFile(t, dir, "2020sales.csv", "id\n")
		writeTestFile(t, dir, "2020full.csv", "id\n")

		parts, _, err := DiscoverPartitions(dir, "sales", false)
		require.NoError(t, err)
		require.Len(t, parts, 1)
		assert.Equal(t, "2020sales.csv", parts[0].Name())
	})

	t.Run("subdirectories are ignored", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "2020full.csv.d"), 0o750))
		writeTestFile(t, dir, "2021full.csv", "id\n")

		parts, _, err := DiscoverPartitions(dir, "", false)
		require.NoError(t, err)
		require.Len(t, parts, 1)
		assert.Equal(t, 2021, parts[0].Year)
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()
		_, _, err := DiscoverPartitions(filepath.Join(t.TempDir(), "nope"), "", false)
		require.Error(t, err)
	})
}

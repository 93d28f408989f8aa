package refrance

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultPartitionSuffix is the expected file-name suffix between the year
// token and the extension: 2020full.csv, 2021full.csv, ...
const DefaultPartitionSuffix = "full"

// yearWidth is the fixed width of the year token in partition names.
const yearWidth = 4

// Partition is one discovered yearly source file. Immutable after
// discovery.
type Partition struct {
	// Path is the absolute or relative path of the source file.
	Path string
	// Year is the partition key parsed from the file name.
	Year int
}

// Name returns the base file name of the partition.
func (p Partition) Name() string {
	return filepath.Base(p.Path)
}

// DiscoverPartitions lists dir for files named <4-digit-year><suffix> with a
// supported extension and returns them sorted by file name, which for
// 4-digit years equals chronological order. Files that carry the suffix but
// a malformed year token are returned in skipped; in strict mode the first
// such file is a fatal ErrMalformedPartitionName instead. An empty result
// is ErrNoPartitionsFound.
func DiscoverPartitions(dir, suffix string, strict bool) (parts []Partition, skipped []string, err error) {
	if suffix == "" {
		suffix = DefaultPartitionSuffix
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read data directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isSupportedFile(entry.Name()) {
			continue
		}
		stem := partitionStem(entry.Name())
		if !strings.HasSuffix(stem, suffix) {
			continue
		}

		year, ok := parseYearToken(strings.TrimSuffix(stem, suffix))
		if !ok {
			if strict {
				return nil, nil, fmt.Errorf("%w: %s", ErrMalformedPartitionName, entry.Name())
			}
			skipped = append(skipped, entry.Name())
			continue
		}
		parts = append(parts, Partition{
			Path: filepath.Join(dir, entry.Name()),
			Year: year,
		})
	}

	if len(parts) == 0 {
		return nil, skipped, fmt.Errorf("%w: no <year>%s files in %s", ErrNoPartitionsFound, suffix, dir)
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].Name() < parts[j].Name() })
	return parts, skipped, nil
}

// parseYearToken parses a fixed-width numeric year token.
func parseYearToken(token string) (int, bool) {
	if len(token) != yearWidth {
		return 0, false
	}
	year, err := strconv.Atoi(token)
	if err != nil || year < 0 {
		return 0, false
	}
	return year, true
}

package refrance

import (
	"path/filepath"
	"strings"
)

// FileType represents supported partition body formats.
type FileType int

const (
	// FileTypeCSV represents a comma-separated partition body.
	FileTypeCSV FileType = iota
	// FileTypeTSV represents a tab-separated partition body.
	FileTypeTSV
	// FileTypeXLSX represents an Excel workbook partition body.
	FileTypeXLSX
	// FileTypeUnsupported represents everything else.
	FileTypeUnsupported
)

// File extensions.
const (
	extCSV  = ".csv"
	extTSV  = ".tsv"
	extXLSX = ".xlsx"
	extGZ   = ".gz"
	extBZ2  = ".bz2"
	extXZ   = ".xz"
	extZSTD = ".zst"
)

// compressionExts lists recognized compression suffixes.
var compressionExts = []string{extGZ, extBZ2, extXZ, extZSTD}

// detectFileType detects the partition body format from the file name,
// looking through a trailing compression extension.
func detectFileType(path string) FileType {
	base := trimCompressionExt(path)
	switch strings.ToLower(filepath.Ext(base)) {
	case extCSV:
		return FileTypeCSV
	case extTSV:
		return FileTypeTSV
	case extXLSX:
		return FileTypeXLSX
	default:
		return FileTypeUnsupported
	}
}

// trimCompressionExt removes a trailing compression extension, if any.
func trimCompressionExt(path string) string {
	lower := strings.ToLower(path)
	for _, ext := range compressionExts {
		if strings.HasSuffix(lower, ext) {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}

// isSupportedFile reports whether the file name carries a supported body
// extension, optionally followed by a compression extension.
func isSupportedFile(fileName string) bool {
	return detectFileType(fileName) != FileTypeUnsupported
}

// partitionStem returns the file name with compression and body extensions
// removed: "2020full.csv.gz" becomes "2020full".
func partitionStem(fileName string) string {
	base := trimCompressionExt(filepath.Base(fileName))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

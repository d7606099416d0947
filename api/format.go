package api

import "strings"

// Format identifies how an image is laid out on disk. There are exactly two
// physical layouts: a single flat binary file, and a directory holding one
// image file per z-slice.
type Format uint8

const (
	// FormatRaw is a single file containing a raw little-endian element
	// dump in row-major order.
	FormatRaw Format = iota

	// FormatSequence is a directory of per-slice image files, ordered by
	// z index.
	FormatSequence
)

// FormatOf derives the storage format from a path by the flat-binary
// filename convention: anything ending in ".raw" is flat, everything else is
// a slice sequence. The two cases are exhaustive and mutually exclusive.
func FormatOf(path string) Format {
	if strings.HasSuffix(path, ".raw") {
		return FormatRaw
	}
	return FormatSequence
}

func (f Format) String() string {
	if f == FormatRaw {
		return "raw"
	}
	return "sequence"
}

package decoder

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// StdinPath selects standard input as a raw frame stream.
const StdinPath = "-"

// SupportedVideoExtensions returns the container extensions offered for
// analysis. ffmpeg may accept more.
func SupportedVideoExtensions() []string {
	return []string{".mkv", ".mp4", ".mov", ".ts", ".m2ts", ".webm", ".hevc", ".265"}
}

// RawStreamExtensions returns extensions of pre-decoded plane dumps,
// optionally compressed.
func RawStreamExtensions() []string {
	return []string{".raw", ".gbrp", ".rgb48"}
}

// IsRawStream reports whether path names a raw plane dump rather than a
// video container, looking through a compression suffix.
func IsRawStream(path string) bool {
	if path == StdinPath {
		return true
	}
	name := strings.ToLower(filepath.Base(path))
	for _, ext := range []string{".xz", ".gz", ".bz2"} {
		name = strings.TrimSuffix(name, ext)
	}
	return slices.Contains(RawStreamExtensions(), filepath.Ext(name))
}

// IsVideoFile reports whether path has a known video container extension.
func IsVideoFile(path string) bool {
	return slices.Contains(SupportedVideoExtensions(), strings.ToLower(filepath.Ext(path)))
}

// ValidateInputPath checks that path can be analysed: it must exist, be a
// regular file and must not be an analysis CSV.
func ValidateInputPath(path string) error {
	if path == "" {
		return fmt.Errorf("input path cannot be empty")
	}
	if path == StdinPath {
		return nil
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return fmt.Errorf("%s is a CSV file; use the plot command for analysis results", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file not found: %s", path)
		}
		return fmt.Errorf("failed to stat input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	return nil
}

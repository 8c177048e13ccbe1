package ioutils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxFileNameLength caps the byte length of a sanitized file or folder name.
// Most file systems limit a single path component to 255 bytes; the margin
// leaves room for an extension and a collision suffix.
const MaxFileNameLength = 200

var (
	invalidChars    = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	trailingDots    = regexp.MustCompile(`\.+$`)
	repeatedSpacing = regexp.MustCompile(`\s+`)
)

// WriteFile writes data to a file, creating it if necessary.
//
// The file is created with mode 0644. If the file already exists,
// it is truncated before writing.
//
// Example:
//
//	playlistContent := []byte("#EXTM3U\n...")
//	err := WriteFile(ctx, "/music/playlist.m3u", playlistContent)
func WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SanitizeFileName turns an arbitrary title into a single safe path component.
//
// The following transformations are applied:
//   - Path separators, reserved characters (<>:"|?*) and control
//     characters → underscore
//   - Runs of whitespace → single space, surrounding whitespace trimmed
//   - Trailing dots → removed (Windows limitation, and ".." collapses to "")
//   - Names longer than MaxFileNameLength bytes are cut on a rune boundary
//
// The result never contains a separator and is never "." or "..", so joining
// it to a directory cannot leave that directory. It may be empty; callers
// pick their own fallback name.
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2")  // Returns "Song_ Part 1_2"
//	SanitizeFileName("../../etc/passwd") // Returns ".._.._etc_passwd"
//	SanitizeFileName("...")              // Returns ""
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = repeatedSpacing.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = trailingDots.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	if len(name) > MaxFileNameLength {
		cut := MaxFileNameLength
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimSpace(name[:cut])
		name = trailingDots.ReplaceAllString(name, "")
	}

	return name
}

// ErrOutsideDir is returned by Within when a path resolves outside its base
// directory.
var ErrOutsideDir = errors.New("path is outside the output directory")

// Within checks that target, once cleaned, lies inside dir.
//
// Both paths are made absolute first so relative output directories such as
// "." are handled.
func Within(dir, target string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(absDir, absTarget)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrOutsideDir, target)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrOutsideDir, target)
	}
	return nil
}

// UniquePath returns path unchanged if nothing exists there, otherwise the
// first free variant with a numeric suffix before the extension:
//
//	UniquePath("/music/Song.mp3") // "/music/Song (2).mp3" if Song.mp3 exists
func UniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for counter := 2; ; counter++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, counter, ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ioutils "github.com/handiism/soundcloud-downloader/internal/io"
)

var (
	// ErrNoStream is returned by NewTrack when the metadata carries no
	// stream URL. Such a track is skipped, never downloaded.
	ErrNoStream = errors.New("track has no stream URL")

	// ErrPathEscapes is returned when a computed path would leave the
	// configured output directory.
	ErrPathEscapes = errors.New("computed path escapes the output directory")
)

// fallbackFileName is used when a title sanitizes to nothing.
const fallbackFileName = "audio"

// TrackMetadata is the result of resolving one SoundCloud track.
//
// It is produced from a single API response plus the stream URL
// materialisation call and is not modified afterwards.
type TrackMetadata struct {
	// ID is the SoundCloud track ID.
	ID int64

	// Title is the track title as shown on SoundCloud.
	Title string

	// Artist is the uploader's display name.
	Artist string

	// Genre is the free-form genre, possibly empty.
	Genre string

	// Duration is the full track length in seconds.
	Duration float64

	// ReleaseDate is the release date if set, otherwise the upload date.
	ReleaseDate time.Time

	// ArtworkURL points at the largest known artwork rendition. Empty when
	// neither the track nor its uploader has artwork.
	ArtworkURL string

	// PermalinkURL is the canonical public URL of the track.
	PermalinkURL string

	// StreamURL is the signed, time-limited media URL. For the "hls"
	// protocol it points at an M3U8 playlist.
	StreamURL string

	// Protocol is the transcoding protocol, "progressive" or "hls".
	Protocol string

	// Format describes the media container and file extension.
	Format Format
}

// Track is the download plan for one track: its metadata plus the local file
// it will be written to.
//
// Example:
//
//	cfg := &TrackConfig{OutputDir: "/music", FileNameFormat: "{artist} - {title}"}
//	track, err := NewTrack(meta, nil, 1, cfg)
//	// track.Path = "/music/Artist - Track X.mp3"
type Track struct {
	*TrackMetadata

	// Playlist is the set this track was resolved from, nil for single tracks.
	Playlist *Playlist

	// Number is the 1-based position inside the playlist (1 for single tracks).
	Number int

	// Path is the computed local file path, extension included.
	Path string
}

// TrackConfig holds track path formatting settings.
//
// FileNameFormat supports these placeholders:
//   - {artist} - Uploader name
//   - {title} - Track title
//   - {tracknum} - Position in the playlist (2 digits, zero-padded)
//   - {year} - Release year
//   - {id} - SoundCloud track ID
//   - {playlist} - Playlist title (empty for single tracks)
//
// The extension is appended from the stream format and must not be part of
// the template.
type TrackConfig struct {
	// OutputDir is where single tracks are written. Playlist tracks go to
	// the playlist's folder instead.
	OutputDir string

	// FileNameFormat is the template for file names, without extension.
	FileNameFormat string
}

// NewTrack creates a Track with a computed path.
//
// It fails with ErrNoStream when meta has no stream URL, with
// ErrUnsupportedFormat when the format has no extension and with
// ErrPathEscapes when the file name template would leave the output folder.
func NewTrack(meta *TrackMetadata, playlist *Playlist, number int, cfg *TrackConfig) (*Track, error) {
	if meta == nil || meta.StreamURL == "" {
		return nil, ErrNoStream
	}
	if meta.Format.Extension == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, meta.Format.MimeType)
	}
	if number < 1 {
		number = 1
	}

	track := &Track{
		TrackMetadata: meta,
		Playlist:      playlist,
		Number:        number,
	}

	dir := cfg.OutputDir
	if playlist != nil {
		dir = playlist.Path
	}
	if dir == "" {
		dir = "."
	}

	path := filepath.Join(dir, track.parseFileName(cfg)+meta.Format.Extension)
	if err := ioutils.Within(dir, path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPathEscapes, err)
	}
	track.Path = path

	return track, nil
}

// DisplayName returns "Artist - Title" for messages.
func (t *Track) DisplayName() string {
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// parseFileName computes the file name (without extension) from the template.
func (t *Track) parseFileName(cfg *TrackConfig) string {
	playlistTitle := ""
	if t.Playlist != nil {
		playlistTitle = t.Playlist.Title
	}

	year := ""
	if !t.ReleaseDate.IsZero() {
		year = t.ReleaseDate.Format("2006")
	}

	fileName := cfg.FileNameFormat
	fileName = strings.ReplaceAll(fileName, "{year}", year)
	fileName = strings.ReplaceAll(fileName, "{playlist}", playlistTitle)
	fileName = strings.ReplaceAll(fileName, "{artist}", t.Artist)
	fileName = strings.ReplaceAll(fileName, "{title}", t.Title)
	fileName = strings.ReplaceAll(fileName, "{tracknum}", fmt.Sprintf("%02d", t.Number))
	fileName = strings.ReplaceAll(fileName, "{id}", strconv.FormatInt(t.ID, 10))

	return safeName(fileName)
}

// safeName sanitizes a single path component, falling back to a fixed name
// when nothing printable is left.
func safeName(name string) string {
	name = ioutils.SanitizeFileName(name)
	if name == "" {
		return fallbackFileName
	}
	return name
}

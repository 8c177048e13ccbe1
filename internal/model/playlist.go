package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ioutils "github.com/handiism/soundcloud-downloader/internal/io"
)

// PlaylistMetadata describes a SoundCloud set as returned by the API.
type PlaylistMetadata struct {
	// ID is the SoundCloud playlist ID.
	ID int64

	// Title is the playlist title.
	Title string

	// Artist is the playlist owner's display name.
	Artist string

	// ArtworkURL is the playlist artwork, empty if none.
	ArtworkURL string

	// PermalinkURL is the canonical public URL of the playlist.
	PermalinkURL string

	// ReleaseDate is the release or creation date.
	ReleaseDate time.Time

	// TrackCount is the number of tracks the API reports for the set.
	TrackCount int
}

// Playlist is a resolved set together with the local paths computed for it.
//
// Paths are computed when creating a playlist via NewPlaylist, using
// placeholders like {artist} and {playlist}.
//
// Example:
//
//	cfg := &PathConfig{
//	    OutputDir:              "/music",
//	    PlaylistFolderFormat:   "{artist} - {playlist}",
//	    PlaylistFileNameFormat: "{playlist}",
//	    PlaylistFormat:         PlaylistFormatM3U,
//	}
//	pl, _ := NewPlaylist(meta, cfg)
//	// pl.Path = "/music/Some Artist - Night Drive"
//	// pl.PlaylistPath = "/music/Some Artist - Night Drive/Night Drive.m3u"
type Playlist struct {
	*PlaylistMetadata

	// Tracks holds the tracks that resolved to a downloadable stream.
	Tracks []*Track

	// Path is the local directory the playlist's tracks are written to.
	Path string

	// ArtworkPath is the local file for the cover art; empty without artwork.
	ArtworkPath string

	// PlaylistPath is the local playlist file (.m3u, .pls, ...).
	PlaylistPath string
}

// PathConfig holds path formatting settings for playlists.
//
// PlaylistFolderFormat and PlaylistFileNameFormat support:
//   - {artist} - Playlist owner
//   - {playlist} - Playlist title
//   - {year} - Release year
//
// An empty PlaylistFolderFormat writes playlist tracks directly into
// OutputDir. The folder format may contain "/" to create nested folders;
// placeholder values never can.
type PathConfig struct {
	// OutputDir is the base output directory.
	OutputDir string

	// PlaylistFolderFormat is the folder template below OutputDir.
	PlaylistFolderFormat string

	// PlaylistFileNameFormat is the playlist file template (without extension).
	PlaylistFileNameFormat string

	// CoverArtFileNameFormat is the cover art file template (without extension).
	CoverArtFileNameFormat string

	// PlaylistFormat determines the playlist file type and extension.
	PlaylistFormat PlaylistFormat
}

// PlaylistFormat represents supported playlist file formats.
type PlaylistFormat int

const (
	// PlaylistFormatM3U creates .m3u playlist files (most widely supported).
	PlaylistFormatM3U PlaylistFormat = iota

	// PlaylistFormatPLS creates .pls playlist files (used by Winamp).
	PlaylistFormatPLS

	// PlaylistFormatWPL creates .wpl playlist files (Windows Media Player).
	PlaylistFormatWPL

	// PlaylistFormatZPL creates .zpl playlist files (Zune Media Player).
	PlaylistFormatZPL
)

// ParsePlaylistFormat maps a settings value ("m3u", "pls", "wpl", "zpl") to
// a PlaylistFormat.
func ParsePlaylistFormat(s string) (PlaylistFormat, error) {
	switch strings.ToLower(s) {
	case "m3u", "":
		return PlaylistFormatM3U, nil
	case "pls":
		return PlaylistFormatPLS, nil
	case "wpl":
		return PlaylistFormatWPL, nil
	case "zpl":
		return PlaylistFormatZPL, nil
	default:
		return PlaylistFormatM3U, fmt.Errorf("unknown playlist format %q", s)
	}
}

// Extension returns the file extension for the playlist format, including the dot.
func (pf PlaylistFormat) Extension() string {
	switch pf {
	case PlaylistFormatM3U:
		return ".m3u"
	case PlaylistFormatPLS:
		return ".pls"
	case PlaylistFormatWPL:
		return ".wpl"
	case PlaylistFormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

// NewPlaylist creates a Playlist with computed paths.
//
// Returns ErrPathEscapes when the folder template resolves outside
// cfg.OutputDir.
func NewPlaylist(meta *PlaylistMetadata, cfg *PathConfig) (*Playlist, error) {
	pl := &Playlist{PlaylistMetadata: meta}

	base := cfg.OutputDir
	if base == "" {
		base = "."
	}

	pl.Path = base
	if folder := filepath.Clean(pl.expand(cfg.PlaylistFolderFormat)); folder != "." {
		pl.Path = filepath.Join(base, folder)
		if err := ioutils.Within(base, pl.Path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPathEscapes, err)
		}
	}

	pl.PlaylistPath = filepath.Join(pl.Path, safeName(pl.expand(cfg.PlaylistFileNameFormat))+cfg.PlaylistFormat.Extension())

	if pl.HasArtwork() {
		ext := filepath.Ext(strings.SplitN(pl.ArtworkURL, "?", 2)[0])
		if ext == "" {
			ext = ".jpg"
		}
		pl.ArtworkPath = filepath.Join(pl.Path, safeName(pl.expand(cfg.CoverArtFileNameFormat))+ext)
	}

	return pl, nil
}

// HasArtwork returns true if the playlist has cover art available for download.
func (p *Playlist) HasArtwork() bool {
	return p.ArtworkURL != ""
}

// expand substitutes placeholders with sanitized values. Literal "/" in the
// template are kept so folder formats can nest.
func (p *Playlist) expand(template string) string {
	year := ""
	if !p.ReleaseDate.IsZero() {
		year = p.ReleaseDate.Format("2006")
	}

	out := template
	out = strings.ReplaceAll(out, "{year}", year)
	out = strings.ReplaceAll(out, "{artist}", safeName(p.Artist))
	out = strings.ReplaceAll(out, "{playlist}", safeName(p.Title))
	return out
}

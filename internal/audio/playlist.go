package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ioutils "github.com/handiism/soundcloud-downloader/internal/io"
	"github.com/handiism/soundcloud-downloader/internal/model"
)

// PlaylistCreator generates playlist files in various formats.
//
// Each format has different features and compatibility:
//   - M3U: Simple text format, widely supported
//   - PLS: INI-style format, used by Winamp
//   - WPL: XML format, Windows Media Player
//   - ZPL: XML format, Zune/Groove Music
//
// Example:
//
//	creator := NewPlaylistCreator(model.PlaylistFormatM3U, true)
//	content := creator.CreatePlaylist(playlist)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:215,Artist - Track X
//	// Artist - Track X.mp3
type PlaylistCreator struct {
	format   model.PlaylistFormat
	extended bool // For M3U: include EXTINF lines with duration/title
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// extended only affects M3U output.
func NewPlaylistCreator(format model.PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// CreatePlaylist generates playlist content for the tracks of a playlist.
//
// Entries are paths relative to the playlist file's directory, so the
// playlist keeps working when the folder is moved.
func (p *PlaylistCreator) CreatePlaylist(pl *model.Playlist) string {
	switch p.format {
	case model.PlaylistFormatPLS:
		return p.createPLS(pl)
	case model.PlaylistFormatWPL:
		return p.createWPL(pl)
	case model.PlaylistFormatZPL:
		return p.createZPL(pl)
	default:
		return p.createM3U(pl)
	}
}

// Save writes the playlist to pl.PlaylistPath.
func (p *PlaylistCreator) Save(ctx context.Context, pl *model.Playlist) error {
	if err := ioutils.EnsureDir(filepath.Dir(pl.PlaylistPath)); err != nil {
		return err
	}
	return ioutils.WriteFile(ctx, pl.PlaylistPath, []byte(p.CreatePlaylist(pl)))
}

// createM3U generates an M3U playlist.
//
// Extended M3U format (when extended=true):
//
//	#EXTM3U
//	#EXTINF:215,Artist - Title
//	Artist - Title.mp3
func (p *PlaylistCreator) createM3U(pl *model.Playlist) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, track := range pl.Tracks {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:%d,%s - %s\n", int(track.Duration), track.Artist, track.Title)
		}
		sb.WriteString(entryPath(pl, track) + "\n")
	}

	return sb.String()
}

// createPLS generates a PLS playlist.
//
//	[playlist]
//	File1=Artist - Title.mp3
//	Title1=Artist - Title
//	Length1=215
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(pl *model.Playlist) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")

	for i, track := range pl.Tracks {
		idx := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", idx, entryPath(pl, track))
		fmt.Fprintf(&sb, "Title%d=%s - %s\n", idx, track.Artist, track.Title)
		fmt.Fprintf(&sb, "Length%d=%d\n", idx, int(track.Duration))
	}

	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(pl.Tracks))
	sb.WriteString("Version=2\n")

	return sb.String()
}

func (p *PlaylistCreator) createWPL(pl *model.Playlist) string {
	var sb strings.Builder

	sb.WriteString("<?wpl version=\"1.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(pl.Title))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, track := range pl.Tracks {
		fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", escapeXML(entryPath(pl, track)))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// createZPL is WPL plus per-entry metadata attributes.
func (p *PlaylistCreator) createZPL(pl *model.Playlist) string {
	var sb strings.Builder

	sb.WriteString("<?zpl version=\"2.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(pl.Title))
	sb.WriteString("    <meta name=\"Generator\" content=\"SoundCloudDownloader\"/>\n")
	fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(pl.Tracks))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, track := range pl.Tracks {
		duration := time.Duration(track.Duration * float64(time.Second))
		fmt.Fprintf(&sb, "      <media src=\"%s\" albumTitle=\"%s\" albumArtist=\"%s\" trackTitle=\"%s\" trackArtist=\"%s\" duration=\"%d\"/>\n",
			escapeXML(entryPath(pl, track)),
			escapeXML(pl.Title),
			escapeXML(pl.Artist),
			escapeXML(track.Title),
			escapeXML(track.Artist),
			duration.Milliseconds())
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// entryPath returns the track path relative to the playlist file, falling
// back to the bare file name.
func entryPath(pl *model.Playlist, track *model.Track) string {
	if pl.PlaylistPath != "" {
		if rel, err := filepath.Rel(filepath.Dir(pl.PlaylistPath), track.Path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(track.Path)
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

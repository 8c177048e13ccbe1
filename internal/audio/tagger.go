package audio

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bogem/id3v2"
	"github.com/gabriel-vasile/mimetype"

	"github.com/handiism/soundcloud-downloader/internal/model"
)

// ErrNotMP3 is returned when tagging is requested for a file that is not an
// MP3. ID3 frames inside an MP4 or Ogg container would corrupt it.
var ErrNotMP3 = errors.New("id3 tags can only be written to mp3 files")

// TagEditAction defines how to handle individual ID3 tags.
//
// Each tag field can be configured independently to determine whether
// it should be modified, cleared, or left unchanged.
type TagEditAction int

const (
	// TagEmpty clears the tag value (sets to empty string).
	TagEmpty TagEditAction = iota

	// TagModify updates the tag with the value from SoundCloud.
	TagModify

	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags:  true,
//	    Artist:      TagModify,      // uploader
//	    Album:       TagModify,      // playlist title
//	    TrackTitle:  TagModify,
//	    Year:        TagModify,      // from release or upload date
//	    Comments:    TagModify,      // permalink
//	    AlbumArtist: TagDoNotModify,
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no string tags are modified.
	ModifyTags bool

	// Artist controls the TPE1 (Lead artist) frame.
	Artist TagEditAction

	// AlbumArtist controls the TPE2 (Album artist) frame, set to the
	// playlist owner.
	AlbumArtist TagEditAction

	// Album controls the TALB (Album title) frame, set to the playlist
	// title. Single tracks leave it untouched.
	Album TagEditAction

	// Year controls the release year: TYER in ID3v2.3, TDRC in ID3v2.4.
	Year TagEditAction

	// Date controls the full release date: TDAT (DDMM) in ID3v2.3, TDRC
	// in ID3v2.4. In ID3v2.4 it takes precedence over Year, since both
	// share TDRC.
	Date TagEditAction

	// TrackNumber controls the TRCK (Track number) frame.
	TrackNumber TagEditAction

	// TrackTitle controls the TIT2 (Title) frame.
	TrackTitle TagEditAction

	// Genre controls the TCON (Content type) frame.
	Genre TagEditAction

	// Comments controls the COMM (Comments) frame, set to the permalink.
	Comments TagEditAction
}

// DefaultTagConfig returns the default tag configuration: every field is
// written from SoundCloud data.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:  true,
		Artist:      TagModify,
		AlbumArtist: TagModify,
		Album:       TagModify,
		Year:        TagModify,
		Date:        TagModify,
		TrackNumber: TagModify,
		TrackTitle:  TagModify,
		Genre:       TagModify,
		Comments:    TagModify,
	}
}

// Tagger writes ID3 tags to downloaded MP3 files.
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//	if err := tagger.SaveTags(track, artworkBytes); err != nil {
//	    log.Warnf("could not tag %s: %v", track.Path, err)
//	}
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// TagSize returns the size in bytes of the ID3v2 tag at the start of the
// file at path, or 0 when it has none or cannot be read.
func TagSize(path string) int64 {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return 0
	}
	defer tag.Close()
	if !tag.HasFrames() {
		return 0
	}
	return int64(tag.Size())
}

// SaveTags writes ID3 tags to the track's file.
//
// Cover art is embedded when artwork is non-nil; its MIME type is sniffed.
// Files that are not MP3 are left untouched and ErrNotMP3 is returned.
func (t *Tagger) SaveTags(track *model.Track, artwork []byte) error {
	if !track.Format.IsMP3() {
		return ErrNotMP3
	}

	tag, err := id3v2.Open(track.Path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("tag %s: %w", track.Path, err)
	}
	defer tag.Close()

	if t.config.ModifyTags {
		t.updateStringTags(tag, track)
	}

	if artwork != nil {
		t.updateArtwork(tag, artwork)
	}

	return tag.Save()
}

func (t *Tagger) updateStringTags(tag *id3v2.Tag, track *model.Track) {
	// ID3v2.3 has no UTF-8 text encoding.
	enc := id3v2.EncodingUTF8
	if tag.Version() == 3 {
		enc = id3v2.EncodingUTF16
	}
	tag.SetDefaultEncoding(enc)

	switch t.config.Artist {
	case TagEmpty:
		tag.SetArtist("")
	case TagModify:
		tag.SetArtist(track.Artist)
	}

	switch t.config.TrackTitle {
	case TagEmpty:
		tag.SetTitle("")
	case TagModify:
		tag.SetTitle(track.Title)
	}

	switch t.config.Genre {
	case TagEmpty:
		tag.SetGenre("")
	case TagModify:
		tag.SetGenre(track.Genre)
	}

	t.updateDates(tag, track)

	switch t.config.Comments {
	case TagEmpty:
		tag.DeleteFrames(tag.CommonID("Comments"))
	case TagModify:
		if track.PermalinkURL != "" {
			tag.DeleteFrames(tag.CommonID("Comments"))
			tag.AddCommentFrame(id3v2.CommentFrame{
				Encoding:    tag.DefaultEncoding(),
				Language:    "eng",
				Description: "",
				Text:        track.PermalinkURL,
			})
		}
	}

	// Playlist-derived frames only apply to tracks downloaded as part of a set.
	if track.Playlist == nil {
		return
	}

	switch t.config.Album {
	case TagEmpty:
		tag.SetAlbum("")
	case TagModify:
		tag.SetAlbum(track.Playlist.Title)
	}

	switch t.config.AlbumArtist {
	case TagEmpty:
		tag.DeleteFrames("TPE2")
	case TagModify:
		tag.AddTextFrame("TPE2", tag.DefaultEncoding(), track.Playlist.Artist)
	}

	switch t.config.TrackNumber {
	case TagEmpty:
		tag.DeleteFrames("TRCK")
	case TagModify:
		tag.AddTextFrame("TRCK", tag.DefaultEncoding(), strconv.Itoa(track.Number))
	}
}

// updateDates writes the release date in the frames of the tag's version.
func (t *Tagger) updateDates(tag *id3v2.Tag, track *model.Track) {
	released := !track.ReleaseDate.IsZero()

	if tag.Version() == 3 {
		setTextFrame(tag, "TYER", t.config.Year, released, track.ReleaseDate.Format("2006"))
		setTextFrame(tag, "TDAT", t.config.Date, released, track.ReleaseDate.Format("0201"))
		return
	}

	switch {
	case t.config.Date == TagModify:
		setTextFrame(tag, "TDRC", TagModify, released, track.ReleaseDate.Format("2006-01-02"))
	case t.config.Year == TagModify:
		setTextFrame(tag, "TDRC", TagModify, released, track.ReleaseDate.Format("2006"))
	case t.config.Date == TagEmpty || t.config.Year == TagEmpty:
		tag.DeleteFrames("TDRC")
	}
}

// setTextFrame applies action to a text frame. TagModify only writes when
// ok is set, so a missing value never clears an existing frame.
func setTextFrame(tag *id3v2.Tag, id string, action TagEditAction, ok bool, value string) {
	switch action {
	case TagEmpty:
		tag.DeleteFrames(id)
	case TagModify:
		if ok {
			tag.AddTextFrame(id, tag.DefaultEncoding(), value)
		}
	}
}

// updateArtwork embeds cover art as an attached picture frame.
func (t *Tagger) updateArtwork(tag *id3v2.Tag, artwork []byte) {
	tag.DeleteFrames(tag.CommonID("Attached picture"))

	pic := id3v2.PictureFrame{
		Encoding:    tag.DefaultEncoding(),
		MimeType:    mimetype.Detect(artwork).String(),
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	}
	tag.AddAttachedPicture(pic)
}

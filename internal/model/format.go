package model

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

// ErrUnsupportedFormat is returned when a stream's MIME type has no known
// file extension. The track is reported instead of being saved under a
// misleading extension.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format describes the container of a stream and how it is saved locally.
type Format struct {
	// MimeType is the media type without parameters, e.g. "audio/mpeg".
	MimeType string

	// Codecs is the value of the "codecs" parameter, if any.
	Codecs string

	// Extension is the file extension including the dot, e.g. ".mp3".
	Extension string

	// Sniffed lists the media types a content sniffer may report for a
	// file of this format.
	Sniffed []string
}

type formatEntry struct {
	extension string
	sniffed   []string
}

var formats = map[string]formatEntry{
	"audio/mpeg":  {".mp3", []string{"audio/mpeg"}},
	"audio/mp3":   {".mp3", []string{"audio/mpeg"}},
	"audio/mp4":   {".m4a", []string{"audio/mp4", "audio/x-m4a", "video/mp4"}},
	"audio/aac":   {".aac", []string{"audio/aac"}},
	"audio/ogg":   {".ogg", []string{"audio/ogg", "application/ogg", "audio/opus"}},
	"audio/opus":  {".opus", []string{"audio/ogg", "application/ogg", "audio/opus"}},
	"audio/flac":  {".flac", []string{"audio/flac"}},
	"audio/wav":   {".wav", []string{"audio/wav", "audio/x-wav"}},
	"audio/x-wav": {".wav", []string{"audio/wav", "audio/x-wav"}},
}

// FormatFor maps a MIME type as reported by the API to a Format.
//
// Parameters are honoured where they change the container naming:
//
//	FormatFor(`audio/ogg; codecs="opus"`) // Extension ".opus"
//	FormatFor("audio/mpeg")               // Extension ".mp3"
//
// Unknown types return ErrUnsupportedFormat.
func FormatFor(mimeType string) (Format, error) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}

	entry, ok := formats[mediaType]
	if !ok {
		return Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mediaType)
	}

	f := Format{
		MimeType:  mediaType,
		Codecs:    params["codecs"],
		Extension: entry.extension,
		Sniffed:   entry.sniffed,
	}
	if mediaType == "audio/ogg" && strings.Contains(strings.ToLower(f.Codecs), "opus") {
		f.Extension = ".opus"
	}

	return f, nil
}

// IsMP3 reports whether files of this format can carry ID3 tags.
func (f Format) IsMP3() bool {
	return f.Extension == ".mp3"
}

// String returns the media type with its codecs, for display.
func (f Format) String() string {
	if f.Codecs != "" {
		return fmt.Sprintf("%s (%s)", f.MimeType, f.Codecs)
	}
	return f.MimeType
}

package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/handiism/soundcloud-downloader/internal/model"
)

// Resource kinds returned by the resolve endpoint.
const (
	KindTrack          = "track"
	KindPlaylist       = "playlist"
	KindSystemPlaylist = "system-playlist"
	KindUser           = "user"
)

// PolicyBlock marks a track that cannot be played in the requesting
// region (geo restriction) or at all (takedown).
const PolicyBlock = "BLOCK"

// SoundCloudTime is a time type that accepts the date formats seen in
// SoundCloud API responses, as well as null and empty strings.
type SoundCloudTime struct {
	time.Time
}

// UnmarshalJSON parses "2023-05-15T10:00:00Z" and the legacy
// "2023/05/15 10:00:00 +0000" format.
func (st *SoundCloudTime) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s == nil || *s == "" {
		st.Time = time.Time{}
		return nil
	}

	formats := []string{
		time.RFC3339,
		"2006/01/02 15:04:05 -0700",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, *s); err == nil {
			st.Time = t
			return nil
		}
	}

	return fmt.Errorf("unable to parse date: %s", *s)
}

// Resource is the body of /resolve, /tracks and the entries of a playlist's
// "tracks" array. Only the fields the downloader uses are declared.
type Resource struct {
	Kind               string          `json:"kind"`
	ID                 int64           `json:"id"`
	Title              string          `json:"title"`
	PermalinkURL       string          `json:"permalink_url"`
	ArtworkURL         string          `json:"artwork_url"`
	Genre              string          `json:"genre"`
	Duration           int64           `json:"duration"`
	FullDuration       int64           `json:"full_duration"`
	CreatedAt          *SoundCloudTime `json:"created_at"`
	ReleaseDate        *SoundCloudTime `json:"release_date"`
	Policy             string          `json:"policy"`
	TrackAuthorization string          `json:"track_authorization"`
	User               *User           `json:"user"`
	Media              *Media          `json:"media"`
	Tracks             []Resource      `json:"tracks"`
	TrackCount         int             `json:"track_count"`
}

// User is the uploader or owner of a resource.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Media lists the encodings a track is offered in.
type Media struct {
	Transcodings []Transcoding `json:"transcodings"`
}

// Transcoding is one encoded variant of a track. URL is not the media
// itself: it must be requested with a client_id to obtain a signed stream
// URL.
type Transcoding struct {
	URL     string            `json:"url"`
	Preset  string            `json:"preset"`
	Quality string            `json:"quality"`
	Snipped bool              `json:"snipped"`
	Format  TranscodingFormat `json:"format"`
}

// TranscodingFormat is the delivery protocol and media type of a transcoding.
type TranscodingFormat struct {
	Protocol string `json:"protocol"`
	MimeType string `json:"mime_type"`
}

// StreamResponse is the body returned when a transcoding URL is requested.
type StreamResponse struct {
	URL string `json:"url"`
}

// IsStub reports whether a playlist entry carries only an ID. The API
// returns full objects for the first few tracks of a set and stubs for the
// rest.
func (r *Resource) IsStub() bool {
	return r.Title == "" || r.Media == nil
}

// IsBlocked reports whether the track is geo-restricted or taken down.
func (r *Resource) IsBlocked() bool {
	return strings.EqualFold(r.Policy, PolicyBlock)
}

// ArtistName returns the uploader name, or "Unknown Artist".
func (r *Resource) ArtistName() string {
	if r.User != nil {
		if name := strings.TrimSpace(r.User.Username); name != "" {
			return name
		}
	}
	return "Unknown Artist"
}

// Label returns a human-readable name for messages, even for stubs.
func (r *Resource) Label() string {
	if r.Title != "" {
		return fmt.Sprintf("%s - %s", r.ArtistName(), r.Title)
	}
	return fmt.Sprintf("track %d", r.ID)
}

// BestArtworkURL returns the 500x500 rendition of the resource's artwork,
// falling back to the uploader's avatar.
func (r *Resource) BestArtworkURL() string {
	artwork := r.ArtworkURL
	if artwork == "" && r.User != nil {
		artwork = r.User.AvatarURL
	}
	if artwork == "" {
		return ""
	}
	return strings.Replace(artwork, "-large.", "-t500x500.", 1)
}

// Released returns the release date when set, otherwise the upload date.
func (r *Resource) Released() time.Time {
	if r.ReleaseDate != nil && !r.ReleaseDate.IsZero() {
		return r.ReleaseDate.Time
	}
	if r.CreatedAt != nil {
		return r.CreatedAt.Time
	}
	return time.Time{}
}

// ToTrackMetadata converts a track resource plus its materialised stream
// into model.TrackMetadata.
func (r *Resource) ToTrackMetadata(streamURL, protocol string, format model.Format) *model.TrackMetadata {
	duration := r.FullDuration
	if duration == 0 {
		duration = r.Duration
	}

	title := r.Title
	if title == "" {
		title = "audio"
	}

	return &model.TrackMetadata{
		ID:           r.ID,
		Title:        title,
		Artist:       r.ArtistName(),
		Genre:        r.Genre,
		Duration:     float64(duration) / 1000,
		ReleaseDate:  r.Released(),
		ArtworkURL:   r.BestArtworkURL(),
		PermalinkURL: r.PermalinkURL,
		StreamURL:    streamURL,
		Protocol:     protocol,
		Format:       format,
	}
}

// ToPlaylistMetadata converts a playlist resource into model.PlaylistMetadata.
func (r *Resource) ToPlaylistMetadata() *model.PlaylistMetadata {
	count := r.TrackCount
	if count == 0 {
		count = len(r.Tracks)
	}

	return &model.PlaylistMetadata{
		ID:           r.ID,
		Title:        r.Title,
		Artist:       r.ArtistName(),
		ArtworkURL:   r.BestArtworkURL(),
		PermalinkURL: r.PermalinkURL,
		ReleaseDate:  r.Released(),
		TrackCount:   count,
	}
}

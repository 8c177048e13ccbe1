package soundcloud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/handiism/soundcloud-downloader/internal/model"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud/dto"
)

// Preference is one acceptable transcoding, e.g. progressive audio/mpeg.
type Preference struct {
	Protocol string
	MimeType string
}

func (p Preference) String() string {
	return p.Protocol + ":" + p.MimeType
}

// DefaultPreferences accepts only the progressive MP3 stream.
var DefaultPreferences = []Preference{{Protocol: "progressive", MimeType: "audio/mpeg"}}

// HLSPreference is appended when HLS fallback is allowed.
var HLSPreference = Preference{Protocol: "hls", MimeType: "audio/mpeg"}

// ParsePreferences parses "protocol:mime" entries in priority order.
func ParsePreferences(entries []string) ([]Preference, error) {
	prefs := make([]Preference, 0, len(entries))
	for _, e := range entries {
		protocol, mimeType, ok := strings.Cut(strings.TrimSpace(e), ":")
		if !ok || protocol == "" || mimeType == "" {
			return nil, fmt.Errorf("invalid transcoding preference %q, want protocol:mime", e)
		}
		prefs = append(prefs, Preference{
			Protocol: strings.ToLower(protocol),
			MimeType: strings.ToLower(mimeType),
		})
	}
	if len(prefs) == 0 {
		return nil, errors.New("no transcoding preferences")
	}
	return prefs, nil
}

// SelectTranscoding returns the first transcoding matching the highest
// priority preference. Preview (snipped) transcodings never match.
//
// The MIME comparison ignores parameters, so "audio/ogg" matches
// `audio/ogg; codecs="opus"`.
func SelectTranscoding(transcodings []dto.Transcoding, prefs []Preference) (*dto.Transcoding, bool) {
	for _, pref := range prefs {
		for i := range transcodings {
			t := &transcodings[i]
			if t.Snipped || t.URL == "" {
				continue
			}
			if !strings.EqualFold(t.Format.Protocol, pref.Protocol) {
				continue
			}
			if baseMime(t.Format.MimeType) == pref.MimeType {
				return t, true
			}
		}
	}
	return nil, false
}

func baseMime(m string) string {
	base, _, _ := strings.Cut(m, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// Item is one entry of a Resolution. Exactly one of Metadata and Err is set.
type Item struct {
	// Label names the entry for messages even when resolution failed.
	Label    string
	Metadata *model.TrackMetadata
	Err      error
}

// Resolution is the outcome of resolving a URL that may be a track or a
// playlist. Playlist is nil for single tracks.
type Resolution struct {
	Playlist *model.PlaylistMetadata
	Items    []Item
}

// Playable returns the number of items that resolved successfully.
func (r *Resolution) Playable() int {
	n := 0
	for _, it := range r.Items {
		if it.Err == nil {
			n++
		}
	}
	return n
}

// Resolver turns SoundCloud URLs into downloadable track metadata.
//
// Example:
//
//	resolver := NewResolver(NewAPI(client, ""), DefaultPreferences)
//	meta, err := resolver.Resolve(ctx, "https://soundcloud.com/artist/track-x", token)
//	if IsKind(err, Unplayable) {
//	    // geo-blocked, preview-only or no MP3
//	}
type Resolver struct {
	api   *API
	prefs []Preference
}

// NewResolver creates a Resolver. Nil or empty prefs select
// DefaultPreferences.
func NewResolver(api *API, prefs []Preference) *Resolver {
	if len(prefs) == 0 {
		prefs = DefaultPreferences
	}
	return &Resolver{api: api, prefs: prefs}
}

// Resolve resolves a track URL to metadata with a materialised stream URL.
//
// A URL that resolves to a playlist fails with Unsupported; use ResolveURL
// to accept both.
func (r *Resolver) Resolve(ctx context.Context, contentURL string, token ClientToken) (*model.TrackMetadata, error) {
	res, err := r.api.Resolve(ctx, contentURL, token)
	if err != nil {
		return nil, err
	}
	if res.Kind != dto.KindTrack {
		return nil, newResolutionError(Unsupported, contentURL, fmt.Sprintf("url is a %s, not a track", res.Kind), nil)
	}
	return r.ResolveTrack(ctx, res, token)
}

// ResolveURL resolves a track or playlist URL.
//
// For playlists every contained track is resolved in API order. A track that
// fails is recorded on its Item and does not stop the others, and neither
// does a failed batch fetch of stub tracks: only the stubs fail, each with a
// NetworkError. A playlist with no tracks fails with NotFound.
func (r *Resolver) ResolveURL(ctx context.Context, contentURL string, token ClientToken) (*Resolution, error) {
	logger := log.WithField("component", "resolver")

	res, err := r.api.Resolve(ctx, contentURL, token)
	if err != nil {
		return nil, err
	}

	switch res.Kind {
	case dto.KindTrack:
		meta, err := r.ResolveTrack(ctx, res, token)
		if err != nil {
			return nil, err
		}
		return &Resolution{Items: []Item{{Label: res.Label(), Metadata: meta}}}, nil

	case dto.KindPlaylist, dto.KindSystemPlaylist:
		if len(res.Tracks) == 0 {
			return nil, newResolutionError(NotFound, contentURL, "playlist is empty", nil)
		}

		tracks, hydrateErr := r.hydrate(ctx, res.Tracks, token)
		if hydrateErr != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			logger.Warnf("%s: %v", res.Label(), hydrateErr)
		}

		resolution := &Resolution{Playlist: res.ToPlaylistMetadata()}
		for i := range tracks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			t := &tracks[i]
			item := Item{Label: t.Label()}
			if hydrateErr != nil && t.IsStub() {
				item.Err = newResolutionError(NetworkError, t.PermalinkURL, "could not fetch track details", hydrateErr)
			} else {
				item.Metadata, item.Err = r.ResolveTrack(ctx, t, token)
			}
			if item.Err != nil {
				logger.Debugf("%s: %v", item.Label, item.Err)
			}
			resolution.Items = append(resolution.Items, item)
		}
		return resolution, nil

	default:
		return nil, newResolutionError(Unsupported, contentURL, fmt.Sprintf("cannot download a %s", res.Kind), nil)
	}
}

// ResolveTrack selects a transcoding for an already fetched track resource
// and materialises its stream URL.
func (r *Resolver) ResolveTrack(ctx context.Context, track *dto.Resource, token ClientToken) (*model.TrackMetadata, error) {
	if track.Title == "" {
		return nil, newResolutionError(NotFound, track.PermalinkURL, fmt.Sprintf("%s is unavailable", track.Label()), nil)
	}
	if track.IsBlocked() {
		return nil, newResolutionError(Unplayable, track.PermalinkURL, "track is blocked in this region or was taken down", nil)
	}

	var transcodings []dto.Transcoding
	if track.Media != nil {
		transcodings = track.Media.Transcodings
	}

	transcoding, ok := SelectTranscoding(transcodings, r.prefs)
	if !ok {
		return nil, newResolutionError(Unplayable, track.PermalinkURL, "no acceptable transcoding", nil)
	}

	format, err := model.FormatFor(transcoding.Format.MimeType)
	if err != nil {
		return nil, newResolutionError(Unplayable, track.PermalinkURL, "unsupported stream format", err)
	}

	streamURL, err := r.api.StreamURL(ctx, transcoding.URL, track.TrackAuthorization, token)
	if err != nil {
		var re *ResolutionError
		if errors.As(err, &re) && re.URL == "" {
			re.URL = track.PermalinkURL
		}
		return nil, err
	}

	return track.ToTrackMetadata(streamURL, transcoding.Format.Protocol, format), nil
}

// hydrate replaces playlist stubs with full track objects, keeping order.
// Stubs the API no longer returns stay as stubs and fail in ResolveTrack.
// On error the tracks are returned unchanged along with it.
func (r *Resolver) hydrate(ctx context.Context, tracks []dto.Resource, token ClientToken) ([]dto.Resource, error) {
	var ids []int64
	for _, t := range tracks {
		if t.IsStub() {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return tracks, nil
	}

	log.WithField("component", "resolver").Debugf("hydrating %d playlist tracks", len(ids))

	full, err := r.api.Tracks(ctx, ids, token)
	if err != nil {
		return tracks, err
	}

	byID := make(map[int64]dto.Resource, len(full))
	for _, t := range full {
		byID[t.ID] = t
	}

	out := make([]dto.Resource, len(tracks))
	for i, t := range tracks {
		if f, ok := byID[t.ID]; ok && t.IsStub() {
			out[i] = f
		} else {
			out[i] = t
		}
	}
	return out, nil
}

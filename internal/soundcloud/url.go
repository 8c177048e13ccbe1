package soundcloud

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	httpclient "github.com/handiism/soundcloud-downloader/internal/http"
)

// ErrInvalidURL is returned for input that is not a SoundCloud content URL.
var ErrInvalidURL = errors.New("not a soundcloud url")

const (
	canonicalHost = "soundcloud.com"
	shortLinkHost = "on.soundcloud.com"
)

// URLKind is the kind of resource a URL appears to point at, judged from its
// path alone. The API has the final word.
type URLKind int

const (
	URLTrack URLKind = iota
	URLPlaylist
	URLUser
	URLShortLink
)

func (k URLKind) String() string {
	switch k {
	case URLTrack:
		return "track"
	case URLPlaylist:
		return "playlist"
	case URLUser:
		return "user"
	case URLShortLink:
		return "short link"
	default:
		return "unknown"
	}
}

// userPages are second path segments that belong to a profile, not a track.
var userPages = map[string]bool{
	"sets":           true,
	"likes":          true,
	"tracks":         true,
	"albums":         true,
	"reposts":        true,
	"popular-tracks": true,
	"followers":      true,
	"following":      true,
	"comments":       true,
}

// ContentURL is a normalised SoundCloud URL.
type ContentURL struct {
	// URL is the canonical form: https, soundcloud.com host, no query,
	// fragment or trailing slash.
	URL  string
	Kind URLKind
}

// ParseURL validates and normalises a user-supplied SoundCloud URL.
//
// Mobile and www hosts are mapped to soundcloud.com; query strings such as
// "?in=user/sets/x" and "?utm_source=..." are dropped. A private track's
// secret token is a path segment and survives.
//
// Example:
//
//	u, _ := ParseURL("https://m.soundcloud.com/artist/track-x?utm_source=copy")
//	// u.URL  == "https://soundcloud.com/artist/track-x"
//	// u.Kind == URLTrack
func ParseURL(raw string) (*ContentURL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	segments := splitPath(u.Path)

	switch host {
	case shortLinkHost:
		if len(segments) == 0 {
			return nil, fmt.Errorf("%w: empty short link", ErrInvalidURL)
		}
		return &ContentURL{
			URL:  "https://" + shortLinkHost + "/" + strings.Join(segments, "/"),
			Kind: URLShortLink,
		}, nil
	case canonicalHost, "www." + canonicalHost, "m." + canonicalHost:
	default:
		return nil, fmt.Errorf("%w: host %q", ErrInvalidURL, host)
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no track or playlist in path", ErrInvalidURL)
	}

	return &ContentURL{
		URL:  "https://" + canonicalHost + "/" + strings.Join(segments, "/"),
		Kind: kindOf(segments),
	}, nil
}

// IsSoundCloudURL reports whether raw is accepted by ParseURL.
func IsSoundCloudURL(raw string) bool {
	_, err := ParseURL(raw)
	return err == nil
}

// ExpandShortLink follows an on.soundcloud.com redirect and returns the
// normalised target. Other URLs are returned normalised without any request.
func ExpandShortLink(ctx context.Context, client *httpclient.Client, raw string) (*ContentURL, error) {
	u, err := ParseURL(raw)
	if err != nil {
		return nil, err
	}
	if u.Kind != URLShortLink {
		return u, nil
	}

	final, err := client.FinalURL(ctx, u.URL)
	if err != nil {
		return nil, newResolutionError(NetworkError, u.URL, "could not expand short link", err)
	}

	expanded, err := ParseURL(final)
	if err != nil {
		return nil, newResolutionError(NotFound, u.URL, "short link does not lead to soundcloud content", err)
	}
	if expanded.Kind == URLShortLink {
		return nil, newResolutionError(NotFound, u.URL, "short link did not redirect", nil)
	}
	return expanded, nil
}

func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func kindOf(segments []string) URLKind {
	if segments[0] == "discover" && len(segments) >= 3 && segments[1] == "sets" {
		return URLPlaylist
	}
	switch len(segments) {
	case 1:
		return URLUser
	case 2:
		if userPages[segments[1]] {
			return URLUser
		}
		return URLTrack
	default:
		if segments[1] == "sets" {
			return URLPlaylist
		}
		return URLTrack
	}
}

package soundcloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	httpclient "github.com/handiism/soundcloud-downloader/internal/http"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud/dto"
)

// DefaultAPIBase is the public v2 API used by the web player.
const DefaultAPIBase = "https://api-v2.soundcloud.com"

// DefaultWebBase is the public web host scraped for client ids.
const DefaultWebBase = "https://soundcloud.com"

// maxTracksPerRequest is the largest ids= list the /tracks endpoint accepts.
const maxTracksPerRequest = 50

// API is a thin client for the SoundCloud v2 endpoints the downloader
// needs. Every call takes the client token explicitly.
type API struct {
	http *httpclient.Client
	base string
}

// NewAPI creates an API client. An empty base selects DefaultAPIBase.
func NewAPI(client *httpclient.Client, base string) *API {
	if base == "" {
		base = DefaultAPIBase
	}
	return &API{http: client, base: strings.TrimRight(base, "/")}
}

// Resolve looks up the resource behind a public SoundCloud URL.
func (a *API) Resolve(ctx context.Context, contentURL string, token ClientToken) (*dto.Resource, error) {
	endpoint := a.endpoint("/resolve", url.Values{"url": {contentURL}}, token)

	var res dto.Resource
	if err := a.http.GetJSON(ctx, endpoint, &res); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newResolutionError(NotFound, contentURL, "resolve returned no resource", nil)
		}
		return nil, classify(err, contentURL, "could not resolve url")
	}
	if res.Kind == "" {
		return nil, newResolutionError(NotFound, contentURL, "resolve returned no resource", nil)
	}
	return &res, nil
}

// Tracks fetches full track objects for the given ids, preserving the order
// of ids. Ids the API does not return are omitted.
func (a *API) Tracks(ctx context.Context, ids []int64, token ClientToken) ([]dto.Resource, error) {
	byID := make(map[int64]dto.Resource, len(ids))

	for start := 0; start < len(ids); start += maxTracksPerRequest {
		end := min(start+maxTracksPerRequest, len(ids))

		parts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			parts = append(parts, strconv.FormatInt(id, 10))
		}

		endpoint := a.endpoint("/tracks", url.Values{"ids": {strings.Join(parts, ",")}}, token)

		var batch []dto.Resource
		if err := a.http.GetJSON(ctx, endpoint, &batch); err != nil {
			return nil, classify(err, "", "could not fetch playlist tracks")
		}
		for _, t := range batch {
			byID[t.ID] = t
		}
	}

	tracks := make([]dto.Resource, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// StreamURL exchanges a transcoding URL for a signed media URL.
func (a *API) StreamURL(ctx context.Context, transcodingURL, trackAuthorization string, token ClientToken) (string, error) {
	u, err := url.Parse(transcodingURL)
	if err != nil {
		return "", newResolutionError(Unplayable, transcodingURL, "malformed transcoding url", err)
	}
	q := u.Query()
	q.Set("client_id", string(token))
	if trackAuthorization != "" {
		q.Set("track_authorization", trackAuthorization)
	}
	u.RawQuery = q.Encode()

	var stream dto.StreamResponse
	if err := a.http.GetJSON(ctx, u.String(), &stream); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusForbidden) {
			return "", newResolutionError(Unplayable, "", "stream url refused", err)
		}
		return "", classify(err, "", "could not obtain stream url")
	}
	if stream.URL == "" {
		return "", newResolutionError(Unplayable, "", "stream response carried no url", nil)
	}
	return stream.URL, nil
}

// CheckToken reports whether the API accepts token, using a one-result
// search.
func (a *API) CheckToken(ctx context.Context, token ClientToken) bool {
	if token == "" {
		return false
	}
	endpoint := a.endpoint("/search/tracks", url.Values{"q": {"test"}, "limit": {"1"}}, token)

	var out map[string]any
	err := a.http.GetJSON(ctx, endpoint, &out)
	if err != nil {
		log.WithField("component", "token").Debugf("token check failed: %v", err)
	}
	return err == nil
}

func (a *API) endpoint(path string, q url.Values, token ClientToken) string {
	q.Set("client_id", string(token))
	return a.base + path + "?" + q.Encode()
}

// classify maps transport and status errors onto resolution kinds.
//
// 401 and 403 surface as NetworkError because they usually mean the token
// expired, not that the content is missing.
func classify(err error, contentURL, message string) *ResolutionError {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			return newResolutionError(NotFound, contentURL, message, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return newResolutionError(NetworkError, contentURL,
				fmt.Sprintf("%s: access denied, client_id may have expired", message), err)
		}
	}
	return newResolutionError(NetworkError, contentURL, message, err)
}

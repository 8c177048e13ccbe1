package soundcloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	httpclient "github.com/handiism/soundcloud-downloader/internal/http"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud/dto"
)

const testClientID = "abcdefghijABCDEFGHIJ0123456789ab"

// fakeAPI serves /resolve, /tracks and stream endpoints from fixtures.
// "{base}" in a fixture is replaced by the server URL.
type fakeAPI struct {
	srv       *httptest.Server
	resources map[string]string
	tracks    map[int64]string
	streams   map[string]int
	tracksErr int
	calls     atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		resources: make(map[string]string),
		tracks:    make(map[int64]string),
		streams:   make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/resolve", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.URL.Query().Get("client_id") != testClientID {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, ok := f.resources[r.URL.Query().Get("url")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, f.expand(body))
	})
	mux.HandleFunc("/tracks", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if f.tracksErr != 0 {
			w.WriteHeader(f.tracksErr)
			return
		}
		var out []json.RawMessage
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			for tid, body := range f.tracks {
				if fmt.Sprint(tid) == id {
					out = append(out, json.RawMessage(f.expand(body)))
				}
			}
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.URL.Query().Get("client_id") != testClientID {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if status, ok := f.streams[r.URL.Path]; ok && status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		fmt.Fprintf(w, `{"url":"%s/cdn%s.mp3"}`, f.srv.URL, r.URL.Path)
	})
	mux.HandleFunc("/search/tracks", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.URL.Query().Get("client_id") != testClientID {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"collection":[]}`)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) expand(s string) string {
	return strings.ReplaceAll(s, "{base}", f.srv.URL)
}

func (f *fakeAPI) resolver(prefs []Preference) *Resolver {
	return NewResolver(NewAPI(httpclient.NewClient(httpclient.Options{}), f.srv.URL), prefs)
}

func trackJSON(id int64, title, extra string) string {
	if extra != "" {
		extra = "," + extra
	}
	return fmt.Sprintf(`{
		"kind": "track",
		"id": %d,
		"title": %q,
		"permalink_url": "https://soundcloud.com/artist/t%d",
		"artwork_url": "https://i1.sndcdn.com/artworks-%d-large.jpg",
		"full_duration": 215000,
		"created_at": "2023-05-15T10:00:00Z",
		"user": {"username": "Artist"},
		"media": {"transcodings": [
			{"url": "{base}/media/%d/preview", "snipped": true, "format": {"protocol": "progressive", "mime_type": "audio/mpeg"}},
			{"url": "{base}/media/%d/hls", "format": {"protocol": "hls", "mime_type": "audio/mpeg"}},
			{"url": "{base}/media/%d/progressive", "format": {"protocol": "progressive", "mime_type": "audio/mpeg"}}
		]}%s
	}`, id, title, id, id, id, id, id, extra)
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		kind    URLKind
		wantErr bool
	}{
		{"https://soundcloud.com/artist/track-x", "https://soundcloud.com/artist/track-x", URLTrack, false},
		{"https://m.soundcloud.com/artist/track-x?utm_source=clipboard#t=1:00", "https://soundcloud.com/artist/track-x", URLTrack, false},
		{"soundcloud.com/artist/track-x/", "https://soundcloud.com/artist/track-x", URLTrack, false},
		{"https://www.soundcloud.com/artist/sets/night-drive?in=x", "https://soundcloud.com/artist/sets/night-drive", URLPlaylist, false},
		{"https://soundcloud.com/artist/track-x/s-AbCdE", "https://soundcloud.com/artist/track-x/s-AbCdE", URLTrack, false},
		{"https://soundcloud.com/discover/sets/weekly::user", "https://soundcloud.com/discover/sets/weekly::user", URLPlaylist, false},
		{"https://soundcloud.com/artist", "https://soundcloud.com/artist", URLUser, false},
		{"https://soundcloud.com/artist/likes", "https://soundcloud.com/artist/likes", URLUser, false},
		{"https://on.soundcloud.com/AbC123", "https://on.soundcloud.com/AbC123", URLShortLink, false},
		{"https://soundcloud.com/", "", 0, true},
		{"https://example.com/artist/track", "", 0, true},
		{"ftp://soundcloud.com/artist/track", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseURL(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("ParseURL(%q) error = %v, want ErrInvalidURL", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURL(%q): %v", tt.in, err)
			}
			if got.URL != tt.want || got.Kind != tt.kind {
				t.Errorf("ParseURL(%q) = %q (%v), want %q (%v)", tt.in, got.URL, got.Kind, tt.want, tt.kind)
			}
		})
	}
}

func TestExpandShortLink_NotShort(t *testing.T) {
	got, err := ExpandShortLink(context.Background(), nil, "https://m.soundcloud.com/a/b")
	if err != nil {
		t.Fatalf("ExpandShortLink: %v", err)
	}
	if got.URL != "https://soundcloud.com/a/b" {
		t.Errorf("URL = %q", got.URL)
	}
}

func TestFindClientID(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"object literal", `e={client_id:"` + testClientID + `",env:"p"}`, testClientID, true},
		{"assignment", `client_id = "` + testClientID + `";`, testClientID, true},
		{"json", `{"client_id": "` + testClientID + `"}`, testClientID, true},
		{"query", `fetch("/x?client_id=` + testClientID + `&limit=1")`, testClientID, true},
		{"too short", `client_id:"abc123"`, "", false},
		{"none", `var a = 1;`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindClientID(tt.text)
			if got != tt.want || ok != tt.ok {
				t.Errorf("FindClientID() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestScriptURLs(t *testing.T) {
	page := `<html><head>
		<script src="//a-v2.sndcdn.com/assets/0-abc.js"></script>
		<script src="https://a-v2.sndcdn.com/assets/1-def.js"></script>
		<script src="/assets/2-ghi.js"></script>
		<script src="//a-v2.sndcdn.com/assets/0-abc.js"></script>
		<script>window.inline = true;</script>
	</head></html>`
	base, _ := url.Parse("https://soundcloud.com/")

	got, err := ScriptURLs(page, base)
	if err != nil {
		t.Fatalf("ScriptURLs: %v", err)
	}

	want := []string{
		"https://a-v2.sndcdn.com/assets/0-abc.js",
		"https://a-v2.sndcdn.com/assets/1-def.js",
		"https://soundcloud.com/assets/2-ghi.js",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("ScriptURLs() = %v, want %v", got, want)
	}
}

func newWebServer(t *testing.T, scriptBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><script src="/assets/app.js"></script></html>`)
	})
	mux.HandleFunc("/assets/app.js", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, scriptBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeTokenSource(t *testing.T) {
	web := newWebServer(t, `!function(){var e={client_id:"`+testClientID+`"}}();`)

	src := NewScrapeTokenSource(httpclient.NewClient(httpclient.Options{}), web.URL)
	got, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != testClientID {
		t.Errorf("Token = %q", got)
	}
}

func TestScrapeTokenSource_NoMatchMakesNoAPICalls(t *testing.T) {
	web := newWebServer(t, `var nothing = "here";`)
	api := newFakeAPI(t)
	client := httpclient.NewClient(httpclient.Options{})

	tokens := &CachedTokenSource{
		Path:    filepath.Join(t.TempDir(), "client_id"),
		Source:  NewScrapeTokenSource(client, web.URL),
		Checker: NewAPI(client, api.srv.URL),
	}

	_, err := tokens.Token(context.Background())
	if !errors.Is(err, ErrTokenUnavailable) {
		t.Fatalf("error = %v, want ErrTokenUnavailable", err)
	}
	if n := api.calls.Load(); n != 0 {
		t.Errorf("API received %d calls, want 0", n)
	}
}

type fakeSource struct {
	tokens []ClientToken
	calls  int
}

func (f *fakeSource) Token(context.Context) (ClientToken, error) {
	if f.calls >= len(f.tokens) {
		return "", fmt.Errorf("%w: exhausted", ErrTokenUnavailable)
	}
	tok := f.tokens[f.calls]
	f.calls++
	return tok, nil
}

type fakeChecker map[ClientToken]bool

func (p fakeChecker) CheckToken(_ context.Context, tok ClientToken) bool {
	return p[tok]
}

func TestCachedTokenSource(t *testing.T) {
	tests := []struct {
		name        string
		cached      string
		source      []ClientToken
		valid       fakeChecker
		want        ClientToken
		wantErr     bool
		wantScrapes int
	}{
		{"valid cache", "good", nil, fakeChecker{"good": true}, "good", false, 0},
		{"stale cache", "old", []ClientToken{"new"}, fakeChecker{"new": true}, "new", false, 1},
		{"no cache", "", []ClientToken{"new"}, fakeChecker{"new": true}, "new", false, 1},
		{"rejected then accepted", "", []ClientToken{"bad", "good"}, fakeChecker{"good": true}, "good", false, 2},
		{"rejected twice", "", []ClientToken{"bad", "worse", "never"}, fakeChecker{"never": true}, "", true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "client_id")
			if tt.cached != "" {
				os.WriteFile(path, []byte(tt.cached+"\n"), 0600)
			}
			src := &fakeSource{tokens: tt.source}

			c := &CachedTokenSource{Path: path, Source: src, Checker: tt.valid}
			got, err := c.Token(context.Background())

			if tt.wantErr {
				if !errors.Is(err, ErrTokenUnavailable) {
					t.Errorf("error = %v, want ErrTokenUnavailable", err)
				}
			} else if err != nil || got != tt.want {
				t.Errorf("Token() = %q, %v; want %q", got, err, tt.want)
			}

			if src.calls != tt.wantScrapes {
				t.Errorf("source called %d times, want %d", src.calls, tt.wantScrapes)
			}

			if !tt.wantErr {
				data, _ := os.ReadFile(path)
				if ClientToken(strings.TrimSpace(string(data))) != tt.want {
					t.Errorf("cache holds %q, want %q", data, tt.want)
				}
			}
		})
	}
}

func TestChainTokenSource(t *testing.T) {
	chain := ChainTokenSource{
		NewStaticTokenSource(""),
		&fakeSource{tokens: []ClientToken{"second"}},
	}
	got, err := chain.Token(context.Background())
	if err != nil || got != "second" {
		t.Errorf("Token() = %q, %v; want second", got, err)
	}

	_, err = ChainTokenSource{NewStaticTokenSource(" ")}.Token(context.Background())
	if !errors.Is(err, ErrTokenUnavailable) {
		t.Errorf("error = %v, want ErrTokenUnavailable", err)
	}
}

func TestClientToken_String(t *testing.T) {
	if s := ClientToken(testClientID).String(); strings.Contains(s, testClientID[4:]) {
		t.Errorf("String() leaked the token: %s", s)
	}
}

func TestAPI_CheckToken(t *testing.T) {
	f := newFakeAPI(t)
	api := NewAPI(httpclient.NewClient(httpclient.Options{}), f.srv.URL)

	if !api.CheckToken(context.Background(), testClientID) {
		t.Error("valid token rejected")
	}
	if api.CheckToken(context.Background(), "wrong") {
		t.Error("invalid token accepted")
	}
}

func TestResolver_Resolve_TrackX(t *testing.T) {
	f := newFakeAPI(t)
	f.resources["https://soundcloud.com/artist/track-x"] = trackJSON(1, "Track X", "")

	meta, err := f.resolver(nil).Resolve(context.Background(), "https://soundcloud.com/artist/track-x", testClientID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if meta.Title != "Track X" || meta.Artist != "Artist" {
		t.Errorf("title/artist = %q/%q", meta.Title, meta.Artist)
	}
	if meta.StreamURL != f.srv.URL+"/cdn/media/1/progressive.mp3" {
		t.Errorf("StreamURL = %q", meta.StreamURL)
	}
	if meta.Protocol != "progressive" || meta.Format.Extension != ".mp3" {
		t.Errorf("protocol/ext = %q/%q", meta.Protocol, meta.Format.Extension)
	}
	if meta.ArtworkURL != "https://i1.sndcdn.com/artworks-1-t500x500.jpg" {
		t.Errorf("ArtworkURL = %q", meta.ArtworkURL)
	}
	if meta.Duration != 215 || meta.ReleaseDate.Year() != 2023 {
		t.Errorf("duration/year = %v/%d", meta.Duration, meta.ReleaseDate.Year())
	}
}

func TestResolver_Resolve_Errors(t *testing.T) {
	f := newFakeAPI(t)
	f.resources["https://soundcloud.com/a/blocked"] = trackJSON(2, "Blocked", `"policy": "BLOCK"`)
	f.resources["https://soundcloud.com/a/preview"] = `{"kind":"track","id":3,"title":"Preview","media":{"transcodings":[
		{"url":"{base}/media/3/p","snipped":true,"format":{"protocol":"progressive","mime_type":"audio/mpeg"}}]}}`
	f.resources["https://soundcloud.com/a/hls-only"] = `{"kind":"track","id":4,"title":"HLS","media":{"transcodings":[
		{"url":"{base}/media/4/h","format":{"protocol":"hls","mime_type":"audio/mpeg"}}]}}`
	f.resources["https://soundcloud.com/a/no-media"] = `{"kind":"track","id":5,"title":"Nothing"}`
	f.resources["https://soundcloud.com/a/gone-stream"] = trackJSON(6, "Gone", "")
	f.streams["/media/6/progressive"] = http.StatusNotFound
	f.resources["https://soundcloud.com/a"] = `{"kind":"user","id":9,"username":"a"}`
	f.resources["https://soundcloud.com/a/sets/s"] = `{"kind":"playlist","id":10,"title":"S","tracks":[{"id":1,"kind":"track"}]}`

	tests := []struct {
		name  string
		url   string
		token ClientToken
		kind  ResolutionKind
	}{
		{"geo-blocked", "https://soundcloud.com/a/blocked", testClientID, Unplayable},
		{"preview only", "https://soundcloud.com/a/preview", testClientID, Unplayable},
		{"hls only", "https://soundcloud.com/a/hls-only", testClientID, Unplayable},
		{"no media", "https://soundcloud.com/a/no-media", testClientID, Unplayable},
		{"stream 404", "https://soundcloud.com/a/gone-stream", testClientID, Unplayable},
		{"not found", "https://soundcloud.com/a/missing", testClientID, NotFound},
		{"expired token", "https://soundcloud.com/a/blocked", "expired", NetworkError},
		{"user page", "https://soundcloud.com/a", testClientID, Unsupported},
		{"playlist", "https://soundcloud.com/a/sets/s", testClientID, Unsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := f.resolver(nil).Resolve(context.Background(), tt.url, tt.token)
			if meta != nil {
				t.Errorf("expected no metadata, got %+v", meta)
			}
			if !IsKind(err, tt.kind) {
				t.Errorf("error = %v, want kind %v", err, tt.kind)
			}
		})
	}
}

func TestResolver_Resolve_HLSFallback(t *testing.T) {
	f := newFakeAPI(t)
	f.resources["https://soundcloud.com/a/hls-only"] = `{"kind":"track","id":4,"title":"HLS","media":{"transcodings":[
		{"url":"{base}/media/4/hls","format":{"protocol":"hls","mime_type":"audio/mpeg"}}]}}`

	prefs := append(append([]Preference{}, DefaultPreferences...), HLSPreference)
	meta, err := f.resolver(prefs).Resolve(context.Background(), "https://soundcloud.com/a/hls-only", testClientID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if meta.Protocol != "hls" {
		t.Errorf("Protocol = %q, want hls", meta.Protocol)
	}
}

func TestResolver_ResolveURL_Playlist(t *testing.T) {
	f := newFakeAPI(t)
	f.resources["https://soundcloud.com/owner/sets/night-drive"] = `{
		"kind": "playlist",
		"id": 100,
		"title": "Night Drive",
		"user": {"username": "Owner"},
		"track_count": 4,
		"tracks": [
			` + trackJSON(1, "First", "") + `,
			{"id": 2, "kind": "track"},
			{"id": 3, "kind": "track"},
			{"id": 4, "kind": "track"}
		]
	}`
	f.tracks[2] = trackJSON(2, "Second", `"policy": "BLOCK"`)
	f.tracks[3] = trackJSON(3, "Third", "")

	res, err := f.resolver(nil).ResolveURL(context.Background(), "https://soundcloud.com/owner/sets/night-drive", testClientID)
	if err != nil {
		t.Fatalf("ResolveURL: %v", err)
	}

	if res.Playlist == nil || res.Playlist.Title != "Night Drive" || res.Playlist.TrackCount != 4 {
		t.Fatalf("Playlist = %+v", res.Playlist)
	}
	if len(res.Items) != 4 {
		t.Fatalf("len(Items) = %d, want 4", len(res.Items))
	}

	if res.Items[0].Metadata == nil || res.Items[0].Metadata.Title != "First" {
		t.Errorf("item 0 = %+v", res.Items[0])
	}
	if !IsKind(res.Items[1].Err, Unplayable) {
		t.Errorf("item 1 error = %v, want Unplayable", res.Items[1].Err)
	}
	if res.Items[2].Metadata == nil || res.Items[2].Metadata.Title != "Third" {
		t.Errorf("item 2 = %+v", res.Items[2])
	}
	if !IsKind(res.Items[3].Err, NotFound) {
		t.Errorf("item 3 error = %v, want NotFound", res.Items[3].Err)
	}
	if res.Playable() != 2 {
		t.Errorf("Playable() = %d, want 2", res.Playable())
	}
}

func TestResolver_ResolveURL_TracksFetchFails(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"bad gateway", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAPI(t)
			f.resources["https://soundcloud.com/owner/sets/mixed"] = `{
				"kind": "playlist",
				"id": 101,
				"title": "Mixed",
				"tracks": [
					` + trackJSON(1, "First", "") + `,
					{"id": 2, "kind": "track"},
					` + trackJSON(3, "Third", "") + `
				]
			}`
			f.tracks[2] = trackJSON(2, "Second", "")
			f.tracksErr = tt.status

			res, err := f.resolver(nil).ResolveURL(context.Background(), "https://soundcloud.com/owner/sets/mixed", testClientID)
			if err != nil {
				t.Fatalf("ResolveURL: %v", err)
			}
			if len(res.Items) != 3 {
				t.Fatalf("len(Items) = %d, want 3", len(res.Items))
			}

			for _, i := range []int{0, 2} {
				if res.Items[i].Err != nil || res.Items[i].Metadata == nil {
					t.Errorf("item %d = %+v, want resolved", i, res.Items[i])
				}
			}
			if !IsKind(res.Items[1].Err, NetworkError) {
				t.Errorf("item 1 error = %v, want NetworkError", res.Items[1].Err)
			}
			if res.Items[1].Metadata != nil {
				t.Errorf("item 1 metadata = %+v, want nil", res.Items[1].Metadata)
			}
			if res.Playable() != 2 {
				t.Errorf("Playable() = %d, want 2", res.Playable())
			}
		})
	}
}

func TestResolver_ResolveURL_EmptyPlaylist(t *testing.T) {
	f := newFakeAPI(t)
	f.resources["https://soundcloud.com/o/sets/empty"] = `{"kind":"playlist","id":1,"title":"Empty","tracks":[]}`

	_, err := f.resolver(nil).ResolveURL(context.Background(), "https://soundcloud.com/o/sets/empty", testClientID)
	if !IsKind(err, NotFound) {
		t.Errorf("error = %v, want NotFound", err)
	}
}

func TestResolver_ResolveURL_SingleTrack(t *testing.T) {
	f := newFakeAPI(t)
	f.resources["https://soundcloud.com/artist/track-x"] = trackJSON(1, "Track X", "")

	res, err := f.resolver(nil).ResolveURL(context.Background(), "https://soundcloud.com/artist/track-x", testClientID)
	if err != nil {
		t.Fatalf("ResolveURL: %v", err)
	}
	if res.Playlist != nil || len(res.Items) != 1 || res.Items[0].Metadata == nil {
		t.Errorf("resolution = %+v", res)
	}
}

func TestSelectTranscoding(t *testing.T) {
	ts := []dto.Transcoding{
		{URL: "a", Snipped: true, Format: dto.TranscodingFormat{Protocol: "progressive", MimeType: "audio/mpeg"}},
		{URL: "b", Format: dto.TranscodingFormat{Protocol: "hls", MimeType: "audio/mpeg"}},
		{URL: "c", Format: dto.TranscodingFormat{Protocol: "hls", MimeType: `audio/ogg; codecs="opus"`}},
	}

	tests := []struct {
		name  string
		prefs []string
		want  string
	}{
		{"progressive only", []string{"progressive:audio/mpeg"}, ""},
		{"hls fallback", []string{"progressive:audio/mpeg", "hls:audio/mpeg"}, "b"},
		{"opus first", []string{"hls:audio/ogg", "hls:audio/mpeg"}, "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs, err := ParsePreferences(tt.prefs)
			if err != nil {
				t.Fatalf("ParsePreferences: %v", err)
			}
			got, ok := SelectTranscoding(ts, prefs)
			if tt.want == "" {
				if ok {
					t.Errorf("selected %q, want none", got.URL)
				}
				return
			}
			if !ok || got.URL != tt.want {
				t.Errorf("selected %v, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePreferences_Invalid(t *testing.T) {
	for _, in := range [][]string{nil, {"progressive"}, {":audio/mpeg"}} {
		if _, err := ParsePreferences(in); err == nil {
			t.Errorf("ParsePreferences(%v) should fail", in)
		}
	}
}

func TestSoundCloudTime(t *testing.T) {
	var v struct {
		A *dto.SoundCloudTime `json:"a"`
		B *dto.SoundCloudTime `json:"b"`
		C *dto.SoundCloudTime `json:"c"`
	}
	err := json.Unmarshal([]byte(`{"a":"2023-05-15T10:00:00Z","b":"2019/01/02 03:04:05 +0000","c":null}`), &v)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.A.Year() != 2023 || v.B.Year() != 2019 || v.C != nil {
		t.Errorf("parsed %v %v %v", v.A, v.B, v.C)
	}
}

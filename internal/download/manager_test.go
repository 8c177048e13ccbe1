package download

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/bogem/id3v2"

	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud"
)

const testClientID = "abcdefghijABCDEFGHIJ0123456789ab"

// fakeSoundCloud serves the API endpoints and the media CDN.
// "{base}" in a fixture is replaced by the server URL.
type fakeSoundCloud struct {
	srv       *httptest.Server
	resources map[string]string
	tracks    map[int64]string
	media     map[string][]byte
	cdnStatus map[string]int
}

func newFakeSoundCloud(t *testing.T) *fakeSoundCloud {
	t.Helper()
	f := &fakeSoundCloud{
		resources: make(map[string]string),
		tracks:    make(map[int64]string),
		media:     make(map[string][]byte),
		cdnStatus: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/resolve", func(w http.ResponseWriter, r *http.Request) {
		body, ok := f.resources[r.URL.Query().Get("url")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, f.expand(body))
	})
	mux.HandleFunc("/tracks", func(w http.ResponseWriter, r *http.Request) {
		var out []json.RawMessage
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			n, _ := strconv.ParseInt(id, 10, 64)
			if body, ok := f.tracks[n]; ok {
				out = append(out, json.RawMessage(f.expand(body)))
			}
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("client_id") != testClientID {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"url":"%s/cdn%s.mp3"}`, f.srv.URL, r.URL.Path)
	})
	mux.HandleFunc("/cdn/", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/cdn"), ".mp3")
		if status, ok := f.cdnStatus[key]; ok {
			w.WriteHeader(status)
			return
		}
		data, ok := f.media[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method != http.MethodHead {
			w.Write(data)
		}
	})
	mux.HandleFunc("/art/", func(w http.ResponseWriter, r *http.Request) {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		img.Set(1, 1, color.RGBA{R: 255, A: 255})
		png.Encode(w, img)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSoundCloud) expand(s string) string {
	return strings.ReplaceAll(s, "{base}", f.srv.URL)
}

// addTrack registers a playable track and the bytes its stream serves.
func (f *fakeSoundCloud) addTrack(id int64, title string, extra string) []byte {
	body := testTrackJSON(id, title, extra)
	f.tracks[id] = body
	f.resources[fmt.Sprintf("https://soundcloud.com/artist/t%d", id)] = body
	data := fakeMP3(10_000 + int(id))
	f.media[fmt.Sprintf("/media/%d/progressive", id)] = data
	return data
}

func testTrackJSON(id int64, title, extra string) string {
	if extra != "" {
		extra = "," + extra
	}
	return fmt.Sprintf(`{
		"kind": "track",
		"id": %d,
		"title": %q,
		"genre": "Electronic",
		"permalink_url": "https://soundcloud.com/artist/t%d",
		"artwork_url": "{base}/art/%d-large.png",
		"full_duration": 215000,
		"created_at": "2023-05-15T10:00:00Z",
		"user": {"username": "Artist"},
		"media": {"transcodings": [
			{"url": "{base}/media/%d/progressive", "format": {"protocol": "progressive", "mime_type": "audio/mpeg"}}
		]}%s
	}`, id, title, id, id, id, extra)
}

func (f *fakeSoundCloud) settings(t *testing.T) *config.Settings {
	t.Helper()
	s := config.DefaultSettings()
	s.ClientID = testClientID
	s.APIBaseURL = f.srv.URL
	s.OutputDir = t.TempDir()
	s.ProxyType = config.ProxyNone
	return s
}

func runManager(t *testing.T, s *config.Settings, input string) (*Manager, []ProgressEvent) {
	t.Helper()

	var events []ProgressEvent
	m, err := NewManager(s, func(e ProgressEvent) { events = append(events, e) })
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	ctx := context.Background()
	if err := m.Initialize(ctx, input); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := m.StartDownloads(ctx); err != nil {
		t.Fatalf("StartDownloads() error = %v", err)
	}
	return m, events
}

func TestManager_SingleTrack(t *testing.T) {
	f := newFakeSoundCloud(t)
	data := f.addTrack(1, "Track X", "")

	// Only the endpoints and the output folder differ from the defaults.
	s := f.settings(t)
	defaults := config.DefaultSettings()
	if s.FileNameFormat != defaults.FileNameFormat || s.ModifyTags != defaults.ModifyTags ||
		s.SaveCoverArtInTags != defaults.SaveCoverArtInTags || s.OnExisting != defaults.OnExisting {
		t.Fatal("test settings must keep the default naming, tagging and existing-file policy")
	}

	m, _ := runManager(t, s, "https://soundcloud.com/artist/t1")

	got, err := os.ReadFile(filepath.Join(s.OutputDir, "Track X.mp3"))
	if err != nil {
		t.Fatalf("expected file: %v", err)
	}
	if len(got) != len(data) {
		t.Errorf("size = %d, want declared Content-Length %d", len(got), len(data))
	}
	if !bytes.Equal(got, data) {
		t.Error("file content differs from stream")
	}

	sum := m.Summary()
	if sum.Downloaded != 1 || sum.Failed != 0 || sum.FailedInputs != 0 || !sum.OK() {
		t.Errorf("Summary() = %+v", sum)
	}
	if sum.Bytes != int64(len(data)) {
		t.Errorf("Summary().Bytes = %d, want %d", sum.Bytes, len(data))
	}

	received, total, files, totalFiles := m.GetProgress()
	if received != total || files != 1 || totalFiles != 1 {
		t.Errorf("GetProgress() = %d/%d bytes, %d/%d files", received, total, files, totalFiles)
	}
}

func TestManager_Tags(t *testing.T) {
	f := newFakeSoundCloud(t)
	f.addTrack(1, "Track X", "")
	s := f.settings(t)
	s.ModifyTags = true
	s.SaveCoverArtInTags = true

	runManager(t, s, "https://soundcloud.com/artist/t1")

	tag, err := id3v2.Open(filepath.Join(s.OutputDir, "Track X.mp3"), id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("id3v2.Open() error = %v", err)
	}
	defer tag.Close()

	if tag.Title() != "Track X" || tag.Artist() != "Artist" || tag.Genre() != "Electronic" {
		t.Errorf("tags = %q/%q/%q", tag.Title(), tag.Artist(), tag.Genre())
	}
	if pics := tag.GetFrames(tag.CommonID("Attached picture")); len(pics) != 1 {
		t.Errorf("got %d pictures, want 1", len(pics))
	}
}

func TestManager_Unplayable(t *testing.T) {
	f := newFakeSoundCloud(t)
	f.addTrack(1, "Blocked", `"policy": "BLOCK"`)
	s := f.settings(t)

	m, _ := runManager(t, s, "https://soundcloud.com/artist/t1")

	entries, _ := os.ReadDir(s.OutputDir)
	if len(entries) != 0 {
		t.Errorf("output dir has %d entries, want none", len(entries))
	}
	if sum := m.Summary(); sum.FailedInputs != 1 || sum.OK() {
		t.Errorf("Summary() = %+v, want one failed input", sum)
	}
}

func TestManager_PlaylistIsolation(t *testing.T) {
	f := newFakeSoundCloud(t)
	f.addTrack(1, "First", "")
	f.addTrack(2, "Second", "")
	f.addTrack(3, "Third", "")
	f.cdnStatus["/media/2/progressive"] = http.StatusForbidden

	f.resources["https://soundcloud.com/artist/sets/night-drive"] = `{
		"kind": "playlist",
		"id": 99,
		"title": "Night Drive",
		"permalink_url": "https://soundcloud.com/artist/sets/night-drive",
		"user": {"username": "Owner"},
		"track_count": 4,
		"tracks": [{"id": 1}, {"id": 2}, {"id": 3}, {"id": 4}]
	}`

	s := f.settings(t)
	s.CreatePlaylist = true
	s.M3UExtended = false

	m, _ := runManager(t, s, "https://soundcloud.com/artist/sets/night-drive")

	dir := filepath.Join(s.OutputDir, "Night Drive")
	for _, name := range []string{"First.mp3", "Third.mp3"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "Second.mp3")); !os.IsNotExist(err) {
		t.Error("failed track was written")
	}

	m3u, err := os.ReadFile(filepath.Join(dir, "Night Drive.m3u"))
	if err != nil {
		t.Fatalf("playlist file: %v", err)
	}
	if want := "First.mp3\nThird.mp3\n"; string(m3u) != want {
		t.Errorf("playlist = %q, want %q", m3u, want)
	}

	sum := m.Summary()
	if sum.Downloaded != 2 || sum.Failed != 2 || sum.FailedInputs != 0 {
		t.Errorf("Summary() = %+v, want 2 downloaded, 2 failed", sum)
	}
	if names := m.GetJobNames(); len(names) != 1 || names[0] != "Owner - Night Drive (3 tracks)" {
		t.Errorf("GetJobNames() = %v", names)
	}
}

func TestManager_OnExisting(t *testing.T) {
	tests := []struct {
		name      string
		policy    string
		existing  func(data []byte) []byte
		wantFiles []string
		wantSkip  int
		tagged    bool
	}{
		{
			name:      "skip complete file",
			policy:    config.OnExistingSkip,
			existing:  func(data []byte) []byte { return data },
			wantFiles: []string{"Track X.mp3"},
			wantSkip:  1,
		},
		{
			name:      "skip complete tagged file",
			policy:    config.OnExistingSkip,
			existing:  func(data []byte) []byte { return data },
			wantFiles: []string{"Track X.mp3"},
			wantSkip:  1,
			tagged:    true,
		},
		{
			name:      "skip redownloads truncated file",
			policy:    config.OnExistingSkip,
			existing:  func(data []byte) []byte { return data[:len(data)/2] },
			wantFiles: []string{"Track X.mp3"},
		},
		{
			name:      "rename",
			policy:    config.OnExistingRename,
			existing:  func(data []byte) []byte { return []byte("keep me") },
			wantFiles: []string{"Track X (2).mp3", "Track X.mp3"},
		},
		{
			name:      "overwrite",
			policy:    config.OnExistingOverwrite,
			existing:  func(data []byte) []byte { return []byte("replace me") },
			wantFiles: []string{"Track X.mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeSoundCloud(t)
			data := f.addTrack(1, "Track X", "")
			s := f.settings(t)
			s.OnExisting = tt.policy

			path := filepath.Join(s.OutputDir, "Track X.mp3")
			existing := tt.existing(data)
			if err := os.WriteFile(path, existing, 0644); err != nil {
				t.Fatal(err)
			}
			if tt.tagged {
				s.ModifyTags = true
				tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
				if err != nil {
					t.Fatal(err)
				}
				tag.SetTitle("Track X")
				tag.SetArtist("Artist")
				// Large enough to exceed AllowedFileSizeDifference on its own.
				tag.AddAttachedPicture(id3v2.PictureFrame{
					Encoding:    id3v2.EncodingUTF8,
					MimeType:    "image/png",
					PictureType: id3v2.PTFrontCover,
					Picture:     make([]byte, 2048),
				})
				if err := tag.Save(); err != nil {
					t.Fatal(err)
				}
				tag.Close()
				existing, _ = os.ReadFile(path)
			}

			m, _ := runManager(t, s, "https://soundcloud.com/artist/t1")

			entries, _ := os.ReadDir(s.OutputDir)
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			if strings.Join(names, "|") != strings.Join(tt.wantFiles, "|") {
				t.Errorf("files = %v, want %v", names, tt.wantFiles)
			}

			got, _ := os.ReadFile(path)
			switch {
			case tt.policy == config.OnExistingRename || tt.wantSkip > 0:
				if !bytes.Equal(got, existing) {
					t.Error("existing file was modified")
				}
			default:
				if !bytes.Equal(got, data) {
					t.Error("file does not hold the stream content")
				}
			}

			if sum := m.Summary(); sum.Skipped != tt.wantSkip || !sum.OK() {
				t.Errorf("Summary() = %+v, want %d skipped", sum, tt.wantSkip)
			}
		})
	}
}

func TestManager_InitializeErrors(t *testing.T) {
	f := newFakeSoundCloud(t)

	t.Run("no urls", func(t *testing.T) {
		m, err := NewManager(f.settings(t), nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := m.Initialize(context.Background(), "https://example.com/x, not a url"); !errors.Is(err, ErrNoURLs) {
			t.Errorf("Initialize() error = %v, want ErrNoURLs", err)
		}
	})

	t.Run("token unavailable", func(t *testing.T) {
		web := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html><body>no scripts</body></html>")
		}))
		defer web.Close()

		s := f.settings(t)
		s.ClientID = ""
		s.WebBaseURL = web.URL
		s.ClientIDCachePath = filepath.Join(t.TempDir(), "client_id")

		m, err := NewManager(s, nil)
		if err != nil {
			t.Fatal(err)
		}
		err = m.Initialize(context.Background(), "https://soundcloud.com/artist/t1")
		if !errors.Is(err, soundcloud.ErrTokenUnavailable) {
			t.Errorf("Initialize() error = %v, want ErrTokenUnavailable", err)
		}
	})

	t.Run("unknown url is counted", func(t *testing.T) {
		f.addTrack(1, "Track X", "")
		s := f.settings(t)

		m, _ := runManager(t, s, "https://soundcloud.com/artist/t1\nhttps://soundcloud.com/artist/missing")
		if sum := m.Summary(); sum.Downloaded != 1 || sum.FailedInputs != 1 || sum.OK() {
			t.Errorf("Summary() = %+v", sum)
		}
	})
}

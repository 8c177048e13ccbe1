package download

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/soundcloud-downloader/internal/audio"
	"github.com/handiism/soundcloud-downloader/internal/config"
	httpclient "github.com/handiism/soundcloud-downloader/internal/http"
	ioutils "github.com/handiism/soundcloud-downloader/internal/io"
	"github.com/handiism/soundcloud-downloader/internal/model"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud"
)

// ErrNoURLs is returned by Initialize when the input holds no SoundCloud URL.
var ErrNoURLs = errors.New("no soundcloud urls given")

// mediaTimeoutFactor stretches the request timeout for media transfers,
// which run far longer than API calls.
const mediaTimeoutFactor = 10

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Status is the outcome of one track.
type Status int

const (
	StatusDownloaded Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDownloaded:
		return "downloaded"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result records what happened to one track.
type Result struct {
	Label  string
	Path   string
	Status Status
	Bytes  int64
	Err    error
}

// Job is one input URL after resolution: a single track, or a playlist with
// the tracks that resolved successfully.
type Job struct {
	Input    string
	Playlist *model.Playlist
	Tracks   []*model.Track
}

// Name returns "Artist - Title" for tracks and "Owner - Playlist (N tracks)"
// for playlists.
func (j *Job) Name() string {
	if j.Playlist != nil {
		return fmt.Sprintf("%s - %s (%d tracks)", j.Playlist.Artist, j.Playlist.Title, len(j.Tracks))
	}
	if len(j.Tracks) == 1 {
		return j.Tracks[0].DisplayName()
	}
	return j.Input
}

// Summary aggregates the results of a run.
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64

	// FailedInputs counts input URLs that produced no file at all.
	FailedInputs int
}

// OK reports whether the run produced at least one file and no input URL
// failed entirely.
func (s Summary) OK() bool {
	return s.Downloaded+s.Skipped > 0 && s.FailedInputs == 0
}

// Manager coordinates the resolve and download pipeline for a batch of
// input URLs.
//
// Tracks are processed one at a time. Within a track the cover art fetch
// runs alongside the audio transfer.
//
// Example:
//
//	m, err := NewManager(settings, func(e ProgressEvent) { fmt.Println(e.Message) })
//	if err != nil {
//	    return err
//	}
//	if err := m.Initialize(ctx, "https://soundcloud.com/artist/track-x"); err != nil {
//	    return err // no token, or no valid URL
//	}
//	err = m.StartDownloads(ctx)
//	fmt.Println(m.Summary())
type Manager struct {
	settings     *config.Settings
	httpClient   *httpclient.Client
	tokens       soundcloud.TokenSource
	resolver     *soundcloud.Resolver
	downloader   *Downloader
	tagger       *audio.Tagger
	playlist     *audio.PlaylistCreator
	imageService *ioutils.ImageService
	pathConfig   *model.PathConfig
	trackConfig  *model.TrackConfig

	jobs            []*Job
	results         []Result
	jobSucceeded    []bool
	failedInputs    int
	totalBytes      int64
	receivedBytes   int64
	totalFiles      int32
	downloadedFiles int32

	onProgress func(ProgressEvent)
	onBytes    func(track *model.Track, written, total int64)
	mu         sync.RWMutex
}

// NewManager creates a new download Manager from validated settings.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent)) (*Manager, error) {
	prefs, err := settings.Preferences()
	if err != nil {
		return nil, err
	}
	format, err := model.ParsePlaylistFormat(settings.PlaylistFormat)
	if err != nil {
		return nil, err
	}

	client := httpclient.NewClient(settings.HTTPOptions())
	mediaOpts := settings.HTTPOptions()
	mediaOpts.Timeout *= mediaTimeoutFactor

	api := soundcloud.NewAPI(client, settings.APIBaseURL)

	tagCfg := audio.DefaultTagConfig()
	tagCfg.ModifyTags = settings.ModifyTags

	return &Manager{
		settings:     settings,
		httpClient:   client,
		tokens:       settings.TokenSource(client, api),
		resolver:     soundcloud.NewResolver(api, prefs),
		downloader:   NewDownloader(httpclient.NewClient(mediaOpts), settings.VerifyContainer),
		tagger:       audio.NewTagger(tagCfg),
		playlist:     audio.NewPlaylistCreator(format, settings.M3UExtended),
		imageService: ioutils.NewImageService(),
		pathConfig:   settings.ToPathConfig(),
		trackConfig:  settings.ToTrackConfig(),
		onProgress:   onProgress,
	}, nil
}

// SetByteProgress registers a callback receiving per-track byte progress.
// It must be called before StartDownloads.
func (m *Manager) SetByteProgress(fn func(track *model.Track, written, total int64)) {
	m.onBytes = fn
}

// Initialize obtains a client token and resolves every URL in input.
//
// URLs may be separated by newlines, commas or spaces. A URL that fails to
// resolve is reported and counted; it does not stop the others. The only
// fatal errors are ErrNoURLs, an unavailable token and cancellation.
func (m *Manager) Initialize(ctx context.Context, input string) error {
	urls := m.parseInputURLs(input)
	if len(urls) == 0 {
		return ErrNoURLs
	}

	token, err := m.tokens.Token(ctx)
	if err != nil {
		return err
	}
	log.WithField("component", "token").Debugf("using client_id %s", token)

	for _, inputURL := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.progress(ProgressEvent{Message: fmt.Sprintf("Resolving %s", inputURL), Level: LevelVerbose})

		job, err := m.resolve(ctx, inputURL, token)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.failedInputs++
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error resolving %s: %v", inputURL, err), Level: LevelError})
			continue
		}

		m.jobs = append(m.jobs, job)
		m.jobSucceeded = append(m.jobSucceeded, false)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Found: %s", job.Name()), Level: LevelInfo})
	}

	m.calculateTotals(ctx)

	return nil
}

// StartDownloads downloads every resolved track in order.
//
// It returns ctx.Err() when cancelled; per-track failures are recorded in
// Results and do not stop the run.
func (m *Manager) StartDownloads(ctx context.Context) error {
	for i, job := range m.jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.downloadJob(ctx, job) {
			m.jobSucceeded[i] = true
		}
	}
	return ctx.Err()
}

// GetProgress returns current download progress.
func (m *Manager) GetProgress() (received, total int64, filesReceived, filesTotal int32) {
	return atomic.LoadInt64(&m.receivedBytes), atomic.LoadInt64(&m.totalBytes),
		atomic.LoadInt32(&m.downloadedFiles), atomic.LoadInt32(&m.totalFiles)
}

// GetJobNames returns the names of all resolved jobs.
func (m *Manager) GetJobNames() []string {
	names := make([]string, len(m.jobs))
	for i, job := range m.jobs {
		names[i] = job.Name()
	}
	return names
}

// Jobs returns the resolved jobs.
func (m *Manager) Jobs() []*Job {
	return m.jobs
}

// Results returns a copy of the per-track results recorded so far.
func (m *Manager) Results() []Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Result(nil), m.results...)
}

// Summary aggregates Results.
func (m *Manager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Summary{FailedInputs: m.failedInputs}
	for _, r := range m.results {
		switch r.Status {
		case StatusDownloaded:
			s.Downloaded++
			s.Bytes += r.Bytes
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	for _, ok := range m.jobSucceeded {
		if !ok {
			s.FailedInputs++
		}
	}
	return s
}

func (m *Manager) parseInputURLs(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == ' ' || r == '\t'
	})

	seen := make(map[string]bool)
	var urls []string
	for _, f := range fields {
		u, err := soundcloud.ParseURL(f)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Ignoring %q: %v", f, err), Level: LevelWarning})
			m.failedInputs++
			continue
		}
		if !seen[u.URL] {
			seen[u.URL] = true
			urls = append(urls, u.URL)
		}
	}
	return urls
}

func (m *Manager) resolve(ctx context.Context, inputURL string, token soundcloud.ClientToken) (*Job, error) {
	target, err := soundcloud.ExpandShortLink(ctx, m.httpClient, inputURL)
	if err != nil {
		return nil, err
	}
	if target.URL != inputURL {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Expanded %s to %s", inputURL, target.URL), Level: LevelVerbose})
	}

	res, err := m.resolver.ResolveURL(ctx, target.URL, token)
	if err != nil {
		return nil, err
	}

	job := &Job{Input: inputURL}

	if res.Playlist != nil {
		pl, err := model.NewPlaylist(res.Playlist, m.pathConfig)
		if err != nil {
			return nil, err
		}
		job.Playlist = pl
	}

	for i, item := range res.Items {
		if item.Err != nil {
			m.record(Result{Label: item.Label, Status: StatusFailed, Err: item.Err})
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s: %v", item.Label, item.Err), Level: LevelWarning})
			continue
		}

		track, err := model.NewTrack(item.Metadata, job.Playlist, i+1, m.trackConfig)
		if err != nil {
			m.record(Result{Label: item.Label, Status: StatusFailed, Err: err})
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s: %v", item.Label, err), Level: LevelWarning})
			continue
		}
		job.Tracks = append(job.Tracks, track)
	}

	if len(job.Tracks) == 0 {
		return nil, fmt.Errorf("none of the %d tracks can be downloaded", len(res.Items))
	}
	return job, nil
}

// calculateTotals sums the declared sizes of progressive streams. HLS sizes
// are unknown until downloaded.
func (m *Manager) calculateTotals(ctx context.Context) {
	for _, job := range m.jobs {
		for _, track := range job.Tracks {
			atomic.AddInt32(&m.totalFiles, 1)
			if track.Protocol != "progressive" {
				continue
			}
			size, err := m.httpClient.GetFileSize(ctx, track.StreamURL)
			if err == nil {
				atomic.AddInt64(&m.totalBytes, size)
			}
		}
	}
}

// downloadJob downloads a job's tracks and reports whether at least one
// file is present afterwards.
func (m *Manager) downloadJob(ctx context.Context, job *Job) bool {
	pl := job.Playlist
	if pl != nil {
		if err := ioutils.EnsureDir(pl.Path); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating directory: %v", err), Level: LevelError})
			return false
		}
		if m.settings.SaveCoverArtInFolder && pl.HasArtwork() {
			m.savePlaylistArtwork(ctx, pl)
		}
	}

	var present []*model.Track
	for _, track := range job.Tracks {
		if ctx.Err() != nil {
			break
		}
		if m.downloadTrack(ctx, track) {
			present = append(present, track)
		}
	}

	if pl != nil && m.settings.CreatePlaylist && len(present) > 0 {
		pl.Tracks = present
		if err := m.playlist.Save(ctx, pl); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		} else {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist for %s", pl.Title), Level: LevelSuccess})
		}
	}

	switch {
	case pl == nil:
	case len(present) == len(job.Tracks):
		m.progress(ProgressEvent{Message: fmt.Sprintf("Successfully downloaded playlist: %s", pl.Title), Level: LevelSuccess})
	default:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s, %d of %d tracks saved", pl.Title, len(present), len(job.Tracks)), Level: LevelWarning})
	}

	return len(present) > 0
}

func (m *Manager) savePlaylistArtwork(ctx context.Context, pl *model.Playlist) {
	data, err := m.httpClient.Get(ctx, pl.ArtworkURL)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading artwork for %s: %v", pl.Title, err), Level: LevelWarning})
		return
	}

	path := pl.ArtworkPath
	if m.settings.ConvertCoverArtToJPG {
		converted, err := m.imageService.PrepareCover(ctx, data, ioutils.CoverOptions{ToJPEG: true})
		if err == nil {
			data = converted
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg"
		}
	}
	if err := ioutils.WriteFile(ctx, path, data); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving artwork: %v", err), Level: LevelWarning})
		return
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Saved artwork for %s", pl.Title), Level: LevelVerbose})
}

// downloadTrack applies the existing-file policy, downloads the audio with
// the artwork fetched alongside, and tags the result. It reports whether
// the file is present afterwards.
func (m *Manager) downloadTrack(ctx context.Context, track *model.Track) bool {
	label := track.DisplayName()

	switch m.settings.OnExisting {
	case config.OnExistingSkip:
		if m.existingIsComplete(ctx, track) {
			m.record(Result{Label: label, Path: track.Path, Status: StatusSkipped})
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", filepath.Base(track.Path)), Level: LevelVerbose})
			atomic.AddInt32(&m.downloadedFiles, 1)
			return true
		}
	case config.OnExistingRename:
		track.Path = ioutils.UniquePath(track.Path)
	}

	wantArtwork := track.ArtworkURL != "" && track.Format.IsMP3() && m.settings.SaveCoverArtInTags

	var artwork []byte
	var written int64

	g, gctx := errgroup.WithContext(ctx)

	if wantArtwork {
		g.Go(func() error {
			data, err := m.httpClient.Get(gctx, track.ArtworkURL)
			if err != nil {
				if gctx.Err() == nil {
					m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading artwork for %s: %v", label, err), Level: LevelWarning})
				}
				return nil
			}
			artwork, _ = m.imageService.PrepareCover(gctx, data, ioutils.CoverOptions{
				Resize:  m.settings.CoverArtInTagsResize,
				MaxSize: m.settings.CoverArtInTagsMaxSize,
				ToJPEG:  m.settings.ConvertCoverArtToJPG,
			})
			return nil
		})
	}

	g.Go(func() error {
		var last int64
		onProgress := func(n, total int64) {
			atomic.AddInt64(&m.receivedBytes, n-last)
			last = n
			if m.onBytes != nil {
				m.onBytes(track, n, total)
			}
		}

		var err error
		if track.Protocol == "hls" {
			written, err = m.downloader.DownloadHLS(gctx, track.StreamURL, track.Path, track.Format, onProgress)
		} else {
			written, err = m.downloader.Download(gctx, track.StreamURL, track.Path, track.Format, onProgress)
		}
		if err != nil {
			atomic.AddInt64(&m.receivedBytes, -last)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		m.record(Result{Label: label, Path: track.Path, Status: StatusFailed, Err: err})
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", label, err), Level: LevelError})
		return false
	}

	atomic.AddInt32(&m.downloadedFiles, 1)

	if track.Format.IsMP3() && (m.settings.ModifyTags || artwork != nil) {
		if err := m.tagger.SaveTags(track, artwork); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error tagging %s: %v", label, err), Level: LevelWarning})
		}
	}

	m.record(Result{Label: label, Path: track.Path, Status: StatusDownloaded, Bytes: written})
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", filepath.Base(track.Path)), Level: LevelSuccess})
	return true
}

// existingIsComplete reports whether a file already at track.Path is close
// enough in size to the remote stream to be kept. For streams of unknown
// size any non-empty file counts. When tagging is on, the ID3 tag written
// after download is not counted.
func (m *Manager) existingIsComplete(ctx context.Context, track *model.Track) bool {
	info, err := os.Stat(track.Path)
	if err != nil || info.Size() == 0 {
		return false
	}
	if track.Protocol != "progressive" {
		return true
	}

	expectedSize, err := m.httpClient.GetFileSize(ctx, track.StreamURL)
	if err != nil || expectedSize <= 0 {
		return false
	}
	size := info.Size()
	if track.Format.IsMP3() && (m.settings.ModifyTags || m.settings.SaveCoverArtInTags) {
		size -= audio.TagSize(track.Path)
	}
	sizeDiff := float64(size-expectedSize) / float64(expectedSize)
	return math.Abs(sizeDiff) <= m.settings.AllowedFileSizeDifference
}

func (m *Manager) record(r Result) {
	m.mu.Lock()
	m.results = append(m.results, r)
	m.mu.Unlock()
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}

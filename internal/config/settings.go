package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	httpclient "github.com/handiism/soundcloud-downloader/internal/http"
	"github.com/handiism/soundcloud-downloader/internal/model"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud"
)

// Policies for a target file that already exists.
const (
	OnExistingOverwrite = "overwrite"
	OnExistingSkip      = "skip"
	OnExistingRename    = "rename"
)

// Proxy types.
const (
	ProxyNone   = "none"
	ProxySystem = "system"
	ProxyManual = "manual"
)

// Environment variables read by ApplyEnv.
const (
	EnvClientID  = "SOUNDCLOUD_CLIENT_ID"
	EnvOutputDir = "SOUNDCLOUD_OUTPUT_DIR"
	EnvLogLevel  = "SOUNDCLOUD_LOG_LEVEL"
	EnvAPIURL    = "SOUNDCLOUD_API_URL"
	EnvProxy     = "SOUNDCLOUD_PROXY"
)

// Settings holds all configuration options.
type Settings struct {
	// Output and file naming
	OutputDir              string `json:"output_dir"`
	FileNameFormat         string `json:"file_name_format"`
	PlaylistFolderFormat   string `json:"playlist_folder_format"`
	PlaylistFileNameFormat string `json:"playlist_file_name_format"`
	CoverArtFileNameFormat string `json:"cover_art_file_name_format"`

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist"`
	PlaylistFormat string `json:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended"`

	// Existing files
	OnExisting                string  `json:"on_existing"` // overwrite, skip, rename
	AllowedFileSizeDifference float64 `json:"allowed_file_size_difference"`

	// SoundCloud access
	ClientID              string   `json:"client_id"`
	ClientIDCachePath     string   `json:"client_id_cache_path"`
	APIBaseURL            string   `json:"api_base_url"`
	WebBaseURL            string   `json:"web_base_url"`
	UserAgent             string   `json:"user_agent"`
	RequestTimeout        float64  `json:"request_timeout"` // seconds
	TranscodingPreference []string `json:"transcoding_preference"`
	AllowHLS              bool     `json:"allow_hls"`
	VerifyContainer       bool     `json:"verify_container"`

	// Tag and cover art settings
	ModifyTags            bool `json:"modify_tags"`
	SaveCoverArtInTags    bool `json:"save_cover_art_in_tags"`
	SaveCoverArtInFolder  bool `json:"save_cover_art_in_folder"`
	CoverArtInTagsResize  bool `json:"cover_art_in_tags_resize"`
	CoverArtInTagsMaxSize int  `json:"cover_art_in_tags_max_size"`
	ConvertCoverArtToJPG  bool `json:"convert_cover_art_to_jpg"`

	// Proxy settings
	ProxyType    string `json:"proxy_type"` // none, system, manual
	ProxyAddress string `json:"proxy_address"`
	ProxyPort    int    `json:"proxy_port"`

	LogLevel string `json:"log_level"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		OutputDir:              ".",
		FileNameFormat:         "{title}",
		PlaylistFolderFormat:   "{playlist}",
		PlaylistFileNameFormat: "{playlist}",
		CoverArtFileNameFormat: "cover",

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,

		OnExisting:                OnExistingOverwrite,
		AllowedFileSizeDifference: 0.05,

		ClientIDCachePath:     soundcloud.DefaultCachePath(),
		APIBaseURL:            soundcloud.DefaultAPIBase,
		WebBaseURL:            soundcloud.DefaultWebBase,
		UserAgent:             httpclient.DefaultUserAgent,
		RequestTimeout:        httpclient.DefaultTimeout.Seconds(),
		TranscodingPreference: []string{soundcloud.DefaultPreferences[0].String()},
		AllowHLS:              false,
		VerifyContainer:       true,

		ModifyTags:            false,
		SaveCoverArtInTags:    false,
		SaveCoverArtInFolder:  false,
		CoverArtInTagsResize:  true,
		CoverArtInTagsMaxSize: 1000,
		ConvertCoverArtToJPG:  true,

		ProxyType: ProxySystem,

		LogLevel: "info",
	}
}

// Load reads settings from a JSON file. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LoadEnv loads variables from the given .env files, or ./.env when none
// are given, into the process environment. Missing files are ignored and
// variables already set are not overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	log.WithField("component", "config").Debugf("loaded %s", strings.Join(existing, ", "))
	return nil
}

// ApplyEnv overrides settings from SOUNDCLOUD_* environment variables.
//
// SOUNDCLOUD_PROXY takes "host:port" (manual proxy), "none" or "system".
func (s *Settings) ApplyEnv() error {
	if v := os.Getenv(EnvClientID); v != "" {
		s.ClientID = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		s.OutputDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		s.APIBaseURL = v
	}
	if v := os.Getenv(EnvProxy); v != "" {
		switch v {
		case ProxyNone, ProxySystem:
			s.ProxyType = v
		default:
			host, portStr, ok := strings.Cut(v, ":")
			port, err := strconv.Atoi(portStr)
			if !ok || host == "" || err != nil {
				return fmt.Errorf("%s: want host:port, none or system, got %q", EnvProxy, v)
			}
			s.ProxyType = ProxyManual
			s.ProxyAddress = host
			s.ProxyPort = port
		}
	}
	return nil
}

// Validate reports every invalid setting, joined into one error.
func (s *Settings) Validate() error {
	var errs []error

	if strings.TrimSpace(s.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir is empty"))
	}
	if strings.TrimSpace(s.FileNameFormat) == "" {
		errs = append(errs, errors.New("file_name_format is empty"))
	}
	if strings.TrimSpace(s.PlaylistFileNameFormat) == "" {
		errs = append(errs, errors.New("playlist_file_name_format is empty"))
	}
	if _, err := model.ParsePlaylistFormat(s.PlaylistFormat); err != nil {
		errs = append(errs, err)
	}
	switch s.OnExisting {
	case OnExistingOverwrite, OnExistingSkip, OnExistingRename:
	default:
		errs = append(errs, fmt.Errorf("on_existing must be overwrite, skip or rename, got %q", s.OnExisting))
	}
	if s.AllowedFileSizeDifference < 0 || s.AllowedFileSizeDifference >= 1 {
		errs = append(errs, fmt.Errorf("allowed_file_size_difference must be in [0, 1), got %v", s.AllowedFileSizeDifference))
	}
	if s.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %v", s.RequestTimeout))
	}
	if _, err := s.Preferences(); err != nil {
		errs = append(errs, err)
	}
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch s.ProxyType {
	case ProxyNone, ProxySystem:
	case ProxyManual:
		if s.ProxyAddress == "" || s.ProxyPort <= 0 || s.ProxyPort > 65535 {
			errs = append(errs, fmt.Errorf("manual proxy needs proxy_address and proxy_port, got %q:%d", s.ProxyAddress, s.ProxyPort))
		}
	default:
		errs = append(errs, fmt.Errorf("proxy_type must be none, system or manual, got %q", s.ProxyType))
	}

	return errors.Join(errs...)
}

// Timeout returns RequestTimeout as a duration.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.RequestTimeout * float64(time.Second))
}

// Preferences returns the parsed transcoding preferences, with the HLS MP3
// fallback appended when AllowHLS is set.
func (s *Settings) Preferences() ([]soundcloud.Preference, error) {
	entries := s.TranscodingPreference
	if len(entries) == 0 {
		for _, p := range soundcloud.DefaultPreferences {
			entries = append(entries, p.String())
		}
	}

	prefs, err := soundcloud.ParsePreferences(entries)
	if err != nil {
		return nil, err
	}

	if s.AllowHLS {
		for _, p := range prefs {
			if p == soundcloud.HLSPreference {
				return prefs, nil
			}
		}
		prefs = append(prefs, soundcloud.HLSPreference)
	}
	return prefs, nil
}

// HTTPOptions returns the HTTP client options for these settings.
func (s *Settings) HTTPOptions() httpclient.Options {
	return httpclient.Options{
		Timeout:   s.Timeout(),
		UserAgent: s.UserAgent,
		Proxy:     s.proxyFunc(),
	}
}

func (s *Settings) proxyFunc() func(*http.Request) (*url.URL, error) {
	switch s.ProxyType {
	case ProxySystem:
		return http.ProxyFromEnvironment
	case ProxyManual:
		proxyURL := &url.URL{
			Scheme: "http",
			Host:   fmt.Sprintf("%s:%d", s.ProxyAddress, s.ProxyPort),
		}
		return http.ProxyURL(proxyURL)
	default:
		return nil
	}
}

// ToPathConfig converts settings to PathConfig.
func (s *Settings) ToPathConfig() *model.PathConfig {
	pf, err := model.ParsePlaylistFormat(s.PlaylistFormat)
	if err != nil {
		pf = model.PlaylistFormatM3U
	}

	return &model.PathConfig{
		OutputDir:              s.OutputDir,
		PlaylistFolderFormat:   s.PlaylistFolderFormat,
		PlaylistFileNameFormat: s.PlaylistFileNameFormat,
		CoverArtFileNameFormat: s.CoverArtFileNameFormat,
		PlaylistFormat:         pf,
	}
}

// ToTrackConfig converts settings to TrackConfig.
func (s *Settings) ToTrackConfig() *model.TrackConfig {
	return &model.TrackConfig{
		OutputDir:      s.OutputDir,
		FileNameFormat: s.FileNameFormat,
	}
}

// TokenSource returns the client token source for these settings: the
// configured client_id when set, otherwise a scrape of WebBaseURL behind the
// token cache.
func (s *Settings) TokenSource(client *httpclient.Client, api *soundcloud.API) soundcloud.TokenSource {
	if strings.TrimSpace(s.ClientID) != "" {
		return soundcloud.NewStaticTokenSource(s.ClientID)
	}
	return &soundcloud.CachedTokenSource{
		Path:       s.ClientIDCachePath,
		Source:     soundcloud.NewScrapeTokenSource(client, s.WebBaseURL),
		Checker:    api,
		RetryDelay: 500 * time.Millisecond,
	}
}

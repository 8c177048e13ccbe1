// Package config provides configuration management for soundcloud-downloader.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Overrides from .env files and SOUNDCLOUD_* environment variables
//   - Validation of enumerated and numeric options
//   - Conversion to PathConfig, TrackConfig and HTTP client options
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// Downloads "{title}.mp3" into the current directory
//	// Overwrites existing files
//	// Leaves the stream bytes untouched (ID3 tagging is opt-in)
//
// # Loading
//
//	if err := config.LoadEnv(); err != nil {
//	    return err
//	}
//	settings, err := config.Load("/path/to/config.json") // defaults if missing
//	if err == nil {
//	    err = settings.ApplyEnv()
//	}
//	if err == nil {
//	    err = settings.Validate()
//	}
//
// # Environment
//
//	SOUNDCLOUD_CLIENT_ID   skip client_id discovery
//	SOUNDCLOUD_OUTPUT_DIR  output directory
//	SOUNDCLOUD_LOG_LEVEL   logrus level name
//	SOUNDCLOUD_API_URL     API base URL
//	SOUNDCLOUD_PROXY       host:port, none or system
package config

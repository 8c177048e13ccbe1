// Package model defines the core data structures used throughout
// the soundcloud-downloader application.
//
// # Track
//
// TrackMetadata is what the resolver produces for one SoundCloud track.
// Track turns it into a download plan with a local path:
//
//	track, err := model.NewTrack(meta, nil, 1, trackConfig)
//	if errors.Is(err, model.ErrNoStream) {
//	    // nothing playable, skip
//	}
//	fmt.Println(track.Path) // e.g. "./Artist - Title.mp3"
//
// # Playlist
//
// Playlist represents a SoundCloud set with its computed folder and
// playlist-file paths:
//
//	pl, err := model.NewPlaylist(meta, pathConfig)
//	fmt.Println(pl.Path)         // Where the set's tracks are saved
//	fmt.Println(pl.PlaylistPath) // Where the .m3u is written
//
// # Formats
//
// FormatFor maps the MIME type of a stream to its file extension. Unknown
// types fail with ErrUnsupportedFormat instead of being saved as ".mp3".
//
// Every computed path is checked to stay inside the configured output
// directory.
package model

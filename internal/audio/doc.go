// Package audio provides audio file manipulation services including
// ID3 tag writing and playlist generation.
//
// # ID3 Tagging
//
// Use the Tagger to write ID3 tags to downloaded MP3 files:
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags(track, artworkBytes)
//
// The tagger writes title, artist, genre, year and date, the permalink as a
// comment and the cover art. Tracks downloaded as part of a playlist also
// get album (playlist title), album artist and track number.
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(model.PlaylistFormatM3U, true)
//	err := creator.Save(ctx, playlist) // writes playlist.PlaylistPath
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio

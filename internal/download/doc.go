// Package download fetches resolved SoundCloud tracks to local files.
//
// # Downloader
//
// Downloader streams one media URL into one file. Progressive streams are
// copied in ChunkSize pieces; HLS streams are assembled from their segments
// in playlist order. Data goes to a temporary file next to the target and is
// renamed into place only when the transfer is complete:
//
//   - the byte count matches Content-Length when the server declared one
//   - with verification on, the content sniffs as the expected format
//
// Failures are returned as *Error with an ErrorType:
//
//	n, err := d.Download(ctx, track.StreamURL, track.Path, track.Format, nil)
//	switch {
//	case IsType(err, ErrorIncomplete):
//	case IsType(err, ErrorCancelled):
//	}
//
// # Manager
//
// The Manager runs the whole pipeline for a batch of input URLs:
//
//  1. Parse input URLs
//  2. Obtain a client token
//  3. Resolve each URL to tracks, expanding short links and playlists
//  4. Download tracks, fetching cover art alongside
//  5. Tag MP3 files with ID3 metadata
//  6. Generate playlists (optional)
//
// # Basic Usage
//
//	manager, err := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := manager.Initialize(ctx, "https://soundcloud.com/artist/track-x"); err != nil {
//	    return err
//	}
//	if err := manager.StartDownloads(ctx); err != nil {
//	    return err
//	}
//	summary := manager.Summary()
//
// # Failure isolation
//
// A track that cannot be resolved or downloaded is recorded in Results and
// the run continues. Inside a playlist this means the other tracks are still
// saved and the playlist file lists only the tracks that exist on disk.
package download

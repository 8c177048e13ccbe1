// Package http provides the HTTP client used for SoundCloud web, API and
// media requests.
//
// The Client in this package handles:
//   - User-Agent headers
//   - A bounded per-request timeout and optional proxy
//   - JSON decoding and typed status errors (*StatusError)
//   - Streaming responses for downloads
//   - Redirect resolution for on.soundcloud.com short links
//
// # Basic Usage
//
//	client := http.NewClient(http.Options{Timeout: 30 * time.Second})
//
//	// Fetch HTML page
//	html, err := client.GetString(ctx, "https://soundcloud.com")
//
//	// Stream a file
//	resp, err := client.Open(ctx, streamURL)
//	defer resp.Body.Close()
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultUserAgent mimics a desktop browser; the SoundCloud web host serves
// a reduced page to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 30 * time.Second

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	// Timeout bounds each request, including reading the body.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// Proxy selects the proxy for a request; nil means direct connections.
	Proxy func(*http.Request) (*url.URL, error)
}

// Client wraps HTTP operations with the headers and limits the downloader
// needs.
//
// Client provides:
//   - A browser-like User-Agent header
//   - A bounded timeout on every request
//   - JSON decoding of API responses
//   - Streaming responses for file downloads
//   - Redirect resolution for short links
//
// Example usage:
//
//	client := NewClient(Options{})
//
//	// Fetch HTML content
//	html, err := client.GetString(ctx, "https://soundcloud.com")
//
//	// Decode an API response
//	var track dto.Resource
//	err = client.GetJSON(ctx, apiURL, &track)
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = opts.Proxy

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		userAgent: opts.UserAgent,
	}
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header),
	// -1 when unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Open performs a GET request and returns the response for streaming.
//
// The caller must close the response body. Non-2xx responses are closed
// here and reported as *StatusError.
func (c *Client) Open(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, rawURL)
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns an error if:
//   - The request fails
//   - The response status is not 2xx (*StatusError)
//   - Reading the body fails
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// GetString performs a GET request and returns the response body as a string.
//
// This is a convenience wrapper around Get for fetching text content like
// HTML pages and JavaScript bundles.
func (c *Client) GetString(ctx context.Context, rawURL string) (string, error) {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetJSON performs a GET request and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", redact(rawURL), err)
	}
	return nil
}

// GetFileSize returns the size of a file at the given URL via HEAD request.
//
// Returns an error if the request fails or the server doesn't return a
// Content-Length header.
func (c *Client) GetFileSize(ctx context.Context, rawURL string) (int64, error) {
	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("no Content-Length header for %s", redact(rawURL))
	}

	return resp.ContentLength, nil
}

// FinalURL follows redirects from rawURL and returns where they end.
//
// A HEAD request is tried first; some short-link hosts reject HEAD, in
// which case a GET is made and its body discarded.
func (c *Client) FinalURL(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		resp, err = c.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return "", err
		}
	}
	defer resp.Body.Close()

	return resp.Request.URL.String(), nil
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	log.WithField("component", "http").Tracef("%s %s", method, redact(rawURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return resp, nil
}

// redact hides the client_id query parameter in logged URLs.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("client_id") {
		q.Set("client_id", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

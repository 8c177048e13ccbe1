package soundcloud

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	httpclient "github.com/handiism/soundcloud-downloader/internal/http"
)

// ClientToken is the public client_id the web player sends with every API
// request. It is passed explicitly to each resolver call, never stored in
// package state.
type ClientToken string

// String hides most of the token so it can be logged.
func (t ClientToken) String() string {
	if len(t) <= 6 {
		return strings.Repeat("*", len(t))
	}
	return string(t[:4]) + strings.Repeat("*", len(t)-4)
}

// TokenSource produces a client token.
//
// Implementations return an error wrapping ErrTokenUnavailable when no token
// can be produced.
type TokenSource interface {
	Token(ctx context.Context) (ClientToken, error)
}

// TokenChecker checks whether the API accepts a token.
type TokenChecker interface {
	CheckToken(ctx context.Context, token ClientToken) bool
}

// StaticTokenSource always returns the token it was created with.
type StaticTokenSource struct {
	token ClientToken
}

// NewStaticTokenSource wraps a token supplied by the user.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: ClientToken(strings.TrimSpace(token))}
}

func (s *StaticTokenSource) Token(context.Context) (ClientToken, error) {
	if s.token == "" {
		return "", fmt.Errorf("%w: no client_id configured", ErrTokenUnavailable)
	}
	return s.token, nil
}

// DefaultMaxScripts bounds how many script bundles a scrape downloads.
const DefaultMaxScripts = 20

// ScrapeTokenSource discovers the client_id by downloading the SoundCloud
// web pages and the JavaScript bundles they reference, then pattern
// matching the text.
//
// The home page must be reachable; the extra pages only widen the set of
// candidate scripts and are skipped on failure.
type ScrapeTokenSource struct {
	client     *httpclient.Client
	webBase    string
	extraPages []string
	maxScripts int
}

// NewScrapeTokenSource creates a scraper against webBase, normally
// "https://soundcloud.com".
func NewScrapeTokenSource(client *httpclient.Client, webBase string) *ScrapeTokenSource {
	return &ScrapeTokenSource{
		client:     client,
		webBase:    strings.TrimRight(webBase, "/"),
		extraPages: []string{"/discover", "/charts/top"},
		maxScripts: DefaultMaxScripts,
	}
}

func (s *ScrapeTokenSource) Token(ctx context.Context) (ClientToken, error) {
	logger := log.WithField("component", "token")

	base, err := url.Parse(s.webBase + "/")
	if err != nil {
		return "", fmt.Errorf("%w: invalid web base: %v", ErrTokenUnavailable, err)
	}

	home, err := s.client.GetString(ctx, s.webBase)
	if err != nil {
		return "", fmt.Errorf("%w: fetch home page: %v", ErrTokenUnavailable, err)
	}

	if id, ok := FindClientID(home); ok {
		logger.Debug("client_id found inline in home page")
		return ClientToken(id), nil
	}

	scripts, err := ScriptURLs(home, base)
	if err != nil {
		return "", fmt.Errorf("%w: parse home page: %v", ErrTokenUnavailable, err)
	}

	for _, page := range s.extraPages {
		html, err := s.client.GetString(ctx, s.webBase+page)
		if err != nil {
			logger.Debugf("skipping %s: %v", page, err)
			continue
		}
		more, err := ScriptURLs(html, base)
		if err != nil {
			continue
		}
		scripts = appendUnique(scripts, more...)
	}

	if len(scripts) > s.maxScripts {
		scripts = scripts[:s.maxScripts]
	}

	for i, script := range scripts {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		logger.Debugf("checking script %d/%d: %s", i+1, len(scripts), script)
		body, err := s.client.GetString(ctx, script)
		if err != nil {
			continue
		}
		if id, ok := FindClientID(body); ok {
			return ClientToken(id), nil
		}
	}

	return "", fmt.Errorf("%w: no client_id in %d scripts", ErrTokenUnavailable, len(scripts))
}

// CachedTokenSource remembers the last working token in a file and asks
// Source for a new one when the cached token is missing or rejected.
//
// A freshly discovered token that the API rejects triggers exactly one more
// discovery after RetryDelay.
type CachedTokenSource struct {
	Path       string
	Source     TokenSource
	Checker    TokenChecker
	RetryDelay time.Duration
}

// DefaultCachePath returns ~/.soundcloud_client_id, or "" when the home
// directory is unknown.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".soundcloud_client_id")
}

func (c *CachedTokenSource) Token(ctx context.Context) (ClientToken, error) {
	logger := log.WithField("component", "token")

	if cached := c.load(); cached != "" {
		if c.valid(ctx, cached) {
			logger.Debug("using cached client_id")
			return cached, nil
		}
		logger.Debug("cached client_id rejected")
	}

	token, err := c.Source.Token(ctx)
	if err != nil {
		return "", err
	}

	if !c.valid(ctx, token) {
		logger.Debug("discovered client_id rejected, retrying discovery")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.RetryDelay):
		}

		token, err = c.Source.Token(ctx)
		if err != nil {
			return "", err
		}
		if !c.valid(ctx, token) {
			return "", fmt.Errorf("%w: discovered client_id was rejected", ErrTokenUnavailable)
		}
	}

	c.save(token)
	return token, nil
}

func (c *CachedTokenSource) valid(ctx context.Context, token ClientToken) bool {
	if c.Checker == nil {
		return true
	}
	return c.Checker.CheckToken(ctx, token)
}

func (c *CachedTokenSource) load() ClientToken {
	if c.Path == "" {
		return ""
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return ""
	}
	return ClientToken(strings.TrimSpace(string(data)))
}

// save is best effort; a read-only home directory only costs a scrape on
// the next run.
func (c *CachedTokenSource) save(token ClientToken) {
	if c.Path == "" {
		return
	}
	if err := os.WriteFile(c.Path, []byte(token), 0600); err != nil {
		log.WithField("component", "token").Debugf("could not cache client_id: %v", err)
	}
}

// ChainTokenSource tries each source in order and returns the first token.
type ChainTokenSource []TokenSource

func (c ChainTokenSource) Token(ctx context.Context) (ClientToken, error) {
	var errs []error
	for _, src := range c {
		token, err := src.Token(ctx)
		if err == nil {
			return token, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: no token sources configured", ErrTokenUnavailable)
	}
	return "", fmt.Errorf("%w: %v", ErrTokenUnavailable, errors.Join(errs...))
}

func appendUnique(list []string, items ...string) []string {
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		seen[s] = true
	}
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			list = append(list, s)
		}
	}
	return list
}

// Package soundcloud resolves SoundCloud URLs into downloadable tracks.
//
// Resolution runs in two stages:
//
//  1. Token discovery. The v2 API requires the public client_id that the
//     web player embeds in its JavaScript bundles. A TokenSource produces
//     it: StaticTokenSource for a configured value, ScrapeTokenSource to
//     pattern match the bundles, CachedTokenSource to reuse the last
//     working one, and ChainTokenSource to combine them.
//
//  2. Resource resolution. Resolver calls /resolve, picks a transcoding
//     according to an ordered preference list and exchanges it for a
//     signed stream URL. Playlists are expanded track by track, with stub
//     entries hydrated through /tracks.
//
// # Example
//
//	client := http.NewClient(http.Options{})
//	api := soundcloud.NewAPI(client, "")
//	tokens := &soundcloud.CachedTokenSource{
//	    Path:    soundcloud.DefaultCachePath(),
//	    Source:  soundcloud.NewScrapeTokenSource(client, soundcloud.DefaultWebBase),
//	    Checker: api,
//	}
//
//	token, err := tokens.Token(ctx)
//	if err != nil {
//	    return err // wraps ErrTokenUnavailable
//	}
//
//	res, err := soundcloud.NewResolver(api, nil).ResolveURL(ctx, url, token)
//
// Failures concerning one resource are *ResolutionError values; use IsKind
// to branch on NotFound, Unplayable, NetworkError or Unsupported.
package soundcloud

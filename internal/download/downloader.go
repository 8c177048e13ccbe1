package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/grafov/m3u8"
	log "github.com/sirupsen/logrus"

	httpclient "github.com/handiism/soundcloud-downloader/internal/http"
	ioutils "github.com/handiism/soundcloud-downloader/internal/io"
	"github.com/handiism/soundcloud-downloader/internal/model"
)

// ChunkSize is the copy buffer size for stream downloads.
const ChunkSize = 64 * 1024

// ProgressFunc receives the bytes written so far and the declared total,
// which is -1 when unknown.
type ProgressFunc func(written, total int64)

// Downloader streams media URLs into local files.
//
// Every download goes to a temporary file in the target directory that is
// renamed over the target only after the transfer is complete and
// verified. A failed or cancelled download leaves the target untouched and
// no temporary file behind.
//
// Example:
//
//	d := NewDownloader(client, true)
//	n, err := d.Download(ctx, meta.StreamURL, "/music/Track X.mp3", meta.Format, nil)
//	if IsType(err, ErrorIncomplete) {
//	    // connection dropped, nothing written
//	}
type Downloader struct {
	client *httpclient.Client
	verify bool
}

// NewDownloader creates a Downloader. When verify is set, the received
// content is sniffed and must match the expected format.
func NewDownloader(client *httpclient.Client, verify bool) *Downloader {
	return &Downloader{client: client, verify: verify}
}

// Download fetches a progressive stream into target and returns the number
// of bytes written. Any existing file at target is replaced.
func (d *Downloader) Download(ctx context.Context, streamURL, target string, format model.Format, onProgress ProgressFunc) (int64, error) {
	resp, err := d.client.Open(ctx, streamURL)
	if err != nil {
		return 0, requestError(ctx, err)
	}
	defer resp.Body.Close()

	return d.write(ctx, target, format, resp.ContentLength, onProgress, func(w io.Writer) (int64, error) {
		return io.CopyBuffer(w, resp.Body, make([]byte, ChunkSize))
	})
}

// DownloadHLS fetches every segment of an HLS playlist into target, in
// order. A master playlist is followed to its first variant. Encrypted
// playlists fail with ErrorUnsupportedFormat.
func (d *Downloader) DownloadHLS(ctx context.Context, playlistURL, target string, format model.Format, onProgress ProgressFunc) (int64, error) {
	segments, err := d.segments(ctx, playlistURL, 1)
	if err != nil {
		return 0, err
	}

	log.WithField("component", "download").Debugf("hls playlist with %d segments", len(segments))

	return d.write(ctx, target, format, -1, onProgress, func(w io.Writer) (int64, error) {
		var written int64
		buf := make([]byte, ChunkSize)

		for _, seg := range segments {
			resp, err := d.client.Open(ctx, seg)
			if err != nil {
				return written, err
			}
			n, err := io.CopyBuffer(w, resp.Body, buf)
			resp.Body.Close()
			written += n
			if err != nil {
				return written, err
			}
		}
		return written, nil
	})
}

// segments returns the absolute segment URLs of the media playlist at
// playlistURL. depth bounds how many master playlists may be followed.
func (d *Downloader) segments(ctx context.Context, playlistURL string, depth int) ([]string, error) {
	base, err := url.Parse(playlistURL)
	if err != nil {
		return nil, newError(ErrorNetwork, "invalid playlist url", err)
	}

	body, err := d.client.Get(ctx, playlistURL)
	if err != nil {
		return nil, requestError(ctx, err)
	}

	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, newError(ErrorUnsupportedFormat, "malformed hls playlist", err)
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		if depth <= 0 || len(master.Variants) == 0 || master.Variants[0] == nil {
			return nil, newError(ErrorUnsupportedFormat, "hls master playlist has no usable variant", nil)
		}
		variant, err := base.Parse(master.Variants[0].URI)
		if err != nil {
			return nil, newError(ErrorUnsupportedFormat, "invalid variant uri", err)
		}
		return d.segments(ctx, variant.String(), depth-1)

	case m3u8.MEDIA:
		media := playlist.(*m3u8.MediaPlaylist)
		if encrypted(media.Key) {
			return nil, newError(ErrorUnsupportedFormat, "hls stream is encrypted", nil)
		}

		var urls []string
		if media.Map != nil && media.Map.URI != "" {
			u, err := base.Parse(media.Map.URI)
			if err != nil {
				return nil, newError(ErrorUnsupportedFormat, "invalid init segment uri", err)
			}
			urls = append(urls, u.String())
		}

		for _, seg := range media.Segments {
			if seg == nil {
				break
			}
			if encrypted(seg.Key) {
				return nil, newError(ErrorUnsupportedFormat, "hls segment is encrypted", nil)
			}
			u, err := base.Parse(seg.URI)
			if err != nil {
				return nil, newError(ErrorUnsupportedFormat, "invalid segment uri", err)
			}
			urls = append(urls, u.String())
		}

		if len(urls) == 0 {
			return nil, newError(ErrorUnsupportedFormat, "hls playlist has no segments", nil)
		}
		return urls, nil

	default:
		return nil, newError(ErrorUnsupportedFormat, "unknown hls playlist type", nil)
	}
}

func encrypted(key *m3u8.Key) bool {
	return key != nil && key.Method != "" && !strings.EqualFold(key.Method, "NONE")
}

// write runs copyFn against a temporary file and commits it to target
// after the size and container checks pass.
func (d *Downloader) write(ctx context.Context, target string, format model.Format, total int64, onProgress ProgressFunc, copyFn func(io.Writer) (int64, error)) (int64, error) {
	if err := ioutils.EnsureDir(filepath.Dir(target)); err != nil {
		return 0, newError(ErrorIO, "create output directory", err)
	}

	f, err := ioutils.NewAtomicFile(target)
	if err != nil {
		return 0, newError(ErrorIO, "create temporary file", err)
	}
	defer f.Abort()

	pw := &httpclient.ProgressWriter{
		Writer:   fileWriter{f},
		Total:    total,
		OnUpdate: onProgress,
	}

	n, err := copyFn(pw)
	if err != nil {
		if ctx.Err() != nil {
			return n, newError(ErrorCancelled, "download cancelled", ctx.Err())
		}
		var de *Error
		if errors.As(err, &de) {
			return n, de
		}
		if total >= 0 && errors.Is(err, io.ErrUnexpectedEOF) {
			return n, newError(ErrorIncomplete, fmt.Sprintf("received %d of %d bytes", n, total), err)
		}
		return n, newError(ErrorNetwork, "read stream", err)
	}

	if total >= 0 && n != total {
		return n, newError(ErrorIncomplete, fmt.Sprintf("received %d of %d bytes", n, total), nil)
	}

	if d.verify && len(format.Sniffed) > 0 {
		ok, detected, err := ioutils.MatchesFormat(f.TempPath(), format.Sniffed)
		if err != nil {
			return n, newError(ErrorIO, "inspect downloaded file", err)
		}
		if !ok {
			return n, newError(ErrorUnsupportedFormat,
				fmt.Sprintf("content is %s, expected %s", detected, format.MimeType), nil)
		}
	}

	if err := f.Commit(); err != nil {
		return n, newError(ErrorIO, "save file", err)
	}
	return n, nil
}

// fileWriter tags write failures as local I/O errors so they are not
// mistaken for network errors.
type fileWriter struct {
	w io.Writer
}

func (fw fileWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err != nil {
		return n, newError(ErrorIO, "write file", err)
	}
	return n, nil
}

func requestError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil {
		return newError(ErrorCancelled, "download cancelled", ctx.Err())
	}
	return newError(ErrorNetwork, "request stream", err)
}

// Package ioutils provides file system and image helpers for the downloader.
//
// This package contains functions for:
//   - Turning track titles into safe file names
//   - Checking that computed paths stay inside the output directory
//   - Writing files atomically (temporary file + rename)
//   - Sniffing the container of a downloaded file
//   - Resizing and converting cover art
//
// # File Names
//
//	safe := ioutils.SanitizeFileName("Song: Part 1/2") // "Song_ Part 1_2"
//	if err := ioutils.Within("/music", filepath.Join("/music", safe)); err != nil {
//	    // never happens for sanitized names
//	}
//
// # Atomic Writes
//
//	f, err := ioutils.NewAtomicFile("/music/Song.mp3")
//	defer f.Abort()
//	io.Copy(f, body)
//	f.Commit()
//
// # Container Check
//
//	ok, detected, err := ioutils.MatchesFormat(path, []string{"audio/mpeg"})
//
// # Cover Art
//
//	svc := ioutils.NewImageService()
//	cover, _ := svc.PrepareCover(ctx, artwork, ioutils.CoverOptions{Resize: true, MaxSize: 500})
package ioutils

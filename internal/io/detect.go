package ioutils

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// DetectFormat sniffs the content of the file at path and returns its media
// type, e.g. "audio/mpeg".
func DetectFormat(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	return mtype.String(), nil
}

// MatchesFormat sniffs the file at path and reports whether its media type,
// or any of its parent types, is one of accepted. The detected type is
// returned for diagnostics.
//
// Example:
//
//	ok, detected, err := MatchesFormat("/music/Song.mp3", []string{"audio/mpeg"})
//	if err == nil && !ok {
//	    fmt.Printf("file is %s, not MP3\n", detected)
//	}
func MatchesFormat(path string, accepted []string) (bool, string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false, "", fmt.Errorf("sniff %s: %w", path, err)
	}

	for m := mtype; m != nil; m = m.Parent() {
		for _, want := range accepted {
			if m.Is(want) {
				return true, mtype.String(), nil
			}
		}
	}
	return false, mtype.String(), nil
}

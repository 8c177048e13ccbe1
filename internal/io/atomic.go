package ioutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// AtomicFile is a file written under a temporary name in the destination
// directory and moved over the destination only when Commit is called.
//
// Readers of the destination path never observe a partial file: either the
// previous content (or nothing) or the complete new content.
//
// Example:
//
//	f, err := NewAtomicFile("/music/Song.mp3")
//	if err != nil {
//	    return err
//	}
//	defer f.Abort() // no-op after a successful Commit
//
//	if _, err := io.Copy(f, body); err != nil {
//	    return err
//	}
//	return f.Commit()
type AtomicFile struct {
	*os.File

	target string
	done   bool
}

// NewAtomicFile creates the temporary file next to target.
//
// The temporary name is ".<base>.<uuid>.part" so concurrent runs writing the
// same target never share a temporary file.
func NewAtomicFile(target string) (*AtomicFile, error) {
	dir := filepath.Dir(target)
	name := fmt.Sprintf(".%s.%s.part", filepath.Base(target), uuid.NewString())

	f, err := os.OpenFile(filepath.Join(dir, name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}

	return &AtomicFile{File: f, target: target}, nil
}

// Target returns the final destination path.
func (a *AtomicFile) Target() string {
	return a.target
}

// TempPath returns the path of the temporary file.
func (a *AtomicFile) TempPath() string {
	return a.File.Name()
}

// Commit flushes the temporary file and renames it over the target,
// replacing any existing file.
func (a *AtomicFile) Commit() error {
	if a.done {
		return errors.New("atomic file already finished")
	}
	a.done = true

	if err := a.File.Sync(); err != nil {
		a.File.Close()
		os.Remove(a.TempPath())
		return err
	}
	if err := a.File.Close(); err != nil {
		os.Remove(a.TempPath())
		return err
	}
	if err := os.Rename(a.TempPath(), a.target); err != nil {
		os.Remove(a.TempPath())
		return err
	}
	return nil
}

// Abort closes and deletes the temporary file. It is safe to call after
// Commit, in which case it does nothing.
func (a *AtomicFile) Abort() {
	if a.done {
		return
	}
	a.done = true
	a.File.Close()
	os.Remove(a.TempPath())
}

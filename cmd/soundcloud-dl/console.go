package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/handiism/soundcloud-downloader/internal/download"
	"github.com/handiism/soundcloud-downloader/internal/model"
	"github.com/handiism/soundcloud-downloader/internal/soundcloud"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgCyan)
	dimColor     = color.New(color.Faint)
)

// console renders manager events and per-track progress bars. Events arrive
// from the download goroutines, so every write holds mu.
type console struct {
	verbose bool

	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	track *model.Track
}

func newConsole(verbose bool) *console {
	return &console{verbose: verbose}
}

func (c *console) header() {
	infoColor.Println("♫ SoundCloud Downloader")
	dimColor.Println("────────────────────────────────────────")
	fmt.Println()
}

func (c *console) section(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Println()
	infoColor.Println(title)
	fmt.Println()
}

func (c *console) event(e download.ProgressEvent) {
	if e.Level == download.LevelVerbose && !c.verbose {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		c.bar.Clear()
	}

	switch e.Level {
	case download.LevelError:
		errorColor.Print("✗ ")
	case download.LevelWarning:
		warningColor.Print("! ")
	case download.LevelSuccess:
		successColor.Print("✓ ")
	case download.LevelInfo:
		infoColor.Print("› ")
	default:
		dimColor.Print("  ")
	}
	fmt.Println(e.Message)
}

// bytes drives one progress bar per track. A total of -1 shows a spinner.
func (c *console) bytes(track *model.Track, written, total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.track != track {
		c.closeBar()
		c.track = track
		c.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(filepath.Base(track.Path)),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetElapsedTime(false),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowCount(),
			progressbar.OptionShowBytes(true),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[cyan]=[reset]",
				SaucerHead:    "[cyan]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}

	c.bar.Set64(written)
	if total >= 0 && written >= total {
		c.closeBar()
	}
}

// finish removes a bar left open by a failed or cancelled transfer.
func (c *console) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeBar()
}

func (c *console) closeBar() {
	if c.bar != nil {
		c.bar.Finish()
		c.bar.Clear()
	}
	c.bar = nil
	c.track = nil
}

func (c *console) interrupted() {
	fmt.Println()
	warningColor.Println("Interrupted, nothing partial was kept.")
}

// plan prints the resolved tracks of a dry run.
func (c *console) plan(jobs []*download.Job, results []download.Result) {
	fmt.Println()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Artist", "Title", "Playlist", "Format", "Duration", "File"})
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	n := 0
	for _, job := range jobs {
		playlist := ""
		if job.Playlist != nil {
			playlist = job.Playlist.Title
		}
		for _, track := range job.Tracks {
			n++
			format := track.Format.Extension[1:]
			if track.Protocol == "hls" {
				format += " (hls)"
			}
			table.Append([]string{
				strconv.Itoa(n),
				track.Artist,
				track.Title,
				playlist,
				format,
				formatDuration(track.Duration),
				track.Path,
			})
		}
	}
	table.Render()

	for _, r := range results {
		if r.Status != download.StatusFailed {
			continue
		}
		warningColor.Printf("! %s: %s\n", r.Label, failureReason(r.Err))
	}

	fmt.Println()
	dimColor.Println("[Dry run - not downloading]")
}

func (c *console) summary(s download.Summary) {
	fmt.Println()
	dimColor.Println("────────────────────────────────────────")

	line := fmt.Sprintf("Downloaded %d file(s), %s", s.Downloaded, humanize.IBytes(uint64(s.Bytes)))
	if s.Skipped > 0 {
		line += fmt.Sprintf(", skipped %d existing", s.Skipped)
	}
	if s.OK() {
		successColor.Println("✨ " + line)
	} else {
		warningColor.Println(line)
	}

	if s.Failed > 0 {
		errorColor.Printf("%d track(s) failed\n", s.Failed)
	}
	if s.FailedInputs > 0 {
		errorColor.Printf("%d URL(s) produced no file\n", s.FailedInputs)
	}
}

// failureReason shortens resolution errors to their kind and message.
func failureReason(err error) string {
	var re *soundcloud.ResolutionError
	if errors.As(err, &re) {
		return fmt.Sprintf("%s (%s)", re.Message, re.Kind)
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func formatDuration(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/download"
	"github.com/handiism/soundcloud-downloader/internal/logging"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		urlsFlag       = flag.String("url", "", "SoundCloud URL(s) to download (comma-separated or newline-separated)")
		outputFlag     = flag.StringP("output", "o", "", "Output directory (overrides config)")
		configFlag     = flag.StringP("config", "c", "", "Path to JSON config file")
		clientIDFlag   = flag.String("client-id", "", "Use this client id instead of discovering one")
		playlistFlag   = flag.BoolP("playlist-file", "p", false, "Write a playlist file for sets")
		formatFlag     = flag.String("playlist-format", "", "Playlist file format: m3u, pls, wpl or zpl")
		onExistingFlag = flag.String("on-existing", "", "What to do with existing files: overwrite, skip or rename")
		hlsFlag        = flag.Bool("allow-hls", false, "Accept HLS MP3 streams when no progressive MP3 exists")
		tagsFlag       = flag.Bool("tags", false, "Write ID3 tags and embedded cover art to MP3 files")
		noTagsFlag     = flag.Bool("no-tags", false, "Do not write ID3 tags or cover art, even when the config enables them")
		verboseFlag    = flag.BoolP("verbose", "v", false, "Show verbose output")
		dryRunFlag     = flag.Bool("dry-run", false, "Resolve URLs and list tracks without downloading")
	)

	flag.Usage = usage
	flag.Parse()

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		return exitFailure
	}

	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			return exitFailure
		}
	}
	if err := settings.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in environment: %v\n", err)
		return exitFailure
	}

	// Flags override file and environment
	if *outputFlag != "" {
		settings.OutputDir = *outputFlag
	}
	if *clientIDFlag != "" {
		settings.ClientID = *clientIDFlag
	}
	if *playlistFlag {
		settings.CreatePlaylist = true
	}
	if *formatFlag != "" {
		settings.PlaylistFormat = *formatFlag
	}
	if *onExistingFlag != "" {
		settings.OnExisting = *onExistingFlag
	}
	if *hlsFlag {
		settings.AllowHLS = true
	}
	if *tagsFlag {
		settings.ModifyTags = true
		settings.SaveCoverArtInTags = true
	}
	if *noTagsFlag {
		settings.ModifyTags = false
		settings.SaveCoverArtInTags = false
	}

	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration:\n%v\n", err)
		return exitFailure
	}
	if err := logging.Setup(settings.LogLevel, *verboseFlag, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		return exitFailure
	}

	urls := strings.Join(append([]string{*urlsFlag}, flag.Args()...), "\n")
	if strings.TrimSpace(urls) == "" {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			usage()
			return exitFailure
		}
		prompted, err := promptURLs()
		if err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return exitInterrupted
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailure
		}
		urls = prompted
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newConsole(*verboseFlag)

	manager, err := download.NewManager(settings, out.event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	manager.SetByteProgress(out.bytes)

	out.header()

	if err := manager.Initialize(ctx, urls); err != nil {
		if ctx.Err() != nil {
			out.interrupted()
			return exitInterrupted
		}
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		return exitFailure
	}

	if *dryRunFlag {
		out.plan(manager.Jobs(), manager.Results())
		return dryRunExitCode(manager.Jobs())
	}

	if len(manager.Jobs()) == 0 {
		out.summary(manager.Summary())
		return exitFailure
	}

	out.section("Starting downloads...")

	err = manager.StartDownloads(ctx)
	out.finish()
	if ctx.Err() != nil {
		out.interrupted()
		return exitInterrupted
	}
	if err != nil {
		log.WithError(err).Error("download run failed")
		return exitFailure
	}

	summary := manager.Summary()
	out.summary(summary)
	if !summary.OK() {
		return exitFailure
	}
	return exitOK
}

// dryRunExitCode fails a dry run in which no input resolved to anything
// downloadable.
func dryRunExitCode(jobs []*download.Job) int {
	for _, job := range jobs {
		if len(job.Tracks) > 0 {
			return exitOK
		}
	}
	return exitFailure
}

func usage() {
	fmt.Fprintln(os.Stderr, "SoundCloud Downloader - Download tracks and playlists from SoundCloud")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  soundcloud-dl [flags] <url> [<url>...]")
	fmt.Fprintln(os.Stderr, "  soundcloud-dl --url <url>[,<url>...] [flags]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "For interactive mode, use: soundcloud-tui")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func promptURLs() (string, error) {
	var urls string
	prompt := &survey.Input{
		Message: "SoundCloud URL(s):",
		Help:    "Separate several URLs with commas or spaces.",
	}
	if err := survey.AskOne(prompt, &urls, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return urls, nil
}

// Package tui provides a Bubble Tea terminal user interface for soundcloud-downloader.
package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/download"
)

// maxLogs is the number of log lines kept on screen.
const maxLogs = 10

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// logBuffer collects progress events from the manager goroutine until the
// next tick drains them into the model.
type logBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (b *logBuffer) add(e download.ProgressEvent) {
	b.mu.Lock()
	b.entries = append(b.entries, LogEntry{Message: e.Message, Level: e.Level})
	b.mu.Unlock()
}

func (b *logBuffer) drain() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.entries
	b.entries = nil
	return out
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	pending   *logBuffer
	jobs      []string
	summary   download.Summary
	err       error

	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager

	// run identifies the current session. Results of a cancelled session
	// that arrive after a reset carry an older run and are dropped.
	run int

	totalFiles      int32
	downloadedFiles int32
	totalBytes      int64
	receivedBytes   int64

	// Options
	playlist bool
	allowHLS bool
	verbose  bool

	width  int
	height int
}

// NewModel creates a new TUI model. settings are copied per run, so option
// toggles never leak into the caller's value.
func NewModel(settings *config.Settings) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	ti := textinput.New()
	ti.Placeholder = "https://soundcloud.com/artist/track"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5500"))

	prog := progress.New(progress.WithGradient("#FF7700", "#FF3300"))
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		pending:   &logBuffer{},
		ctx:       ctx,
		cancel:    cancel,
		playlist:  settings.CreatePlaylist,
		allowHLS:  settings.AllowHLS,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// InitDoneMsg is sent when URL resolution completes.
	InitDoneMsg struct {
		Run     int
		Jobs    []string
		Manager *download.Manager
		Err     error
	}

	// DownloadDoneMsg is sent when all downloads complete.
	DownloadDoneMsg struct {
		Run      int
		Received int64
		Total    int64
		Files    int32
		TotalF   int32
		Summary  download.Summary
		Err      error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				m.state = StateInitializing
				return m, tea.Batch(m.initializeDownload(), m.spinner.Tick, m.tickProgress())
			}

		case "alt+p":
			if m.state == StateInput {
				m.playlist = !m.playlist
				return m, nil
			}

		case "alt+h":
			if m.state == StateInput {
				m.allowHLS = !m.allowHLS
				return m, nil
			}

		case "alt+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m = m.reset()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case InitDoneMsg:
		if msg.Run != m.run {
			return m, nil
		}
		m.appendLogs(m.pending.drain())
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			if m.ctx.Err() != nil {
				m.err = errCancelled
			}
		} else if m.state == StateInitializing {
			m.jobs = msg.Jobs
			m.manager = msg.Manager
			m.state = StateDownloading
			cmds = append(cmds, m.startDownload())
		}

	case DownloadDoneMsg:
		if msg.Run != m.run {
			return m, nil
		}
		m.appendLogs(m.pending.drain())
		m.receivedBytes = msg.Received
		m.totalBytes = msg.Total
		m.downloadedFiles = msg.Files
		m.totalFiles = msg.TotalF
		m.summary = msg.Summary
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.state != StateInitializing && m.state != StateDownloading {
			break
		}
		m.appendLogs(m.pending.drain())
		if m.manager != nil {
			received, total, files, totalFiles := m.manager.GetProgress()
			m.receivedBytes = received
			m.totalBytes = total
			m.downloadedFiles = files
			m.totalFiles = totalFiles
			cmds = append(cmds, m.progress.SetPercent(m.percent()))
		}
		cmds = append(cmds, m.tickProgress())

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) reset() Model {
	m.cancel()
	m.run++
	m.state = StateInput
	m.logs = nil
	m.jobs = nil
	m.err = nil
	m.summary = download.Summary{}
	m.downloadedFiles = 0
	m.totalFiles = 0
	m.receivedBytes = 0
	m.totalBytes = 0
	m.manager = nil
	m.pending = &logBuffer{}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
	return m
}

// appendLogs adds entries, hiding verbose ones unless enabled, and keeps the
// last maxLogs.
func (m *Model) appendLogs(entries []LogEntry) {
	for _, e := range entries {
		if e.Level == download.LevelVerbose && !m.verbose {
			continue
		}
		m.logs = append(m.logs, e)
	}
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// percent prefers byte progress and falls back to file counts when sizes
// are unknown.
func (m Model) percent() float64 {
	if m.totalBytes > 0 {
		return min(float64(m.receivedBytes)/float64(m.totalBytes), 1)
	}
	if m.totalFiles > 0 {
		return float64(m.downloadedFiles) / float64(m.totalFiles)
	}
	return 0
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// runSettings returns a copy of the base settings with the toggles applied.
func (m Model) runSettings() *config.Settings {
	s := *m.settings
	s.CreatePlaylist = m.playlist
	s.AllowHLS = m.allowHLS
	return &s
}

// initializeDownload resolves the input and creates the manager.
func (m Model) initializeDownload() tea.Cmd {
	ctx, run := m.ctx, m.run
	input := m.textInput.Value()
	settings := m.runSettings()
	pending := m.pending

	return func() tea.Msg {
		manager, err := download.NewManager(settings, pending.add)
		if err != nil {
			return InitDoneMsg{Run: run, Err: err}
		}
		if err := manager.Initialize(ctx, input); err != nil {
			return InitDoneMsg{Run: run, Err: err}
		}
		return InitDoneMsg{Run: run, Jobs: manager.GetJobNames(), Manager: manager}
	}
}

// startDownload starts the actual download in background.
func (m Model) startDownload() tea.Cmd {
	ctx, run := m.ctx, m.run
	manager := m.manager

	return func() tea.Msg {
		err := manager.StartDownloads(ctx)
		received, total, files, totalFiles := manager.GetProgress()

		return DownloadDoneMsg{
			Run:      run,
			Received: received,
			Total:    total,
			Files:    files,
			TotalF:   totalFiles,
			Summary:  manager.Summary(),
			Err:      err,
		}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

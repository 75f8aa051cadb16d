package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/stride/internal/services"
	"github.com/desertthunder/stride/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RunView ViewState = iota
	ResultView
	ConfirmView
	CreatingView
	DoneView
)

// RunFunc executes the pipeline, reporting to sink.
type RunFunc func(ctx context.Context, sink tasks.ProgressSink) (*tasks.Result, error)

// PublishFunc writes the selection of result to a playlist.
type PublishFunc func(ctx context.Context, result *tasks.Result, sink tasks.ProgressSink) (*services.Playlist, error)

// Options configures a [Model]. A nil Publish makes the run read-only.
type Options struct {
	Cadence      int
	PlaylistName string
	Run          RunFunc
	Publish      PublishFunc
}

var pipelinePhases = []tasks.Phase{tasks.PhaseCollect, tasks.PhaseExpand, tasks.PhaseAnalyze, tasks.PhaseFilter}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	opts      Options
	view      ViewState
	width     int
	height    int
	spinner   spinner.Model
	phases    map[tasks.Phase]tasks.ProgressUpdate
	current   tasks.Phase
	updates   chan tasks.ProgressUpdate
	done      chan Msg
	result    *tasks.Result
	playlist  *services.Playlist
	trackList list.Model
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	return &Model{
		ctx:     ctx,
		opts:    opts,
		view:    RunView,
		spinner: s,
		phases:  make(map[tasks.Phase]tasks.ProgressUpdate),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Result returns the pipeline result once the run has finished.
func (m *Model) Result() *tasks.Result { return m.result }

// Playlist returns the created playlist, if any.
func (m *Model) Playlist() *services.Playlist { return m.playlist }

// Err returns the error that ended the run or the playlist creation.
func (m *Model) Err() error { return m.err }

// Init starts the pipeline run.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.result != nil {
			m.trackList.SetSize(listSize(msg.Width, msg.Height))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case ResultView:
			return m.handleResultKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		default:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.phases[update.Phase] = update
		m.current = update.Phase
		return m, m.wait()

	case MsgRunComplete:
		outcome := msg.data.(runOutcome)
		m.view = ResultView
		if outcome.err != nil {
			m.err = outcome.err
			return m, nil
		}
		m.result = outcome.result
		m.trackList = list.New(trackItems(outcome.result.Selections), list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("%d tracks at %s BPM", len(outcome.result.Selections), outcome.result.Window)
		m.trackList.SetShowHelp(false)
		m.trackList.SetSize(listSize(m.width, m.height))
		return m, nil

	case MsgPlaylistCreated:
		outcome := msg.data.(playlistOutcome)
		m.view = DoneView
		m.playlist = outcome.playlist
		m.err = outcome.err
		return m, nil
	}
	return m, nil
}

// listSize fits the track list inside the terminal, with a floor for unsized terminals.
func listSize(width, height int) (int, int) {
	return max(width-4, 40), max(height-10, 10)
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.create):
		if m.canPublish() {
			m.view = ConfirmView
		}
		return m, nil
	}

	if m.result == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = CreatingView
		return m, tea.Batch(m.spinner.Tick, m.startPublish())
	case key.Matches(msg, m.keys.no):
		m.view = ResultView
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) canPublish() bool {
	return m.opts.Publish != nil && m.err == nil && m.result != nil && len(m.result.Selections) > 0
}

func (m *Model) startRun() tea.Cmd {
	return m.start(func(sink tasks.ProgressSink) Msg {
		result, err := m.opts.Run(m.ctx, sink)
		return runCompleteMsg(result, err)
	})
}

func (m *Model) startPublish() tea.Cmd {
	result := m.result
	return m.start(func(sink tasks.ProgressSink) Msg {
		playlist, err := m.opts.Publish(m.ctx, result, sink)
		return playlistCreatedMsg(playlist, err)
	})
}

// start runs fn in the background, streaming its progress through [Model.wait].
func (m *Model) start(fn func(tasks.ProgressSink) Msg) tea.Cmd {
	updates := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.updates, m.done = updates, done

	go func() {
		done <- fn(tasks.ChannelSink(updates))
	}()

	return m.wait()
}

func (m *Model) wait() tea.Cmd {
	updates, done := m.updates, m.done
	return func() tea.Msg {
		select {
		case update := <-updates:
			return progressUpdateMsg(update)
		case msg := <-done:
			return msg
		}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	case ConfirmView:
		return m.renderConfirm()
	case CreatingView:
		return m.renderCreating()
	case DoneView:
		return m.renderDone()
	default:
		return ""
	}
}

func (m *Model) renderRun() string {
	window := tasks.WindowFor(m.opts.Cadence)
	title := styles.title.Render(fmt.Sprintf("Building a %d spm playlist (%s BPM)", m.opts.Cadence, window))

	var b strings.Builder
	for _, phase := range pipelinePhases {
		update, seen := m.phases[phase]
		switch {
		case seen && update.Done:
			b.WriteString(styles.ok.Render("✓") + " " + update.Message)
		case seen && phase == m.current:
			b.WriteString(m.spinner.View() + " " + update.Message)
		default:
			b.WriteString(styles.help.Render("· " + phase.String()))
		}
		b.WriteString("\n")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), helpView)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Run failed: %v", m.err)) + "\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.quit})
	}

	stats := m.result.Stats
	summary := fmt.Sprintf("Library %d • Pool %d • Tempo known %d • Selected %d",
		stats.LibrarySize, stats.PoolSize, stats.PoolSize-stats.TempoUnavailable, stats.Selected)

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.quit}
	if m.canPublish() {
		helpKeys = []key.Binding{m.keys.up, m.keys.down, m.keys.create, m.keys.quit}
	}
	helpView := m.help.ShortHelpView(helpKeys)

	if len(m.result.Selections) == 0 {
		return fmt.Sprintf("%s\n\n%s\n\n%s", styles.warn.Render("No tracks matched this cadence."), summary, helpView)
	}
	return fmt.Sprintf("%s\n%s\n\n%s", summary, m.trackList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Create '%s'?", m.opts.PlaylistName))
	info := fmt.Sprintf("Tracks: %d\nTempo: %s\n", len(m.result.Selections), windowBadge(styles, m.result.Window))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderCreating() string {
	message := "Creating playlist..."
	if update, ok := m.phases[tasks.PhaseCreatePlaylist]; ok {
		message = update.Message
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), message)
}

func (m *Model) renderDone() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Playlist creation failed: %v", m.err)) + "\n\n" + helpView
	}

	title := styles.ok.Render("✓ Playlist created")
	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s", title, m.playlist.Name, styles.As(m.playlist.URL, accent), helpView)
}

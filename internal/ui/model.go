package ui

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"ytvox/internal/history"
	"ytvox/internal/logging"
	"ytvox/internal/model"
	"ytvox/internal/pipeline"
	"ytvox/internal/progress"
	"ytvox/internal/util"
	"ytvox/internal/util/deps"
)

type state int

const (
	stateChecking state = iota
	stateInput
	stateDetecting
	stateSelect
	stateWorking
	stateDone
	stateFatal
)

// Config carries what a session needs from the command line.
type Config struct {
	Options model.Options
	URL     string // prefilled URL; detection starts immediately when set
	Label   string // resolution to preselect once detection finishes
	Vocals  bool   // initial state of the vocals toggle
	Logger  *slog.Logger
	History *history.Store
	Runner  util.CmdRunner // nil uses os/exec
}

type keyMap struct {
	Quit   key.Binding
	Enter  key.Binding
	Up     key.Binding
	Down   key.Binding
	Vocals key.Binding
	Back   key.Binding
	New    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Vocals: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "vocals")),
		Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		New:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new url")),
	}
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config

	state state
	err   error // last recoverable error, shown until the next action
	fatal error

	downloaderPath string
	ffmpegPath     string
	spleeterPath   string
	vocalsMissing  string // why vocal extraction is unavailable, if it is

	input   textinput.Model
	spinner spinner.Model
	keys    keyMap

	det    pipeline.Detection
	cursor int
	vocals bool

	job    *jobState
	origin state // where a failed job returns to
	result *progress.Result

	width, height int
	styles        Styles

	// reporter events land here and are turned into tea messages
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, cfg Config) Model {
	c, cancel := context.WithCancel(ctx)
	if cfg.Logger == nil {
		// the screen belongs to the UI, never the default stderr logger
		cfg.Logger = logging.Discard()
	}
	cfg.Options = cfg.Options.WithDefaults()
	sty := defaultStyles()

	ti := textinput.New()
	ti.Placeholder = "https://www.youtube.com/watch?v=..."
	ti.CharLimit = 2048
	ti.Width = 60
	ti.SetValue(strings.TrimSpace(cfg.URL))
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = sty.Spinner

	return Model{
		ctx:     c,
		cancel:  cancel,
		cfg:     cfg,
		state:   stateChecking,
		input:   ti,
		spinner: sp,
		keys:    defaultKeyMap(),
		vocals:  cfg.Vocals,
		styles:  sty,
		eventCh: make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.listenEventsCmd(), m.checkDepsCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.job != nil {
			m.job.bar.Width = barWidth(m.width)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case depsCheckedMsg:
		if msg.Err != nil {
			m.state = stateFatal
			m.fatal = msg.Err
			return m, tea.Quit
		}
		m.downloaderPath = msg.DownloaderPath
		m.ffmpegPath = msg.FFmpegPath
		m.spleeterPath = msg.SpleeterPath
		switch {
		case m.ffmpegPath == "":
			m.vocalsMissing = "ffmpeg not found"
		case m.spleeterPath == "":
			m.vocalsMissing = "spleeter not found"
		}
		if m.vocalsMissing != "" {
			m.vocals = false
		}
		if strings.TrimSpace(m.input.Value()) != "" {
			return m.startDetect()
		}
		m.state = stateInput
		return m, nil

	case detectDoneMsg:
		if m.state != stateDetecting {
			return m, nil
		}
		if msg.Err != nil {
			m.state = stateInput
			m.err = msg.Err
			m.input.Focus()
			return m, textinput.Blink
		}
		m.det = msg.Det
		m.cursor = 0
		for i, e := range m.det.Menu {
			if string(e.Label) == m.cfg.Label {
				m.cursor = i
				break
			}
		}
		m.state = stateSelect
		return m, nil

	case jobUpdateMsg:
		if m.job != nil && msg.U.JobID == m.job.id {
			m.job.apply(msg.U)
		}
		return m, m.listenEventsCmd()

	case jobLogMsg:
		if m.job != nil && msg.L.JobID == m.job.id {
			m.job.addLog(strings.TrimRight(msg.L.Line, "\r\n"))
		}
		return m, m.listenEventsCmd()

	case jobResultMsg:
		if m.job == nil || msg.R.JobID != m.job.id {
			return m, m.listenEventsCmd()
		}
		r := msg.R
		if r.Err != nil {
			m.err = r.Err
			m.state = m.origin
			m.job = nil
			return m, m.listenEventsCmd()
		}
		if m.result != nil && r.VocalsPath != "" && r.Bytes == 0 {
			// post-processing an earlier download keeps its size
			r.Bytes = m.result.Bytes
		}
		m.result = &r
		m.state = stateDone
		return m, m.listenEventsCmd()

	case quitMsg:
		return m, tea.Quit
	}

	if m.state == stateInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.cancel()
		return m, tea.Quit
	}

	switch m.state {
	case stateInput:
		switch {
		case key.Matches(msg, m.keys.Enter):
			return m.startDetect()
		case msg.Type == tea.KeyEsc:
			m.cancel()
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case stateSelect:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.det.Menu)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Vocals):
			if m.vocalsMissing == "" {
				m.vocals = !m.vocals
			}
		case key.Matches(msg, m.keys.Back):
			m.err = nil
			m.state = stateInput
			m.input.Focus()
			return m, textinput.Blink
		case key.Matches(msg, m.keys.Enter):
			if len(m.det.Menu) == 0 {
				return m, nil
			}
			return m.startDownload(string(m.det.Menu[m.cursor].Label))
		}
		return m, nil

	case stateDone:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Vocals):
			if m.result != nil && m.result.VocalsPath == "" && m.vocalsMissing == "" {
				return m.startVocals(m.result.OutputPath)
			}
		case key.Matches(msg, m.keys.New), key.Matches(msg, m.keys.Enter):
			m.err = nil
			m.result = nil
			m.det = pipeline.Detection{}
			m.input.SetValue("")
			m.input.Focus()
			m.state = stateInput
			return m, textinput.Blink
		case key.Matches(msg, m.keys.Back):
			m.err = nil
			m.state = stateSelect
		}
		return m, nil

	case stateFatal:
		return m, tea.Quit

	default:
		// detecting and working only react to quit
		if key.Matches(msg, m.keys.Quit) {
			m.cancel()
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) startDetect() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.input.Value())
	if raw == "" {
		m.err = errors.New("enter a video URL")
		m.state = stateInput
		return m, nil
	}
	if _, err := util.ParseVideoURL(raw); err != nil {
		m.err = err
		m.state = stateInput
		return m, nil
	}
	m.err = nil
	m.input.Blur()
	m.state = stateDetecting

	svc := m.service("detect")
	ctx := m.ctx
	return m, func() tea.Msg {
		det, err := svc.Detect(ctx, raw)
		return detectDoneMsg{Det: det, Err: err}
	}
}

func (m Model) startDownload(label string) (tea.Model, tea.Cmd) {
	id := uuid.NewString()
	js := newJobState(id, label, m.vocals)
	js.bar.Width = barWidth(m.width)
	m.job = &js
	m.origin = stateSelect
	m.err = nil
	m.result = nil
	m.state = stateWorking

	svc := m.service(id)
	ctx, det, vocals := m.ctx, m.det, m.vocals
	logger := m.cfg.Logger
	return m, func() tea.Msg {
		// outcome arrives through the reporter as a jobResultMsg
		if _, err := svc.Download(ctx, det, label, vocals); err != nil {
			logger.Warn("download failed", "url", det.URL, "label", label, "error", err)
		}
		return nil
	}
}

func (m Model) startVocals(mediaPath string) (tea.Model, tea.Cmd) {
	id := uuid.NewString()
	label := ""
	if m.job != nil {
		label = m.job.label
	}
	js := newJobState(id, label, true)
	js.stage = progress.StageTranscoding
	js.bar.Width = barWidth(m.width)
	m.job = &js
	m.origin = stateDone
	m.err = nil
	m.state = stateWorking

	svc := m.service(id)
	ctx := m.ctx
	logger := m.cfg.Logger
	return m, func() tea.Msg {
		if _, err := svc.ExtractVocals(ctx, mediaPath); err != nil {
			logger.Warn("vocal extraction failed", "path", mediaPath, "error", err)
		}
		return nil
	}
}

func (m Model) service(jobID string) *pipeline.Service {
	opts := []pipeline.Option{
		pipeline.WithDownloaderPath(m.downloaderPath),
		pipeline.WithFFmpegPath(m.ffmpegPath),
		pipeline.WithSpleeterPath(m.spleeterPath),
		pipeline.WithOptions(m.cfg.Options),
		pipeline.WithReporter(teaReporter{ctx: m.ctx, ch: m.eventCh}),
		pipeline.WithJobID(jobID),
		pipeline.WithLogger(m.cfg.Logger),
		pipeline.WithHistory(m.cfg.History),
	}
	if m.cfg.Runner != nil {
		opts = append(opts, pipeline.WithRunner(m.cfg.Runner))
	}
	return pipeline.NewService(opts...)
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return quitMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func (m Model) checkDepsCmd() tea.Cmd {
	opts := m.cfg.Options
	return func() tea.Msg {
		dl, err := deps.FindDownloader(opts.DLBinary)
		if err != nil {
			return depsCheckedMsg{Err: err}
		}
		// ffmpeg and spleeter only gate vocal extraction
		ff, _ := deps.FindFFmpeg(opts.FFmpegBinary)
		sp, _ := deps.FindSpleeter(opts.SpleeterBinary)
		return depsCheckedMsg{DownloaderPath: dl, FFmpegPath: ff, SpleeterPath: sp}
	}
}

func barWidth(termWidth int) int {
	const lo, hi = 20, 60
	w := termWidth - 20
	if w < lo {
		return lo
	}
	if w > hi {
		return hi
	}
	return w
}

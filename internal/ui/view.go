package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"

	"ytvox/internal/model"
	"ytvox/internal/progress"
	"ytvox/internal/util/format"
)

func (m Model) View() string {
	var body string
	switch m.state {
	case stateChecking:
		body = m.viewWaiting("Checking for yt-dlp, ffmpeg and spleeter")
	case stateInput:
		body = m.viewInput()
	case stateDetecting:
		body = m.viewWaiting("Detecting resolutions for " + truncate(strings.TrimSpace(m.input.Value()), 60))
	case stateSelect:
		body = m.viewSelect()
	case stateWorking:
		body = m.viewJob()
	case stateDone:
		body = m.viewDone()
	case stateFatal:
		body = m.styles.Error.Render("✗ " + errString(m.fatal))
	}
	if m.err != nil && m.state != stateFatal {
		body += "\n\n" + m.styles.Error.Render("✗ "+m.err.Error())
	}
	return m.viewHeader() + "\n\n" + body + "\n\n" + m.viewHelp() + "\n"
}

func (m Model) viewHeader() string {
	title := m.styles.Title.Render("ytvox")
	sub := m.styles.Subtitle.Render("video downloads with optional vocal extraction")
	return title + "  " + sub
}

func (m Model) viewWaiting(msg string) string {
	return m.styles.Spinner.Render(m.spinner.View()) + " " + m.styles.Info.Render(msg)
}

func (m Model) viewInput() string {
	return m.styles.Header.Render("Video URL") + "\n" + m.input.View()
}

func (m Model) viewSelect() string {
	var b strings.Builder
	title := m.det.Title
	if title == "" {
		title = m.det.URL
	}
	b.WriteString(m.styles.Header.Render(truncate(title, 70)))
	if m.det.DurationSec > 0 {
		d := time.Duration(m.det.DurationSec * float64(time.Second)).Round(time.Second)
		b.WriteString(m.styles.Faint.Render("  " + d.String()))
	}
	b.WriteString("\n\n")

	for i, e := range m.det.Menu {
		line := fmt.Sprintf("%-24s %s", e.Label, format.Bitrate(e.Score))
		if e.Plan.Kind() == model.PlanNeedsRemux {
			line += "  (merged)"
		}
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(m.styles.Item.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.vocalsMissing != "":
		b.WriteString(m.styles.Faint.Render("vocal extraction unavailable: " + m.vocalsMissing))
	case m.vocals:
		b.WriteString(m.styles.Toggle.Render("[x] extract vocals after download"))
	default:
		b.WriteString(m.styles.Faint.Render("[ ] extract vocals after download"))
	}
	return b.String()
}

func (m Model) viewJob() string {
	js := m.job
	if js == nil {
		return m.viewWaiting("Starting")
	}
	stageStyle := m.styles.Info
	switch js.stage {
	case progress.StageFetching, progress.StageMerging, progress.StageDownloaded:
		stageStyle = m.styles.StageFetch
	case progress.StageTranscoding, progress.StageSeparating:
		stageStyle = m.styles.StagePost
	case progress.StageCompleted:
		stageStyle = m.styles.Success
	case progress.StageError:
		stageStyle = m.styles.Error
	}

	var b strings.Builder
	head := m.styles.Header.Render(js.label)
	if js.vocals {
		head += m.styles.Toggle.Render("  +vocals")
	}
	b.WriteString(head + "  " + stageStyle.Render(string(js.stage)) + "\n")

	if js.percent >= 0 && js.percent <= 100 {
		b.WriteString(js.bar.ViewAs(js.percent/100.0) + " " + format.Percent(js.percent))
	} else {
		b.WriteString(m.styles.Spinner.Render(m.spinner.View()) + " " + m.styles.Faint.Render("working"))
	}
	if t := js.transfer(); t != "" {
		b.WriteString("  " + m.styles.Info.Render(t))
	}
	b.WriteString("\n" + m.styles.Info.Render(js.status))

	if m.cfg.Options.Verbose && len(js.logsRing) > 0 {
		b.WriteString("\n")
		for _, l := range js.logsRing {
			b.WriteString("\n" + m.styles.Faint.Render(truncate(l, 100)))
		}
	}
	return m.styles.Box.Render(b.String())
}

func (m Model) viewDone() string {
	r := m.result
	if r == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.Success.Render("✓ Saved " + filepath.Base(r.OutputPath)))
	if r.Bytes > 0 {
		b.WriteString(m.styles.Faint.Render(" (" + format.HumanizeBytes(r.Bytes) + ")"))
	}
	b.WriteString("\n" + m.styles.Item.Render("  "+r.OutputPath))
	if r.VocalsPath != "" {
		b.WriteString("\n" + m.styles.Success.Render("✓ Vocals"))
		b.WriteString("\n" + m.styles.Item.Render("  "+r.VocalsPath))
	}
	return b.String()
}

func (m Model) viewHelp() string {
	var binds []key.Binding
	switch m.state {
	case stateInput:
		binds = []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "detect")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit")),
		}
	case stateSelect:
		binds = []key.Binding{m.keys.Up, m.keys.Down, m.keys.Enter, m.keys.Back, m.keys.Quit}
		if m.vocalsMissing == "" {
			binds = append(binds, m.keys.Vocals)
		}
	case stateDone:
		binds = []key.Binding{m.keys.New, m.keys.Back, m.keys.Quit}
		if m.result != nil && m.result.VocalsPath == "" && m.vocalsMissing == "" {
			binds = append(binds, m.keys.Vocals)
		}
	default:
		binds = []key.Binding{m.keys.Quit}
	}
	parts := make([]string, 0, len(binds))
	for _, k := range binds {
		h := k.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return m.styles.Faint.Render(strings.Join(parts, " • "))
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}

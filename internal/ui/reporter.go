package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"ytvox/internal/progress"
)

// teaReporter forwards pipeline events into the program's event channel.
// Intermediate updates and logs are dropped when the UI lags so the fetch
// never waits on rendering; milestones and results always get through
// unless the session is shutting down.
type teaReporter struct {
	ctx context.Context
	ch  chan tea.Msg
}

func (r teaReporter) Update(u progress.Update) {
	if u.Stage.Milestone() {
		r.send(jobUpdateMsg{U: u})
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}

func (r teaReporter) Log(l progress.Log) {
	select {
	case r.ch <- jobLogMsg{L: l}:
	default:
	}
}

func (r teaReporter) Result(res progress.Result) {
	r.send(jobResultMsg{R: res})
}

func (r teaReporter) send(msg tea.Msg) {
	select {
	case r.ch <- msg:
	case <-r.ctx.Done():
	}
}

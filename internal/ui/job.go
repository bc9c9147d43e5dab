package ui

import (
	bubblesprogress "github.com/charmbracelet/bubbles/progress"

	"ytvox/internal/progress"
	"ytvox/internal/util/format"
)

// jobState tracks the download in flight.
type jobState struct {
	id     string
	label  string
	vocals bool

	stage      progress.Stage
	status     string
	percent    float64 // -1 means unknown
	downloaded int64
	total      *int64
	speed      *float64

	bar bubblesprogress.Model

	// recent tool output, kept small
	logsRing []string
}

func newJobState(id, label string, vocals bool) jobState {
	return jobState{
		id:      id,
		label:   label,
		vocals:  vocals,
		stage:   progress.StageFetching,
		status:  "Starting",
		percent: -1,
		bar: bubblesprogress.New(
			bubblesprogress.WithDefaultGradient(),
			bubblesprogress.WithWidth(40),
		),
	}
}

func (js *jobState) apply(u progress.Update) {
	if js.stage != u.Stage {
		js.downloaded, js.total, js.speed = 0, nil, nil
	}
	js.stage = u.Stage
	js.percent = u.Percent
	if u.Message != "" {
		js.status = u.Message
	}
	if u.BytesDownloaded > 0 {
		js.downloaded = u.BytesDownloaded
	}
	if u.BytesTotal != nil {
		js.total = u.BytesTotal
	}
	if u.Speed != nil {
		js.speed = u.Speed
	}
}

func (js *jobState) addLog(line string) {
	const keep = 5
	js.logsRing = append(js.logsRing, line)
	if len(js.logsRing) > keep {
		js.logsRing = js.logsRing[len(js.logsRing)-keep:]
	}
}

// transfer renders "12 MiB / 50 MiB at 3.1 MiB/s" for fetch stages.
func (js *jobState) transfer() string {
	if js.downloaded == 0 && js.total == nil {
		return ""
	}
	s := format.Transferred(js.downloaded, js.total)
	if js.speed != nil {
		s += " at " + format.HumanizeBytes(int64(*js.speed)) + "/s"
	}
	return s
}

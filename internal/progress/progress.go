// Package progress defines the events a running job emits to observers.
package progress

import "time"

// Stage identifies a high-level step of a job.
type Stage string

const (
	StageDetecting   Stage = "detecting"
	StageFetching    Stage = "fetching"
	StageMerging     Stage = "merging"
	StageDownloaded  Stage = "downloaded" // fetch finished, artifact on disk
	StageTranscoding Stage = "transcoding"
	StageSeparating  Stage = "separating"
	StageCompleted   Stage = "completed"
	StageError       Stage = "error"
)

// Terminal reports whether no further updates follow a stage.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageError
}

// Milestone reports whether an update must reach observers even when they
// are lagging. Intermediate progress may be dropped; milestones may not.
func (s Stage) Milestone() bool {
	return s.Terminal() || s == StageDownloaded
}

// LogStream indicates which stream produced a log line.
type LogStream int

const (
	StreamStdout LogStream = iota
	StreamStderr
)

// Update conveys progress or stage changes for a job.
// Percent is 0..100 when known and negative when unknown. BytesTotal is nil
// when the source does not advertise a size.
type Update struct {
	JobID   string
	Stage   Stage
	Percent float64

	BytesDownloaded int64
	BytesTotal      *int64
	ETA             *time.Duration
	Speed           *float64 // bytes per second
	Message         string
}

// Log is a raw tool output line associated with a job.
type Log struct {
	JobID  string
	Stream LogStream
	Line   string
}

// Result is emitted once per job when it completes or fails.
type Result struct {
	JobID      string
	OutputPath string
	VocalsPath string // empty unless separation ran
	Bytes      int64
	Err        error // nil on success
}

// Reporter is implemented by UIs or anything else observing a job.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}

// Func adapts a plain update callback to a Reporter that ignores logs and
// results.
type Func func(Update)

func (f Func) Update(u Update) { f(u) }
func (Func) Log(Log)           {}
func (Func) Result(Result)     {}

// Nop discards every event.
type Nop struct{}

func (Nop) Update(Update) {}
func (Nop) Log(Log)       {}
func (Nop) Result(Result) {}

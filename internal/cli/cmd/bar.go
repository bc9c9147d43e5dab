package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"ytvox/internal/progress"
)

// barReporter renders pipeline progress as a terminal progress bar for the
// non-interactive commands. Fetch stages count bytes; transcoding counts
// percent; other stages print their message on its own line.
type barReporter struct {
	mu    sync.Mutex
	w     io.Writer
	bar   *progressbar.ProgressBar
	stage progress.Stage
}

func newBarReporter(w io.Writer) *barReporter {
	return &barReporter{w: w}
}

func (r *barReporter) Update(u progress.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch u.Stage {
	case progress.StageFetching:
		total := int64(-1)
		if u.BytesTotal != nil && *u.BytesTotal > 0 {
			total = *u.BytesTotal
		}
		if r.bar == nil || r.stage != u.Stage {
			r.start(u.Stage, total, true, "downloading")
		} else if total > 0 && r.bar.GetMax64() != total {
			r.bar.ChangeMax64(total)
		}
		if u.BytesDownloaded > 0 {
			_ = r.bar.Set64(u.BytesDownloaded)
		}
	case progress.StageTranscoding:
		if r.bar == nil || r.stage != u.Stage {
			r.start(u.Stage, 100, false, "extracting audio")
		}
		if u.Percent >= 0 {
			_ = r.bar.Set64(int64(u.Percent))
		}
	case progress.StageMerging, progress.StageSeparating, progress.StageDetecting:
		r.finish()
		r.stage = u.Stage
		if u.Message != "" {
			fmt.Fprintln(r.w, u.Message)
		}
	default:
		// downloaded, completed and error are reported by the command
		r.finish()
		r.stage = u.Stage
	}
}

func (r *barReporter) Log(progress.Log) {}

func (r *barReporter) Result(progress.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish()
}

func (r *barReporter) start(stage progress.Stage, total int64, showBytes bool, desc string) {
	r.finish()
	r.stage = stage
	r.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowBytes(showBytes),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(r.w) }),
	)
}

func (r *barReporter) finish() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	r.bar = nil
}

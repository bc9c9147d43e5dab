package downloader

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"ytvox/internal/progress"
)

// Markers prefixed to the lines yt-dlp prints through our templates.
const (
	progressMarker = "ytvox-progress "
	postMarker     = "ytvox-post "
	fileMarker     = "ytvox-file "
)

// engineProgress is the subset of yt-dlp's progress hook dict we read.
// Every field is optional and may be null.
type engineProgress struct {
	Status             string   `json:"status"`
	DownloadedBytes    *float64 `json:"downloaded_bytes"`
	TotalBytes         *float64 `json:"total_bytes"`
	TotalBytesEstimate *float64 `json:"total_bytes_estimate"`
	Speed              *float64 `json:"speed"`
	ETA                *float64 `json:"eta"`
	Postprocessor      string   `json:"postprocessor"`
}

// tracker turns engine output lines into progress updates for one fetch.
type tracker struct {
	jobID    string
	streams  int // 2 for remux plans
	finished int
	merging  bool
}

func newTracker(jobID string, streams int) *tracker {
	if streams < 1 {
		streams = 1
	}
	return &tracker{jobID: jobID, streams: streams}
}

// line interprets one stdout/stderr line. ok is false for lines that carry
// no progress information.
func (t *tracker) line(raw string) (progress.Update, bool) {
	line := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(line, progressMarker):
		var ev engineProgress
		if json.Unmarshal([]byte(strings.TrimPrefix(line, progressMarker)), &ev) != nil {
			return progress.Update{}, false
		}
		return t.download(ev)
	case strings.HasPrefix(line, postMarker):
		var ev engineProgress
		if json.Unmarshal([]byte(strings.TrimPrefix(line, postMarker)), &ev) != nil {
			return progress.Update{}, false
		}
		if strings.Contains(ev.Postprocessor, "Merger") {
			return t.merge()
		}
		return progress.Update{}, false
	case strings.HasPrefix(line, "[Merger]"):
		return t.merge()
	case strings.HasPrefix(line, "[download]"):
		return ParseProgress(line, t.jobID)
	}
	return progress.Update{}, false
}

func (t *tracker) download(ev engineProgress) (progress.Update, bool) {
	if t.merging {
		return progress.Update{}, false
	}
	u := progress.Update{
		JobID:   t.jobID,
		Stage:   progress.StageFetching,
		Percent: -1,
		Message: t.streamLabel(),
	}
	if ev.DownloadedBytes != nil {
		u.BytesDownloaded = int64(*ev.DownloadedBytes)
	}
	u.BytesTotal = totalBytes(ev)
	if ev.Speed != nil && *ev.Speed > 0 {
		s := *ev.Speed
		u.Speed = &s
	}
	if ev.ETA != nil && *ev.ETA >= 0 {
		d := time.Duration(*ev.ETA * float64(time.Second))
		u.ETA = &d
	}

	switch ev.Status {
	case "finished":
		if u.BytesTotal == nil && u.BytesDownloaded > 0 {
			b := u.BytesDownloaded
			u.BytesTotal = &b
		}
		u.Percent = 100
		t.finished++
		if t.finished >= t.streams && t.streams > 1 {
			return t.merge()
		}
		return u, true
	case "downloading":
		if u.BytesTotal != nil && *u.BytesTotal > 0 {
			u.Percent = percentOf(u.BytesDownloaded, *u.BytesTotal)
		}
		return u, true
	}
	return progress.Update{}, false
}

func (t *tracker) merge() (progress.Update, bool) {
	if t.merging {
		return progress.Update{}, false
	}
	t.merging = true
	return progress.Update{
		JobID:   t.jobID,
		Stage:   progress.StageMerging,
		Percent: -1,
		Message: "Merging streams",
	}, true
}

func (t *tracker) streamLabel() string {
	if t.streams == 1 {
		return "Fetching"
	}
	n := t.finished + 1
	if n > t.streams {
		n = t.streams
	}
	return "Fetching stream " + strconv.Itoa(n) + "/" + strconv.Itoa(t.streams)
}

// totalBytes prefers the exact size and falls back to the engine estimate.
// nil means the size is unknown.
func totalBytes(ev engineProgress) *int64 {
	for _, v := range []*float64{ev.TotalBytes, ev.TotalBytesEstimate} {
		if v != nil && *v > 0 {
			n := int64(*v)
			return &n
		}
	}
	return nil
}

func percentOf(done, total int64) float64 {
	p := float64(done) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}
	return p
}

// ParseProgress parses yt-dlp's default human-readable progress lines, used
// when the engine ignores the progress template.
func ParseProgress(line, jobID string) (u progress.Update, ok bool) {
	// [download]  45.2% of 10.00MiB at  1.50MiB/s ETA 00:04
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[download]") {
		return progress.Update{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "[download]"))

	idx := strings.Index(rest, "%")
	if idx == -1 {
		return progress.Update{}, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSpace(rest[:idx]), 64)
	if err != nil {
		return progress.Update{}, false
	}

	var eta *time.Duration
	if i := strings.Index(rest, "ETA "); i != -1 {
		etaStr := strings.TrimSpace(rest[i+4:])
		if j := strings.Index(etaStr, " "); j != -1 {
			etaStr = etaStr[:j]
		}
		if d, err := parseETA(etaStr); err == nil {
			eta = &d
		}
	}

	return progress.Update{
		JobID:   jobID,
		Stage:   progress.StageFetching,
		Percent: percent,
		ETA:     eta,
		Message: "Fetching",
	}, true
}

// parseETA parses durations like "00:04" or "01:23:45".
func parseETA(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, strconv.ErrSyntax
	}
	var total time.Duration
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, err
		}
		total = total*60 + time.Duration(n)
	}
	return total * time.Second, nil
}

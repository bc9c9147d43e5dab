package encoder

import (
	"strconv"
	"strings"

	"ytvox/internal/progress"
)

// ProgressState accumulates ffmpeg -progress key/value lines until a
// "progress=" marker closes a block.
type ProgressState struct {
	OutTimeUs int64
	Speed     float64 // realtime multiple, 0 if unknown
	TotalSize int64
}

// UpdateFromLine folds one line into the state and returns an update when a
// block completes. durationSec <= 0 leaves the percentage unknown.
func (ps *ProgressState) UpdateFromLine(line, jobID string, durationSec float64) (progress.Update, bool) {
	key, val, found := strings.Cut(line, "=")
	if !found {
		return progress.Update{}, false
	}
	key = strings.TrimSpace(key)
	val = strings.TrimSpace(val)

	switch key {
	// out_time_ms is microseconds despite its name.
	case "out_time_us", "out_time_ms":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil && v >= 0 {
			ps.OutTimeUs = v
		}
	case "speed":
		if v, err := strconv.ParseFloat(strings.TrimSuffix(val, "x"), 64); err == nil {
			ps.Speed = v
		}
	case "total_size":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			ps.TotalSize = v
		}
	case "progress":
		percent := -1.0
		if durationSec > 0 {
			percent = float64(ps.OutTimeUs) / (durationSec * 1_000_000) * 100
			if percent > 100 {
				percent = 100
			}
		}
		if val == "end" {
			percent = 100
		}
		return progress.Update{
			JobID:           jobID,
			Stage:           progress.StageTranscoding,
			Percent:         percent,
			BytesDownloaded: ps.TotalSize,
			Message:         "Extracting audio",
		}, true
	}
	return progress.Update{}, false
}

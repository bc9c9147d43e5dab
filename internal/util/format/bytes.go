// Package format renders sizes, rates and percentages for terminal output.
package format

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// HumanizeBytes converts a byte count into an IEC string such as "1.5 MiB".
func HumanizeBytes(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.IBytes(uint64(b))
}

// Transferred renders "done / total" or just "done" when the total is unknown.
func Transferred(done int64, total *int64) string {
	if total == nil {
		return HumanizeBytes(done)
	}
	return HumanizeBytes(done) + " / " + HumanizeBytes(*total)
}

// Bitrate renders a kbps value, "-" when unknown.
func Bitrate(kbps float64) string {
	if kbps <= 0 {
		return "-"
	}
	return humanize.FormatFloat("#,###.", kbps) + " kbps"
}

// Percent renders 0..100 with one decimal, "--" when negative (unknown).
func Percent(p float64) string {
	if p < 0 {
		return "--"
	}
	return fmt.Sprintf("%.1f%%", p)
}

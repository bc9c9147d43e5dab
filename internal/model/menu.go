package model

import "fmt"

// ResolutionLabel is the display string a variant's dimensions map to.
// Two variants share a menu entry iff their labels are equal.
type ResolutionLabel string

// LabelFor derives the orientation-qualified label for a width/height pair.
// Portrait (height > width) leads with the short side and carries the height
// in parentheses; everything else is "<height>p (landscape)".
func LabelFor(width, height int) ResolutionLabel {
	if height > width {
		return ResolutionLabel(fmt.Sprintf("%dp (%dp portrait)", width, height))
	}
	return ResolutionLabel(fmt.Sprintf("%dp (landscape)", height))
}

// PlanKind tags how a FetchPlan is fetched.
type PlanKind string

const (
	PlanSingleStream PlanKind = "single-stream"
	PlanNeedsRemux   PlanKind = "needs-remux"
)

// FetchPlan names the stream id(s) to fetch for one menu entry.
// AudioID is empty for single-stream plans.
type FetchPlan struct {
	VideoID string
	AudioID string
}

// SingleStream returns a plan that fetches one stream id as-is.
func SingleStream(id string) FetchPlan {
	return FetchPlan{VideoID: id}
}

// Remux returns a plan pairing a video-only id with an audio-only id.
func Remux(videoID, audioID string) FetchPlan {
	return FetchPlan{VideoID: videoID, AudioID: audioID}
}

// Kind reports whether the plan needs the engine to merge two streams.
func (p FetchPlan) Kind() PlanKind {
	if p.AudioID != "" {
		return PlanNeedsRemux
	}
	return PlanSingleStream
}

// Selector renders the plan as a fetch engine format selector.
func (p FetchPlan) Selector() string {
	if p.AudioID != "" {
		return p.VideoID + "+" + p.AudioID
	}
	return p.VideoID
}

// IsZero reports whether the plan references no stream.
func (p FetchPlan) IsZero() bool {
	return p.VideoID == ""
}

// MenuEntry is one choosable resolution.
type MenuEntry struct {
	Label  ResolutionLabel
	Plan   FetchPlan
	Score  float64 // average bitrate of the winning variant
	Width  int
	Height int
}

// ResolutionMenu is ordered by descending source height and unique by label.
type ResolutionMenu []MenuEntry

// Labels returns the menu labels in order.
func (m ResolutionMenu) Labels() []string {
	out := make([]string, 0, len(m))
	for _, e := range m {
		out = append(out, string(e.Label))
	}
	return out
}

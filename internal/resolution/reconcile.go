// Package resolution turns a raw format catalog into a menu of choosable
// resolutions and resolves a chosen label back into a fetch plan.
package resolution

import (
	"sort"

	"ytvox/internal/model"
)

type candidate struct {
	entry model.MenuEntry
	seq   int // order in which the label was first populated
}

// Reconcile builds the resolution menu for a catalog.
//
// Video-only variants are paired with the single best audio-only variant of
// the whole catalog; muxed variants are scanned afterwards and only replace a
// label when their bitrate is strictly greater. Variants without both
// dimensions never reach the menu. The result is sorted by descending height,
// equal heights keeping the order in which their labels first appeared.
func Reconcile(variants []model.StreamVariant) model.ResolutionMenu {
	var videoOnly, audioOnly, muxed []model.StreamVariant
	for _, v := range variants {
		switch v.Kind() {
		case model.KindVideoOnly:
			videoOnly = append(videoOnly, v)
		case model.KindAudioOnly:
			audioOnly = append(audioOnly, v)
		case model.KindMuxed:
			muxed = append(muxed, v)
		}
	}

	audio, hasAudio := BestAudio(audioOnly)

	held := make(map[model.ResolutionLabel]*candidate)
	order := 0
	offer := func(v model.StreamVariant, plan model.FetchPlan) {
		if !v.HasDimensions() {
			return
		}
		label := model.LabelFor(v.Width, v.Height)
		entry := model.MenuEntry{
			Label:  label,
			Plan:   plan,
			Score:  v.AverageBitrate,
			Width:  v.Width,
			Height: v.Height,
		}
		prev, ok := held[label]
		if !ok {
			held[label] = &candidate{entry: entry, seq: order}
			order++
			return
		}
		if entry.Score > prev.entry.Score {
			prev.entry = entry
		}
	}

	for _, v := range videoOnly {
		plan := model.SingleStream(v.ID)
		if hasAudio {
			plan = model.Remux(v.ID, audio.ID)
		}
		offer(v, plan)
	}
	for _, v := range muxed {
		offer(v, model.SingleStream(v.ID))
	}

	cands := make([]*candidate, 0, len(held))
	for _, c := range held {
		cands = append(cands, c)
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].entry.Height != cands[j].entry.Height {
			return cands[i].entry.Height > cands[j].entry.Height
		}
		return cands[i].seq < cands[j].seq
	})

	menu := make(model.ResolutionMenu, 0, len(cands))
	for _, c := range cands {
		menu = append(menu, c.entry)
	}
	return menu
}

// BestAudio returns the audio-only variant with the highest audio bitrate.
// Missing bitrates count as zero and the first variant wins ties.
func BestAudio(audioOnly []model.StreamVariant) (model.StreamVariant, bool) {
	if len(audioOnly) == 0 {
		return model.StreamVariant{}, false
	}
	best := audioOnly[0]
	for _, a := range audioOnly[1:] {
		if a.AudioBitrate > best.AudioBitrate {
			best = a
		}
	}
	return best, true
}

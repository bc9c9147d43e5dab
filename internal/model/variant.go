package model

// VariantKind classifies a stream variant by the tracks it carries.
type VariantKind int

const (
	KindUnusable VariantKind = iota // neither video nor audio codec
	KindVideoOnly
	KindAudioOnly
	KindMuxed
)

func (k VariantKind) String() string {
	switch k {
	case KindVideoOnly:
		return "video-only"
	case KindAudioOnly:
		return "audio-only"
	case KindMuxed:
		return "muxed"
	default:
		return "unusable"
	}
}

// StreamVariant is one format entry as advertised by the source.
// Empty codecs mean absent; zero dimensions and bitrates mean unknown.
type StreamVariant struct {
	ID             string
	VideoCodec     string
	AudioCodec     string
	Width          int
	Height         int
	AverageBitrate float64 // kbps, total or video bitrate ("tbr")
	AudioBitrate   float64 // kbps ("abr")

	Ext      string
	Note     string
	Filesize int64 // 0 if unknown
}

// Kind reports whether the variant is video-only, audio-only or muxed.
func (v StreamVariant) Kind() VariantKind {
	hasVideo := v.VideoCodec != ""
	hasAudio := v.AudioCodec != ""
	switch {
	case hasVideo && hasAudio:
		return KindMuxed
	case hasVideo:
		return KindVideoOnly
	case hasAudio:
		return KindAudioOnly
	default:
		return KindUnusable
	}
}

// HasDimensions reports whether both width and height are known.
func (v StreamVariant) HasDimensions() bool {
	return v.Width > 0 && v.Height > 0
}

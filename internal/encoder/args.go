package encoder

import "strconv"

// Canonical intermediate audio format handed to the separator.
const (
	WAVCodec      = "pcm_s16le"
	WAVChannels   = 2
	WAVSampleRate = 44100
	WAVBitDepth   = 16
)

// BuildWAVArgs constructs ffmpeg arguments that extract the audio track of
// inputPath as 16-bit stereo PCM at 44.1 kHz.
func BuildWAVArgs(inputPath, outputPath string, includeProgress bool) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-i", inputPath,
		"-vn",
		"-acodec", WAVCodec,
		"-ac", strconv.Itoa(WAVChannels),
		"-ar", strconv.Itoa(WAVSampleRate),
	}
	if includeProgress {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}
	return append(args, outputPath)
}

// Package media derives the on-disk layout of intermediate and separated
// audio artifacts from a downloaded media path.
package media

import (
	"path/filepath"
	"strings"
)

const (
	VocalsDirName = "vocals"
	VocalStemName = "vocals.wav"
)

// BaseName returns the media file name without directory or extension.
func BaseName(mediaPath string) string {
	name := filepath.Base(mediaPath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// IntermediateWAVPath is where the transcoded PCM track for mediaPath lives.
func IntermediateWAVPath(root, mediaPath string) string {
	return filepath.Join(root, BaseName(mediaPath)+".wav")
}

// VocalsDir is the separator output root.
func VocalsDir(root string) string {
	return filepath.Join(root, VocalsDirName)
}

// VocalTrackPath is the expected isolated vocal stem for mediaPath.
// The separator names its per-input folder after the input WAV's base name,
// which equals the media base name.
func VocalTrackPath(root, mediaPath string) string {
	return filepath.Join(VocalsDir(root), BaseName(mediaPath), VocalStemName)
}

package deps

import (
	"fmt"
	"os"
	"os/exec"
)

// Tool names an external binary ytvox drives.
type Tool struct {
	Name       string   // display name
	Candidates []string // looked up in PATH in order
	Hint       string   // install hint
}

var (
	Downloader = Tool{Name: "yt-dlp", Candidates: []string{"yt-dlp"}, Hint: "pip install yt-dlp"}
	FFmpeg     = Tool{Name: "ffmpeg", Candidates: []string{"ffmpeg"}, Hint: "install ffmpeg from your package manager"}
	Spleeter   = Tool{Name: "spleeter", Candidates: []string{"spleeter"}, Hint: "pip install spleeter"}
)

// Find resolves the tool binary. A non-empty customPath is tried as a file
// and then in PATH; otherwise each candidate is looked up in PATH.
func Find(t Tool, customPath string) (string, error) {
	if customPath != "" {
		if fi, err := os.Stat(customPath); err == nil && !fi.IsDir() {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("could not find %s at %q", t.Name, customPath)
	}
	for _, c := range t.Candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("could not find %s in PATH (%s)", t.Name, t.Hint)
}

// FindDownloader returns the path to yt-dlp.
func FindDownloader(customPath string) (string, error) { return Find(Downloader, customPath) }

// FindFFmpeg returns the path to ffmpeg.
func FindFFmpeg(customPath string) (string, error) { return Find(FFmpeg, customPath) }

// FindSpleeter returns the path to the spleeter CLI.
func FindSpleeter(customPath string) (string, error) { return Find(Spleeter, customPath) }

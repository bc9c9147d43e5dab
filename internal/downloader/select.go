package downloader

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SelectArtifact locates the fetched file in dir when the engine did not
// report its final path. Only files modified at or after since are
// considered; partial and intermediate files are skipped. A file named after
// title wins, then the preferred container, then the newest file.
func SelectArtifact(dir string, since time.Time, title, preferExt string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	type cand struct {
		path  string
		mod   time.Time
		pri   int
		named bool
	}
	var cands []cand
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if skipArtifact(name) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().Before(since) {
			continue
		}
		cands = append(cands, cand{
			path:  filepath.Join(dir, name),
			mod:   info.ModTime(),
			pri:   extPriority(filepath.Ext(name), preferExt),
			named: title != "" && strings.TrimSuffix(name, filepath.Ext(name)) == title,
		})
	}
	if len(cands) == 0 {
		return "", errors.New("no output file found")
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].named != cands[j].named {
			return cands[i].named
		}
		if cands[i].pri != cands[j].pri {
			return cands[i].pri < cands[j].pri
		}
		if !cands[i].mod.Equal(cands[j].mod) {
			return cands[i].mod.After(cands[j].mod)
		}
		return cands[i].path < cands[j].path
	})
	return cands[0].path, nil
}

func skipArtifact(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".part", ".ytdl", ".wav", ".tmp", ".json":
		return true
	}
	// yt-dlp names unmerged streams "<title>.f137.mp4".
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.LastIndex(base, ".f"); i != -1 && isDigits(base[i+2:]) {
		return true
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// extPriority ranks extensions (lower = better). preferExt, the merge
// container, always ranks first.
func extPriority(ext, preferExt string) int {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if preferExt != "" && ext == strings.TrimPrefix(strings.ToLower(preferExt), ".") {
		return 0
	}
	switch ext {
	case "mp4":
		return 1
	case "mkv":
		return 2
	case "webm":
		return 3
	case "mov":
		return 4
	case "m4a", "mp3", "opus":
		return 5
	default:
		return 100
	}
}

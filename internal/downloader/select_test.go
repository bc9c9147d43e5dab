package downloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSelectArtifact(t *testing.T) {
	tmpDir := t.TempDir()
	old := time.Now().Add(-time.Hour)

	tests := []struct {
		name      string
		files     []string
		stale     []string // written before the fetch started
		title     string
		prefer    string
		wantFile  string
		wantError bool
	}{
		{
			name:     "prefers merge container",
			files:    []string{"Song.webm", "Song.mkv"},
			prefer:   "mkv",
			wantFile: "Song.mkv",
		},
		{
			name:     "mp4 over webm by default",
			files:    []string{"Song.webm", "Song.mp4"},
			wantFile: "Song.mp4",
		},
		{
			name:     "skips partial and stream files",
			files:    []string{"Song.mp4.part", "Song.f137.mp4", "Song.f251.webm", "Song.webm"},
			prefer:   "mp4",
			wantFile: "Song.webm",
		},
		{
			name:     "ignores files from earlier runs",
			files:    []string{"New.webm"},
			stale:    []string{"Old.mp4"},
			prefer:   "mp4",
			wantFile: "New.webm",
		},
		{
			name:     "skips intermediate wav",
			files:    []string{"Song.wav", "Song.mp4"},
			wantFile: "Song.mp4",
		},
		{
			name:     "title match beats container preference",
			files:    []string{"Other.mp4", "Song.webm"},
			title:    "Song",
			prefer:   "mp4",
			wantFile: "Song.webm",
		},
		{
			name:      "error when nothing fresh",
			stale:     []string{"Old.mp4"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(tmpDir, tt.name)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			for _, f := range tt.stale {
				p := filepath.Join(dir, f)
				if err := os.WriteFile(p, []byte("old"), 0o644); err != nil {
					t.Fatal(err)
				}
				if err := os.Chtimes(p, old, old); err != nil {
					t.Fatal(err)
				}
			}
			since := time.Now().Add(-time.Minute)
			for _, f := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, f), []byte("test"), 0o644); err != nil {
					t.Fatalf("write %s: %v", f, err)
				}
			}

			got, err := SelectArtifact(dir, since, tt.title, tt.prefer)
			if tt.wantError {
				if err == nil {
					t.Errorf("SelectArtifact() expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectArtifact() unexpected error: %v", err)
			}
			if base := filepath.Base(got); base != tt.wantFile {
				t.Errorf("SelectArtifact() = %v, want %v", base, tt.wantFile)
			}
		})
	}
}

func TestExtPriority(t *testing.T) {
	tests := []struct {
		ext    string
		prefer string
		want   int
	}{
		{ext: ".mp4", want: 1},
		{ext: ".MKV", want: 2},
		{ext: ".webm", want: 3},
		{ext: ".mkv", prefer: "mkv", want: 0},
		{ext: ".mp4", prefer: ".MP4", want: 0},
		{ext: ".unknown", want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.ext+"/"+tt.prefer, func(t *testing.T) {
			if got := extPriority(tt.ext, tt.prefer); got != tt.want {
				t.Errorf("extPriority(%q, %q) = %v, want %v", tt.ext, tt.prefer, got, tt.want)
			}
		})
	}
}

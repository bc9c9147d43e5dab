package downloader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"ytvox/internal/model"
	"ytvox/internal/progress"
	"ytvox/internal/util"
)

type recordingReporter struct {
	mu      sync.Mutex
	updates []progress.Update
	logs    []progress.Log
}

func (r *recordingReporter) Update(u progress.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordingReporter) Log(l progress.Log) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
}

func (r *recordingReporter) Result(progress.Result) {}

func (r *recordingReporter) stages() []progress.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []progress.Stage
	for _, u := range r.updates {
		if len(out) == 0 || out[len(out)-1] != u.Stage {
			out = append(out, u.Stage)
		}
	}
	return out
}

// scriptedEngine fakes yt-dlp: it writes the artifact and replays stdout lines.
func scriptedEngine(t *testing.T, artifact string, lines []string) util.CmdRunner {
	t.Helper()
	return util.RunnerFunc(func(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
		if artifact != "" {
			if err := os.WriteFile(artifact, []byte("media"), 0o644); err != nil {
				t.Fatalf("write artifact: %v", err)
			}
		}
		for _, l := range lines {
			spec.StdoutLine(l)
		}
		return util.CmdResult{}, nil
	})
}

func TestFetchRemuxPlan(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "Song.mp4")
	var gotArgs []string
	engine := scriptedEngine(t, artifact, []string{
		`ytvox-progress {"status": "downloading", "downloaded_bytes": 10, "total_bytes": 100}`,
		`ytvox-progress {"status": "finished", "downloaded_bytes": 100, "total_bytes": 100}`,
		`ytvox-progress {"status": "downloading", "downloaded_bytes": 10, "total_bytes_estimate": 40}`,
		`ytvox-progress {"status": "finished", "downloaded_bytes": 40}`,
		`[download] Destination: whatever`,
		"ytvox-file " + artifact,
	})
	rec := &recordingReporter{}
	runner := util.RunnerFunc(func(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
		gotArgs = spec.Args
		return engine.Run(ctx, spec)
	})

	path, err := Fetch(context.Background(), Request{
		URL:     "https://youtu.be/abc",
		Plan:    model.Remux("137", "140"),
		DestDir: dir,
	}, Options{DownloaderPath: "yt-dlp", Runner: runner, Reporter: rec, JobID: "j1"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if path != artifact {
		t.Errorf("path = %q, want %q", path, artifact)
	}

	want := []progress.Stage{progress.StageFetching, progress.StageMerging, progress.StageDownloaded}
	if got := rec.stages(); !slices.Equal(got, want) {
		t.Errorf("stages = %v, want %v", got, want)
	}
	last := rec.updates[len(rec.updates)-1]
	if last.Percent != 100 || last.BytesDownloaded != int64(len("media")) {
		t.Errorf("final update = %+v", last)
	}
	if len(rec.logs) != 1 {
		t.Errorf("expected the unparsed line to be logged, got %v", rec.logs)
	}

	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{
		"-f 137+140",
		"--merge-output-format mp4",
		"--concurrent-fragments 10",
		"--http-chunk-size 10485760",
		"--no-playlist",
		"--no-mtime",
		filepath.Join(dir, "%(title)s.%(ext)s"),
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if gotArgs[len(gotArgs)-1] != "https://youtu.be/abc" {
		t.Errorf("url should be the last argument: %v", gotArgs)
	}
}

func TestFetchSingleStreamTuning(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "Clip.webm")
	var gotArgs []string
	engine := scriptedEngine(t, artifact, []string{"ytvox-file " + artifact})
	runner := util.RunnerFunc(func(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
		gotArgs = spec.Args
		return engine.Run(ctx, spec)
	})

	_, err := Fetch(context.Background(), Request{URL: "u", Plan: model.SingleStream("22"), DestDir: dir}, Options{
		DownloaderPath: "yt-dlp",
		Runner:         runner,
		Concurrency:    4,
		ChunkSizeBytes: 1 << 20,
		MergeFormat:    "mkv",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-f 22", "--concurrent-fragments 4", "--http-chunk-size 1048576", "--merge-output-format mkv"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}

func TestFetchFallsBackToDirectoryScan(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "No Print.mp4")
	runner := scriptedEngine(t, artifact, nil)

	path, err := Fetch(context.Background(), Request{URL: "u", Plan: model.SingleStream("18"), DestDir: dir}, Options{
		DownloaderPath: "yt-dlp",
		Runner:         runner,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if filepath.Base(path) != "No Print.mp4" {
		t.Errorf("path = %q", path)
	}
}

func TestFetchEngineFailureLeavesFiles(t *testing.T) {
	dir := t.TempDir()
	prior := filepath.Join(dir, "Earlier.mp4.part")
	if err := os.WriteFile(prior, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := util.RunnerFunc(func(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
		return util.CmdResult{
			Stderr: []byte("ERROR: [youtube] abc: Requested format is not available\n"),
			Code:   1,
		}, errors.New("command failed (exit 1)")
	})
	rec := &recordingReporter{}

	_, err := Fetch(context.Background(), Request{URL: "u", Plan: model.SingleStream("does-not-exist"), DestDir: dir}, Options{
		DownloaderPath: "yt-dlp",
		Runner:         runner,
		Reporter:       rec,
	})
	if !errors.Is(err, model.ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	if !strings.Contains(err.Error(), "Requested format is not available") {
		t.Errorf("err = %q, want engine message", err)
	}
	if !util.FileExists(prior) {
		t.Error("partial file from an earlier attempt was removed")
	}
	for _, u := range rec.updates {
		if u.Stage == progress.StageDownloaded {
			t.Error("no downloaded event expected on failure")
		}
	}
}

func TestFetchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := util.RunnerFunc(func(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
		cancel()
		return util.CmdResult{Code: -1}, ctx.Err()
	})
	_, err := Fetch(ctx, Request{URL: "u", Plan: model.SingleStream("18"), DestDir: t.TempDir()}, Options{
		DownloaderPath: "yt-dlp",
		Runner:         runner,
	})
	if !errors.Is(err, context.Canceled) || !errors.Is(err, model.ErrFetchFailed) {
		t.Errorf("err = %v, want canceled fetch failure", err)
	}
}

func TestFetchRejectsEmptyPlan(t *testing.T) {
	_, err := Fetch(context.Background(), Request{URL: "u", DestDir: t.TempDir()}, Options{DownloaderPath: "yt-dlp"})
	if !errors.Is(err, model.ErrFetchFailed) {
		t.Errorf("err = %v, want ErrFetchFailed", err)
	}
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"ytvox/internal/history"
	"ytvox/internal/model"
	"ytvox/internal/pipeline"
	"ytvox/internal/util"
)

const catalogJSON = `{"id": "abc", "title": "Test Song", "duration": 212,
 "formats": [
  {"format_id": "140", "vcodec": "none", "acodec": "mp4a.40.2", "abr": 128},
  {"format_id": "137", "vcodec": "avc1", "acodec": "none", "width": 1920, "height": 1080, "tbr": 4000},
  {"format_id": "18", "vcodec": "avc1", "acodec": "mp4a", "width": 640, "height": 360, "tbr": 500}
 ]}`

// fakeDownloader simulates yt-dlp for detect and fetch invocations.
func fakeDownloader(t *testing.T, dlPath string) util.CmdRunner {
	return util.RunnerFunc(func(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
		if spec.Path != dlPath {
			return util.CmdResult{}, errors.New("unexpected tool " + spec.Path)
		}
		if slices.Contains(spec.Args, "--dump-single-json") {
			return util.CmdResult{Stdout: []byte(catalogJSON)}, nil
		}
		tmpl := spec.Args[slices.Index(spec.Args, "-o")+1]
		out := strings.Replace(tmpl, "%(title)s.%(ext)s", "Test Song.mp4", 1)
		if err := os.WriteFile(out, []byte("downloaded"), 0o644); err != nil {
			t.Fatalf("write fake artifact: %v", err)
		}
		spec.StdoutLine(`ytvox-progress {"status": "finished", "downloaded_bytes": 10, "total_bytes": 10}`)
		spec.StdoutLine(`ytvox-progress {"status": "finished", "downloaded_bytes": 4, "total_bytes": 4}`)
		spec.StdoutLine("ytvox-file " + out)
		return util.CmdResult{}, nil
	})
}

func fakeBinary(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func testOptions(t *testing.T) model.Options {
	t.Helper()
	return model.Options{
		DownloadsDir:   t.TempDir(),
		DLBinary:       fakeBinary(t, "yt-dlp"),
		FFmpegBinary:   filepath.Join(t.TempDir(), "no-ffmpeg"),
		SpleeterBinary: filepath.Join(t.TempDir(), "no-spleeter"),
		LogLevel:       "error",
	}.WithDefaults()
}

func execute(t *testing.T, e *env, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	ctx := context.WithValue(context.Background(), envKey, e)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("error %v is not an ExitError", err)
	}
	return ee.Code
}

func TestExitFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: boom", model.ErrCatalog), ExitCatalogError},
		{fmt.Errorf("%w for x", model.ErrNoResolutions), ExitCatalogError},
		{fmt.Errorf("%w: gone", model.ErrFetchFailed), ExitDownloadError},
		{fmt.Errorf("%w: bad", model.ErrTranscodeFailed), ExitTranscodeError},
		{fmt.Errorf("%w: no stem", model.ErrSeparationFailed), ExitSeparationError},
		{fmt.Errorf("%w: %q", model.ErrNotFound, "8K"), ExitCLIError},
		{pipeline.ErrBusy, ExitCLIError},
		{&ExitError{Code: ExitMissingDep, Err: errors.New("x")}, ExitMissingDep},
	}
	for _, tt := range tests {
		if got := exitCode(t, exitFor(tt.err)); got != tt.want {
			t.Errorf("exitFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
	if exitFor(nil) != nil {
		t.Error("exitFor(nil) should be nil")
	}
}

func TestDetectPrintsMenu(t *testing.T) {
	opts := testOptions(t)
	out, err := execute(t, &env{opts: opts, runner: fakeDownloader(t, opts.DLBinary)}, "detect", "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	for _, want := range []string{"Test Song", "1080p (landscape)", "137+140", "360p (landscape)", "4,000 kbps", "3m32s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "1080p") > strings.Index(out, "360p") {
		t.Error("menu not in descending height order")
	}
}

func TestDetectJSON(t *testing.T) {
	opts := testOptions(t)
	out, err := execute(t, &env{opts: opts, runner: fakeDownloader(t, opts.DLBinary)}, "detect", "--json", "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("detect --json: %v", err)
	}
	var doc detectionJSON
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if doc.ID != "abc" || len(doc.Resolutions) != 2 {
		t.Fatalf("doc = %+v", doc)
	}
	first := doc.Resolutions[0]
	if first.Label != "1080p (landscape)" || first.Kind != string(model.PlanNeedsRemux) || first.Selector != "137+140" {
		t.Errorf("first = %+v", first)
	}
}

func TestDetectCatalogFailure(t *testing.T) {
	opts := testOptions(t)
	runner := util.RunnerFunc(func(context.Context, util.CmdSpec) (util.CmdResult, error) {
		return util.CmdResult{Stderr: []byte("ERROR: Video unavailable\n"), Code: 1}, errors.New("command failed (exit 1)")
	})
	_, err := execute(t, &env{opts: opts, runner: runner}, "detect", "https://www.youtube.com/watch?v=gone")
	if got := exitCode(t, err); got != ExitCatalogError {
		t.Errorf("exit = %d, want %d (%v)", got, ExitCatalogError, err)
	}
	if !strings.Contains(err.Error(), "Video unavailable") {
		t.Errorf("err = %v", err)
	}
}

func TestDetectMissingDownloader(t *testing.T) {
	opts := testOptions(t)
	opts.DLBinary = filepath.Join(t.TempDir(), "missing", "yt-dlp")
	_, err := execute(t, &env{opts: opts}, "detect", "https://www.youtube.com/watch?v=abc")
	if got := exitCode(t, err); got != ExitMissingDep {
		t.Errorf("exit = %d, want %d", got, ExitMissingDep)
	}
}

func TestDownloadDefaultsToHighestResolution(t *testing.T) {
	opts := testOptions(t)
	out, err := execute(t, &env{opts: opts, runner: fakeDownloader(t, opts.DLBinary)}, "download", "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	want := filepath.Join(opts.DownloadsDir, "Test Song.mp4")
	if !strings.Contains(out, "Saved: "+want) || !strings.Contains(out, "1080p (landscape)") {
		t.Errorf("output = %q", out)
	}
	if !util.FileExists(want) {
		t.Errorf("%s not written", want)
	}
}

func TestDownloadUnknownResolution(t *testing.T) {
	opts := testOptions(t)
	_, err := execute(t, &env{opts: opts, runner: fakeDownloader(t, opts.DLBinary)},
		"download", "-r", "4320p (landscape)", "https://www.youtube.com/watch?v=abc")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if got := exitCode(t, err); got != ExitCLIError {
		t.Errorf("exit = %d", got)
	}
}

func TestDownloadVocalsNeedsTools(t *testing.T) {
	opts := testOptions(t)
	_, err := execute(t, &env{opts: opts, runner: fakeDownloader(t, opts.DLBinary)},
		"download", "--vocals", "https://www.youtube.com/watch?v=abc")
	if got := exitCode(t, err); got != ExitMissingDep {
		t.Errorf("exit = %d, want %d", got, ExitMissingDep)
	}
}

func TestDoctorReportsOptionalTools(t *testing.T) {
	opts := testOptions(t)
	runner := util.RunnerFunc(func(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
		return util.CmdResult{Stdout: []byte("2024.08.06\n")}, nil
	})
	out, err := execute(t, &env{opts: opts, runner: runner}, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	for _, want := range []string{"yt-dlp", "2024.08.06", "ffmpeg", "missing", "Vocal extraction unavailable"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDoctorFailsWithoutDownloader(t *testing.T) {
	opts := testOptions(t)
	opts.DLBinary = filepath.Join(t.TempDir(), "nope")
	_, err := execute(t, &env{opts: opts}, "doctor")
	if got := exitCode(t, err); got != ExitMissingDep {
		t.Errorf("exit = %d, want %d", got, ExitMissingDep)
	}
}

func TestConfigPrintsYAML(t *testing.T) {
	opts := testOptions(t)
	out, err := execute(t, &env{opts: opts, configFile: "/etc/ytvox.yaml"}, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, want := range []string{"# loaded from /etc/ytvox.yaml", "downloads_dir: " + opts.DownloadsDir, "spleeter_model: spleeter:2stems", "concurrency: 10"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	e := &env{opts: testOptions(t)}
	if _, err := execute(t, e, "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !util.FileExists(path) {
		t.Fatal("config file not written")
	}
	if _, err := execute(t, e, "config", "init", path); err == nil {
		t.Error("second init without --force should fail")
	}
	if _, err := execute(t, e, "config", "init", "--force", path); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestCompletionBash(t *testing.T) {
	out, err := execute(t, &env{opts: testOptions(t)}, "completion", "bash")
	if err != nil {
		t.Fatalf("completion: %v", err)
	}
	if !strings.Contains(out, "ytvox") {
		t.Error("completion script does not mention ytvox")
	}
}

func TestRenderHistory(t *testing.T) {
	now := time.Now()
	out := renderHistory([]history.Entry{
		{ID: "0b7c", Title: "Song", Label: "1080p (landscape)", Bytes: 2048, Status: history.StatusCompleted, VocalsPath: "/d/vocals/Song/vocals.wav", ArtifactPath: "/d/Song.mp4", CreatedAt: now},
		{URL: "https://youtu.be/x", Status: history.StatusFailed, ErrorMessage: "fetch failed: HTTP Error 403", CreatedAt: now.Add(-2 * time.Hour)},
	})
	for _, want := range []string{"0b7c", "Song.mp4", "completed +vocals", "2.0 KiB", "failed: fetch failed", "https://youtu.be/x", "2 hours ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTableCapsColumns(t *testing.T) {
	out := renderTable([]column{left("Name").capped(8), right("Size")}, [][]string{
		{"a very long file name", "10 MiB"},
		{"short"},
	})
	for _, want := range []string{"a very …", "10 MiB", "short"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "long file name") {
		t.Errorf("capped column was not cut:\n%s", out)
	}
	if renderTable(nil, nil) != "" {
		t.Error("no columns should render nothing")
	}
}

func TestWriteEntrySkipsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	writeEntry(&buf, history.Entry{
		ID:       "abc",
		URL:      "https://youtu.be/x",
		Label:    "720p (landscape)",
		Selector: "22",
		Bytes:    1024,
		Status:   history.StatusCompleted,
	})
	out := buf.String()
	for _, want := range []string{"ID:         abc", "Streams:    22", "Size:       1.0 KiB", "Status:     completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Vocals:") || strings.Contains(out, "Error:") {
		t.Errorf("empty fields printed:\n%s", out)
	}
}

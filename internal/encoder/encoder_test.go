package encoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"ytvox/internal/model"
	"ytvox/internal/progress"
	"ytvox/internal/util"
)

// writeWAV writes a short silent PCM file with the given layout.
func writeWAV(t *testing.T, path string, sampleRate, channels int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, sampleRate*channels/10),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
}

func fakeFFmpeg(t *testing.T, produce func(out string)) util.CmdRunner {
	return util.RunnerFunc(func(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
		out := spec.Args[len(spec.Args)-1]
		for _, l := range []string{"out_time_us=50000", "progress=continue", "out_time_us=100000", "progress=end"} {
			spec.StdoutLine(l)
		}
		produce(out)
		return util.CmdResult{}, nil
	})
}

type updates []progress.Update

func (u *updates) Update(x progress.Update) { *u = append(*u, x) }
func (u *updates) Log(progress.Log)         {}
func (u *updates) Result(progress.Result)   {}

func TestTranscodeWAV(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "Song.mp4")
	if err := os.WriteFile(in, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "Song.wav")
	var rec updates

	info, err := TranscodeWAV(context.Background(), in, out, Options{
		FFmpegPath:  "ffmpeg",
		DurationSec: 0.1,
		Runner:      fakeFFmpeg(t, func(p string) { writeWAV(t, p, 44100, 2) }),
		Reporter:    &rec,
	})
	if err != nil {
		t.Fatalf("TranscodeWAV: %v", err)
	}
	if info.SampleRate != 44100 || info.Channels != 2 || info.BitDepth != 16 {
		t.Errorf("info = %+v", info)
	}
	if info.Bytes == 0 {
		t.Error("expected non-zero size")
	}
	if len(rec) != 2 || rec[0].Percent != 50 || rec[1].Percent != 100 {
		t.Errorf("updates = %+v", rec)
	}
}

func TestTranscodeWAVInvalidOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "Song.mp4")
	if err := os.WriteFile(in, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "Song.wav")

	_, err := TranscodeWAV(context.Background(), in, out, Options{
		FFmpegPath: "ffmpeg",
		Runner: fakeFFmpeg(t, func(p string) {
			_ = os.WriteFile(p, []byte("not a wav"), 0o644)
		}),
	})
	if !errors.Is(err, model.ErrTranscodeFailed) {
		t.Fatalf("err = %v, want ErrTranscodeFailed", err)
	}
	if util.FileExists(out) {
		t.Error("invalid output should be removed")
	}
}

func TestTranscodeWAVToolFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "Song.mp4")
	if err := os.WriteFile(in, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := util.RunnerFunc(func(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
		return util.CmdResult{Stderr: []byte("Song.mp4: Invalid data found when processing input\n"), Code: 1},
			errors.New("command failed (exit 1)")
	})
	_, err := TranscodeWAV(context.Background(), in, filepath.Join(dir, "Song.wav"), Options{FFmpegPath: "ffmpeg", Runner: runner})
	if !errors.Is(err, model.ErrTranscodeFailed) {
		t.Fatalf("err = %v, want ErrTranscodeFailed", err)
	}
}

func TestTranscodeWAVMissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := TranscodeWAV(context.Background(), filepath.Join(dir, "nope.mp4"), filepath.Join(dir, "nope.wav"), Options{FFmpegPath: "ffmpeg"})
	if !errors.Is(err, model.ErrTranscodeFailed) {
		t.Errorf("err = %v, want ErrTranscodeFailed", err)
	}
}

func TestTranscodeWAVRefusesToOverwriteInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "Song.wav")
	writeWAV(t, in, 48000, 1)
	ran := false
	runner := util.RunnerFunc(func(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
		ran = true
		return util.CmdResult{Code: 1}, errors.New("command failed (exit 1)")
	})

	for _, out := range []string{in, filepath.Join(dir, ".", "Song.wav")} {
		_, err := TranscodeWAV(context.Background(), in, out, Options{FFmpegPath: "ffmpeg", Runner: runner})
		if !errors.Is(err, model.ErrTranscodeFailed) {
			t.Errorf("out %q: err = %v, want ErrTranscodeFailed", out, err)
		}
	}
	if ran {
		t.Error("ffmpeg should not run when output equals input")
	}
	if !util.FileExists(in) {
		t.Fatal("input was removed")
	}
}

func TestInspectWAV(t *testing.T) {
	p := filepath.Join(t.TempDir(), "mono.wav")
	writeWAV(t, p, 22050, 1)
	info, err := InspectWAV(p)
	if err != nil {
		t.Fatalf("InspectWAV: %v", err)
	}
	if info.SampleRate != 22050 || info.Channels != 1 {
		t.Errorf("info = %+v", info)
	}
}

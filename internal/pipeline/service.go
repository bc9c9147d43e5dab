// Package pipeline ties detection, fetching and vocal extraction into the
// user-facing detect/download/vocals actions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"ytvox/internal/catalog"
	"ytvox/internal/downloader"
	"ytvox/internal/encoder"
	"ytvox/internal/history"
	"ytvox/internal/model"
	"ytvox/internal/progress"
	"ytvox/internal/resolution"
	"ytvox/internal/separator"
	"ytvox/internal/util"
	"ytvox/internal/util/format"
	"ytvox/internal/util/media"
)

// Service runs detect, download and vocal extraction for one session.
type Service struct {
	dlPath       string
	ffmpegPath   string
	spleeterPath string
	opts         model.Options
	runner       util.CmdRunner
	reporter     progress.Reporter
	jobID        string
	logger       *slog.Logger
	history      *history.Store
}

// Option configures a Service.
type Option func(*Service)

// WithDownloaderPath sets the yt-dlp binary path.
func WithDownloaderPath(p string) Option {
	return func(s *Service) {
		s.dlPath = p
	}
}

// WithFFmpegPath sets the ffmpeg binary path.
func WithFFmpegPath(p string) Option {
	return func(s *Service) {
		s.ffmpegPath = p
	}
}

// WithSpleeterPath sets the spleeter binary path.
func WithSpleeterPath(p string) Option {
	return func(s *Service) {
		s.spleeterPath = p
	}
}

// WithOptions sets the resolved runtime options.
func WithOptions(o model.Options) Option {
	return func(s *Service) {
		s.opts = o
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithReporter attaches a progress reporter.
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithJobID sets the job ID associated with reporter events.
func WithJobID(id string) Option {
	return func(s *Service) {
		s.jobID = id
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithHistory records every download attempt in store.
func WithHistory(store *history.Store) Option {
	return func(s *Service) {
		s.history = store
	}
}

// NewService constructs a Service, filling defaults for anything unset.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	s.opts = s.opts.WithDefaults()
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.reporter == nil {
		s.reporter = progress.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Detection is the outcome of probing a URL: the menu the user picks from.
type Detection struct {
	URL         string
	ID          string
	Title       string
	DurationSec float64
	Menu        model.ResolutionMenu
}

// Result describes a finished download.
type Result struct {
	URL          string
	Title        string
	Label        model.ResolutionLabel
	Plan         model.FetchPlan
	ArtifactPath string
	Bytes        int64
	Vocals       *VocalsResult // nil unless separation ran
	HistoryID    string
}

// VocalsResult holds the post-processing artifacts.
type VocalsResult struct {
	WAVPath    string
	VocalsPath string
}

// Detect lists the resolutions rawURL offers. An empty menu is reported as
// model.ErrNoResolutions.
func (s *Service) Detect(ctx context.Context, rawURL string) (Detection, error) {
	if s.dlPath == "" {
		return Detection{}, errors.New("downloader path is required")
	}
	u, err := util.ParseVideoURL(rawURL)
	if err != nil {
		return Detection{}, err
	}
	s.update(progress.StageDetecting, -1, "Detecting resolutions")

	cat, err := catalog.Adapter{
		Path:    s.dlPath,
		Runner:  s.runner,
		Verbose: s.opts.Verbose,
		Logger:  s.logger,
	}.Fetch(ctx, u.String())
	if err != nil {
		return Detection{}, err
	}

	menu := resolution.Reconcile(cat.Variants)
	det := Detection{
		URL:         u.String(),
		ID:          cat.ID,
		Title:       cat.Title,
		DurationSec: cat.DurationSec,
		Menu:        menu,
	}
	if len(menu) == 0 {
		return det, fmt.Errorf("%w for %s", model.ErrNoResolutions, det.URL)
	}
	s.logger.Info("resolutions detected", "url", det.URL, "count", len(menu), "labels", menu.Labels())
	return det, nil
}

// Download fetches the plan behind label from det's menu. An empty label
// selects the top entry. When vocals is set the artifact is transcoded and
// separated afterwards. The reporter receives exactly one Result.
func (s *Service) Download(ctx context.Context, det Detection, label string, vocals bool) (res Result, err error) {
	res = Result{URL: det.URL, Title: det.Title}
	defer func() {
		res.HistoryID = s.record(ctx, res, err)
		pr := progress.Result{JobID: s.jobID, OutputPath: res.ArtifactPath, Bytes: res.Bytes, Err: err}
		if res.Vocals != nil {
			pr.VocalsPath = res.Vocals.VocalsPath
		}
		if err != nil {
			s.update(progress.StageError, -1, err.Error())
		}
		s.reporter.Result(pr)
	}()

	if s.dlPath == "" {
		return res, errors.New("downloader path is required")
	}
	if vocals && (s.ffmpegPath == "" || s.spleeterPath == "") {
		return res, errors.New("ffmpeg and spleeter paths are required for vocal extraction")
	}

	if label == "" {
		best, ok := resolution.Best(det.Menu)
		if !ok {
			return res, fmt.Errorf("%w for %s", model.ErrNoResolutions, det.URL)
		}
		label = string(best.Label)
	}
	plan, err := resolution.Resolve(label, det.Menu)
	if err != nil {
		return res, err
	}
	res.Label = model.ResolutionLabel(label)
	res.Plan = plan

	lock, err := acquireLock(s.opts.DownloadsDir)
	if err != nil {
		return res, err
	}
	defer func() { _ = lock.Unlock() }()

	path, err := downloader.Fetch(ctx, downloader.Request{
		URL:     det.URL,
		Plan:    plan,
		DestDir: s.opts.DownloadsDir,
		Title:   det.Title,
	}, downloader.Options{
		DownloaderPath: s.dlPath,
		Verbose:        s.opts.Verbose,
		Concurrency:    s.opts.Concurrency,
		ChunkSizeBytes: s.opts.ChunkSizeBytes,
		MergeFormat:    s.opts.MergeFormat,
		Runner:         s.runner,
		Reporter:       s.reporter,
		JobID:          s.jobID,
		Logger:         s.logger,
	})
	if err != nil {
		return res, err
	}
	res.ArtifactPath = path
	res.Bytes = util.FileSize(path)

	if vocals {
		vr, err := s.extractVocals(ctx, path, det.DurationSec)
		if err != nil {
			return res, err
		}
		res.Vocals = &vr
	}

	msg := fmt.Sprintf("Saved: %s (%s)", filepath.Base(path), format.HumanizeBytes(res.Bytes))
	if res.Vocals != nil {
		msg += ", vocals: " + res.Vocals.VocalsPath
	}
	s.update(progress.StageCompleted, 100, msg)
	return res, nil
}

// ExtractVocals runs post-processing on an existing media file. The
// reporter receives exactly one Result.
func (s *Service) ExtractVocals(ctx context.Context, mediaPath string) (vr VocalsResult, err error) {
	defer func() {
		pr := progress.Result{JobID: s.jobID, OutputPath: mediaPath, VocalsPath: vr.VocalsPath, Err: err}
		if err != nil {
			s.update(progress.StageError, -1, err.Error())
		} else {
			s.update(progress.StageCompleted, 100, "Vocals: "+vr.VocalsPath)
		}
		s.reporter.Result(pr)
	}()

	if s.ffmpegPath == "" || s.spleeterPath == "" {
		return vr, errors.New("ffmpeg and spleeter paths are required for vocal extraction")
	}
	if !util.FileExists(mediaPath) {
		return vr, fmt.Errorf("%w: %s does not exist", model.ErrTranscodeFailed, mediaPath)
	}
	lock, err := acquireLock(s.opts.DownloadsDir)
	if err != nil {
		return vr, err
	}
	defer func() { _ = lock.Unlock() }()

	return s.extractVocals(ctx, mediaPath, 0)
}

// extractVocals expects the downloads lock to be held.
func (s *Service) extractVocals(ctx context.Context, mediaPath string, durationSec float64) (VocalsResult, error) {
	root := s.opts.DownloadsDir
	wavPath := media.IntermediateWAVPath(root, mediaPath)

	s.update(progress.StageTranscoding, -1, "Extracting audio")
	if _, err := encoder.TranscodeWAV(ctx, mediaPath, wavPath, encoder.Options{
		FFmpegPath:  s.ffmpegPath,
		Verbose:     s.opts.Verbose,
		DurationSec: durationSec,
		Runner:      s.runner,
		Reporter:    s.reporter,
		JobID:       s.jobID,
		Logger:      s.logger,
	}); err != nil {
		return VocalsResult{}, err
	}

	s.update(progress.StageSeparating, -1, "Separating vocals")
	vocalsPath, err := separator.Separate(ctx, root, wavPath, separator.Options{
		SpleeterPath: s.spleeterPath,
		Model:        s.opts.SpleeterModel,
		Verbose:      s.opts.Verbose,
		Runner:       s.runner,
		Logger:       s.logger,
	})
	if err != nil {
		return VocalsResult{WAVPath: wavPath}, err
	}
	return VocalsResult{WAVPath: wavPath, VocalsPath: vocalsPath}, nil
}

func (s *Service) update(stage progress.Stage, percent float64, msg string) {
	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   stage,
		Percent: percent,
		Message: msg,
	})
}

// record writes the attempt to history and returns the entry ID. Failures
// are logged, never returned.
func (s *Service) record(ctx context.Context, res Result, runErr error) string {
	if s.history == nil || !s.opts.History {
		return ""
	}
	e := history.Entry{
		URL:          res.URL,
		Title:        res.Title,
		Label:        string(res.Label),
		Selector:     res.Plan.Selector(),
		ArtifactPath: res.ArtifactPath,
		Bytes:        res.Bytes,
		Status:       history.StatusCompleted,
	}
	if !res.Plan.IsZero() {
		e.PlanKind = string(res.Plan.Kind())
	}
	if res.Vocals != nil {
		e.VocalsPath = res.Vocals.VocalsPath
	}
	if runErr != nil {
		e.Status = history.StatusFailed
		e.ErrorMessage = runErr.Error()
	}
	// The caller's context may already be canceled; the record still lands.
	saved, err := s.history.Record(context.WithoutCancel(ctx), e)
	if err != nil {
		s.logger.Warn("history record failed", "error", err)
		return ""
	}
	s.logger.Debug("history recorded", "id", saved.ID, "status", saved.Status)
	return saved.ID
}

package model

// Options holds user-configurable runtime options as resolved from flags,
// environment and the config file.
type Options struct {
	DownloadsDir string // Root for artifacts, intermediates and vocals.
	Verbose      bool

	DLBinary       string // Optional explicit path to yt-dlp
	FFmpegBinary   string // Optional explicit path to ffmpeg
	SpleeterBinary string // Optional explicit path to spleeter
	SpleeterModel  string // e.g. "spleeter:2stems"

	Concurrency    int    // Fragment downloads in flight.
	ChunkSizeBytes int64  // HTTP chunk size for the fetch engine.
	MergeFormat    string // Container for remuxed plans.

	History   bool // Record completed downloads.
	LogLevel  string
	LogFormat string
}

// Defaults for the fetch engine tuning.
const (
	DefaultConcurrency    = 10
	DefaultChunkSizeBytes = 10 * 1024 * 1024
	DefaultMergeFormat    = "mp4"
	DefaultSpleeterModel  = "spleeter:2stems"
	DefaultDownloadsDir   = "downloads"
)

// WithDefaults fills zero values with the package defaults.
func (o Options) WithDefaults() Options {
	if o.DownloadsDir == "" {
		o.DownloadsDir = DefaultDownloadsDir
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.ChunkSizeBytes <= 0 {
		o.ChunkSizeBytes = DefaultChunkSizeBytes
	}
	if o.MergeFormat == "" {
		o.MergeFormat = DefaultMergeFormat
	}
	if o.SpleeterModel == "" {
		o.SpleeterModel = DefaultSpleeterModel
	}
	return o
}

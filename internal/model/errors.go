package model

import "errors"

// Failure kinds surfaced by the detect/download/separate actions.
// Callers wrap them with context and match with errors.Is.
var (
	ErrCatalog          = errors.New("catalog error")
	ErrNoResolutions    = errors.New("no resolutions found")
	ErrNotFound         = errors.New("resolution not found")
	ErrFetchFailed      = errors.New("fetch failed")
	ErrTranscodeFailed  = errors.New("transcode failed")
	ErrSeparationFailed = errors.New("separation failed")
)

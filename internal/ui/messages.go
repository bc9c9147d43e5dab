package ui

import (
	"ytvox/internal/pipeline"
	"ytvox/internal/progress"
)

type depsCheckedMsg struct {
	DownloaderPath string
	FFmpegPath     string
	SpleeterPath   string
	Err            error // only set when the downloader itself is missing
}

type detectDoneMsg struct {
	Det pipeline.Detection
	Err error
}

type jobUpdateMsg struct {
	U progress.Update
}

type jobLogMsg struct {
	L progress.Log
}

type jobResultMsg struct {
	R progress.Result
}

type quitMsg struct{}

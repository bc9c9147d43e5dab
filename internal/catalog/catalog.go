// Package catalog queries the fetch engine for the stream variants a video
// page advertises.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"ytvox/internal/model"
	"ytvox/internal/util"
)

// Catalog is the decoded format listing of one video.
type Catalog struct {
	ID          string
	Title       string
	Uploader    string
	DurationSec float64
	Variants    []model.StreamVariant
}

// Adapter runs yt-dlp in metadata mode.
type Adapter struct {
	Path    string // yt-dlp binary
	Runner  util.CmdRunner
	Verbose bool
	Logger  *slog.Logger
}

// Fetch lists the variants for url. Failures to reach the source or to
// read its answer are reported as model.ErrCatalog.
func (a Adapter) Fetch(ctx context.Context, url string) (Catalog, error) {
	if a.Path == "" {
		return Catalog{}, errors.New("downloader path is required")
	}
	runner := a.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args := []string{
		"--dump-single-json",
		"--no-playlist",
		"--no-warnings",
		url,
	}
	logger.Debug("catalog query", "cmd", util.ShellQuote(a.Path, args))
	res, err := runner.Run(ctx, util.CmdSpec{
		Path:          a.Path,
		Args:          args,
		Verbose:       a.Verbose,
		CaptureStdout: true,
	})
	if ctx.Err() != nil {
		return Catalog{}, ctx.Err()
	}
	if err != nil && len(bytes.TrimSpace(res.Stdout)) == 0 {
		msg := util.LastErrorLine(res.Stderr)
		if msg == "" {
			msg = err.Error()
		}
		return Catalog{}, fmt.Errorf("%w: %s", model.ErrCatalog, msg)
	}

	cat, derr := Decode(res.Stdout)
	if derr != nil {
		return Catalog{}, derr
	}
	logger.Info("catalog fetched", "id", cat.ID, "title", cat.Title, "variants", len(cat.Variants))
	return cat, nil
}

// Decode parses a yt-dlp info document. When stdout carries several JSON
// documents the last complete one wins.
func Decode(data []byte) (Catalog, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Catalog{}, fmt.Errorf("%w: empty response", model.ErrCatalog)
	}

	var info map[string]any
	if err := json.Unmarshal(data, &info); err != nil {
		lines := strings.Split(string(data), "\n")
		found := false
		for i := len(lines) - 1; i >= 0; i-- {
			line := strings.TrimSpace(lines[i])
			if !strings.HasPrefix(line, "{") {
				continue
			}
			var tmp map[string]any
			if json.Unmarshal([]byte(line), &tmp) == nil {
				info, found = tmp, true
				break
			}
		}
		if !found {
			return Catalog{}, fmt.Errorf("%w: parse info JSON: %v", model.ErrCatalog, err)
		}
	}
	if info == nil {
		return Catalog{}, fmt.Errorf("%w: response is not an object", model.ErrCatalog)
	}

	cat := Catalog{
		ID:          str(info, "id"),
		Title:       str(info, "title"),
		Uploader:    str(info, "uploader"),
		DurationSec: num(info, "duration"),
	}
	formats, _ := info["formats"].([]any)
	for _, f := range formats {
		fm, ok := f.(map[string]any)
		if !ok {
			continue
		}
		cat.Variants = append(cat.Variants, variantFrom(fm))
	}
	// A single-format source reports itself at the top level only.
	if len(formats) == 0 && str(info, "format_id") != "" {
		cat.Variants = append(cat.Variants, variantFrom(info))
	}
	return cat, nil
}

func variantFrom(f map[string]any) model.StreamVariant {
	v := model.StreamVariant{
		ID:             str(f, "format_id"),
		VideoCodec:     codec(f, "vcodec"),
		AudioCodec:     codec(f, "acodec"),
		Width:          int(num(f, "width")),
		Height:         int(num(f, "height")),
		AverageBitrate: num(f, "tbr"),
		AudioBitrate:   num(f, "abr"),
		Ext:            str(f, "ext"),
		Note:           str(f, "format_note"),
		Filesize:       int64(num(f, "filesize")),
	}
	if v.Filesize == 0 {
		v.Filesize = int64(num(f, "filesize_approx"))
	}
	return v
}

// codec treats a missing, null, empty or "none" codec as absent.
func codec(m map[string]any, key string) string {
	c := strings.TrimSpace(str(m, key))
	if strings.EqualFold(c, "none") {
		return ""
	}
	return c
}

func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func num(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	default:
		return 0
	}
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ytvox/internal/model"
	"ytvox/internal/pipeline"
	"ytvox/internal/util/format"
)

func newDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "detect <url>",
		Short:         "List the resolutions a video is offered in",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return runDetect(cmd, args[0], asJSON)
		},
	}
	cmd.Flags().Bool("json", false, "Print the menu as JSON")
	return cmd
}

func runDetect(cmd *cobra.Command, rawURL string, asJSON bool) error {
	e := envFrom(cmd)
	lg, closeLog, err := e.logger(false)
	if err != nil {
		return err
	}
	defer closeQuietly(nil, "log", closeLog)

	t, err := e.findTools(true, false)
	if err != nil {
		return err
	}
	det, err := e.service(t, lg, nil, "", nil).Detect(cmd.Context(), rawURL)
	if err != nil {
		return exitFor(err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeDetectionJSON(out, det)
	}
	writeDetection(out, det)
	return nil
}

func writeDetection(w io.Writer, det pipeline.Detection) {
	title := det.Title
	if title == "" {
		title = det.URL
	}
	fmt.Fprintln(w, title)
	if det.DurationSec > 0 {
		d := time.Duration(det.DurationSec * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(w, "Duration: %s\n", d)
	}
	fmt.Fprintln(w, renderMenu(det.Menu))
}

func renderMenu(menu model.ResolutionMenu) string {
	rows := make([][]string, 0, len(menu))
	for i, e := range menu {
		kind := "single stream"
		if e.Plan.Kind() == model.PlanNeedsRemux {
			kind = "video + audio"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(e.Label),
			fmt.Sprintf("%dx%d", e.Width, e.Height),
			e.Plan.Selector(),
			kind,
			format.Bitrate(e.Score),
		})
	}
	return renderTable([]column{
		right("#"),
		left("Resolution"),
		right("Size"),
		left("Streams"),
		left("Fetch"),
		right("Bitrate"),
	}, rows)
}

type menuEntryJSON struct {
	Label       string  `json:"label"`
	Selector    string  `json:"selector"`
	Kind        string  `json:"kind"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	BitrateKbps float64 `json:"bitrate_kbps,omitempty"`
}

type detectionJSON struct {
	URL         string          `json:"url"`
	ID          string          `json:"id,omitempty"`
	Title       string          `json:"title,omitempty"`
	DurationSec float64         `json:"duration_sec,omitempty"`
	Resolutions []menuEntryJSON `json:"resolutions"`
}

func writeDetectionJSON(w io.Writer, det pipeline.Detection) error {
	doc := detectionJSON{
		URL:         det.URL,
		ID:          det.ID,
		Title:       det.Title,
		DurationSec: det.DurationSec,
		Resolutions: make([]menuEntryJSON, 0, len(det.Menu)),
	}
	for _, e := range det.Menu {
		doc.Resolutions = append(doc.Resolutions, menuEntryJSON{
			Label:       string(e.Label),
			Selector:    e.Plan.Selector(),
			Kind:        string(e.Plan.Kind()),
			Width:       e.Width,
			Height:      e.Height,
			BitrateKbps: e.Score,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

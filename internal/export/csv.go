package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/gadenbuie/countdown/internal/store"
)

var csvHeader = []string{"ID", "Timer", "Preset", "Status", "Start", "End", "Duration (s)", "Duration", "Remaining (s)"}

func ToCSV(runs []store.Run, presets map[int64]*store.Preset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range runs {
		endStr := ""
		if r.EndedAt != nil {
			endStr = r.EndedAt.Local().Format(time.RFC3339)
		}

		row := []string{
			fmt.Sprintf("%d", r.ID),
			r.TimerID,
			presetName(r.PresetID, presets),
			r.Status,
			r.StartedAt.Local().Format(time.RFC3339),
			endStr,
			fmt.Sprintf("%d", r.Duration),
			formatDuration(int64(r.Duration)),
			fmt.Sprintf("%.1f", r.Remaining),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

// presetName returns "" for runs not started from a preset.
func presetName(id *int64, presets map[int64]*store.Preset) string {
	if id == nil {
		return ""
	}
	if p, ok := presets[*id]; ok {
		return p.Name
	}
	return "Unknown"
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

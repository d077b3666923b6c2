package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gadenbuie/countdown/internal/store"
)

type jsonExport struct {
	ExportedAt string    `json:"exported_at"`
	Count      int       `json:"count"`
	Runs       []jsonRun `json:"runs"`
}

type jsonRun struct {
	ID           int64   `json:"id"`
	TimerID      string  `json:"timer_id"`
	Preset       string  `json:"preset,omitempty"`
	Status       string  `json:"status"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time,omitempty"`
	DurationSec  int     `json:"duration_seconds"`
	Duration     string  `json:"duration"`
	RemainingSec float64 `json:"remaining_seconds"`
}

func ToJSON(runs []store.Run, presets map[int64]*store.Preset, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(runs),
	}

	for _, r := range runs {
		endStr := ""
		if r.EndedAt != nil {
			endStr = r.EndedAt.Local().Format(time.RFC3339)
		}

		export.Runs = append(export.Runs, jsonRun{
			ID:           r.ID,
			TimerID:      r.TimerID,
			Preset:       presetName(r.PresetID, presets),
			Status:       r.Status,
			StartTime:    r.StartedAt.Local().Format(time.RFC3339),
			EndTime:      endStr,
			DurationSec:  r.Duration,
			Duration:     formatDuration(int64(r.Duration)),
			RemainingSec: r.Remaining,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/gadenbuie/countdown/internal/countdown"
)

// trackRun opens a run on the first start of a timer and closes it when
// the timer finishes or is reset. Resuming after a pause keeps the run open.
func (s *Store) trackRun(ev countdown.Event) error {
	switch ev.Action {
	case countdown.ActionStart:
		if _, err := s.OpenRun(ev.TimerID); err == nil {
			return nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		_, err := s.db.Exec(
			`INSERT INTO runs (timer_id, preset_id, duration, status, started_at, remaining) VALUES (?, ?, ?, ?, ?, ?)`,
			ev.TimerID, s.assignedPreset(ev.TimerID), int(ev.Timer.Remaining.Remaining+0.5), RunRunning,
			formatTime(ev.Time), ev.Timer.Remaining.Remaining,
		)
		if err != nil {
			return fmt.Errorf("open run for %s: %w", ev.TimerID, err)
		}
	case countdown.ActionFinished:
		return s.closeRun(ev, RunFinished)
	case countdown.ActionReset:
		return s.closeRun(ev, RunReset)
	}
	return nil
}

func (s *Store) closeRun(ev countdown.Event, status string) error {
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, ended_at = ?, remaining = ? WHERE timer_id = ? AND status = ?`,
		status, formatTime(ev.Time), ev.Timer.Remaining.Remaining, ev.TimerID, RunRunning,
	)
	if err != nil {
		return fmt.Errorf("close run for %s: %w", ev.TimerID, err)
	}
	return nil
}

// abandonRuns closes runs left open by a previous process. A running timer
// is never restored, so its run ends at the last event journaled for it.
func (s *Store) abandonRuns() error {
	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, ended_at = COALESCE(
			(SELECT MAX(e.at) FROM timer_events e WHERE e.timer_id = runs.timer_id AND e.at >= runs.started_at),
			started_at)
		WHERE status = ?`,
		RunAbandoned, RunRunning,
	)
	if err != nil {
		return fmt.Errorf("abandon open runs: %w", err)
	}
	return nil
}

// OpenRun returns the unfinished run of timerID.
func (s *Store) OpenRun(timerID string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT `+runColumns+` FROM runs WHERE timer_id = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		timerID, RunRunning,
	)
	return scanRun(row)
}

// AssignPreset records that timerID was loaded from presetID. The open run
// and every later run of the timer refer to the preset.
func (s *Store) AssignPreset(timerID string, presetID int64) error {
	if _, err := s.GetPreset(presetID); err != nil {
		return fmt.Errorf("assign preset to %s: %w", timerID, err)
	}
	if err := s.SetSetting(presetKey(timerID), strconv.FormatInt(presetID, 10)); err != nil {
		return fmt.Errorf("assign preset to %s: %w", timerID, err)
	}
	_, err := s.db.Exec(
		`UPDATE runs SET preset_id = ? WHERE timer_id = ? AND status = ?`,
		presetID, timerID, RunRunning,
	)
	return err
}

func presetKey(timerID string) string { return "preset." + timerID }

// assignedPreset returns the preset id for timerID or nil.
func (s *Store) assignedPreset(timerID string) any {
	v, err := s.GetSetting(presetKey(timerID))
	if err != nil {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return id
}

func (s *Store) GetRun(id int64) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

const runColumns = `id, timer_id, preset_id, duration, status, started_at, ended_at, remaining`

func scanRun(row scanner) (*Run, error) {
	var r Run
	var presetID sql.NullInt64
	var startedAt string
	var endedAt sql.NullString
	if err := row.Scan(&r.ID, &r.TimerID, &presetID, &r.Duration, &r.Status, &startedAt, &endedAt, &r.Remaining); err != nil {
		return nil, err
	}
	if presetID.Valid {
		r.PresetID = &presetID.Int64
	}
	r.StartedAt = parseTime(startedAt)
	if endedAt.Valid {
		t := parseTime(endedAt.String)
		r.EndedAt = &t
	}
	return &r, nil
}

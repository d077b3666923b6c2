package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gadenbuie/countdown/internal/countdown"
)

// RecordEvent appends ev to the journal and keeps the runs table in step.
func (s *Store) RecordEvent(ev countdown.Event) (int64, error) {
	var end any
	if ev.Timer.End != nil {
		end = formatTime(*ev.Timer.End)
	}
	res, err := s.db.Exec(
		`INSERT INTO timer_events (timer_id, action, at, remaining, is_running, end_time) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.TimerID, string(ev.Action), formatTime(ev.Time), ev.Timer.Remaining.Remaining, ev.Timer.IsRunning, end,
	)
	if err != nil {
		return 0, fmt.Errorf("record %s event: %w", ev.Action, err)
	}
	id, _ := res.LastInsertId()

	if err := s.trackRun(ev); err != nil {
		return id, err
	}
	return id, nil
}

func (s *Store) ListEvents(filter EventFilter) ([]EventRecord, error) {
	query := `SELECT id, timer_id, action, at, remaining, is_running, end_time FROM timer_events WHERE 1=1`
	var args []any

	if filter.TimerID != "" {
		query += ` AND timer_id = ?`
		args = append(args, filter.TimerID)
	}
	if filter.Action != "" {
		query += ` AND action = ?`
		args = append(args, string(filter.Action))
	}
	if filter.From != nil {
		query += ` AND at >= ?`
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		query += ` AND at < ?`
		args = append(args, formatTime(*filter.To))
	}

	query += ` ORDER BY at DESC, id DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		var action, at string
		var end sql.NullString
		if err := rows.Scan(&e.ID, &e.TimerID, &action, &at, &e.Remaining, &e.IsRunning, &end); err != nil {
			return nil, err
		}
		e.Action = countdown.Action(action)
		e.At = parseTime(at)
		if end.Valid {
			t := parseTime(end.String)
			e.End = &t
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DailyCounts aggregates runs started in [from, to) per day and timer.
func (s *Store) DailyCounts(from, to time.Time) ([]DailyCount, error) {
	rows, err := s.db.Query(`
		SELECT
			substr(started_at, 1, 10) AS day,
			timer_id,
			COUNT(*) AS started,
			COALESCE(SUM(CASE WHEN status = 'finished' THEN 1 ELSE 0 END), 0) AS finished,
			COALESCE(SUM(CASE WHEN status = 'finished' THEN duration ELSE 0 END), 0) AS seconds
		FROM runs
		WHERE started_at >= ? AND started_at < ?
		GROUP BY day, timer_id
		ORDER BY day, timer_id`,
		formatTime(from), formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	defer rows.Close()

	var counts []DailyCount
	for rows.Next() {
		var c DailyCount
		if err := rows.Scan(&c.Date, &c.TimerID, &c.Started, &c.Finished, &c.Seconds); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// TodayFinished returns the number of runs finished since local midnight.
func (s *Store) TodayFinished() (int, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM runs WHERE status = ? AND ended_at >= ?`,
		RunFinished, formatTime(midnight),
	).Scan(&n)
	return n, err
}

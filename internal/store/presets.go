package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gadenbuie/countdown/internal/countdown"
)

const presetColumns = `id, name, duration, warn_when, update_every, blink_colon, play_sound, round_bump, archived, created_at, updated_at`

func (s *Store) CreatePreset(name string, cfg countdown.Config) (*Preset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("create preset %q: %w", name, err)
	}
	cfg = cfg.Normalize()
	sound, err := json.Marshal(cfg.PlaySound)
	if err != nil {
		return nil, fmt.Errorf("encode sound: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO presets (name, duration, warn_when, update_every, blink_colon, play_sound, round_bump, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name, cfg.Duration, cfg.WarnWhen, cfg.UpdateEvery, cfg.BlinkColon, string(sound), cfg.RoundBump, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create preset %q: %w", name, err)
	}
	id, _ := res.LastInsertId()
	return s.GetPreset(id)
}

func (s *Store) GetPreset(id int64) (*Preset, error) {
	row := s.db.QueryRow(`SELECT `+presetColumns+` FROM presets WHERE id = ?`, id)
	p, err := scanPreset(row)
	if err != nil {
		return nil, fmt.Errorf("get preset %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) GetPresetByName(name string) (*Preset, error) {
	row := s.db.QueryRow(`SELECT `+presetColumns+` FROM presets WHERE name = ?`, name)
	p, err := scanPreset(row)
	if err != nil {
		return nil, fmt.Errorf("get preset %q: %w", name, err)
	}
	return p, nil
}

func (s *Store) ListPresets(includeArchived bool) ([]Preset, error) {
	query := `SELECT ` + presetColumns + ` FROM presets`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, *p)
	}
	return presets, rows.Err()
}

func (s *Store) UpdatePreset(id int64, name string, cfg countdown.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("update preset %d: %w", id, err)
	}
	cfg = cfg.Normalize()
	sound, err := json.Marshal(cfg.PlaySound)
	if err != nil {
		return fmt.Errorf("encode sound: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(
		`UPDATE presets SET name = ?, duration = ?, warn_when = ?, update_every = ?, blink_colon = ?, play_sound = ?, round_bump = ?, updated_at = ?
		 WHERE id = ?`,
		name, cfg.Duration, cfg.WarnWhen, cfg.UpdateEvery, cfg.BlinkColon, string(sound), cfg.RoundBump, now, id,
	)
	return err
}

func (s *Store) ArchivePreset(id int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`UPDATE presets SET archived = 1, updated_at = ? WHERE id = ?`, now, id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (*Preset, error) {
	var p Preset
	var sound, createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &p.Duration, &p.WarnWhen, &p.UpdateEvery, &p.BlinkColon,
		&sound, &p.RoundBump, &p.Archived, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sound), &p.PlaySound); err != nil {
		return nil, fmt.Errorf("decode sound of preset %d: %w", p.ID, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

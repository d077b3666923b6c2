package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/gadenbuie/countdown/internal/countdown"
	"github.com/gadenbuie/countdown/internal/store"
)

var soundChoices = []string{"off", "default", "url"}

type presetsModel struct {
	store  *store.Store
	width  int
	height int

	presets      []store.Preset
	cursor       int
	showArchived bool

	formActive bool
	form       *huh.Form
	editingID  int64 // 0 when creating

	// Form field pointers (survive value copies)
	formName     *string
	formMinutes  *string
	formSeconds  *string
	formWarn     *string
	formEvery    *string
	formBlink    *bool
	formSound    *string
	formURL      *string
	formRoundBmp *bool
}

func newPresetsModel(s *store.Store) presetsModel {
	name, mins, secs, warn, every, sound, url := "", "", "", "", "", soundChoices[0], ""
	blink, round := false, true
	return presetsModel{
		store:        s,
		formName:     &name,
		formMinutes:  &mins,
		formSeconds:  &secs,
		formWarn:     &warn,
		formEvery:    &every,
		formBlink:    &blink,
		formSound:    &sound,
		formURL:      &url,
		formRoundBmp: &round,
	}
}

func (p *presetsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

type presetsDataMsg struct {
	presets []store.Preset
}

func (p presetsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		presets, _ := p.store.ListPresets(p.showArchived)
		return presetsDataMsg{presets: presets}
	}
}

func (p presetsModel) update(msg tea.Msg) (presetsModel, tea.Cmd) {
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case presetsDataMsg:
		p.presets = msg.presets
		if p.cursor >= len(p.presets) {
			p.cursor = max(0, len(p.presets)-1)
		}
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, keys.Down):
			if p.cursor < len(p.presets)-1 {
				p.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if len(p.presets) > 0 {
				pr := p.presets[p.cursor]
				return p, func() tea.Msg {
					return loadPresetMsg{name: pr.Name, cfg: pr.Config(), id: pr.ID}
				}
			}
		case key.Matches(msg, keys.New):
			return p.showForm(nil)
		case key.Matches(msg, keys.Edit):
			if len(p.presets) > 0 {
				pr := p.presets[p.cursor]
				return p.showForm(&pr)
			}
		case key.Matches(msg, keys.Delete):
			if len(p.presets) > 0 {
				p.store.ArchivePreset(p.presets[p.cursor].ID)
				return p, p.refresh()
			}
		}
	}
	return p, nil
}

// showForm opens the preset form, prefilled from pr when editing.
func (p presetsModel) showForm(pr *store.Preset) (presetsModel, tea.Cmd) {
	cfg := countdown.DefaultConfig()
	*p.formName = ""
	p.editingID = 0
	if pr != nil {
		cfg = pr.Config()
		*p.formName = pr.Name
		p.editingID = pr.ID
	} else if v, err := p.store.GetSetting(store.SettingDefaultWarn); err == nil {
		if n, ok := countdown.ParseSeconds(v); ok {
			cfg.WarnWhen = n
		}
	}

	*p.formMinutes = strconv.Itoa(cfg.Minutes())
	*p.formSeconds = strconv.Itoa(cfg.Seconds())
	*p.formWarn = ""
	if cfg.WarnWhen > 0 {
		*p.formWarn = strconv.Itoa(cfg.WarnWhen)
	}
	*p.formEvery = strconv.Itoa(cfg.UpdateEvery)
	*p.formBlink = cfg.BlinkColon
	*p.formRoundBmp = cfg.RoundBump
	*p.formURL = ""
	switch cfg.PlaySound.Mode {
	case countdown.SoundDefault:
		*p.formSound = "default"
	case countdown.SoundURL:
		*p.formSound = "url"
		*p.formURL = cfg.PlaySound.URL
	default:
		*p.formSound = "off"
	}

	soundOptions := make([]huh.Option[string], len(soundChoices))
	for i, c := range soundChoices {
		soundOptions[i] = huh.NewOption(c, c)
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Preset Name").Value(p.formName).Validate(required),
			huh.NewInput().Title("Minutes").Value(p.formMinutes).Validate(minutesField),
			huh.NewInput().Title("Seconds").Value(p.formSeconds).Validate(secondsField),
		).Title("Duration"),
		huh.NewGroup(
			huh.NewInput().Title("Warn when (seconds left, blank for none)").Value(p.formWarn).Validate(secondsField),
			huh.NewInput().Title("Update every (seconds)").Value(p.formEvery).Validate(secondsField),
			huh.NewConfirm().Title("Blink colon").Value(p.formBlink),
			huh.NewConfirm().Title("Round bumps to 5s").Value(p.formRoundBmp),
			huh.NewSelect[string]().Title("Sound").Options(soundOptions...).Value(p.formSound),
			huh.NewInput().Title("Sound URL").Value(p.formURL),
		).Title("Behavior"),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func minutesField(s string) error {
	n, ok := countdown.ParseSeconds(s)
	if !ok {
		return errors.New("enter a number")
	}
	if n >= 100 {
		return countdown.ErrDurationTooLong
	}
	return nil
}

// secondsField accepts blank or a leading integer.
func secondsField(s string) error {
	if _, ok := countdown.ParseSeconds(s); !ok && strings.TrimSpace(s) != "" {
		return errors.New("enter a number")
	}
	return nil
}

// formConfig builds the engine config from the form fields. Malformed
// numbers fall back to zero like every other lenient input.
func (p presetsModel) formConfig() countdown.Config {
	mins, _ := countdown.ParseSeconds(*p.formMinutes)
	secs, _ := countdown.ParseSeconds(*p.formSeconds)
	cfg := countdown.NewConfig(mins, secs)
	if warn, ok := countdown.ParseSeconds(*p.formWarn); ok && warn > 0 {
		cfg.WarnWhen = warn
	} else {
		cfg.WarnWhen = -1
	}
	if every, ok := countdown.ParseSeconds(*p.formEvery); ok && every > 0 {
		cfg.UpdateEvery = every
	}
	cfg.BlinkColon = *p.formBlink
	cfg.RoundBump = *p.formRoundBmp
	switch *p.formSound {
	case "default":
		cfg.PlaySound = countdown.Sound{Mode: countdown.SoundDefault}
	case "url":
		cfg.PlaySound = countdown.SoundFromString(*p.formURL)
	default:
		cfg.PlaySound = countdown.Sound{}
	}
	return cfg.Normalize()
}

func (p presetsModel) updateForm(msg tea.Msg) (presetsModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		name := strings.TrimSpace(*p.formName)
		cfg := p.formConfig()
		var err error
		if p.editingID != 0 {
			err = p.store.UpdatePreset(p.editingID, name, cfg)
		} else {
			_, err = p.store.CreatePreset(name, cfg)
		}
		if err != nil {
			return p, tea.Batch(p.refresh(), func() tea.Msg {
				return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
			})
		}
		return p, p.refresh()
	}

	return p, cmd
}

func (p presetsModel) view() string {
	if p.formActive && p.form != nil {
		title := titleStyle.Render("New Preset")
		if p.editingID != 0 {
			title = titleStyle.Render("Edit Preset")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", p.form.View())
		return panelStyle.Width(p.width - 4).Render(content)
	}
	return p.renderPresetList()
}

func (p presetsModel) renderPresetList() string {
	w := p.width - 4
	title := titleStyle.Render("Presets")

	if len(p.presets) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No presets yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	header := mutedStyle.Render(fmt.Sprintf("  %-24s %-8s %-8s %-10s", "Name", "Time", "Warn", "Sound"))
	rows = append(rows, header)

	for i, pr := range p.presets {
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		warn := "-"
		if pr.WarnWhen > 0 {
			warn = formatClock(pr.WarnWhen)
		}
		row := style.Render(fmt.Sprintf("%s%-24s %-8s %-8s %-10s",
			cursor, pr.Name, formatClock(pr.Duration), warn, soundLabel(pr.PlaySound)))
		rows = append(rows, row)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: load into timer  n: new  e: edit  d: archive"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func soundLabel(s countdown.Sound) string {
	switch s.Mode {
	case countdown.SoundDefault:
		return "default"
	case countdown.SoundURL:
		return "url"
	}
	return "off"
}

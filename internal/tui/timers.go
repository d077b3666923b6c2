package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gadenbuie/countdown/internal/countdown"
	"github.com/gadenbuie/countdown/internal/store"
)

type timersModel struct {
	store  *store.Store
	timers []timerModel
	cursor int
	width  int
	height int

	todayFinished int
	recentRuns    []store.Run
}

func newTimersModel(s *store.Store, timers []Timer) timersModel {
	m := timersModel{store: s}
	for _, t := range timers {
		m.timers = append(m.timers, newTimerModel(t))
	}
	return m
}

func (d timersModel) Init() tea.Cmd {
	cmds := []tea.Cmd{d.loadData()}
	for _, t := range d.timers {
		cmds = append(cmds, waitForEvent(t.events))
	}
	return tea.Batch(cmds...)
}

func (d *timersModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d timersModel) selected() (timerModel, bool) {
	if d.cursor < 0 || d.cursor >= len(d.timers) {
		return timerModel{}, false
	}
	return d.timers[d.cursor], true
}

// anyRunning reports the first running timer, for the footer.
func (d timersModel) anyRunning() (timerModel, bool) {
	for _, t := range d.timers {
		if t.phase() == countdown.PhaseRunning {
			return t, true
		}
	}
	return timerModel{}, false
}

type timersDataMsg struct {
	todayFinished int
	recentRuns    []store.Run
}

func (d timersModel) loadData() tea.Cmd {
	return func() tea.Msg {
		n, _ := d.store.TodayFinished()
		runs, _ := d.store.ListRuns(5)
		return timersDataMsg{todayFinished: n, recentRuns: runs}
	}
}

func (d timersModel) update(msg tea.Msg) (timersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case timersDataMsg:
		d.todayFinished = msg.todayFinished
		d.recentRuns = msg.recentRuns
		return d, nil

	case timerEventMsg:
		cmds := []tea.Cmd{waitForEvent(msg.ch)}
		switch msg.event.Action {
		case countdown.ActionFinished, countdown.ActionReset, countdown.ActionStart:
			cmds = append(cmds, d.loadData())
		}
		if text := d.describe(msg.event); text != "" {
			cmds = append(cmds, func() tea.Msg { return statusMsg{text: text} })
		}
		return d, tea.Batch(cmds...)

	case loadPresetMsg:
		t, ok := d.selected()
		if !ok {
			return d, nil
		}
		t.load(msg)
		d.timers[d.cursor] = t
		id := t.id()
		return d, func() tea.Msg {
			if err := d.store.AssignPreset(id, msg.id); err != nil {
				return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
			}
			d.store.SetSetting(store.SettingLastPreset, msg.name)
			return statusMsg{text: fmt.Sprintf("Loaded %s into %s", msg.name, t.name)}
		}

	case tea.KeyMsg:
		t, ok := d.selected()
		if !ok {
			return d, nil
		}
		switch {
		case key.Matches(msg, keys.Prev):
			if d.cursor > 0 {
				d.cursor--
			}
		case key.Matches(msg, keys.Next):
			if d.cursor < len(d.timers)-1 {
				d.cursor++
			}
		case key.Matches(msg, keys.Toggle):
			t.toggle()
		case key.Matches(msg, keys.Reset):
			t.reset()
		case key.Matches(msg, keys.BumpUp):
			return d, bumpCmd(t.bumpUp())
		case key.Matches(msg, keys.BumpDown):
			return d, bumpCmd(t.bumpDown())
		}
	}
	return d, nil
}

func bumpCmd(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	text := fmt.Sprintf("Error: %v", err)
	if errors.Is(err, countdown.ErrInvalidOperation) {
		text = "Start the timer before changing its time"
	}
	return func() tea.Msg { return statusMsg{text: text, isError: true} }
}

func (d timersModel) name(id string) string {
	for _, t := range d.timers {
		if t.id() == id {
			return t.name
		}
	}
	return id
}

func (d timersModel) describe(ev countdown.Event) string {
	switch ev.Action {
	case countdown.ActionFinished:
		return d.name(ev.TimerID) + " finished \a"
	case countdown.ActionWarning:
		return fmt.Sprintf("%s: %s left", d.name(ev.TimerID), formatClock(ev.Timer.Remaining.Minutes*60+ev.Timer.Remaining.Seconds))
	case countdown.ActionStart:
		return d.name(ev.TimerID) + " started"
	case countdown.ActionStop:
		return d.name(ev.TimerID) + " paused"
	}
	return ""
}

func (d timersModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	contentWidth := d.width - 4

	if len(d.timers) == 0 {
		return panelStyle.Width(contentWidth).Render(
			mutedStyle.Render("No timers configured. Add one to the config file or pass -minutes."),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderTimerTabs(),
		d.renderTimerPanel(contentWidth),
		d.renderRecentPanel(contentWidth),
	)
}

func (d timersModel) renderTimerTabs() string {
	if len(d.timers) < 2 {
		return ""
	}
	var tabs []string
	for i, t := range d.timers {
		label := t.name
		if t.phase() == countdown.PhaseRunning {
			label = "● " + label
		}
		if i == d.cursor {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func (d timersModel) renderTimerPanel(w int) string {
	t, _ := d.selected()

	m, s := t.face.Digits()
	sep := ":"
	if t.face.Flag(countdown.FlagBlink) {
		sep = " "
	}
	digits := bigDigits(m + sep + s)

	var style lipgloss.Style
	var indicator string
	switch t.phase() {
	case countdown.PhaseRunning:
		style = timerRunningStyle
		indicator = successStyle.Render("●  RUNNING")
	case countdown.PhasePaused:
		style = timerPausedStyle
		indicator = warningStyle.Render("⏸  PAUSED")
	case countdown.PhaseFinished:
		style = timerFinishedStyle
		indicator = accentStyle.Render("■  FINISHED")
	default:
		style = timerStyle
		indicator = mutedStyle.Render("■  READY")
	}
	if t.face.Flag(countdown.FlagWarning) {
		style = timerWarningStyle
	}

	title := highlightStyle.Render(t.name)
	if t.presetName != "" {
		title += mutedStyle.Render(" / " + t.presetName)
	}

	cfg := t.engine.Config()
	details := mutedStyle.Render(fmt.Sprintf("%s total", formatClock(cfg.Duration)))
	if cfg.WarnWhen > 0 {
		details += mutedStyle.Render(fmt.Sprintf("  warn at %s", formatClock(cfg.WarnWhen)))
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		title,
		"",
		style.Width(w-6).Render(digits),
		indicator,
		details,
	)
	panel := panelStyle
	if t.phase() == countdown.PhaseRunning {
		panel = activePanelStyle
	}
	return panel.Width(w).Render(content)
}

func (d timersModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Today")
	count := highlightStyle.Render(fmt.Sprintf("%d finished", d.todayFinished))
	header := fmt.Sprintf("%s  %s", title, count)

	if len(d.recentRuns) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			header,
			mutedStyle.Render("No runs yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, header)
	for _, r := range d.recentRuns {
		status := "✓"
		switch r.Status {
		case store.RunRunning:
			status = "●"
		case store.RunReset:
			status = "↺"
		case store.RunAbandoned:
			status = "✗"
		}
		startStr := r.StartedAt.Local().Format("15:04")
		rows = append(rows, fmt.Sprintf("  %s %s  %-16s %s", status, startStr, d.name(r.TimerID), formatClock(r.Duration)))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

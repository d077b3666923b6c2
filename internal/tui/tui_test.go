package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gadenbuie/countdown/internal/clock"
	"github.com/gadenbuie/countdown/internal/countdown"
	"github.com/gadenbuie/countdown/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestTimer builds an engine on a fake clock rendering to a fresh face.
func newTestTimer(t *testing.T, id string, minutes int) (Timer, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	face := NewFace()
	e := countdown.New(id, countdown.NewConfig(minutes, 0),
		countdown.WithClock(fake),
		countdown.WithRenderer(face),
	)
	t.Cleanup(e.Close)
	return Timer{Name: id, Engine: e, Face: face}, fake
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// ============================================================
// Face
// ============================================================

func TestFaceDefaults(t *testing.T) {
	f := NewFace()
	m, s := f.Digits()
	if m != "00" || s != "00" {
		t.Fatalf("expected 00:00, got %s:%s", m, s)
	}
	if f.Flag(countdown.FlagRunning) {
		t.Fatal("flags should start off")
	}
}

func TestFaceReceivesEngineUpdates(t *testing.T) {
	tm, fake := newTestTimer(t, "talk", 5)

	m, s := tm.Face.Digits()
	if m != "05" || s != "00" {
		t.Fatalf("expected initial 05:00, got %s:%s", m, s)
	}

	tm.Engine.Start()
	if !tm.Face.Flag(countdown.FlagRunning) {
		t.Fatal("running flag should be set after start")
	}
	fake.Advance(61 * time.Second)
	m, s = tm.Face.Digits()
	if m != "03" || s != "59" {
		t.Fatalf("expected 03:59, got %s:%s", m, s)
	}

	tm.Engine.Stop(true)
	if tm.Face.Flag(countdown.FlagRunning) {
		t.Fatal("running flag should clear on stop")
	}
}

// ============================================================
// Timer model
// ============================================================

func TestTimerModelName(t *testing.T) {
	tm, _ := newTestTimer(t, "talk", 1)
	tm.Name = ""
	m := newTimerModel(tm)
	if m.name != "talk" {
		t.Fatalf("expected name to fall back to id, got %q", m.name)
	}
}

func TestTimerModelToggleReset(t *testing.T) {
	tm, _ := newTestTimer(t, "talk", 1)
	m := newTimerModel(tm)

	m.toggle()
	if m.phase() != countdown.PhaseRunning {
		t.Fatalf("expected running, got %s", m.phase())
	}
	m.toggle()
	if m.phase() != countdown.PhasePaused {
		t.Fatalf("expected paused, got %s", m.phase())
	}
	m.reset()
	if m.phase() != countdown.PhaseIdle {
		t.Fatalf("expected idle, got %s", m.phase())
	}
	if m.clock() != "01:00" {
		t.Fatalf("expected 01:00 after reset, got %s", m.clock())
	}
}

func TestTimerModelBumpWhileIdle(t *testing.T) {
	tm, _ := newTestTimer(t, "talk", 1)
	m := newTimerModel(tm)
	if err := m.bumpUp(); err == nil {
		t.Fatal("bump while idle should fail")
	}
}

func TestTimerModelLoadPreset(t *testing.T) {
	tm, _ := newTestTimer(t, "talk", 1)
	m := newTimerModel(tm)

	cfg := countdown.NewConfig(3, 0)
	cfg.WarnWhen = 30
	m.load(loadPresetMsg{name: "Short", cfg: cfg, id: 7})

	if m.presetName != "Short" || m.presetID != 7 {
		t.Fatalf("preset not recorded: %+v", m)
	}
	if got := tm.Engine.Config(); got.Duration != 180 || got.WarnWhen != 30 {
		t.Fatalf("engine config not updated: %+v", got)
	}
	if m.clock() != "03:00" {
		t.Fatalf("expected 03:00 after load, got %s", m.clock())
	}
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan countdown.Event, 1)
	ch <- countdown.Event{TimerID: "a", Action: countdown.ActionStart}

	msg := waitForEvent(ch)()
	ev, ok := msg.(timerEventMsg)
	if !ok {
		t.Fatalf("expected timerEventMsg, got %T", msg)
	}
	if ev.event.Action != countdown.ActionStart || ev.ch != (<-chan countdown.Event)(ch) {
		t.Fatalf("unexpected message: %+v", ev)
	}

	close(ch)
	if msg := waitForEvent(ch)(); msg != nil {
		t.Fatalf("closed channel should yield nil, got %T", msg)
	}
}

// ============================================================
// Timers view
// ============================================================

func TestTimersKeys(t *testing.T) {
	s := newTestStore(t)
	a, _ := newTestTimer(t, "a", 1)
	b, _ := newTestTimer(t, "b", 2)
	d := newTimersModel(s, []Timer{a, b})

	d, _ = d.update(keyMsg(" "))
	if a.Engine.Phase() != countdown.PhaseRunning {
		t.Fatal("space should start the selected timer")
	}

	d, _ = d.update(keyMsg("l"))
	if d.cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", d.cursor)
	}
	d, _ = d.update(keyMsg("l"))
	if d.cursor != 1 {
		t.Fatal("cursor should stop at the last timer")
	}

	d, _ = d.update(keyMsg("enter"))
	if b.Engine.Phase() != countdown.PhaseRunning {
		t.Fatal("enter should start the second timer")
	}

	d, _ = d.update(keyMsg("r"))
	if b.Engine.Phase() != countdown.PhaseIdle {
		t.Fatal("r should reset the timer")
	}

	d, _ = d.update(keyMsg("h"))
	if d.cursor != 0 {
		t.Fatalf("expected cursor 0, got %d", d.cursor)
	}
	d, _ = d.update(keyMsg("up"))
	if got := a.Engine.Remaining().Remaining; got != 75 {
		t.Fatalf("expected bump to 75s, got %v", got)
	}
}

func TestTimersBumpWhileIdleReportsStatus(t *testing.T) {
	s := newTestStore(t)
	a, _ := newTestTimer(t, "a", 1)
	d := newTimersModel(s, []Timer{a})

	_, cmd := d.update(keyMsg("down"))
	if cmd == nil {
		t.Fatal("expected a status command")
	}
	msg, ok := cmd().(statusMsg)
	if !ok || !msg.isError {
		t.Fatalf("expected error status, got %+v", msg)
	}
}

func TestTimersNoTimers(t *testing.T) {
	s := newTestStore(t)
	d := newTimersModel(s, nil)
	d.setSize(80, 24)

	d, cmd := d.update(keyMsg(" "))
	if cmd != nil {
		t.Fatal("keys should be ignored without timers")
	}
	if !strings.Contains(d.view(), "No timers") {
		t.Fatal("expected empty hint")
	}
}

func TestTimersEventResubscribes(t *testing.T) {
	s := newTestStore(t)
	a, _ := newTestTimer(t, "a", 1)
	d := newTimersModel(s, []Timer{a})

	ev := countdown.Event{TimerID: "a", Action: countdown.ActionFinished}
	_, cmd := d.update(timerEventMsg{event: ev, ch: d.timers[0].events})
	if cmd == nil {
		t.Fatal("expected follow-up commands")
	}
	if got := d.describe(ev); !strings.Contains(got, "a finished") {
		t.Fatalf("unexpected description %q", got)
	}
	if got := d.describe(countdown.Event{TimerID: "a", Action: countdown.ActionBumpUp}); got != "" {
		t.Fatalf("bumps should not set a status, got %q", got)
	}
}

func TestTimersLoadPresetAssignsStore(t *testing.T) {
	s := newTestStore(t)
	a, _ := newTestTimer(t, "a", 1)
	d := newTimersModel(s, []Timer{a})

	p, err := s.CreatePreset("Standup", countdown.NewConfig(15, 0))
	if err != nil {
		t.Fatal(err)
	}
	d, cmd := d.update(loadPresetMsg{name: p.Name, cfg: p.Config(), id: p.ID})
	if cmd == nil {
		t.Fatal("expected store command")
	}
	if msg := cmd().(statusMsg); msg.isError {
		t.Fatalf("unexpected error: %s", msg.text)
	}
	if d.timers[0].presetName != "Standup" {
		t.Fatal("preset name not kept")
	}
	if got, _ := s.GetSetting("last_preset"); got != "Standup" {
		t.Fatalf("last_preset = %q", got)
	}

	a.Engine.Start()
	if _, err := s.RecordEvent(countdown.Event{TimerID: "a", Action: countdown.ActionStart, Time: time.Now()}); err != nil {
		t.Fatal(err)
	}
	run, err := s.OpenRun("a")
	if err != nil {
		t.Fatal(err)
	}
	if run.PresetID == nil || *run.PresetID != p.ID {
		t.Fatalf("run should reference preset %d", p.ID)
	}
}

func TestTimersView(t *testing.T) {
	s := newTestStore(t)
	a, _ := newTestTimer(t, "talk", 5)
	b, _ := newTestTimer(t, "break", 1)
	d := newTimersModel(s, []Timer{a, b})
	d.setSize(100, 30)

	view := d.view()
	for _, want := range []string{"talk", "break", "READY", "Today"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}

	a.Engine.Start()
	if !strings.Contains(d.view(), "RUNNING") {
		t.Fatal("view should show running state")
	}
	if tm, ok := d.anyRunning(); !ok || tm.name != "talk" {
		t.Fatal("anyRunning should find talk")
	}
}

func TestTimersTooSmall(t *testing.T) {
	d := newTimersModel(newTestStore(t), nil)
	d.setSize(10, 10)
	if d.view() != "Terminal too small" {
		t.Fatal("expected size warning")
	}
}

// ============================================================
// Presets view
// ============================================================

func TestPresetsRefreshAndLoad(t *testing.T) {
	s := newTestStore(t)
	s.CreatePreset("Break", countdown.NewConfig(5, 0))
	s.CreatePreset("Talk", countdown.NewConfig(20, 0))

	p := newPresetsModel(s)
	p.setSize(80, 24)
	p, _ = p.update(p.refresh()())
	if len(p.presets) != 2 {
		t.Fatalf("expected 2 presets, got %d", len(p.presets))
	}

	p, _ = p.update(keyMsg("down"))
	_, cmd := p.update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("enter should load a preset")
	}
	msg, ok := cmd().(loadPresetMsg)
	if !ok || msg.name != "Talk" || msg.cfg.Duration != 1200 {
		t.Fatalf("unexpected load message: %+v", msg)
	}

	if !strings.Contains(p.view(), "Break") {
		t.Fatal("list should show presets")
	}
}

func TestPresetsArchive(t *testing.T) {
	s := newTestStore(t)
	s.CreatePreset("Old", countdown.NewConfig(1, 0))

	p := newPresetsModel(s)
	p, _ = p.update(p.refresh()())
	p, cmd := p.update(keyMsg("d"))
	p, _ = p.update(cmd())
	if len(p.presets) != 0 {
		t.Fatalf("archived preset still listed: %+v", p.presets)
	}
}

func TestPresetsFormConfig(t *testing.T) {
	p := newPresetsModel(newTestStore(t))
	*p.formMinutes = "2"
	*p.formSeconds = "30abc"
	*p.formWarn = ""
	*p.formEvery = "0"
	*p.formBlink = true
	*p.formRoundBmp = false
	*p.formSound = "url"
	*p.formURL = "https://example.com/gong.mp3"

	cfg := p.formConfig()
	if cfg.Duration != 150 {
		t.Fatalf("duration = %d, want 150", cfg.Duration)
	}
	if cfg.WarnWhen != -1 || cfg.UpdateEvery != 1 {
		t.Fatalf("warn/update = %d/%d", cfg.WarnWhen, cfg.UpdateEvery)
	}
	if !cfg.BlinkColon || cfg.RoundBump {
		t.Fatal("booleans not applied")
	}
	if cfg.PlaySound.Mode != countdown.SoundURL || cfg.PlaySound.URL != "https://example.com/gong.mp3" {
		t.Fatalf("sound = %+v", cfg.PlaySound)
	}

	*p.formWarn = "45"
	*p.formSound = "off"
	cfg = p.formConfig()
	if cfg.WarnWhen != 45 || cfg.PlaySound.Enabled() {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestPresetsShowFormUsesDefaultWarn(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting("default_warn", "90")

	p := newPresetsModel(s)
	p, _ = p.showForm(nil)
	if !p.formActive {
		t.Fatal("form should be active")
	}
	if *p.formWarn != "90" {
		t.Fatalf("expected default warn 90, got %q", *p.formWarn)
	}

	p, _ = p.update(keyMsg("esc"))
	if p.formActive {
		t.Fatal("esc should close the form")
	}
}

func TestPresetsShowFormEdit(t *testing.T) {
	s := newTestStore(t)
	cfg := countdown.NewConfig(4, 5)
	cfg.PlaySound = countdown.Sound{Mode: countdown.SoundDefault}
	pr, _ := s.CreatePreset("Demo", cfg)

	p := newPresetsModel(s)
	p, _ = p.showForm(pr)
	if p.editingID != pr.ID || *p.formName != "Demo" {
		t.Fatal("form should be prefilled for editing")
	}
	if *p.formMinutes != "4" || *p.formSeconds != "5" || *p.formSound != "default" {
		t.Fatalf("unexpected fields %q %q %q", *p.formMinutes, *p.formSeconds, *p.formSound)
	}
}

func TestFieldValidators(t *testing.T) {
	if required("  ") == nil || required("x") != nil {
		t.Fatal("required")
	}
	if minutesField("99") != nil || minutesField("100") == nil || minutesField("abc") == nil {
		t.Fatal("minutesField")
	}
	if secondsField("") != nil || secondsField("12") != nil || secondsField("x") == nil {
		t.Fatal("secondsField")
	}
}

func TestSoundLabel(t *testing.T) {
	tests := map[string]countdown.Sound{
		"off":     {},
		"default": {Mode: countdown.SoundDefault},
		"url":     {Mode: countdown.SoundURL, URL: "x"},
	}
	for want, s := range tests {
		if got := soundLabel(s); got != want {
			t.Errorf("soundLabel(%v) = %q, want %q", s, got, want)
		}
	}
}

// ============================================================
// History view
// ============================================================

func TestHistoryDateRange(t *testing.T) {
	h := newHistoryModel(newTestStore(t))
	from, to := h.dateRange()
	if days := int(to.Sub(from).Hours() / 24); days != defaultHistoryDays {
		t.Fatalf("expected %d days, got %d", defaultHistoryDays, days)
	}
	if to.Before(time.Now().UTC()) {
		t.Fatal("current range should include today")
	}

	h.offset = 1
	from2, to2 := h.dateRange()
	if !to2.Equal(from) || !from2.Before(from) {
		t.Fatal("offset should shift one block back")
	}
}

func TestHistoryRefreshUsesSetting(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting("history_days", "14")

	now := time.Now().UTC()
	s.RecordEvent(countdown.Event{TimerID: "a", Action: countdown.ActionStart, Time: now.Add(-time.Minute),
		Timer: countdown.TimerState{Remaining: countdown.TimeLeft{Remaining: 60}}})
	s.RecordEvent(countdown.Event{TimerID: "a", Action: countdown.ActionFinished, Time: now})

	h := newHistoryModel(s)
	h.setSize(100, 40)
	h, _ = h.update(h.refresh()())
	if h.days != 14 {
		t.Fatalf("expected 14 days, got %d", h.days)
	}
	if len(h.counts) != 1 || h.counts[0].Finished != 1 {
		t.Fatalf("unexpected counts %+v", h.counts)
	}
	view := h.view()
	if !strings.Contains(view, "Finished runs") || !strings.Contains(view, "a") {
		t.Fatal("view should show the chart header and timer")
	}
}

func TestHistoryNavigation(t *testing.T) {
	h := newHistoryModel(newTestStore(t))
	h, _ = h.update(keyMsg("left"))
	if h.offset != 1 {
		t.Fatalf("expected offset 1, got %d", h.offset)
	}
	h, _ = h.update(keyMsg("right"))
	h, _ = h.update(keyMsg("right"))
	if h.offset != 0 {
		t.Fatalf("offset should not go negative, got %d", h.offset)
	}
}

func TestHistoryEmptyTable(t *testing.T) {
	h := newHistoryModel(newTestStore(t))
	if !strings.Contains(h.renderSummaryTable(80), "No runs") {
		t.Fatal("expected empty message")
	}
	if h.renderLegend() != "" {
		t.Fatal("legend should be empty")
	}
}

// ============================================================
// Settings view
// ============================================================

func TestSettingsRefreshHidesAssignments(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.CreatePreset("Talk", countdown.NewConfig(5, 0))
	s.AssignPreset("a", p.ID)

	m := newSettingsModel(s)
	m, _ = m.update(m.refresh()())
	for _, st := range m.settings {
		if strings.HasPrefix(st.Key, "preset.") {
			t.Fatalf("internal key %q shown", st.Key)
		}
	}
	if len(m.settings) != 3 {
		t.Fatalf("expected 3 settings, got %d", len(m.settings))
	}
}

func TestSettingsForm(t *testing.T) {
	s := newTestStore(t)
	m := newSettingsModel(s)
	m, _ = m.update(keyMsg("enter"))
	if !m.formActive {
		t.Fatal("enter should open the form")
	}
	if *m.historyDays != "7" || *m.defaultWarn != "60" {
		t.Fatalf("form not prefilled: %q %q", *m.historyDays, *m.defaultWarn)
	}

	*m.historyDays = " 30 "
	m.saveSettings()
	if v, _ := s.GetSetting("history_days"); v != "30" {
		t.Fatalf("history_days = %q", v)
	}
}

func TestFormatSettingValue(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"history_days", "7", "7 days"},
		{"default_warn", "90", "01:30"},
		{"default_warn", "0", "none"},
		{"last_preset", "", "-"},
		{"last_preset", "Talk", "Talk"},
		{"other", "x", "x"},
	}
	for _, tt := range tests {
		if got := formatSettingValue(tt.key, tt.value); got != tt.want {
			t.Errorf("formatSettingValue(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}

func TestIntValidators(t *testing.T) {
	if positiveInt("1") != nil || positiveInt("0") == nil || positiveInt("x") == nil {
		t.Fatal("positiveInt")
	}
	if nonNegativeInt("0") != nil || nonNegativeInt("-1") == nil {
		t.Fatal("nonNegativeInt")
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{time.Second, "00:00:01"},
		{time.Minute, "00:01:00"},
		{time.Hour, "01:00:00"},
		{time.Hour + time.Minute + time.Second, "01:01:01"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{0, "00:00"},
		{-5, "00:00"},
		{59, "00:59"},
		{90, "01:30"},
		{5999, "99:59"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.secs); got != tt.want {
			t.Errorf("formatClock(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestBigDigits(t *testing.T) {
	out := bigDigits("12:34")
	rows := strings.Split(out, "\n")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if bigDigits("1x") != bigDigits("1") {
		t.Fatal("unknown runes should be skipped")
	}
	if bigDigits("12:34") == bigDigits("12 34") {
		t.Fatal("blinking colon should change the output")
	}
}

func TestViewNames(t *testing.T) {
	if len(viewNames) != 4 {
		t.Fatalf("expected 4 view names, got %d", len(viewNames))
	}
	if viewNames[viewTimers] != "Timers" || viewNames[viewSettings] != "Settings" {
		t.Fatal("view names out of order")
	}
}

// ============================================================
// App
// ============================================================

func newTestApp(t *testing.T) (App, Timer) {
	t.Helper()
	s := newTestStore(t)
	tm, _ := newTestTimer(t, "talk", 5)
	app := NewApp(s, []Timer{tm})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m.(App), tm
}

func TestNewApp(t *testing.T) {
	app := NewApp(newTestStore(t), nil)
	if app.activeView != viewTimers {
		t.Fatal("should start on timers view")
	}
	if app.Init() == nil {
		t.Fatal("Init should return commands")
	}
}

func TestAppLoadingState(t *testing.T) {
	app := NewApp(newTestStore(t), nil)
	if app.View() != "Loading..." {
		t.Fatal("expected loading before the first size message")
	}
}

func TestAppSwitchViews(t *testing.T) {
	app, _ := newTestApp(t)

	m, _ := app.Update(keyMsg("2"))
	if m.(App).activeView != viewPresets {
		t.Fatal("2 should open presets")
	}
	m, _ = m.Update(keyMsg("tab"))
	if m.(App).activeView != viewHistory {
		t.Fatal("tab should cycle to history")
	}
	m, _ = m.Update(keyMsg("4"))
	if m.(App).activeView != viewSettings {
		t.Fatal("4 should open settings")
	}
	m, _ = m.Update(keyMsg("tab"))
	if m.(App).activeView != viewTimers {
		t.Fatal("tab should wrap to timers")
	}
	m, _ = m.Update(keyMsg("p"))
	if m.(App).activeView != viewPresets {
		t.Fatal("p should open presets from the timers view")
	}
}

func TestAppRoutesTimerKeys(t *testing.T) {
	app, tm := newTestApp(t)
	app.Update(keyMsg(" "))
	if tm.Engine.Phase() != countdown.PhaseRunning {
		t.Fatal("space should reach the timer")
	}
}

func TestAppLoadPresetReturnsToTimers(t *testing.T) {
	app, tm := newTestApp(t)
	app.activeView = viewPresets
	m, _ := app.Update(loadPresetMsg{name: "x", cfg: countdown.NewConfig(2, 0), id: 1})
	if m.(App).activeView != viewTimers {
		t.Fatal("loading a preset should show the timers view")
	}
	if tm.Engine.Config().Duration != 120 {
		t.Fatal("preset not applied")
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app, _ := newTestApp(t)
	header := app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppFooterShowsRunningTimer(t *testing.T) {
	app, tm := newTestApp(t)
	if strings.Contains(app.renderFooter(), "●") {
		t.Fatal("no running timer yet")
	}
	tm.Engine.Start()
	if !strings.Contains(app.renderFooter(), "talk 05:00") {
		t.Fatalf("footer should show the running timer: %q", app.renderFooter())
	}
}

func TestAppStatusMessage(t *testing.T) {
	app, _ := newTestApp(t)
	m, _ := app.Update(statusMsg{text: "hello", isError: true})
	a := m.(App)
	if a.status != "hello" || !a.statusErr {
		t.Fatal("status not stored")
	}
	if !strings.Contains(a.View(), "hello") {
		t.Fatal("status should be rendered")
	}
}

func TestAppExportPicker(t *testing.T) {
	app, _ := newTestApp(t)
	m, _ := app.Update(keyMsg("x"))
	if !m.(App).exportPicking {
		t.Fatal("x should open the export picker")
	}
	m, _ = m.Update(keyMsg("down"))
	if m.(App).exportCursor != 1 {
		t.Fatal("down should move the cursor")
	}
	m, _ = m.Update(keyMsg("esc"))
	if m.(App).exportPicking {
		t.Fatal("esc should close the picker")
	}
}

func TestExportRuns(t *testing.T) {
	s := newTestStore(t)
	s.RecordEvent(countdown.Event{TimerID: "a", Action: countdown.ActionStart, Time: time.Now(),
		Timer: countdown.TimerState{Remaining: countdown.TimeLeft{Remaining: 60}}})
	dir := t.TempDir()

	path, err := ExportRuns(s, dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".csv" {
		t.Fatalf("expected csv, got %s", path)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "a,") {
		t.Fatalf("csv should contain the run: %s", data)
	}

	path, err = ExportRuns(s, dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".json" {
		t.Fatalf("expected json, got %s", path)
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test, just verify they don't panic)
// ============================================================

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"timer", func() string { return timerStyle.Render("test") }},
		{"timerRunning", func() string { return timerRunningStyle.Render("test") }},
		{"timerPaused", func() string { return timerPausedStyle.Render("test") }},
		{"timerWarning", func() string { return timerWarningStyle.Render("test") }},
		{"timerFinished", func() string { return timerFinishedStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"accent", func() string { return accentStyle.Render("test") }},
		{"success", func() string { return successStyle.Render("test") }},
		{"warning", func() string { return warningStyle.Render("test") }},
		{"error", func() string { return errorStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"highlight", func() string { return highlightStyle.Render("test") }},
		{"header", func() string { return headerStyle.Render("test") }},
		{"footer", func() string { return footerStyle.Render("test") }},
		{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
		{"normalItem", func() string { return normalItemStyle.Render("test") }},
	}

	for _, s := range styles {
		if s.fn() == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}
}

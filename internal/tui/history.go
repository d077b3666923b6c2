package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gadenbuie/countdown/internal/store"
)

const defaultHistoryDays = 7

var timerColors = []string{"#6C63FF", "#2EC4B6", "#FF6B6B", "#F39C12", "#2ECC71", "#E74C3C", "#9B59B6", "#3498DB"}

type historyModel struct {
	store  *store.Store
	width  int
	height int

	days   int
	offset int // blocks of days back from today (0 = current)
	counts []store.DailyCount

	chart barchart.Model
}

func newHistoryModel(s *store.Store) historyModel {
	return historyModel{
		store: s,
		days:  defaultHistoryDays,
		chart: barchart.New(60, 12),
	}
}

func (r *historyModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type historyDataMsg struct {
	days   int
	counts []store.DailyCount
}

func (r historyModel) refresh() tea.Cmd {
	return func() tea.Msg {
		r.days = r.store.GetSettingInt(store.SettingHistoryDays, defaultHistoryDays)
		from, to := r.dateRange()
		counts, _ := r.store.DailyCounts(from, to)
		return historyDataMsg{days: r.days, counts: counts}
	}
}

// dateRange covers r.days UTC days ending today, shifted back by offset.
func (r historyModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, 1-r.days*r.offset)
	return end.AddDate(0, 0, -r.days), end
}

func (r historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		r.days = msg.days
		r.counts = msg.counts
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		}
	}
	return r, nil
}

// timerIDs lists the timers present in the counts, sorted.
func (r historyModel) timerIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range r.counts {
		if !seen[c.TimerID] {
			seen[c.TimerID] = true
			ids = append(ids, c.TimerID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r historyModel) colorOf(timerID string) lipgloss.Color {
	for i, id := range r.timerIDs() {
		if id == timerID {
			return lipgloss.Color(timerColors[i%len(timerColors)])
		}
	}
	return colorSubtle
}

func (r *historyModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	from, to := r.dateRange()

	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		dateStr := d.Format("2006-01-02")
		label := d.Format("Mon 02")

		var values []barchart.BarValue
		for _, c := range r.counts {
			if c.Date == dateStr && c.Finished > 0 {
				values = append(values, barchart.BarValue{
					Name:  c.TimerID,
					Value: float64(c.Finished),
					Style: lipgloss.NewStyle().Foreground(r.colorOf(c.TimerID)),
				})
			}
		}

		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}

		bars = append(bars, barchart.BarData{
			Label:  label,
			Values: values,
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r historyModel) view() string {
	w := r.width - 4

	from, to := r.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.Add(-24*time.Hour).Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Finished runs"), "  ", dateLabel,
	)

	nav := mutedStyle.Render("  ←/→: navigate")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderLegend(), "", r.renderSummaryTable(w), "", nav,
		),
	)
}

func (r historyModel) renderSummaryTable(w int) string {
	if len(r.counts) == 0 {
		return mutedStyle.Render("  No runs in this period")
	}

	var rows []string
	headerRow := mutedStyle.Render(fmt.Sprintf("  %-12s %-20s %8s %8s %10s", "Date", "Timer", "Started", "Finished", "Time"))
	rows = append(rows, headerRow)
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 62))))

	for _, c := range r.counts {
		dot := lipgloss.NewStyle().Foreground(r.colorOf(c.TimerID)).Render("●")
		rows = append(rows, fmt.Sprintf("  %-12s %s %-18s %8d %8d %10s",
			c.Date, dot, c.TimerID, c.Started, c.Finished, formatSeconds(c.Seconds),
		))
	}

	return strings.Join(rows, "\n")
}

func (r historyModel) renderLegend() string {
	var items []string
	for _, id := range r.timerIDs() {
		dot := lipgloss.NewStyle().Foreground(r.colorOf(id)).Render("●")
		items = append(items, fmt.Sprintf("%s %s", dot, id))
	}
	if len(items) == 0 {
		return ""
	}
	return "  " + strings.Join(items, "  ")
}

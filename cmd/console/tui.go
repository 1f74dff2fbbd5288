/*
 * Copyright 2025 the TinyIDS Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinyids/console/pkg/console"
	"github.com/tinyids/console/pkg/logview"
	"github.com/tinyids/console/pkg/models"
	"github.com/tinyids/console/pkg/probe"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"
)

const (
	uiTick         = time.Second
	refreshTimeout = 10 * time.Second

	// Rows spent on chrome around the table: title, counters, filter,
	// status, help.
	chromeRows      = 5
	minTableHeight  = 4
	minMessageWidth = 20
	defaultWidth    = 100
	defaultHeight   = 24

	allDevices = -1
)

// Column widths. The bubbles table pads every cell by one on each side, so
// the message column absorbs whatever the terminal has left.
const (
	timeColWidth     = 8
	severityColWidth = 8
	deviceColWidth   = 12
	typeColWidth     = 14
	sourceColWidth   = 15
	cellPadding      = 2
)

type tickMsg time.Time

type refreshDoneMsg struct{}

type probeSentMsg struct {
	deviceID int
}

type probeErrMsg struct {
	err error
}

type model struct {
	console *console.Console

	logs   table.Model
	filter textinput.Model
	styles struct {
		title, help, hint, success, warning, error lipgloss.Style
	}

	devices   []models.Device
	deviceIdx int
	// wantDevice is the session-restored device id, resolved against the
	// roster once the first poll lands. Zero means nothing to restore.
	wantDevice int

	counts   models.LogCounters
	lastErr  error
	lastSync time.Time
	states   map[int]console.DeviceState

	status string
	width  int
	height int
}

func newStyles() struct {
	title, help, hint, success, warning, error lipgloss.Style
} {
	return struct {
		title, help, hint, success, warning, error lipgloss.Style
	}{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)),
		error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
	}
}

func newModel(c *console.Console, startDevice int) *model {
	return &model{
		console:    c,
		logs:       newLogTable(),
		filter:     newFilterInput(),
		styles:     newStyles(),
		deviceIdx:  allDevices,
		wantDevice: startDevice,
		width:      defaultWidth,
		height:     defaultHeight,
	}
}

func newLogTable() table.Model {
	tbl := table.New(
		table.WithColumns(buildColumns(defaultWidth)),
		table.WithFocused(true),
		table.WithHeight(defaultHeight-chromeRows),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(draculaComment)).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color(draculaCyan))
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color(draculaForeground)).
		Background(lipgloss.Color(draculaPurple)).
		Bold(false)
	tbl.SetStyles(styles)

	return tbl
}

func newFilterInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "type to filter, enter to pin, esc to clear"
	ti.Prompt = "/ "
	ti.Width = 40
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan))
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground))
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))

	return ti
}

func buildColumns(width int) []table.Column {
	fixed := timeColWidth + severityColWidth + deviceColWidth + typeColWidth + sourceColWidth

	message := width - fixed - 6*cellPadding
	if message < minMessageWidth {
		message = minMessageWidth
	}

	return []table.Column{
		{Title: "Time", Width: timeColWidth},
		{Title: "Severity", Width: severityColWidth},
		{Title: "Device", Width: deviceColWidth},
		{Title: "Type", Width: typeColWidth},
		{Title: "Source", Width: sourceColWidth},
		{Title: "Message", Width: message},
	}
}

func (*model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func tick() tea.Cmd {
	return tea.Tick(uiTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.sync()

		return m, nil
	case tickMsg:
		m.sync()

		return m, tick()
	case refreshDoneMsg:
		m.sync()

		if m.lastErr != nil {
			m.status = "Refresh failed: " + clip(m.lastErr.Error(), 64)
		} else {
			m.status = "Snapshot refreshed"
		}

		return m, nil
	case probeSentMsg:
		m.status = fmt.Sprintf("Settings request sent to device %d", msg.deviceID)

		return m, nil
	case probeErrMsg:
		if errors.Is(msg.err, probe.ErrThrottled) {
			m.status = "Probe throttled, the previous answer is still fresh"
		} else {
			m.status = "Probe failed: " + clip(msg.err.Error(), 64)
		}

		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filter.Focused() {
		return m.handleFilterKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "/":
		m.filter.Focus()

		return m, textinput.Blink
	case "d":
		m.cycleDevice(1)

		return m, nil
	case "D":
		m.cycleDevice(-1)

		return m, nil
	case "r":
		m.status = "Refreshing snapshot..."

		return m, m.refreshCmd()
	case "p":
		return m.probeSelected()
	default:
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)

		return m, cmd
	}
}

func (m *model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // Default case handles all unlisted keys
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.filter.Blur()
		m.filter.SetValue("")
		m.refreshRows()

		return m, nil
	case tea.KeyEnter:
		m.filter.Blur()

		return m, nil
	default:
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.refreshRows()

	return m, cmd
}

// cycleDevice walks the scope ring: all devices, then each roster entry.
func (m *model) cycleDevice(step int) {
	count := len(m.devices) + 1
	pos := (m.deviceIdx + 1 + step + count) % count
	m.deviceIdx = pos - 1
	m.wantDevice = 0
	m.status = ""
	m.refreshRows()
}

func (m *model) currentDevice() (models.Device, bool) {
	if m.deviceIdx < 0 || m.deviceIdx >= len(m.devices) {
		return models.Device{}, false
	}

	return m.devices[m.deviceIdx], true
}

// currentDeviceID reports the scoped device for session persistence, zero
// when the view spans all devices.
func (m *model) currentDeviceID() int {
	if device, ok := m.currentDevice(); ok {
		return device.ID
	}

	return 0
}

func (m *model) probeSelected() (tea.Model, tea.Cmd) {
	device, ok := m.currentDevice()
	if !ok {
		m.status = "Select a device first (d cycles the roster)"

		return m, nil
	}

	m.status = fmt.Sprintf("Checking %s...", deviceLabel(device))

	return m, m.probeCmd(device.ID)
}

func (m *model) probeCmd(deviceID int) tea.Cmd {
	watch := m.console.Watch

	return func() tea.Msg {
		// The answer resolves asynchronously through the watch state, so
		// the check has to outlive this command. The prober bounds it.
		if err := watch.Check(context.Background(), deviceID); err != nil {
			return probeErrMsg{err: err}
		}

		return probeSentMsg{deviceID: deviceID}
	}
}

func (m *model) refreshCmd() tea.Cmd {
	feed := m.console.Feed

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		feed.Refresh(ctx)

		return refreshDoneMsg{}
	}
}

// sync pulls the current feed and watch state into the model.
func (m *model) sync() {
	feed := m.console.Feed

	m.devices = feed.Devices()
	m.counts = feed.Counts()
	m.lastErr = feed.Err()
	m.lastSync = feed.LastSync()
	m.states = m.console.Watch.States()

	if m.deviceIdx >= len(m.devices) {
		m.deviceIdx = allDevices
	}

	m.resolveWantedDevice()
	m.refreshRows()
}

func (m *model) resolveWantedDevice() {
	if m.wantDevice == 0 {
		return
	}

	for i, device := range m.devices {
		if device.ID == m.wantDevice {
			m.deviceIdx = i
			m.wantDevice = 0

			return
		}
	}
}

func (m *model) refreshRows() {
	q := logview.Query{Text: strings.TrimSpace(m.filter.Value())}
	if device, ok := m.currentDevice(); ok {
		q.DeviceID = device.ID
	}

	records := m.console.Feed.Project(q)

	rows := make([]table.Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, table.Row{
			recordTime(record),
			orDash(record.Severity),
			recordDevice(record),
			orDash(record.Type),
			orDash(record.SourceIP),
			record.Message(),
		})
	}

	m.logs.SetRows(rows)
}

func (m *model) layout() {
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}

	if height <= 0 {
		height = defaultHeight
	}

	tableHeight := height - chromeRows
	if tableHeight < minTableHeight {
		tableHeight = minTableHeight
	}

	m.logs.SetWidth(width)
	m.logs.SetHeight(tableHeight)
	m.logs.SetColumns(buildColumns(width))
}

func (m *model) View() string {
	var content strings.Builder

	content.WriteString(m.headerView() + "\n")
	content.WriteString(m.logs.View() + "\n")
	content.WriteString(m.countsView() + "\n")
	content.WriteString(m.filter.View() + "\n")
	content.WriteString(m.statusView() + "\n")
	content.WriteString(m.helpView())

	return content.String()
}

func (m *model) headerView() string {
	title := m.styles.title.Render("TinyIDS Console")

	link := m.styles.success.Render("feed live")

	switch {
	case m.lastErr != nil:
		link = m.styles.error.Render("feed degraded: " + clip(m.lastErr.Error(), 48))
	case m.lastSync.IsZero():
		link = m.styles.help.Render("feed connecting")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, title, "   ", link, "   ", m.scopeView())
}

func (m *model) scopeView() string {
	device, ok := m.currentDevice()
	if !ok {
		return m.styles.hint.Render(fmt.Sprintf("all devices (%d)", len(m.devices)))
	}

	label := m.styles.hint.Render(deviceLabel(device))

	state, tracked := m.states[device.ID]
	if !tracked {
		return label
	}

	switch state.Status {
	case console.StatusPending:
		return label + " " + m.styles.warning.Render("checking...")
	case console.StatusOnline:
		verdict := "online"
		if n := len(state.BlockedIPs); n > 0 {
			verdict = fmt.Sprintf("online, %d blocked", n)
		}

		return label + " " + m.styles.success.Render(verdict)
	case console.StatusUnreachable:
		return label + " " + m.styles.error.Render("unreachable")
	default:
		return label
	}
}

func (m *model) countsView() string {
	hour := m.counts.Window1H
	day := m.counts.Window24H

	parts := []string{
		m.styles.help.Render("last hour"),
		m.styles.error.Render(fmt.Sprintf("%d high", hour.High)),
		m.styles.warning.Render(fmt.Sprintf("%d medium", hour.Medium)),
		m.styles.success.Render(fmt.Sprintf("%d low", hour.Low)),
		m.styles.help.Render(fmt.Sprintf("%d total", hour.Total)),
		m.styles.help.Render(fmt.Sprintf("24h %d", day.Total)),
	}

	return strings.Join(parts, "  ")
}

func (m *model) statusView() string {
	if m.status == "" {
		return ""
	}

	return m.styles.hint.Render(m.status)
}

func (m *model) helpView() string {
	return m.styles.help.Render(
		"q → quit | / → filter | d/D → device scope | p → probe | r → refresh | j/k → scroll")
}

func recordTime(record *models.LogRecord) string {
	if record.Timestamp.IsZero() {
		return "-"
	}

	return record.Timestamp.Local().Format("15:04:05")
}

func recordDevice(record *models.LogRecord) string {
	switch {
	case record.DeviceName != "":
		return record.DeviceName
	case record.DeviceID != 0:
		return fmt.Sprintf("#%d", record.DeviceID)
	case record.Token != "":
		return clip(record.Token, 10)
	default:
		return "-"
	}
}

func deviceLabel(device models.Device) string {
	if device.Name != "" {
		return device.Name
	}

	return fmt.Sprintf("device %d", device.ID)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit-3] + "..."
}

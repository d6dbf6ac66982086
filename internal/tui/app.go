package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"lifx-monitor/internal/device"
	"lifx-monitor/internal/protocol"
	"lifx-monitor/internal/stats"
)

// Colors
var (
	cyanColor = lipgloss.Color("#00FFFF")
	grayColor = lipgloss.Color("#666666")

	whiteColor  = lipgloss.Color("#FFFFFF")
	yellowColor = lipgloss.Color("#FFFF00")
	redColor    = lipgloss.Color("#FF6666")
	greenColor  = lipgloss.Color("#66FF66")
)

// Styles
var (
	statsStyle = lipgloss.NewStyle().
			Foreground(whiteColor)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(whiteColor).
			Background(lipgloss.Color("#1a1a2e")).
			Padding(0, 2)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cyanColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cyanColor).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(grayColor).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(grayColor).
				Padding(0, 1)

	groupCardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(cyanColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(grayColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(redColor)
)

// KeyMap defines keybindings
type KeyMap struct {
	Tab     key.Binding
	Power   key.Binding
	Refresh key.Binding
	Reset   key.Binding
	Clear   key.Binding
	Quit    key.Binding
}

var keys = KeyMap{
	Tab:     key.NewBinding(key.WithKeys("tab")),
	Power:   key.NewBinding(key.WithKeys(" ", "p")),
	Refresh: key.NewBinding(key.WithKeys("r")),
	Reset:   key.NewBinding(key.WithKeys("c")),
	Clear:   key.NewBinding(key.WithKeys("C")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// Controller sends commands to devices. *lan.Client implements it.
type Controller interface {
	SetPower(ctx context.Context, site protocol.Site, on bool) error
	Refresh(ctx context.Context, site protocol.Site) error
}

type view int

const (
	viewDevices view = iota
	viewGroups
	viewLocations
)

var viewNames = []string{"Devices", "Groups", "Locations"}

const commandTimeout = 2 * time.Second

// Model is the main TUI model
type Model struct {
	registry     *device.Registry
	statsTracker *stats.Tracker
	controller   Controller
	staleTimeout time.Duration
	port         int

	view    view
	devices []device.State
	table   table.Model
	status  string
	err     error
	width   int
	height  int
}

// NewModel creates a new TUI model. Devices not heard from within
// staleTimeout are marked stale; port is shown while waiting for the first
// device. ctl may be nil for a read-only monitor.
func NewModel(registry *device.Registry, st *stats.Tracker, ctl Controller, staleTimeout time.Duration, port int) Model {
	t := table.New(
		table.WithColumns(deviceColumns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	return Model{
		registry:     registry,
		statsTracker: st,
		controller:   ctl,
		staleTimeout: staleTimeout,
		port:         port,
		table:        t,
	}
}

var deviceColumns = []table.Column{
	{Title: "Site", Width: 12},
	{Title: "Label", Width: 20},
	{Title: "Power", Width: 6},
	{Title: "Color (HSBK)", Width: 24},
	{Title: "Group", Width: 16},
	{Title: "Seen", Width: 8},
	{Title: "pps", Width: 5},
}

// TickMsg is a message for periodic updates
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// commandResultMsg reports the outcome of a command sent to a device.
type commandResultMsg struct {
	what string
	err  error
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Tab):
			m.view = (m.view + 1) % view(len(viewNames))
			return m, nil
		case key.Matches(msg, keys.Power):
			return m, m.togglePower()
		case key.Matches(msg, keys.Refresh):
			return m, m.refresh()
		case key.Matches(msg, keys.Reset):
			if s, ok := m.selected(); ok {
				m.statsTracker.ResetDeviceStats(s.Site)
				m.err = nil
				m.status = fmt.Sprintf("cleared stats for %s", displayName(s))
			}
			return m, nil
		case key.Matches(msg, keys.Clear):
			m.statsTracker.ResetAllStats()
			m.err = nil
			m.status = "cleared stats for all devices"
			return m, nil
		}
		if m.view == viewDevices {
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Reserve space for: title(2) + tabs(4) + stats(2) + help(2)
		m.table.SetHeight(max(3, m.height-10))

	case commandResultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.what
		}

	case TickMsg:
		m.updateDeviceList()
		return m, tickCmd()
	}

	return m, nil
}

func (m *Model) updateDeviceList() {
	m.devices = m.registry.List()
	now := time.Now()

	rows := make([]table.Row, len(m.devices))
	for i, s := range m.devices {
		power := "off"
		if s.Powered {
			power = "on"
		}
		if s.Predicted.Has(device.ChangePower) {
			power += "*"
		}
		seen := fmt.Sprintf("%ds", int(now.Sub(s.LastSeen).Seconds()))
		if s.IsStale(m.staleTimeout) {
			seen = "stale"
		}
		rows[i] = table.Row{
			s.Site.String(),
			s.Label,
			power,
			fmt.Sprintf("%d/%d/%d/%dK", s.Color.Hue, s.Color.Saturation, s.Color.Brightness, s.Color.Kelvin),
			s.Group.Label,
			seen,
			fmt.Sprintf("%.0f", m.statsTracker.GetPacketRate(s.Site)),
		}
	}
	m.table.SetRows(rows)
}

func (m Model) selected() (device.State, bool) {
	i := m.table.Cursor()
	if m.view != viewDevices || i < 0 || i >= len(m.devices) {
		return device.State{}, false
	}
	return m.devices[i], true
}

func (m Model) togglePower() tea.Cmd {
	s, ok := m.selected()
	if !ok || m.controller == nil {
		return nil
	}
	ctl := m.controller
	on := !s.Powered
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := ctl.SetPower(ctx, s.Site, on)
		return commandResultMsg{what: fmt.Sprintf("%s power %s", displayName(s), onOff(on)), err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	s, ok := m.selected()
	if !ok || m.controller == nil {
		return nil
	}
	ctl := m.controller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := ctl.Refresh(ctx, s.Site)
		return commandResultMsg{what: fmt.Sprintf("refreshing %s", displayName(s)), err: err}
	}
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("LIFX Monitor") + "\n\n")
	s.WriteString(m.renderTabs() + "\n\n")

	switch {
	case len(m.devices) == 0:
		s.WriteString(helpStyle.Render("Waiting for devices...") + "\n\n")
		s.WriteString(helpStyle.Render(fmt.Sprintf("Broadcasting discovery on UDP port %d.", m.port)) + "\n")
	case m.view == viewDevices:
		s.WriteString(m.table.View() + "\n\n")
		s.WriteString(m.renderStats() + "\n")
	case m.view == viewGroups:
		s.WriteString(renderMemberships(m.registry.Groups(), m.devices) + "\n")
	case m.view == viewLocations:
		s.WriteString(renderMemberships(m.registry.Locations(), m.devices) + "\n")
	}

	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()))
	} else if m.status != "" {
		s.WriteString("\n" + helpStyle.Render(m.status))
	}

	s.WriteString("\n" + helpStyle.Render("Tab: switch view | ↑↓: select | space: power | r: refresh | c/C: clear stats | q: quit"))
	return s.String()
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(viewNames))
	for i, name := range viewNames {
		if view(i) == m.view {
			tabs[i] = tabActiveStyle.Render(name)
		} else {
			tabs[i] = tabInactiveStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderStats() string {
	s, ok := m.selected()
	if !ok {
		return ""
	}

	snap, _ := m.statsTracker.GetDeviceStats(s.Site)
	unanswered := m.statsTracker.GetRecentUnansweredPercentage(s.Site)

	// Format unanswered ratio with color
	unansweredStr := fmt.Sprintf("%.1f%%", unanswered)
	if unanswered > 10 {
		unansweredStr = lipgloss.NewStyle().Foreground(redColor).Render(unansweredStr)
	} else if unanswered > 0 {
		unansweredStr = lipgloss.NewStyle().Foreground(yellowColor).Render(unansweredStr)
	}

	addr := "-"
	if s.Addr != nil {
		addr = s.Addr.String()
	}

	line := fmt.Sprintf(
		"Addr: %s | Packets: %d | Unanswered: %s | Product: %d/%d | Signal: %.2g",
		addr,
		snap.PacketCount,
		unansweredStr,
		s.Version.Vendor,
		s.Version.Product,
		s.Radio.Signal,
	)
	return statsStyle.Render(line)
}

func renderMemberships(collections map[uuid.UUID]device.Membership, devices []device.State) string {
	if len(collections) == 0 {
		return helpStyle.Render("No assignments reported yet.")
	}

	names := make(map[protocol.Site]string, len(devices))
	powered := make(map[protocol.Site]bool, len(devices))
	for _, d := range devices {
		names[d.Site] = displayName(d)
		powered[d.Site] = d.Powered
	}

	list := make([]device.Membership, 0, len(collections))
	for _, c := range collections {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Label < list[j].Label
	})

	cards := make([]string, 0, len(list))
	for _, c := range list {
		var b strings.Builder
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(c.Label))
		for _, site := range c.Members {
			mark := lipgloss.NewStyle().Foreground(grayColor).Render("○")
			if powered[site] {
				mark = lipgloss.NewStyle().Foreground(greenColor).Render("●")
			}
			b.WriteString("\n" + mark + " " + names[site])
		}
		cards = append(cards, groupCardStyle.Render(b.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func displayName(s device.State) string {
	if s.Label != "" {
		return s.Label
	}
	return s.Site.String()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

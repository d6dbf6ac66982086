package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifx-monitor/internal/device"
	"lifx-monitor/internal/protocol"
	"lifx-monitor/internal/stats"
)

var testSite = protocol.Site{0xd0, 0x73, 0xd5, 0x01, 0xd0, 0x82}

type fakeController struct {
	mu        sync.Mutex
	power     map[protocol.Site]bool
	refreshed []protocol.Site
	err       error
}

func (f *fakeController) SetPower(_ context.Context, site protocol.Site, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.power == nil {
		f.power = make(map[protocol.Site]bool)
	}
	f.power[site] = on
	return f.err
}

func (f *fakeController) Refresh(_ context.Context, site protocol.Site) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, site)
	return f.err
}

func newTestModel(t *testing.T, ctl Controller) (Model, *device.Registry) {
	t.Helper()
	m, registry, _ := newTestModelWithStats(t, ctl)
	return m, registry
}

func newTestModelWithStats(t *testing.T, ctl Controller) (Model, *device.Registry, *stats.Tracker) {
	t.Helper()
	registry := device.NewRegistry()
	registry.Apply(testSite, &protocol.StateLabel{Label: "Kitchen"})
	registry.Apply(testSite, &protocol.StatePower{Level: 0})

	tracker := stats.NewTracker()
	m := NewModel(registry, tracker, ctl, time.Minute, 56700)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	next, _ = next.Update(TickMsg(time.Now()))
	return next.(Model), registry, tracker
}

func keyMsg(s string) tea.KeyMsg {
	if s == "tab" {
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_LoadingBeforeSize(t *testing.T) {
	m := NewModel(device.NewRegistry(), stats.NewTracker(), nil, time.Minute, 56700)
	assert.Equal(t, "Loading...", m.View())
}

func TestModel_WaitingForDevices(t *testing.T) {
	m := NewModel(device.NewRegistry(), stats.NewTracker(), nil, time.Minute, 56701)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Contains(t, next.View(), "Waiting for devices")
	assert.Contains(t, next.View(), "UDP port 56701")
}

func TestModel_ListsDevices(t *testing.T) {
	m, _ := newTestModel(t, nil)

	view := m.View()
	assert.Contains(t, view, "D073D501D082")
	assert.Contains(t, view, "Kitchen")
}

func TestModel_TogglePower(t *testing.T) {
	ctl := &fakeController{}
	m, _ := newTestModel(t, ctl)

	next, cmd := m.Update(keyMsg("p"))
	require.NotNil(t, cmd)

	result := cmd()
	res, ok := result.(commandResultMsg)
	require.True(t, ok)
	assert.NoError(t, res.err)
	assert.True(t, ctl.power[testSite], "device was off, so the toggle switches it on")

	next, _ = next.Update(res)
	assert.Contains(t, next.View(), "Kitchen power on")
}

func TestModel_CommandErrorShown(t *testing.T) {
	ctl := &fakeController{err: errors.New("lan: client closed")}
	m, _ := newTestModel(t, ctl)

	_, cmd := m.Update(keyMsg("r"))
	require.NotNil(t, cmd)

	next, _ := m.Update(cmd())
	assert.Contains(t, next.View(), "client closed")
	assert.Equal(t, []protocol.Site{testSite}, ctl.refreshed)
}

func TestModel_NoControllerNoCommand(t *testing.T) {
	m, _ := newTestModel(t, nil)

	_, cmd := m.Update(keyMsg("p"))
	assert.Nil(t, cmd)
}

func TestModel_GroupsView(t *testing.T) {
	m, registry := newTestModel(t, nil)
	registry.Apply(testSite, &protocol.StateGroup{Group: uuid.New(), Label: "Upstairs", UpdatedAt: 1})

	next, _ := m.Update(keyMsg("tab"))
	view := next.View()

	assert.Contains(t, view, "Upstairs")
	assert.True(t, strings.Contains(view, "Kitchen"), "members are listed by label")

	// Commands only act on the device table.
	_, cmd := next.Update(keyMsg("p"))
	assert.Nil(t, cmd)
}

func TestModel_UnansweredRequestsShown(t *testing.T) {
	m, _, tracker := newTestModelWithStats(t, nil)
	tracker.RecordRequest(testSite)
	tracker.RecordRequest(testSite)
	tracker.RecordReply(testSite)

	assert.Contains(t, m.View(), "Unanswered: ")
	assert.Contains(t, m.View(), "50.0%")
}

func TestModel_ClearStats(t *testing.T) {
	m, _, tracker := newTestModelWithStats(t, nil)
	tracker.RecordPacket(testSite, protocol.StateLabel{}.Type())
	tracker.RecordRequest(testSite)

	next, cmd := m.Update(keyMsg("c"))
	assert.Nil(t, cmd)
	snap, _ := tracker.GetDeviceStats(testSite)
	assert.Zero(t, snap.PacketCount)
	assert.Zero(t, snap.Requests)
	assert.Contains(t, next.View(), "cleared stats for Kitchen")

	tracker.RecordPacket(testSite, protocol.StateLabel{}.Type())
	tracker.RecordError(stats.ErrorDecode)
	next, _ = next.Update(keyMsg("C"))
	_, ok := tracker.GetDeviceStats(testSite)
	assert.False(t, ok)
	assert.Zero(t, tracker.Errors(stats.ErrorDecode))
	assert.Contains(t, next.View(), "cleared stats for all devices")
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(t, nil)

	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

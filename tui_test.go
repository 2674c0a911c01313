package main

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mictest/instructions"
	"mictest/monitor"
	"mictest/notify"
	"mictest/settings"
	"mictest/sound"
)

type fakeController struct {
	mu     sync.Mutex
	starts int
	stops  int
	snap   monitor.Session
}

func (f *fakeController) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return nil
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeController) Snapshot() monitor.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

type fakeEffects struct {
	played []sound.Effect
}

func (f *fakeEffects) Play(e sound.Effect) { f.played = append(f.played, e) }

type harness struct {
	ctrl    *fakeController
	store   *settings.Store
	effects *fakeEffects
	copied  []string
	model   tuiModel
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := settings.Open("")
	require.NoError(t, err)
	h := &harness{ctrl: &fakeController{}, store: store, effects: &fakeEffects{}}
	h.model = newTUIModel(tuiDeps{
		ctx:     context.Background(),
		monitor: h.ctrl,
		store:   store,
		effects: h.effects,
		copy: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
		system:  instructions.System{OS: instructions.Linux, Backend: "PulseAudio"},
		observe: 5 * time.Second,
	})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	m, cmd := h.model.Update(msg)
	h.model = m.(tuiModel)
	return cmd
}

func (h *harness) typeKeys(s string) {
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func TestTUIStartsAndStops(t *testing.T) {
	h := newHarness(t)

	cmd := h.send(enter)
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, startDoneMsg{}, msg)
	assert.Equal(t, 1, h.ctrl.starts)
	assert.Equal(t, []sound.Effect{sound.Click}, h.effects.played)

	h.send(sessionMsg{Seq: 1, Status: monitor.Testing})
	cmd = h.send(enter)
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, h.ctrl.stops)
}

func TestTUIRestartsAfterResult(t *testing.T) {
	h := newHarness(t)
	h.send(sessionMsg{Seq: 3, Status: monitor.Error, Failure: monitor.FailureNoSignal})

	cmd := h.send(enter)
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, h.ctrl.starts)
	assert.Equal(t, 0, h.ctrl.stops)
}

func TestTUIDropsStaleSessions(t *testing.T) {
	h := newHarness(t)
	h.send(sessionMsg{Seq: 5, Status: monitor.Testing, CurrentLevel: 40})
	h.send(sessionMsg{Seq: 4, Status: monitor.Idle})

	assert.Equal(t, monitor.Testing, h.model.session.Status)
	assert.InDelta(t, 40, h.model.session.CurrentLevel, 1e-9)
}

func TestTUINotificationPlaysSound(t *testing.T) {
	h := newHarness(t)

	cmd := h.send(notifyMsg{Kind: notify.Success, Title: "Microphone works great!"})
	require.NotNil(t, cmd)
	require.NotNil(t, h.model.toast)
	assert.Equal(t, []sound.Effect{sound.Success}, h.effects.played)

	h.send(toastExpireMsg{seq: h.model.toastSeq - 1})
	assert.NotNil(t, h.model.toast)
	h.send(toastExpireMsg{seq: h.model.toastSeq})
	assert.Nil(t, h.model.toast)
}

func TestTUIThemeCycles(t *testing.T) {
	h := newHarness(t)
	before := h.store.Theme()

	h.typeKeys("t")
	assert.Equal(t, before.Next(), h.store.Theme())
}

func TestTUIRepeatedPressesBeforePush(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, settings.Light, h.store.Theme())

	h.typeKeys("tt")
	assert.Equal(t, settings.Green, h.store.Theme())
	assert.Equal(t, settings.Green, h.model.values.Theme)

	h.typeKeys("t")
	require.Equal(t, settings.Standoff, h.model.values.Theme)
	vol := h.store.Volume()
	h.typeKeys("++")
	assert.InDelta(t, vol+2*volumeStep, h.store.Volume(), 1e-9)

	// A push that trails the local changes does not roll them back.
	h.send(settingsMsg(settings.Values{Theme: settings.Dark, Volume: vol}))
	assert.Equal(t, settings.Standoff, h.model.values.Theme)
	assert.InDelta(t, vol+2*volumeStep, h.model.values.Volume, 1e-9)
}

func TestTUIVolumeOnlyInStandoff(t *testing.T) {
	h := newHarness(t)
	vol := h.store.Volume()

	h.typeKeys("+")
	assert.InDelta(t, vol, h.store.Volume(), 1e-9)

	require.NoError(t, h.store.SetTheme(settings.Standoff))
	h.send(settingsMsg(h.store.Values()))
	h.typeKeys("+")
	assert.InDelta(t, vol+volumeStep, h.store.Volume(), 1e-9)
}

func TestTUICopiesReport(t *testing.T) {
	h := newHarness(t)
	h.send(sessionMsg{Seq: 1, Status: monitor.Success, PeakLevel: 42, DeviceLabel: "USB Mic", Permission: monitor.PermissionGranted})

	h.typeKeys("y")
	require.Len(t, h.copied, 1)
	assert.Contains(t, h.copied[0], "Device: USB Mic")
	assert.Contains(t, h.copied[0], "Peak level: 42.0%")
	require.NotNil(t, h.model.toast)
	assert.Equal(t, notify.Info, h.model.toast.Kind)
}

func TestTUICasinoOverlay(t *testing.T) {
	h := newHarness(t)
	h.typeKeys("casino")
	require.NotNil(t, h.model.casino)

	cmd := h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	require.NotNil(t, cmd)
	assert.True(t, h.model.casino.Spinning)

	for h.model.casino.Spinning {
		h.send(casinoFrameMsg{})
	}
	assert.Contains(t, h.model.View(), "Balance")

	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, h.model.casino)
	assert.Equal(t, 0, h.ctrl.starts)
}

func TestReportIncludesFailure(t *testing.T) {
	r := report(monitor.Session{
		Status:     monitor.Error,
		Failure:    monitor.FailurePermissionDenied,
		Permission: monitor.PermissionDenied,
	}, instructions.System{OS: instructions.MacOS, Backend: "CoreAudio"})

	assert.Contains(t, r, "Status: error")
	assert.Contains(t, r, "Problem: microphone access denied")
	assert.Contains(t, r, "Device: -")
	assert.Contains(t, r, "Permission: denied")
}

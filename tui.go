package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mictest/audio"
	"mictest/casino"
	"mictest/instructions"
	"mictest/log"
	"mictest/monitor"
	"mictest/notify"
	"mictest/settings"
	"mictest/sound"
)

// TUI message types
type sessionMsg monitor.Session
type notifyMsg notify.Notification
type settingsMsg settings.Values
type startDoneMsg struct{ err error }
type toastExpireMsg struct{ seq int }
type casinoFrameMsg struct{}

const (
	toastTimeout = 4 * time.Second
	barWidth     = 40
	cardWidth    = 56
	volumeStep   = 0.1
)

const (
	tabSettings = iota
	tabTips
)

type keyMap struct {
	Toggle   key.Binding
	Theme    key.Binding
	VolUp    key.Binding
	VolDown  key.Binding
	Tab      key.Binding
	Copy     key.Binding
	Quit     key.Binding
	Spin     key.Binding
	Reset    key.Binding
	Close    key.Binding
	standoff bool
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "start/stop"),
		),
		Theme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "theme"),
		),
		VolUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "louder"),
		),
		VolDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "quieter"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "settings/tips"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy report"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Spin: key.NewBinding(
			key.WithKeys("s", "enter", " "),
			key.WithHelp("s", "spin"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "top up"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	b := []key.Binding{k.Toggle, k.Tab, k.Theme}
	if k.standoff {
		b = append(b, k.VolUp, k.VolDown)
	}
	return append(b, k.Copy, k.Quit)
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// controller is the part of the monitor the TUI drives.
type controller interface {
	Start(ctx context.Context) error
	Stop()
	Snapshot() monitor.Session
}

type effectPlayer interface {
	Play(e sound.Effect)
}

type tuiDeps struct {
	ctx     context.Context
	monitor controller
	store   *settings.Store
	effects effectPlayer
	copy    func(string) error
	system  instructions.System
	device  *audio.DeviceInfo
	observe time.Duration
}

type tuiModel struct {
	deps tuiDeps

	session  monitor.Session
	values   settings.Values
	styles   styles
	bar      progress.Model
	keys     keyMap
	help     help.Model
	tab      int
	toast    *notify.Notification
	toastSeq int

	sequence casino.Sequence
	casino   *casino.Machine

	width, height int
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func newTUIModel(deps tuiDeps) tuiModel {
	v := deps.store.Values()
	st := newStyles(v.Theme)
	k := defaultKeyMap()
	k.standoff = v.SoundsEnabled()
	return tuiModel{
		deps:    deps,
		session: deps.monitor.Snapshot(),
		values:  v,
		styles:  st,
		bar:     newLevelBar(st.pal, barWidth),
		keys:    k,
		help:    help.New(),
	}
}

func NewTUIProgram(deps tuiDeps) *tea.Program {
	return tea.NewProgram(newTUIModel(deps), tea.WithAltScreen())
}

// tuiSend delivers msg to the running program, if any.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()

	if p != nil {
		p.Send(msg)
	}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) startCmd() tea.Cmd {
	mon, ctx := m.deps.monitor, m.deps.ctx
	return func() tea.Msg {
		return startDoneMsg{err: mon.Start(ctx)}
	}
}

func (m tuiModel) stopCmd() tea.Cmd {
	mon := m.deps.monitor
	return func() tea.Msg {
		mon.Stop()
		return nil
	}
}

func casinoFrame() tea.Cmd {
	return tea.Tick(casino.FrameInterval, func(time.Time) tea.Msg {
		return casinoFrameMsg{}
	})
}

func (m tuiModel) play(e sound.Effect) {
	if m.deps.effects != nil {
		m.deps.effects.Play(e)
	}
}

func (m *tuiModel) showToast(n notify.Notification) tea.Cmd {
	m.toast = &n
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(toastTimeout, func(time.Time) tea.Msg {
		return toastExpireMsg{seq: seq}
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if m.casino != nil {
			return m.updateCasino(msg)
		}
		return m.updateKey(msg)

	case sessionMsg:
		if msg.Seq <= m.session.Seq {
			return m, nil
		}
		m.session = monitor.Session(msg)

	case startDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			log.Warnf("start test: %v", msg.err)
		}

	case notifyMsg:
		switch msg.Kind {
		case notify.Success:
			m.play(sound.Success)
		case notify.Failure:
			m.play(sound.Error)
		}
		cmd := m.showToast(notify.Notification(msg))
		return m, cmd

	case toastExpireMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}

	case settingsMsg:
		// Pushes can trail local changes; the store holds the latest values.
		m.applySettings(m.deps.store.Values())

	case casinoFrameMsg:
		if m.casino == nil {
			return m, nil
		}
		if !m.casino.Frame() {
			return m, casinoFrame()
		}
	}
	return m, nil
}

func (m *tuiModel) applySettings(v settings.Values) {
	if v == m.values {
		return
	}
	m.values = v
	m.styles = newStyles(v.Theme)
	m.bar = newLevelBar(m.styles.pal, barWidth)
	m.keys.standoff = v.SoundsEnabled()
}

func (m tuiModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.sequence.Push(msg.String()) {
		m.casino = casino.New(nil)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		m.play(sound.Click)
		if m.session.Acquiring || m.session.Status == monitor.Testing {
			return m, m.stopCmd()
		}
		return m, m.startCmd()

	case key.Matches(msg, m.keys.Theme):
		m.play(sound.Click)
		if err := m.deps.store.SetTheme(m.values.Theme.Next()); err != nil {
			log.Warnf("save theme: %v", err)
		}
		m.applySettings(m.deps.store.Values())

	case key.Matches(msg, m.keys.VolUp), key.Matches(msg, m.keys.VolDown):
		if !m.values.SoundsEnabled() {
			return m, nil
		}
		step := volumeStep
		if key.Matches(msg, m.keys.VolDown) {
			step = -step
		}
		if err := m.deps.store.SetVolume(m.values.Volume + step); err != nil {
			log.Warnf("save volume: %v", err)
		}
		m.applySettings(m.deps.store.Values())

	case key.Matches(msg, m.keys.Tab):
		m.play(sound.Hover)
		if m.tab == tabSettings {
			m.tab = tabTips
		} else {
			m.tab = tabSettings
		}

	case key.Matches(msg, m.keys.Copy):
		n := notify.Notification{Kind: notify.Info, Title: "Report copied", Time: time.Now()}
		if err := m.deps.copy(report(m.session, m.deps.system)); err != nil {
			n = notify.Notification{Kind: notify.Failure, Title: "Copy failed", Message: err.Error(), Time: time.Now()}
		}
		cmd := m.showToast(n)
		return m, cmd
	}
	return m, nil
}

func (m tuiModel) updateCasino(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close), msg.String() == "q":
		m.casino = nil
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Spin):
		m.play(sound.Click)
		if err := m.casino.Spin(); err == nil {
			return m, casinoFrame()
		}
	case key.Matches(msg, m.keys.Reset):
		if m.casino.CanReset() {
			m.casino.Reset()
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.casino != nil {
		box := m.viewCasino()
		if m.width == 0 || m.height == 0 {
			return box
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	st := m.styles
	var b strings.Builder

	b.WriteString(st.title.Render("🎤 Microphone test"))
	b.WriteString("  " + st.muted.Render("theme: "+string(m.values.Theme)))
	if m.values.SoundsEnabled() {
		b.WriteString(st.muted.Render(fmt.Sprintf("  volume: %.0f%%", m.values.Volume*100)))
	}
	b.WriteString("\n")
	b.WriteString(st.subtitle.Render("Check that your microphone works before a call or a recording"))
	b.WriteString("\n\n")

	b.WriteString(st.card.Width(cardWidth).Render(m.viewTest()))
	b.WriteString("\n\n")

	b.WriteString(st.label.Render("System  ") + st.value.Render(string(m.deps.system.OS)))
	b.WriteString(st.label.Render("   Audio  ") + st.value.Render(m.deps.system.Backend))
	b.WriteString("\n\n")

	b.WriteString(m.viewTabs())
	b.WriteString("\n")

	if m.toast != nil {
		b.WriteString("\n" + m.viewToast(*m.toast) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m tuiModel) viewTest() string {
	st := m.styles
	s := m.session
	var lines []string

	device := s.DeviceLabel
	if device == "" {
		device = "not selected"
		if m.deps.device != nil {
			device = m.deps.device.Name
		}
	}
	deviceLine := st.label.Render("Device ") + st.value.Render(device)
	if audio.IsBluetooth(device) {
		deviceLine += st.warning.Render("  ⚠ Bluetooth, lower quality")
	}
	lines = append(lines, deviceLine, "")

	lines = append(lines,
		m.bar.ViewAs(s.CurrentLevel/100)+" "+st.value.Render(fmt.Sprintf("%3.0f%%", s.CurrentLevel)))
	lines = append(lines, st.label.Render(fmt.Sprintf("Peak %.0f%%", s.PeakLevel)), "")

	switch {
	case s.Acquiring:
		lines = append(lines, st.muted.Render("Waiting for microphone access..."))
	case s.Status == monitor.Testing:
		lines = append(lines, st.warning.Render(fmt.Sprintf("Speak into the microphone... listening for %s", m.deps.observe)))
	case s.Status == monitor.Success:
		lines = append(lines,
			st.success.Render("✓ Microphone works!"),
			st.label.Render("Device     ")+st.value.Render(s.DeviceLabel),
			st.label.Render("Max level  ")+st.value.Render(fmt.Sprintf("%.0f%%", s.PeakLevel)),
			st.label.Render("Status     ")+st.success.Render("Working"),
		)
	case s.Status == monitor.Error && s.Failure == monitor.FailurePermissionDenied:
		lines = append(lines,
			st.err.Render("✗ Microphone access blocked"),
			st.muted.Render("Allow microphone access in the system privacy settings and try again."),
		)
	case s.Status == monitor.Error && s.Failure == monitor.FailureAcquisition:
		lines = append(lines,
			st.err.Render("✗ Could not open the microphone"),
			st.muted.Render("Check that it is connected and not used exclusively by another app."),
		)
	case s.Status == monitor.Error:
		lines = append(lines,
			st.err.Render("✗ Microphone is not picking up sound"),
			st.muted.Render("Check the connection and the input volume in the system settings."),
		)
	default:
		lines = append(lines, st.muted.Render("Press enter to start the test"))
	}

	var action string
	switch {
	case s.Acquiring:
		action = "[enter] Cancel"
	case s.Status == monitor.Idle:
		action = "[enter] Start test"
	case s.Status == monitor.Testing:
		action = "[enter] Stop test"
	default:
		action = "[enter] Test again"
	}
	lines = append(lines, "", st.title.Render(action))
	return strings.Join(lines, "\n")
}

func (m tuiModel) viewTabs() string {
	st := m.styles
	names := []string{"⚙ Settings", "💡 Tips"}
	var tabs []string
	for i, n := range names {
		if i == m.tab {
			tabs = append(tabs, st.tabOn.Render(n))
		} else {
			tabs = append(tabs, st.tab.Render(n))
		}
	}

	var body []string
	if m.tab == tabSettings {
		body = append(body, st.value.Render("Setup for "+string(m.deps.system.OS)))
		for i, step := range instructions.Steps(m.deps.system.OS) {
			body = append(body, fmt.Sprintf(" %s %s", st.title.Render(fmt.Sprintf("%d.", i+1)), step))
		}
	} else {
		for _, tip := range instructions.Tips() {
			body = append(body, st.value.Render(tip.Title), "  "+st.muted.Render(tip.Text))
		}
	}
	body = append(body, "", st.muted.Render(instructions.HelpText), st.label.Render("Help: "+instructions.SupportURL))

	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n" +
		st.card.Width(cardWidth).Render(strings.Join(body, "\n"))
}

func (m tuiModel) viewToast(n notify.Notification) string {
	st := m.styles
	style := st.value
	switch n.Kind {
	case notify.Success:
		style = st.success
	case notify.Failure:
		style = st.err
	}
	text := style.Render(n.Title)
	if n.Message != "" {
		text += "  " + st.muted.Render(n.Message)
	}
	return text
}

func (m tuiModel) viewCasino() string {
	st := m.styles
	c := m.casino
	var reels []string
	for _, r := range c.Reels {
		reels = append(reels, st.reel.Render(r))
	}

	spin := "[s] Spin (10 coins)"
	if c.Spinning {
		spin = "Spinning..."
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EAB308")).Render("$ Secret Casino"),
		"",
		st.value.Render(fmt.Sprintf("💰 Balance: %d coins", c.Balance)),
		st.muted.Render(fmt.Sprintf("Bet: %d coins", casino.Bet)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center, reels...),
		"",
		st.value.Render(c.Message),
		"",
		st.title.Render(spin),
	}
	if c.CanReset() {
		lines = append(lines, st.title.Render("[r] Top up balance"))
	}
	lines = append(lines,
		"",
		st.muted.Render("💎💎💎 = 500 coins | 7️⃣7️⃣7️⃣ = 300 coins"),
		st.muted.Render("Three of a kind = 100 coins | Two of a kind = 20 coins"),
		st.muted.Render("[esc] close"),
	)
	return st.casino.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}

// report is the plain text summary copied to the clipboard.
func report(s monitor.Session, sys instructions.System) string {
	var b strings.Builder
	b.WriteString("Microphone test report\n")
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	if s.Failure != monitor.FailureNone {
		fmt.Fprintf(&b, "Problem: %v\n", s.Failure.Err())
	}
	device := s.DeviceLabel
	if device == "" {
		device = "-"
	}
	fmt.Fprintf(&b, "Device: %s\n", device)
	fmt.Fprintf(&b, "Peak level: %.1f%%\n", s.PeakLevel)
	fmt.Fprintf(&b, "Permission: %s\n", s.Permission)
	fmt.Fprintf(&b, "System: %s (%s)\n", sys.OS, sys.Backend)
	if s.ID != "" {
		fmt.Fprintf(&b, "Session: %s\n", s.ID)
	}
	return b.String()
}

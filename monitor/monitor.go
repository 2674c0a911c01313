// Package monitor runs a single microphone check: it acquires the input,
// samples the level on every frame and classifies the device after a fixed
// observation window.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"mictest/analyser"
	"mictest/audio"
	"mictest/frame"
	"mictest/log"
	"mictest/notify"
)

const (
	DefaultObservation = 5 * time.Second
	DefaultThreshold   = 1.0
)

type Input interface {
	Devices() ([]audio.DeviceInfo, error)
	Request(ctx context.Context, c audio.Constraints) (audio.Stream, error)
}

type Analysis interface {
	FrequencyBinCount() int
	ByteFrequencyData(dst []byte)
	Close()
}

type Config struct {
	Input Input
	// Analyse attaches an analysis node to an acquired stream. Defaults to
	// analyser.Attach.
	Analyse func(audio.Stream) (Analysis, error)
	// Frames drives sampling. When nil the monitor runs its own 60 Hz
	// scheduler, released by Close.
	Frames frame.Scheduler
	Clock  frame.Clock
	// Notifier receives the success and failure messages. Optional.
	Notifier notify.Notifier
	// OnChange is called with every new snapshot, outside the monitor lock.
	// It must not block for long. Snapshots may arrive out of order under
	// concurrency; compare Seq.
	OnChange func(Session)

	// Observation and Threshold default to DefaultObservation and
	// DefaultThreshold when zero.
	Observation time.Duration
	Threshold   float64
	// Constraints requested on the input. nil requests every processing
	// feature.
	Constraints *audio.Constraints
}

type Monitor struct {
	cfg    Config
	ticker *frame.TickerScheduler

	startMu sync.Mutex

	mu      sync.Mutex
	session Session
	active  *run
	acquire *acquisition
}

type acquisition struct {
	cancel context.CancelFunc
}

type run struct {
	id       string
	stream   audio.Stream
	analysis Analysis
	buf      []byte
	loop     *frame.Loop
	timer    frame.Timer
	started  time.Time
	frames   int
	done     bool
}

func New(cfg Config) *Monitor {
	m := &Monitor{cfg: cfg}
	if m.cfg.Analyse == nil {
		m.cfg.Analyse = func(s audio.Stream) (Analysis, error) {
			return analyser.Attach(s), nil
		}
	}
	if m.cfg.Frames == nil {
		m.ticker = frame.NewTickerScheduler(60)
		m.cfg.Frames = m.ticker
	}
	if m.cfg.Clock == nil {
		m.cfg.Clock = frame.SystemClock()
	}
	if m.cfg.Observation <= 0 {
		m.cfg.Observation = DefaultObservation
	}
	if m.cfg.Threshold <= 0 {
		m.cfg.Threshold = DefaultThreshold
	}
	if m.cfg.Constraints == nil {
		c := audio.DefaultConstraints
		m.cfg.Constraints = &c
	}
	return m
}

// Snapshot returns the current session state.
func (m *Monitor) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Start tears down any running session, acquires the input and begins a new
// observation window. It blocks until the platform answers the request.
// Cancelling ctx or calling Stop abandons the request and leaves the monitor
// Idle; Start then returns the context error.
func (m *Monitor) Start(ctx context.Context) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	m.Stop()

	id := uuid.NewString()
	actx, cancel := context.WithCancel(ctx)
	defer cancel()
	acq := &acquisition{cancel: cancel}

	m.mu.Lock()
	m.acquire = acq
	m.session.ID = id
	m.session.Failure = FailureNone
	m.session.Acquiring = true
	snap := m.publishLocked()
	m.mu.Unlock()
	m.emit(snap)

	log.SessionStart(id, m.cfg.Observation, m.cfg.Threshold)

	stream, err := m.cfg.Input.Request(actx, *m.cfg.Constraints)
	if err == nil {
		err = actx.Err()
		if err != nil {
			stream.Stop()
			stream = nil
		}
	}
	if err != nil {
		if actx.Err() != nil {
			m.abandon(acq)
			return actx.Err()
		}
		return m.fail(acq, id, err)
	}

	analysis, err := m.cfg.Analyse(stream)
	if err != nil {
		stream.Stop()
		return m.fail(acq, id, err)
	}

	label := m.resolveLabel(stream.DeviceID())

	m.mu.Lock()
	if m.acquire != acq {
		m.mu.Unlock()
		analysis.Close()
		stream.Stop()
		return context.Canceled
	}
	m.acquire = nil

	r := &run{
		id:       id,
		stream:   stream,
		analysis: analysis,
		buf:      make([]byte, analysis.FrequencyBinCount()),
		started:  m.cfg.Clock.Now(),
	}
	m.active = r
	m.session.Status = Testing
	m.session.Permission = PermissionGranted
	m.session.DeviceLabel = label
	m.session.CurrentLevel = 0
	m.session.PeakLevel = 0
	m.session.Acquiring = false
	m.sampleLocked(r)

	r.timer = m.cfg.Clock.AfterFunc(m.cfg.Observation, func() { m.classify(r) })
	r.loop = frame.Start(m.cfg.Frames, func(time.Time) { m.tick(r) })
	snap = m.publishLocked()
	m.mu.Unlock()
	m.emit(snap)

	log.Infof("session %s testing on %q", id, label)
	return nil
}

// Stop ends the current session. Sampling and classification are cancelled
// before it returns and the input device is released. Permission and the
// device label are kept. Stop on an idle monitor does nothing.
func (m *Monitor) Stop() {
	m.mu.Lock()
	r := m.active
	acq := m.acquire
	if r == nil && acq == nil && m.session.Status == Idle {
		m.mu.Unlock()
		return
	}
	if acq != nil {
		acq.cancel()
		m.acquire = nil
	}
	m.active = nil
	if r != nil {
		r.loop.Stop()
		r.timer.Stop()
	}
	m.session.Status = Idle
	m.session.CurrentLevel = 0
	m.session.PeakLevel = 0
	m.session.Failure = FailureNone
	m.session.Acquiring = false
	snap := m.publishLocked()
	m.mu.Unlock()

	if r != nil {
		r.analysis.Close()
		r.stream.Stop()
		log.SessionStop(r.id, r.frames)
	}
	m.emit(snap)
}

// Close stops the session and releases the internal frame scheduler.
func (m *Monitor) Close() {
	m.Stop()
	if m.ticker != nil {
		m.ticker.Close()
	}
}

func (m *Monitor) tick(r *run) {
	m.mu.Lock()
	if m.active != r {
		m.mu.Unlock()
		return
	}
	m.sampleLocked(r)
	snap := m.publishLocked()
	m.mu.Unlock()
	m.emit(snap)
}

func (m *Monitor) sampleLocked(r *run) {
	r.analysis.ByteFrequencyData(r.buf)
	level := Level(r.buf)
	r.frames++
	m.session.CurrentLevel = level
	if level > m.session.PeakLevel {
		m.session.PeakLevel = level
	}
}

func (m *Monitor) classify(r *run) {
	m.mu.Lock()
	if m.active != r || r.done {
		m.mu.Unlock()
		return
	}
	r.done = true

	peak := m.session.PeakLevel
	n := notify.Notification{Time: time.Now()}
	if peak > m.cfg.Threshold {
		m.session.Status = Success
		n.Kind = notify.Success
		n.Title = "Microphone works great!"
		n.Message = fmt.Sprintf("%s reached %.0f%%", m.session.DeviceLabel, peak)
	} else {
		m.session.Status = Error
		m.session.Failure = FailureNoSignal
		n.Kind = notify.Failure
		n.Title = "Microphone is not picking up sound"
		n.Message = fmt.Sprintf("No signal from %s", m.session.DeviceLabel)
	}
	result := log.Result{
		SessionID: r.id,
		Device:    m.session.DeviceLabel,
		Status:    m.session.Status.String(),
		PeakLevel: peak,
		Elapsed:   m.cfg.Clock.Now().Sub(r.started),
	}
	snap := m.publishLocked()
	m.mu.Unlock()

	m.emit(snap)
	m.notify(n)
	log.SessionResult(result)
}

func (m *Monitor) fail(acq *acquisition, id string, err error) error {
	failure := FailureAcquisition
	if errors.Is(err, ErrPermissionDenied) {
		failure = FailurePermissionDenied
	} else {
		err = fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	log.AcquireFailed(id, err)

	m.mu.Lock()
	if m.acquire != acq {
		m.mu.Unlock()
		return context.Canceled
	}
	m.acquire = nil
	m.session.Status = Error
	m.session.Permission = PermissionDenied
	m.session.Failure = failure
	m.session.CurrentLevel = 0
	m.session.PeakLevel = 0
	m.session.Acquiring = false
	snap := m.publishLocked()
	m.mu.Unlock()

	m.emit(snap)
	m.notify(notify.Notification{
		Kind:    notify.Failure,
		Title:   "Could not access the microphone",
		Message: err.Error(),
		Time:    time.Now(),
	})
	return err
}

func (m *Monitor) abandon(acq *acquisition) {
	m.mu.Lock()
	if m.acquire != acq {
		m.mu.Unlock()
		return
	}
	m.acquire = nil
	m.session.Acquiring = false
	snap := m.publishLocked()
	m.mu.Unlock()
	m.emit(snap)
}

func (m *Monitor) resolveLabel(deviceID string) string {
	if deviceID == "" {
		return DefaultDeviceLabel
	}
	devices, err := m.cfg.Input.Devices()
	if err != nil {
		log.Warnf("enumerate devices: %v", err)
		return DefaultDeviceLabel
	}
	for _, d := range devices {
		if d.ID == deviceID && d.Name != "" {
			return d.Name
		}
	}
	return DefaultDeviceLabel
}

func (m *Monitor) publishLocked() Session {
	m.session.Seq++
	return m.session
}

func (m *Monitor) emit(s Session) {
	if m.cfg.OnChange != nil {
		m.cfg.OnChange(s)
	}
}

func (m *Monitor) notify(n notify.Notification) {
	if m.cfg.Notifier == nil {
		return
	}
	if err := m.cfg.Notifier.Notify(n); err != nil {
		log.Warnf("notify: %v", err)
	}
}

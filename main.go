package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"mictest/audio"
	"mictest/clipboard"
	"mictest/config"
	"mictest/doctor"
	"mictest/frame"
	"mictest/instructions"
	"mictest/log"
	"mictest/monitor"
	"mictest/notify"
	"mictest/settings"
	"mictest/shutdown"
	"mictest/sound"
)

var version = "dev"

const (
	captureSampleRate = 48000
	captureChannels   = 1
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg, err := config.Parse(os.Args[1:], version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(run(cfg))
}

func initLogging(cfg config.Config) {
	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
		return
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
}

// newAudioContext returns the real backend or a fake one when --fake is set.
func newAudioContext(fake string) (audio.Context, error) {
	switch {
	case fake == "":
		return audio.NewContext()
	case fake == config.FakeTone:
		return audio.NewToneContext(440, 0.5), nil
	case fake == config.FakeSilence:
		return audio.NewSilenceContext(), nil
	case fake == config.FakeDeny:
		return audio.NewToneContext(440, 0.5).Deny(), nil
	case strings.HasSuffix(strings.ToLower(fake), ".wav"):
		return audio.NewFakeContext(fake, true)
	}
	return nil, fmt.Errorf("unknown fake source %q", fake)
}

func pickDevice(ctx audio.Context, cfg config.Config) *audio.DeviceInfo {
	if cfg.Setup {
		dev, err := audio.SelectDevice(ctx, cfg.Device)
		if err == nil {
			return dev
		}
		log.Warnf("device selection failed: %v", err)
		if errors.Is(err, audio.ErrPickerCancelled) {
			fmt.Println("Selection cancelled, using the system default")
		} else {
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
		}
		return nil
	}
	if cfg.Device == "" {
		return nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		log.Warnf("device enumeration failed: %v", err)
		return nil
	}
	for i := range devices {
		if devices[i].Name == cfg.Device {
			return &devices[i]
		}
	}
	log.Warnf("device not found: %s", cfg.Device)
	fmt.Fprintf(os.Stderr, "Warning: device %q not found, using the system default\n", cfg.Device)
	return nil
}

func run(cfg config.Config) int {
	initLogging(cfg)
	defer log.Close()

	actx, err := newAudioContext(cfg.Fake)
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		return 1
	}
	defer actx.Close()

	device := pickDevice(actx, cfg)
	input := audio.NewInput(actx, device, audio.CaptureConfig{
		SampleRate: captureSampleRate,
		Channels:   captureChannels,
	})

	var constraints *audio.Constraints
	if cfg.RawInput {
		constraints = &audio.Constraints{}
	}

	frames := frame.NewTickerScheduler(cfg.FrameRate)
	defer frames.Close()

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	system := instructions.DetectSystem()

	if cfg.Check {
		var notifier notify.Notifier
		if cfg.DesktopNotify {
			notifier = notify.Desktop{}
		}
		mon := monitor.New(monitor.Config{
			Input:       input,
			Frames:      frames,
			Notifier:    notifier,
			Observation: cfg.Observation,
			Threshold:   cfg.Threshold,
			Constraints: constraints,
		})
		defer mon.Close()

		go func() {
			<-sigChan
			cancel()
		}()
		return doctor.Run(ctx, doctor.Options{
			Out:         os.Stdout,
			Devices:     input.Devices,
			Monitor:     mon,
			System:      system,
			Observation: cfg.Observation,
		})
	}

	store, err := openSettings(cfg.SettingsFile)
	if err != nil {
		log.Warnf("settings: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v, settings will not be saved\n", err)
		store, _ = settings.Open("")
	}

	player, err := sound.NewPlayer()
	if err != nil {
		log.Warnf("sound init: %v", err)
	}
	var effects *sound.Effects
	if player != nil {
		effects = sound.NewEffects(player, store)
		defer effects.Close()
	}

	notifiers := notify.Multi{notify.Func(func(n notify.Notification) {
		tuiSend(notifyMsg(n))
	})}
	if cfg.DesktopNotify {
		notifiers = append(notifiers, notify.Desktop{})
	}

	mon := monitor.New(monitor.Config{
		Input:       input,
		Frames:      frames,
		Notifier:    notifiers,
		Observation: cfg.Observation,
		Threshold:   cfg.Threshold,
		Constraints: constraints,
		OnChange: func(s monitor.Session) {
			tuiSend(sessionMsg(s))
		},
	})
	defer mon.Close()

	copyFn := clipboard.Copy
	if clipboard.Unsupported() {
		copyFn = func(string) error { return errors.New("no clipboard utility found") }
	}

	deps := tuiDeps{
		ctx:     ctx,
		monitor: mon,
		store:   store,
		copy:    copyFn,
		system:  system,
		device:  device,
		observe: cfg.Observation,
	}
	if effects != nil {
		deps.effects = effects
	}

	tuiMu.Lock()
	tuiProgram = NewTUIProgram(deps)
	p := tuiProgram
	tuiMu.Unlock()

	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()
	go func() {
		for v := range updates {
			tuiSend(settingsMsg(v))
		}
	}()

	go func() {
		select {
		case <-sigChan:
			p.Quit()
		case <-ctx.Done():
		}
	}()

	_, err = p.Run()

	tuiMu.Lock()
	tuiProgram = nil
	tuiMu.Unlock()

	if err != nil {
		log.Errorf("TUI error: %v", err)
		return 1
	}
	return 0
}

func openSettings(path string) (*settings.Store, error) {
	if path == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return settings.Open(path)
}

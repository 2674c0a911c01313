package doctor

import (
	"context"
	"fmt"
	"io"
	"time"

	"mictest/audio"
	"mictest/instructions"
	"mictest/monitor"
)

type Monitor interface {
	Start(ctx context.Context) error
	Stop()
	Snapshot() monitor.Session
}

type Options struct {
	Out     io.Writer
	Devices func() ([]audio.DeviceInfo, error)
	Monitor Monitor
	System  instructions.System
	// Observation is only used for the prompt.
	Observation time.Duration
	// Poll is how often the level line is refreshed.
	Poll time.Duration
}

// Run executes the headless microphone check and returns an exit code
// (0=pass, 1=fail).
func Run(ctx context.Context, opts Options) int {
	resetTerminal()
	if opts.Poll <= 0 {
		opts.Poll = 100 * time.Millisecond
	}
	out := opts.Out

	fmt.Fprintln(out, "mictest check - microphone diagnostics")
	fmt.Fprintln(out, "======================================")
	fmt.Fprintf(out, "System: %s (%s)\n", opts.System.OS, opts.System.Backend)

	pass := checkDevices(out, opts.Devices) && checkLevel(ctx, out, opts)

	fmt.Fprintln(out)
	if pass {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	printRemedies(out, opts.System.OS)
	return 1
}

func checkDevices(out io.Writer, devices func() ([]audio.DeviceInfo, error)) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[1/2] Capture devices")

	list, err := devices()
	if err != nil {
		fmt.Fprintf(out, "  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "  FAIL: no capture devices found")
		return false
	}
	for _, d := range list {
		bt := ""
		if audio.IsBluetooth(d.Name) {
			bt = " [⚠ Bluetooth, lower audio quality]"
		}
		fmt.Fprintf(out, "  - %s%s\n", d.Name, bt)
	}
	fmt.Fprintf(out, "  PASS: %d capture device(s)\n", len(list))
	return true
}

func checkLevel(ctx context.Context, out io.Writer, opts Options) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[2/2] Microphone level")
	fmt.Fprintf(out, "Requesting microphone access, then speak for %s...\n", opts.Observation)

	m := opts.Monitor
	if err := m.Start(ctx); err != nil {
		s := m.Snapshot()
		switch s.Failure {
		case monitor.FailurePermissionDenied:
			fmt.Fprintln(out, "  FAIL: microphone access denied")
		default:
			fmt.Fprintf(out, "  FAIL: %v\n", err)
		}
		return false
	}
	defer m.Stop()

	fmt.Fprintf(out, "  Device: %s\n", m.Snapshot().DeviceLabel)

	ticker := time.NewTicker(opts.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  FAIL: interrupted")
			return false
		case <-ticker.C:
		}

		s := m.Snapshot()
		fmt.Fprintf(out, "\r  level %3.0f%%  peak %3.0f%%", s.CurrentLevel, s.PeakLevel)
		switch s.Status {
		case monitor.Success:
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  PASS: microphone works (peak %.1f%%)\n", s.PeakLevel)
			return true
		case monitor.Error:
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  FAIL: %v (peak %.1f%%)\n", s.Failure.Err(), s.PeakLevel)
			return false
		case monitor.Idle:
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  FAIL: test stopped")
			return false
		}
	}
}

func printRemedies(out io.Writer, os instructions.OS) {
	fmt.Fprintf(out, "Setup for %s:\n", os)
	for i, step := range instructions.Steps(os) {
		fmt.Fprintf(out, "  %d. %s\n", i+1, step)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Troubleshooting tips:")
	for _, tip := range instructions.Tips() {
		fmt.Fprintf(out, "  * %s: %s\n", tip.Title, tip.Text)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, instructions.HelpText)
	fmt.Fprintln(out, "Help:", instructions.SupportURL)
}

//go:build !windows

package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

// Signals end a test session. SIGHUP covers a closed terminal.
var Signals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

// Notify relays the session-ending signals to ch.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, Signals...)
}

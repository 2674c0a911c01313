//go:build windows

package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

// Signals end a test session. Go reports console close, logoff and
// shutdown events as SIGTERM.
var Signals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Notify relays the session-ending signals to ch.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, Signals...)
}

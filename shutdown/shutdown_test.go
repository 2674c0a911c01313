//go:build !windows

package shutdown

import (
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotifyRelaysHangup(t *testing.T) {
	ch := make(chan os.Signal, 1)
	Notify(ch)
	defer signal.Stop(ch)

	assert.Contains(t, Signals, os.Signal(syscall.SIGHUP))
	if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case sig := <-ch:
		assert.Equal(t, syscall.SIGHUP, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("SIGHUP not relayed")
	}
}

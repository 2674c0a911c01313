package audio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermissionDenied is returned when the user or the system refused
	// access to the input device.
	ErrPermissionDenied = errors.New("microphone access denied")
	// ErrNoDevice is returned when no capture device is present.
	ErrNoDevice = errors.New("no capture device found")
)

// Fallback phrases for errors that carry no backend code. They must name a
// refusal, not just mention access, so device faults stay acquisition
// failures.
var deniedHints = []string{
	"access denied", "permission denied", "not authorized", "not permitted",
}

var missingHints = []string{
	"no such entity", "no device", "device not found", "no backend",
}

// classify maps backend errors onto the package sentinels so callers can
// use errors.Is regardless of the platform. Backend codes are checked
// before message text. Anything else is returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNoDevice) {
		return err
	}
	if sentinel := backendError(err); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	msg := strings.ToLower(err.Error())
	for _, h := range deniedHints {
		if strings.Contains(msg, h) {
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
	}
	for _, h := range missingHints {
		if strings.Contains(msg, h) {
			return fmt.Errorf("%w: %w", ErrNoDevice, err)
		}
	}
	return err
}

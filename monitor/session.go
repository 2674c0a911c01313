package monitor

import (
	"errors"

	"mictest/audio"
)

type Status int

const (
	Idle Status = iota
	Testing
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Testing:
		return "testing"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Failure says why a session ended in Error.
type Failure int

const (
	FailureNone Failure = iota
	FailurePermissionDenied
	FailureNoSignal
	FailureAcquisition
)

func (f Failure) Err() error {
	switch f {
	case FailurePermissionDenied:
		return ErrPermissionDenied
	case FailureNoSignal:
		return ErrNoSignal
	case FailureAcquisition:
		return ErrAcquisition
	default:
		return nil
	}
}

var (
	ErrPermissionDenied = audio.ErrPermissionDenied
	ErrNoSignal         = errors.New("microphone is not picking up sound")
	ErrAcquisition      = errors.New("could not access the microphone")
)

const DefaultDeviceLabel = "Default microphone"

// Session is a snapshot of the monitor state. Seq increases with every
// change, so listeners can discard snapshots that arrive out of order.
type Session struct {
	ID           string
	Seq          uint64
	Status       Status
	CurrentLevel float64
	PeakLevel    float64
	Permission   Permission
	DeviceLabel  string
	Failure      Failure
	// Acquiring is set while the input request is waiting for the platform.
	Acquiring bool
}

// Level maps byte frequency magnitudes to a 0-100 level: the mean bin
// value relative to half scale, capped at 100.
func Level(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0
	for _, v := range data {
		sum += int(v)
	}
	mean := float64(sum) / float64(len(data))
	return min(100, mean/128*100)
}

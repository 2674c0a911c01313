package audio

import "strings"

const WAVHeaderSize = 44

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives S16LE PCM as it is captured.
type DataCallback func(data []byte, frameCount uint32)

// Constraints are the processing features requested from the platform
// when the input is opened.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGain         bool
}

// DefaultConstraints enables every processing feature.
var DefaultConstraints = Constraints{
	EchoCancellation: true,
	NoiseSuppression: true,
	AutoGain:         true,
}

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
	Constraints
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	// DeviceID is the identifier of the device actually opened, or "" when
	// the platform does not reveal it.
	DeviceID() string
}

// Package instructions holds the per-OS microphone setup steps and general
// troubleshooting tips shown next to a test result.
package instructions

import "runtime"

type OS string

const (
	Windows OS = "Windows"
	MacOS   OS = "macOS"
	Linux   OS = "Linux"
	IOS     OS = "iOS"
	Android OS = "Android"
	Unknown OS = "Unknown"
)

// SupportURL points at general microphone troubleshooting help.
const SupportURL = "https://support.google.com/chrome/answer/2693767"

const HelpText = "If the problem persists, restart the computer or contact the device manufacturer's support."

// System describes where the check runs.
type System struct {
	OS OS
	// Backend is the audio system used for capture.
	Backend string
}

func DetectSystem() System {
	return systemFor(runtime.GOOS)
}

func systemFor(goos string) System {
	switch goos {
	case "windows":
		return System{OS: Windows, Backend: "WASAPI"}
	case "darwin":
		return System{OS: MacOS, Backend: "Core Audio"}
	case "linux":
		return System{OS: Linux, Backend: "PulseAudio"}
	case "ios":
		return System{OS: IOS, Backend: "Core Audio"}
	case "android":
		return System{OS: Android, Backend: "AAudio"}
	default:
		return System{OS: Unknown, Backend: "miniaudio"}
	}
}

var steps = map[OS][]string{
	Windows: {
		`Open "Settings" → "System" → "Sound"`,
		`Under "Input", choose your microphone`,
		`Click "Device properties" and check the volume`,
		"Make sure the microphone is not disabled",
	},
	MacOS: {
		`Open "System Settings" → "Sound"`,
		`Switch to the "Input" tab`,
		"Pick your microphone from the list",
		"Check the input volume level",
	},
	Linux: {
		`Open "Settings" → "Sound"`,
		`Select the "Input" tab`,
		"Check the selected input device",
		"Adjust the volume level",
	},
	IOS: {
		`Open "Settings" → "Privacy"`,
		`Select "Microphone"`,
		"Allow access for this app",
		"Restart the app",
	},
	Android: {
		`Open "Settings" → "Apps"`,
		"Find this app",
		`Go to "Permissions"`,
		"Enable microphone access",
	},
	Unknown: {
		"Check the sound settings of your system",
		"Make sure the microphone is connected",
		"Allow microphone access for this app",
		"Try updating the audio drivers",
	},
}

// Steps returns the setup steps for os, falling back to the generic list.
func Steps(os OS) []string {
	s, ok := steps[os]
	if !ok {
		s = steps[Unknown]
	}
	return append([]string(nil), s...)
}

type Tip struct {
	Title string
	Text  string
}

var tips = []Tip{
	{"Check the volume", "Make sure the microphone level in the system settings is not at the minimum."},
	{"Check the connection", "If you use an external microphone, make sure the cable is plugged in firmly."},
	{"Update drivers", "Outdated drivers can cause problems. Check for updates."},
	{"Try another device", "If you have several microphones, pick a different one in the system settings."},
}

func Tips() []Tip {
	return append([]Tip(nil), tips...)
}

package instructions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemFor(t *testing.T) {
	cases := map[string]OS{
		"windows": Windows,
		"darwin":  MacOS,
		"linux":   Linux,
		"ios":     IOS,
		"android": Android,
		"plan9":   Unknown,
	}
	for goos, want := range cases {
		s := systemFor(goos)
		assert.Equal(t, want, s.OS, goos)
		assert.NotEmpty(t, s.Backend, goos)
	}
}

func TestDetectSystemMatchesRuntime(t *testing.T) {
	assert.Equal(t, systemFor(runtime.GOOS), DetectSystem())
}

func TestStepsPerOS(t *testing.T) {
	for _, os := range []OS{Windows, MacOS, Linux, IOS, Android, Unknown} {
		assert.Len(t, Steps(os), 4, string(os))
	}
	assert.Equal(t, Steps(Unknown), Steps("BeOS"))
	assert.NotEqual(t, Steps(Windows), Steps(MacOS))
}

func TestStepsReturnsCopy(t *testing.T) {
	s := Steps(Linux)
	s[0] = "changed"
	assert.NotEqual(t, "changed", Steps(Linux)[0])
}

func TestTips(t *testing.T) {
	tips := Tips()
	assert.Len(t, tips, 4)
	for _, tip := range tips {
		assert.NotEmpty(t, tip.Title)
		assert.NotEmpty(t, tip.Text)
	}
}

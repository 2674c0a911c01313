// Package config resolves the runtime configuration from flags, MICTEST_*
// environment variables, an optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/alecthomas/kingpin/v2"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultObservation = 5 * time.Second
	DefaultThreshold   = 1.0
	DefaultFrameRate   = 60
)

type Config struct {
	// Device is the name of the capture device. Empty means system default.
	Device       string        `yaml:"device"`
	SettingsFile string        `yaml:"settings_file"`
	LogPath      string        `yaml:"log_path"`
	Observation  time.Duration `yaml:"observe" validate:"min=1s,max=60s"`
	Threshold    float64       `yaml:"threshold" validate:"gt=0,lte=100"`
	FrameRate    int           `yaml:"frame_rate" validate:"min=1,max=240"`
	// DesktopNotify also sends results to the OS notification center.
	DesktopNotify bool `yaml:"desktop_notify"`
	// RawInput disables echo cancellation, noise suppression and auto gain.
	RawInput bool `yaml:"raw_input"`

	// Command line only.
	Setup bool   `yaml:"-"`
	Check bool   `yaml:"-"`
	Fake  string `yaml:"-" validate:"omitempty,fake"`
	File  string `yaml:"-"`
}

// Fake input sources other than a WAV path.
const (
	FakeTone    = "tone"
	FakeSilence = "silence"
	FakeDeny    = "deny"
)

func Defaults() Config {
	return Config{
		Observation: DefaultObservation,
		Threshold:   DefaultThreshold,
		FrameRate:   DefaultFrameRate,
	}
}

// DefaultFile is config.yaml under the user config directory.
func DefaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mictest", "config.yaml")
}

// LoadEnv loads .env style files into the environment. Missing files are
// skipped and variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// NewApp registers every flag on a kingpin application, storing values in
// dst.
func NewApp(version string, dst *Config) *kingpin.Application {
	app := kingpin.New("mictest", "Check that a microphone works.")
	app.Version(version)
	app.HelpFlag.Short('h')

	app.Flag("device", "Use the named capture device.").
		Envar("MICTEST_DEVICE").
		StringVar(&dst.Device)
	app.Flag("setup", "Pick the capture device interactively.").
		BoolVar(&dst.Setup)
	app.Flag("check", "Run one test without the terminal UI and exit with its result.").
		BoolVar(&dst.Check)
	app.Flag("fake", "Use a fake input: tone, silence, deny or a 16-bit mono WAV file.").
		Envar("MICTEST_FAKE").
		PlaceHolder("SOURCE").
		StringVar(&dst.Fake)
	app.Flag("logpath", "Log directory (default: OS-specific location).").
		StringVar(&dst.LogPath)
	app.Flag("settings", "Settings file (default: user config directory).").
		Envar("MICTEST_SETTINGS").
		StringVar(&dst.SettingsFile)
	app.Flag("config", "YAML configuration file.").
		Envar("MICTEST_CONFIG").
		StringVar(&dst.File)
	app.Flag("observe", "How long to listen before judging the microphone.").
		Envar("MICTEST_OBSERVE").
		DurationVar(&dst.Observation)
	app.Flag("threshold", "Peak level (0-100) the microphone must exceed.").
		Envar("MICTEST_THRESHOLD").
		Float64Var(&dst.Threshold)
	app.Flag("frame-rate", "Level sampling rate in frames per second.").
		Envar("MICTEST_FRAME_RATE").
		IntVar(&dst.FrameRate)
	app.Flag("desktop-notify", "Also show results as desktop notifications.").
		Envar("MICTEST_DESKTOP_NOTIFY").
		BoolVar(&dst.DesktopNotify)
	app.Flag("raw-input", "Disable echo cancellation, noise suppression and auto gain.").
		Envar("MICTEST_RAW_INPUT").
		BoolVar(&dst.RawInput)
	return app
}

// Parse reads flags from args, merges the configuration file over the
// defaults with flags taking precedence, and validates the result.
func Parse(args []string, version string) (Config, error) {
	var flags Config
	app := NewApp(version, &flags)
	if _, err := app.Parse(args); err != nil {
		return Config{}, err
	}
	return Resolve(flags)
}

// Resolve completes flag values with the configuration file and defaults.
func Resolve(flags Config) (Config, error) {
	var cfg Config
	if flags.File != "" {
		if err := cfg.loadFromFile(flags.File, false); err != nil {
			return Config{}, err
		}
	} else if fn := DefaultFile(); fn != "" {
		if err := cfg.loadFromFile(fn, true); err != nil {
			return Config{}, err
		}
	}

	if err := mergo.Merge(&cfg, flags, mergo.WithOverride); err != nil {
		return Config{}, err
	}
	if err := mergo.Merge(&cfg, Defaults()); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFrom(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) loadFromFile(fn string, ignoreNotFound bool) error {
	f, err := os.Open(fn)
	if os.IsNotExist(err) && ignoreNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot open configuration file %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := c.loadFrom(f); err != nil {
		return fmt.Errorf("cannot load configuration file %q: %w", fn, err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("fake", func(fl validator.FieldLevel) bool {
		switch s := fl.Field().String(); s {
		case FakeTone, FakeSilence, FakeDeny:
			return true
		default:
			return strings.HasSuffix(strings.ToLower(s), ".wav")
		}
	})
	return v
}

func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatValidationMessage(e))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param())
	case "fake":
		return fmt.Sprintf("%s must be tone, silence, deny or a .wav file", e.Field())
	default:
		return fmt.Sprintf("%s failed %s", e.Field(), e.Tag())
	}
}

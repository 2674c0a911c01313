package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog     zerolog.Logger
	diagFile    *os.File
	resultsFile *os.File
	logMu       sync.Mutex
	logReady    bool
	pid         int
	dir         string
)

// Result is the outcome of one observation window.
type Result struct {
	SessionID string
	Device    string
	Status    string
	PeakLevel float64
	Elapsed   time.Duration
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: MICTEST_LOG_PATH environment variable
	envPath := os.Getenv("MICTEST_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	resultsPath := filepath.Join(dir, "results_log.txt")
	resultsFile, err = os.OpenFile(resultsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if resultsFile != nil {
		resultsFile.Close()
		resultsFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(id string, observe time.Duration, threshold float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Dur("observe", observe).
		Float64("threshold", threshold).
		Msg("session_start")
}

func AcquireFailed(id string, err error) {
	if !logReady {
		return
	}
	diagLog.Error().
		Str("session", id).
		Err(err).
		Msg("acquire_failed")
}

// SessionResult records a classification in the diagnostics log and appends
// a tab-separated line to results_log.txt.
func SessionResult(r Result) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", r.SessionID).
		Str("device", r.Device).
		Str("status", r.Status).
		Float64("peak", r.PeakLevel).
		Float64("elapsed_ms", float64(r.Elapsed.Microseconds())/1000).
		Msg("session_result")

	logMu.Lock()
	defer logMu.Unlock()
	if resultsFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\t%.1f\t%s\n",
		time.Now().Format("2006-01-02 15:04:05"), pid, r.Status, r.Device, r.PeakLevel, r.SessionID)
	resultsFile.WriteString(line)
}

func SessionStop(id string, frames int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Int("frames", frames).
		Msg("session_stop")
}

func SettingsChange(key, value string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("key", key).
		Str("value", value).
		Msg("settings_change")
}

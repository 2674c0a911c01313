// Package settings owns the persisted UI preferences and pushes every
// change to its subscribers.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"mictest/log"
)

type Theme string

const (
	Light    Theme = "light"
	Dark     Theme = "dark"
	Green    Theme = "green"
	Standoff Theme = "standoff"
)

var Themes = []Theme{Light, Dark, Green, Standoff}

var ErrUnknownTheme = errors.New("unknown theme")

func (t Theme) Valid() bool {
	for _, th := range Themes {
		if t == th {
			return true
		}
	}
	return false
}

// Next cycles through Themes.
func (t Theme) Next() Theme {
	for i, th := range Themes {
		if t == th {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Light
}

const DefaultVolume = 0.3

type Values struct {
	Theme  Theme   `yaml:"theme"`
	Volume float64 `yaml:"volume"`
}

func Defaults() Values {
	return Values{Theme: Light, Volume: DefaultVolume}
}

// SoundsEnabled reports whether UI sounds play for these values.
func (v Values) SoundsEnabled() bool {
	return v.Theme == Standoff
}

func (v Values) normalize() Values {
	if !v.Theme.Valid() {
		v.Theme = Light
	}
	v.Volume = clampVolume(v.Volume)
	return v
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultVolume
	}
	return max(0, min(1, v))
}

// DefaultPath is settings.yaml under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mictest", "settings.yaml"), nil
}

type Store struct {
	path string

	mu      sync.Mutex
	values  Values
	subs    map[int]chan Values
	nextSub int
}

// Open loads the settings at path. A missing file yields the defaults. An
// empty path keeps the settings in memory only.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: Defaults(), subs: make(map[int]chan Values)}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	v := Defaults()
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}
	s.values = v.normalize()
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Values() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values
}

func (s *Store) Theme() Theme { return s.Values().Theme }

func (s *Store) Volume() float64 { return s.Values().Volume }

func (s *Store) SoundsEnabled() bool { return s.Values().SoundsEnabled() }

func (s *Store) SetTheme(t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, t)
	}
	return s.update(func(v *Values) { v.Theme = t }, "theme", string(t))
}

// SetVolume stores v clamped to [0,1].
func (s *Store) SetVolume(v float64) error {
	v = clampVolume(v)
	return s.update(func(vals *Values) { vals.Volume = v }, "volume", strconv.FormatFloat(v, 'f', 2, 64))
}

func (s *Store) update(apply func(*Values), key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.values
	apply(&next)
	if next == s.values {
		return nil
	}
	if err := s.save(next); err != nil {
		return err
	}
	s.values = next
	log.SettingsChange(key, value)

	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
	return nil
}

func (s *Store) save(v Values) error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Subscribe returns a channel that receives the settings after every
// change. Only the latest change is buffered; a slow reader skips
// intermediate values. cancel closes the channel.
func (s *Store) Subscribe() (<-chan Values, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Values, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

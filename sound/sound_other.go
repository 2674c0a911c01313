//go:build !linux && !darwin

package sound

// No UI sound playback on this platform.

type nopPlayer struct{}

func NewPlayer() (Player, error) { return nopPlayer{}, nil }

func (nopPlayer) Play([]byte) {}
func (nopPlayer) Close()      {}

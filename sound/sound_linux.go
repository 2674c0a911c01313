//go:build linux

package sound

import (
	"encoding/binary"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"mictest/log"
)

type pulsePlayer struct{}

func NewPlayer() (Player, error) {
	return pulsePlayer{}, nil
}

func (pulsePlayer) Play(pcm []byte) {
	go playSamples(pcm)
}

func (pulsePlayer) Close() {}

func playSamples(pcm []byte) {
	if len(pcm) < 2 {
		return
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	c, err := pulse.NewClient(pulse.ClientApplicationName("mictest"))
	if err != nil {
		log.Errorf("pulse playback error: %v", err)
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		log.Errorf("pulse playback error: %v", err)
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}

package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
)

const cueSampleRate = 16000

type tone struct {
	hz     float64
	length time.Duration
	volume float64
}

var cues = map[cueKind][]int16{
	cueStart: synthesizeCue(
		tone{hz: 880, length: 70 * time.Millisecond, volume: 0.18},
		tone{hz: 1175, length: 70 * time.Millisecond, volume: 0.18},
	),
	cueStop: synthesizeCue(
		tone{hz: 620, length: 120 * time.Millisecond, volume: 0.18},
	),
	cueComplete: synthesizeCue(
		tone{hz: 740, length: 65 * time.Millisecond, volume: 0.18},
		tone{hz: 988, length: 90 * time.Millisecond, volume: 0.18},
		tone{hz: 1319, length: 110 * time.Millisecond, volume: 0.16},
	),
	cueCancel: synthesizeCue(
		tone{hz: 480, length: 75 * time.Millisecond, volume: 0.18},
		tone{hz: 360, length: 90 * time.Millisecond, volume: 0.18},
	),
}

func emitCue(kind cueKind) error {
	samples := cues[kind]
	if len(samples) == 0 {
		return nil
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("recite"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("recite cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// synthesizeCue joins tones with a short silent gap.
func synthesizeCue(tones ...tone) []int16 {
	gap := make([]int16, samplesFor(22*time.Millisecond))
	var pcm []int16
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(t)...)
	}
	return pcm
}

// synthesizeTone renders a sine with a linear attack and release of at most 5ms.
func synthesizeTone(t tone) []int16 {
	n := samplesFor(t.length)
	if n <= 0 || t.hz <= 0 || t.volume <= 0 {
		return nil
	}

	ramp := max(min(n/10, cueSampleRate/200), 1)
	pcm := make([]int16, n)
	for i := range pcm {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-i-1)/float64(ramp))
		sample := math.Sin(2 * math.Pi * t.hz * float64(i) / cueSampleRate)
		pcm[i] = int16(math.Round(sample * t.volume * envelope * 32767))
	}
	return pcm
}

func samplesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}

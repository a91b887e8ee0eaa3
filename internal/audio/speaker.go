package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/jfreymuth/pulse"

	"github.com/dil-foundation/lms-web-app-sub004/internal/playback"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/wire"
)

// DefaultMaxClipBytes bounds a downloaded prompt clip.
const DefaultMaxClipBytes = 16 << 20

var errClipTooLarge = errors.New("prompt clip exceeds size limit")

// Speaker plays prompt clips on the default Pulse sink. Clips must be 16-bit
// PCM WAV, either inline or behind a URL.
type Speaker struct {
	HTTP     *http.Client
	MaxBytes int64
}

// Load fetches and decodes clip and opens a paused playback stream for it.
func (s Speaker) Load(ctx context.Context, clip practice.Clip) (playback.Track, error) {
	pcm, format, err := s.decode(ctx, clip)
	if err != nil {
		return nil, err
	}

	client, err := newClient("audio-speakers")
	if err != nil {
		return nil, err
	}

	t := &track{samples: samplesFromPCM(pcm), done: make(chan struct{}), eof: make(chan struct{})}
	channel := pulse.PlaybackMono
	if format.Channels == 2 {
		channel = pulse.PlaybackStereo
	}
	stream, err := client.NewPlayback(
		pulse.Int16Reader(t.read),
		channel,
		pulse.PlaybackSampleRate(format.SampleRate),
		pulse.PlaybackMediaName("recite prompt"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse playback stream: %w", err)
	}
	t.client = client
	t.stream = stream
	return t, nil
}

func (s Speaker) decode(ctx context.Context, clip practice.Clip) ([]byte, practice.AudioFormat, error) {
	data := clip.Data
	if len(data) == 0 {
		if clip.URL == "" {
			return nil, practice.AudioFormat{}, errors.New("prompt clip is empty")
		}
		fetched, err := s.fetch(ctx, clip.URL)
		if err != nil {
			return nil, practice.AudioFormat{}, err
		}
		data = fetched
	}
	pcm, format, err := wire.DecodeWAV(data)
	if err != nil {
		return nil, practice.AudioFormat{}, fmt.Errorf("decode prompt clip (%s): %w", clip.MIME, err)
	}
	if format.Channels < 1 || format.Channels > 2 || format.SampleRate <= 0 {
		return nil, practice.AudioFormat{}, fmt.Errorf("unsupported prompt format %d ch @ %d Hz", format.Channels, format.SampleRate)
	}
	return pcm, format, nil
}

func (s Speaker) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build clip request: %w", err)
	}
	client := s.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch prompt clip: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch prompt clip: HTTP %d", resp.StatusCode)
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxClipBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read prompt clip: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, errClipTooLarge
	}
	return body, nil
}

func samplesFromPCM(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return out
}

// track is one decoded clip bound to a Pulse playback stream.
type track struct {
	client *pulse.Client
	stream *pulse.PlaybackStream

	mu      sync.Mutex
	samples []int16
	cursor  int

	eof      chan struct{}
	eofOnce  sync.Once
	done     chan struct{}
	doneOnce sync.Once
	release  sync.Once
}

func (t *track) read(buf []int16) (int, error) {
	t.mu.Lock()
	n := copy(buf, t.samples[t.cursor:])
	t.cursor += n
	finished := t.cursor >= len(t.samples)
	t.mu.Unlock()

	if finished {
		t.eofOnce.Do(func() { close(t.eof) })
		return n, pulse.EndOfData
	}
	return n, nil
}

func (t *track) Play() error {
	if t.stream == nil {
		return errors.New("track has no stream")
	}
	t.stream.Start()
	go func() {
		select {
		case <-t.eof:
			t.stream.Drain()
		case <-t.done:
		}
		t.finish()
	}()
	if err := t.stream.Error(); err != nil {
		return fmt.Errorf("start prompt stream: %w", err)
	}
	return nil
}

func (t *track) Pause() {
	if t.stream != nil {
		t.stream.Pause()
	}
}

func (t *track) Resume() {
	if t.stream != nil {
		t.stream.Resume()
	}
}

func (t *track) Stop() {
	if t.stream != nil {
		t.stream.Stop()
	}
	t.finish()
}

func (t *track) Done() <-chan struct{} { return t.done }

func (t *track) Release() error {
	t.release.Do(func() {
		t.finish()
		if t.stream != nil {
			t.stream.Close()
		}
		if t.client != nil {
			t.client.Close()
		}
		t.mu.Lock()
		t.samples = nil
		t.cursor = 0
		t.mu.Unlock()
	})
	return nil
}

func (t *track) finish() {
	t.doneOnce.Do(func() { close(t.done) })
}

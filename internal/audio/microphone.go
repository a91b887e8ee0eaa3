package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/dil-foundation/lms-web-app-sub004/internal/capture"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
)

const chunkSizeBytes = 640 // 20ms @ 16kHz mono s16

// Microphone opens Pulse record streams on the configured input.
type Microphone struct {
	Input    string
	Fallback string
	Logger   *slog.Logger
}

// Open selects a source and starts a 16kHz mono s16 record stream on it.
func (m Microphone) Open(ctx context.Context) (capture.Stream, error) {
	sel, err := SelectSource(ctx, m.Input, m.Fallback)
	if err != nil {
		return nil, err
	}
	if sel.Warning != "" && m.Logger != nil {
		m.Logger.Warn(sel.Warning, "source", sel.Source.ID)
	}

	client, err := newClient("audio-input-microphone")
	if err != nil {
		return nil, err
	}
	source, err := client.SourceByID(sel.Source.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", sel.Source.ID, err)
	}

	s := newMicStream(sel.Source)
	s.client = client

	writer := pulse.NewWriter(writerFunc(s.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(practice.DefaultAudioFormat.SampleRate),
		pulse.RecordBufferFragmentSize(chunkSizeBytes),
		pulse.RecordMediaName("recite practice answer"),
	)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	s.stream = stream
	stream.Start()
	return s, nil
}

// micStream delivers fixed-size PCM chunks from one record stream.
type micStream struct {
	source Source

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	stopCh chan struct{}

	mu       sync.Mutex
	pending  []byte
	stopped  bool
	inflight sync.WaitGroup
}

func newMicStream(source Source) *micStream {
	return &micStream{
		source: source,
		chunks: make(chan []byte, 128),
		stopCh: make(chan struct{}),
	}
}

func (s *micStream) Chunks() <-chan []byte { return s.chunks }

func (s *micStream) Format() practice.AudioFormat { return practice.DefaultAudioFormat }

// Close stops the stream, flushes the residual partial chunk and closes
// Chunks. Repeated calls are no-ops.
func (s *micStream) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	var streamErr error
	if s.stream != nil {
		s.stream.Stop()
		streamErr = s.stream.Error()
		s.stream.Close()
	}
	if s.client != nil {
		s.client.Close()
	}

	s.inflight.Wait()

	s.mu.Lock()
	rest := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(rest) > 0 {
		select {
		case s.chunks <- rest:
		default:
		}
	}
	close(s.chunks)

	if streamErr != nil {
		return fmt.Errorf("record stream %q: %w", s.source.ID, streamErr)
	}
	return nil
}

func (s *micStream) onPCM(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same lock as stopped so Close never races Wait.
	s.inflight.Add(1)
	s.pending = append(s.pending, buf...)
	var ready [][]byte
	for len(s.pending) >= chunkSizeBytes {
		chunk := make([]byte, chunkSizeBytes)
		copy(chunk, s.pending[:chunkSizeBytes])
		s.pending = s.pending[chunkSizeBytes:]
		ready = append(ready, chunk)
	}
	s.mu.Unlock()
	defer s.inflight.Done()

	for _, chunk := range ready {
		select {
		case <-s.stopCh:
			return 0, io.EOF
		case s.chunks <- chunk:
		}
	}
	return len(buf), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }

package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	chunks     chan []byte
	closeCalls atomic.Int32
	closeOnce  sync.Once
}

func newFakeStream(chunks ...[]byte) *fakeStream {
	s := &fakeStream{chunks: make(chan []byte, len(chunks)+1)}
	for _, chunk := range chunks {
		s.chunks <- chunk
	}
	return s
}

func (s *fakeStream) Chunks() <-chan []byte        { return s.chunks }
func (s *fakeStream) Format() practice.AudioFormat { return practice.DefaultAudioFormat }
func (s *fakeStream) Close() error {
	s.closeCalls.Add(1)
	s.closeOnce.Do(func() { close(s.chunks) })
	return nil
}

type fakeDevice struct {
	mu      sync.Mutex
	streams []*fakeStream
	next    func() *fakeStream
	openErr error
	opens   atomic.Int32
}

func (d *fakeDevice) Open(context.Context) (Stream, error) {
	d.opens.Add(1)
	if d.openErr != nil {
		return nil, d.openErr
	}
	stream := newFakeStream([]byte{1, 2, 3, 4})
	if d.next != nil {
		stream = d.next()
	}
	d.mu.Lock()
	d.streams = append(d.streams, stream)
	d.mu.Unlock()
	return stream, nil
}

func (d *fakeDevice) totalCloses() int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var total int32
	for _, s := range d.streams {
		total += s.closeCalls.Load()
	}
	return total
}

func TestStartStopAssemblesUnitAndReleasesOnce(t *testing.T) {
	device := &fakeDevice{}
	yields := 0
	session := New(device, Options{Window: time.Minute, Yield: func() { yields++ }})

	require.NoError(t, session.Start(context.Background()))
	require.True(t, session.Active())
	require.Equal(t, 1, yields)

	unit, err := session.Stop()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, unit.PCM)
	require.Equal(t, practice.DefaultAudioFormat, unit.Format)
	require.False(t, unit.StartedAt.IsZero())
	require.False(t, session.Active())
	require.Equal(t, int32(1), device.totalCloses())

	_, err = session.Stop()
	require.ErrorIs(t, err, ErrNotRecording)
	require.Equal(t, int32(1), device.totalCloses())
}

func TestStartWhileRecordingIsRejected(t *testing.T) {
	device := &fakeDevice{}
	session := New(device, Options{})

	require.NoError(t, session.Start(context.Background()))
	require.ErrorIs(t, session.Start(context.Background()), ErrAlreadyRecording)
	require.Equal(t, int32(1), device.opens.Load())

	session.Abort()
	require.Equal(t, int32(1), device.totalCloses())
}

func TestStartFailureWrapsPermissionAndAcquiresNothing(t *testing.T) {
	device := &fakeDevice{openErr: errors.New("access denied by pulse")}
	session := New(device, Options{})

	err := session.Start(context.Background())
	require.ErrorIs(t, err, practice.ErrPermission)
	require.ErrorContains(t, err, "access denied by pulse")
	require.False(t, session.Active())
	require.Equal(t, int32(0), device.totalCloses())

	_, err = session.Stop()
	require.ErrorIs(t, err, ErrNotRecording)
}

func TestStopWithNoAudioReturnsEmptyRecording(t *testing.T) {
	device := &fakeDevice{next: func() *fakeStream { return newFakeStream() }}
	session := New(device, Options{})

	require.NoError(t, session.Start(context.Background()))
	_, err := session.Stop()
	require.ErrorIs(t, err, practice.ErrEmptyRecording)
	require.Equal(t, int32(1), device.totalCloses())
}

func TestAutoStopFinalizesOnceAndUserStopLoses(t *testing.T) {
	device := &fakeDevice{}
	got := make(chan practice.AudioUnit, 1)
	session := New(device, Options{
		Window: 20 * time.Millisecond,
		OnAutoStop: func(unit practice.AudioUnit, err error) {
			require.NoError(t, err)
			got <- unit
		},
	})

	require.NoError(t, session.Start(context.Background()))

	select {
	case unit := <-got:
		require.Equal(t, []byte{1, 2, 3, 4}, unit.PCM)
	case <-time.After(2 * time.Second):
		t.Fatal("auto-stop did not fire")
	}

	_, err := session.Stop()
	require.ErrorIs(t, err, ErrNotRecording)
	require.Equal(t, int32(1), device.totalCloses())
}

func TestStopBeforeWindowCancelsAutoStop(t *testing.T) {
	device := &fakeDevice{}
	var autoCalls atomic.Int32
	session := New(device, Options{
		Window:     30 * time.Millisecond,
		OnAutoStop: func(practice.AudioUnit, error) { autoCalls.Add(1) },
	})

	require.NoError(t, session.Start(context.Background()))
	_, err := session.Stop()
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, int32(0), autoCalls.Load())
}

func TestAbortIsIdempotentAndDiscardsAudio(t *testing.T) {
	device := &fakeDevice{}
	session := New(device, Options{})

	session.Abort()
	require.NoError(t, session.Start(context.Background()))
	session.Abort()
	session.Abort()
	require.False(t, session.Active())
	require.Equal(t, int32(1), device.totalCloses())

	require.NoError(t, session.Start(context.Background()))
	unit, err := session.Stop()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, unit.PCM)
	require.Equal(t, int32(2), device.totalCloses())
}

func TestDeviceReleasedExactlyOncePerStartAcrossSequences(t *testing.T) {
	device := &fakeDevice{}
	session := New(device, Options{})

	sequences := []func(){
		func() { _, _ = session.Stop() },
		func() { session.Abort() },
		func() { _, _ = session.Stop(); session.Abort(); _, _ = session.Stop() },
	}
	for _, finish := range sequences {
		require.NoError(t, session.Start(context.Background()))
		finish()
	}
	require.Equal(t, int32(len(sequences)), device.opens.Load())
	require.Equal(t, int32(len(sequences)), device.totalCloses())
}

func TestConcurrentStopsProduceOneUnit(t *testing.T) {
	device := &fakeDevice{}
	session := New(device, Options{})
	require.NoError(t, session.Start(context.Background()))

	var wg sync.WaitGroup
	var successes atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := session.Stop(); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), successes.Load())
	require.Equal(t, int32(1), device.totalCloses())
}

func TestStartedAt(t *testing.T) {
	session := New(&fakeDevice{}, Options{})
	_, ok := session.StartedAt()
	require.False(t, ok)

	require.NoError(t, session.Start(context.Background()))
	started, ok := session.StartedAt()
	require.True(t, ok)
	require.WithinDuration(t, time.Now(), started, time.Second)
	session.Abort()
}

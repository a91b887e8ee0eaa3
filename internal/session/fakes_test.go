package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/capture"
	"github.com/dil-foundation/lms-web-app-sub004/internal/content"
	"github.com/dil-foundation/lms-web-app-sub004/internal/fsm"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/progress"
	"github.com/dil-foundation/lms-web-app-sub004/internal/scoring"
	"github.com/dil-foundation/lms-web-app-sub004/internal/wire"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu       sync.Mutex
	active   bool
	started  time.Time
	startErr error
	stopErr  error
	pcm      []byte
	starts   int
	aborts   int
	handler  func(practice.AudioUnit, error)
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{pcm: []byte{1, 0, 2, 0, 3, 0, 4, 0}}
}

func (r *fakeRecorder) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return capture.ErrAlreadyRecording
	}
	if r.startErr != nil {
		return r.startErr
	}
	r.starts++
	r.active = true
	r.started = time.Now()
	return nil
}

func (r *fakeRecorder) finalize() (practice.AudioUnit, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return practice.AudioUnit{}, false, capture.ErrNotRecording
	}
	r.active = false
	unit := practice.AudioUnit{
		PCM:       r.pcm,
		Format:    practice.DefaultAudioFormat,
		StartedAt: r.started,
		StoppedAt: r.started.Add(2 * time.Second),
	}
	return unit, true, r.stopErr
}

func (r *fakeRecorder) Stop() (practice.AudioUnit, error) {
	unit, _, err := r.finalize()
	return unit, err
}

// autoStop mimics the recording window timer.
func (r *fakeRecorder) autoStop() {
	unit, ok, err := r.finalize()
	if !ok {
		return
	}
	r.mu.Lock()
	handler := r.handler
	r.mu.Unlock()
	handler(unit, err)
}

func (r *fakeRecorder) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborts++
	r.active = false
}

func (r *fakeRecorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *fakeRecorder) StartedAt() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started, r.active
}

func (r *fakeRecorder) SetAutoStopHandler(fn func(practice.AudioUnit, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = fn
}

type fakePlayer struct {
	mu      sync.Mutex
	active  bool
	plays   int
	stops   int
	playErr error
}

func (p *fakePlayer) Play(context.Context, practice.Clip) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return p.playErr
	}
	p.plays++
	p.active = true
	return nil
}

func (p *fakePlayer) Pause()  {}
func (p *fakePlayer) Resume() {}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	p.active = false
}

func (p *fakePlayer) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

type fakeClips struct {
	err error
}

func (f fakeClips) Audio(context.Context, practice.Exercise, practice.Item) (practice.Clip, error) {
	if f.err != nil {
		return practice.Clip{}, f.err
	}
	return practice.Clip{URL: "https://cdn.example.test/prompt.mp3"}, nil
}

type fakeResolver struct {
	res content.Resolution
}

func (f fakeResolver) Load(context.Context, practice.Exercise, practice.User) content.Resolution {
	res := f.res
	res.Items = append([]practice.Item(nil), f.res.Items...)
	res.Completed = append([]bool(nil), f.res.Completed...)
	return res
}

type fakeSubmitter struct {
	mu       sync.Mutex
	outcome  scoring.Outcome
	block    chan struct{}
	requests []scoring.Request
	cancel   context.CancelFunc
	cancels  atomic.Int32
}

func (s *fakeSubmitter) Submit(ctx context.Context, req scoring.Request) scoring.Outcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.cancel = cancel
	outcome, block := s.outcome, s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return scoring.Outcome{Err: &scoring.SubmissionError{Reason: scoring.ReasonCanceled, Err: ctx.Err()}}
		}
	}
	return outcome
}

func (s *fakeSubmitter) Cancel() {
	s.cancels.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *fakeSubmitter) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type fakeIndicator struct {
	recording  atomic.Int32
	evaluating atomic.Int32
	feedback   atomic.Int32
	completed  atomic.Int32
	errors     atomic.Int32
	stopCues   atomic.Int32
	cancelCues atomic.Int32
}

func (f *fakeIndicator) ShowRecording(context.Context)                 { f.recording.Add(1) }
func (f *fakeIndicator) ShowEvaluating(context.Context)                { f.evaluating.Add(1) }
func (f *fakeIndicator) ShowFeedback(context.Context, float64, string) { f.feedback.Add(1) }
func (f *fakeIndicator) ShowCompleted(context.Context)                 { f.completed.Add(1) }
func (f *fakeIndicator) ShowError(context.Context, string)             { f.errors.Add(1) }
func (f *fakeIndicator) CueStop(context.Context)                       { f.stopCues.Add(1) }
func (f *fakeIndicator) CueComplete(context.Context)                   {}
func (f *fakeIndicator) CueCancel(context.Context)                     { f.cancelCues.Add(1) }
func (f *fakeIndicator) Hide(context.Context)                          {}

type harness struct {
	ctrl      *Controller
	recorder  *fakeRecorder
	player    *fakePlayer
	submitter *fakeSubmitter
	store     *progress.MemoryStore
	indicator *fakeIndicator
	exercise  practice.Exercise
}

const testUser = "user-1"

func items(n int) []practice.Item {
	out := make([]practice.Item, n)
	for i := range out {
		out[i] = practice.Item{ID: i + 1, Prompt: "phrase", Secondary: "gloss"}
	}
	return out
}

func newHarness(t *testing.T, key string, n int) *harness {
	t.Helper()
	ex, ok := practice.Lookup(key)
	require.True(t, ok)
	return newHarnessWith(t, ex, content.Resolution{Items: items(n), Completed: make([]bool, n)})
}

func newHarnessWith(t *testing.T, ex practice.Exercise, res content.Resolution) *harness {
	t.Helper()
	h := &harness{
		recorder:  newFakeRecorder(),
		player:    &fakePlayer{},
		submitter: &fakeSubmitter{},
		store:     progress.NewMemoryStore(),
		indicator: &fakeIndicator{},
		exercise:  ex,
	}
	h.ctrl = NewController(Deps{
		Exercise:  ex,
		User:      practice.User{ID: testUser},
		Resolver:  fakeResolver{res: res},
		Recorder:  h.recorder,
		Player:    h.player,
		Clips:     fakeClips{},
		Encoder:   wire.Encoder{},
		Submitter: h.submitter,
		Store:     h.store,
		Indicator: h.indicator,
	})
	h.ctrl.Load(context.Background())
	return h
}

func (h *harness) record(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.StartRecording(context.Background()))
	require.NoError(t, h.ctrl.StopRecording(context.Background()))
}

func (h *harness) stored(t *testing.T) (practice.ProgressRecord, bool) {
	t.Helper()
	rec, ok, err := h.store.Get(context.Background(), progress.Key{UserID: testUser, StageID: h.exercise.StageID, ExerciseID: h.exercise.ExerciseID})
	require.NoError(t, err)
	return rec, ok
}

func waitForPhase(t *testing.T, ctrl *Controller, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool { return ctrl.State() == want }, 2*time.Second, 5*time.Millisecond,
		"phase never became %s (last %s)", want, ctrl.State())
}

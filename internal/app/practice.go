package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/audio"
	"github.com/dil-foundation/lms-web-app-sub004/internal/backend"
	"github.com/dil-foundation/lms-web-app-sub004/internal/capture"
	"github.com/dil-foundation/lms-web-app-sub004/internal/config"
	"github.com/dil-foundation/lms-web-app-sub004/internal/content"
	"github.com/dil-foundation/lms-web-app-sub004/internal/httpapi"
	"github.com/dil-foundation/lms-web-app-sub004/internal/indicator"
	"github.com/dil-foundation/lms-web-app-sub004/internal/ipc"
	"github.com/dil-foundation/lms-web-app-sub004/internal/playback"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/progress"
	"github.com/dil-foundation/lms-web-app-sub004/internal/scoring"
	"github.com/dil-foundation/lms-web-app-sub004/internal/session"
	"github.com/dil-foundation/lms-web-app-sub004/internal/version"
	"github.com/dil-foundation/lms-web-app-sub004/internal/wire"
)

const grpcDialTimeout = 5 * time.Second

// commandPractice owns the session socket and serves one exercise until ctx
// is canceled.
func (r Runner) commandPractice(ctx context.Context, cfg config.Config, exerciseKey string, logger *slog.Logger) int {
	ex, err := cfg.ResolveExercise(exerciseKey)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{ProbeTimeout: 180 * time.Millisecond, Retries: 8})
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: %v (use `%s status`)\n", err, binaryName)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	eng, err := buildEngine(cfg, ex, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("build session failed", "exercise", ex.Key, "error", err.Error())
		return 1
	}
	defer eng.close(logger)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(runCtx, listener, eng.controller)
	}()

	httpErrCh := make(chan error, 1)
	if listen := strings.TrimSpace(cfg.HTTP.Listen); listen != "" {
		go func() {
			err := httpapi.Serve(runCtx, httpapi.New(eng.controller, logger), listen)
			if err != nil {
				cancelRun()
			}
			httpErrCh <- err
		}()
		logger.Info("view api listening", "addr", listen)
	} else {
		httpErrCh <- nil
	}

	startedAt := time.Now()
	fmt.Fprintf(r.Stdout, "practicing %s (%s); press Ctrl-C to finish\n", ex.Key, ex.Title)
	runErr := eng.controller.Run(runCtx)
	cancelRun()

	exitCode := 0
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		exitCode = 1
	}
	if httpErr := <-httpErrCh; httpErr != nil {
		fmt.Fprintf(r.Stderr, "error: view api failed: %v\n", httpErr)
		exitCode = 1
	}
	if runErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		exitCode = 1
	}

	snap := eng.controller.Snapshot()
	logSessionSummary(logger, snap, startedAt, time.Now())
	fmt.Fprintln(r.Stdout, summaryLine(snap))
	return exitCode
}

// engine is one wired session controller plus the resources it borrows.
type engine struct {
	controller *session.Controller
	notifier   *indicator.Notifier
	closers    []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (e *engine) close(logger *slog.Logger) {
	if e.notifier != nil {
		e.notifier.Wait()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		c := e.closers[i]
		if err := c.close(); err != nil && logger != nil {
			logger.Warn("release failed", "resource", c.name, "error", err.Error())
		}
	}
}

func buildEngine(cfg config.Config, ex practice.Exercise, logger *slog.Logger) (*engine, error) {
	eng := &engine{}

	client := backendClient(cfg)

	store, closeStore, err := openProgressStore(cfg, client)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		eng.closers = append(eng.closers, namedCloser{name: "progress store", close: closeStore})
	}

	transport, closeTransport := scoringTransport(cfg, client)
	if closeTransport != nil {
		eng.closers = append(eng.closers, namedCloser{name: "scoring transport", close: closeTransport})
	}

	provider := content.HTTPProvider{Client: client}
	encoder := wire.Encoder{MaxBytes: cfg.Scoring.MaxAudioBytes}
	submitter := scoring.NewSubmitter(transport, scoring.Options{
		Timeout:   cfg.ScoringTimeout(),
		Extension: encoder.Extension(),
		Logger:    logger,
	})

	player := playback.New(audio.Speaker{
		HTTP:     &http.Client{Timeout: cfg.RequestTimeout()},
		MaxBytes: audio.DefaultMaxClipBytes,
	}, nil, logger)
	recorder := capture.New(audio.Microphone{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Logger:   logger,
	}, capture.Options{
		Window: ex.RecordWindow,
		Yield:  player.Stop,
		Logger: logger,
	})
	player.SetGate(recorder.Active)

	eng.notifier = indicator.New(cfg.Indicator, logger)

	deps := session.Deps{
		Logger:    logger,
		Exercise:  ex,
		User:      practice.User{ID: cfg.User.ID, Email: cfg.User.Email},
		Resolver:  content.NewResolver(provider, store, progress.NewInitializer(store, logger), logger),
		Recorder:  recorder,
		Player:    player,
		Clips:     provider,
		Encoder:   encoder,
		Submitter: submitter,
		Store:     store,
		Indicator: eng.notifier,
	}
	if cfg.Debug.AudioDump {
		dumper, err := debugDumper(cfg.Debug.DumpDir)
		if err != nil {
			eng.close(logger)
			return nil, err
		}
		deps.Dumper = dumper
	}

	eng.controller = session.NewController(deps)
	return eng, nil
}

func backendClient(cfg config.Config) *backend.Client {
	client := backend.New(cfg.Backend.BaseURL)
	client.Timeout = cfg.RequestTimeout()
	client.Header = http.Header{"User-Agent": []string{version.UserAgent()}}
	if token := strings.TrimSpace(cfg.Backend.Token); token != "" {
		client.Header.Set("Authorization", "Bearer "+token)
	}
	return client
}

// openProgressStore returns the configured store and its closer, if any.
func openProgressStore(cfg config.Config, client *backend.Client) (progress.Store, func() error, error) {
	switch cfg.Progress.Store {
	case "memory":
		return progress.NewMemoryStore(), nil, nil
	case "sqlite":
		path := strings.TrimSpace(cfg.Progress.SQLitePath)
		if path == "" {
			var err error
			if path, err = config.DefaultSQLitePath(); err != nil {
				return nil, nil, err
			}
		}
		store, err := progress.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return progress.HTTPStore{Client: client}, nil, nil
	}
}

func scoringTransport(cfg config.Config, client *backend.Client) (scoring.Transport, func() error) {
	if cfg.Scoring.Transport == "grpc" {
		t := scoring.NewGRPCTransport(cfg.Scoring.GRPCEndpoint, grpcDialTimeout)
		return t, t.Close
	}
	scoringClient := *client
	scoringClient.Timeout = cfg.ScoringTimeout()
	return scoring.HTTPTransport{Client: &scoringClient}, nil
}

func debugDumper(dir string) (*audio.Dumper, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		var err error
		if dir, err = audio.DefaultDebugDir(); err != nil {
			return nil, fmt.Errorf("resolve debug dir: %w", err)
		}
	}
	return audio.NewDumper(dir)
}

// exerciseCatalog lists every catalog exercise with config overrides applied.
func exerciseCatalog(cfg config.Config) []practice.Exercise {
	all := practice.Exercises()
	out := make([]practice.Exercise, 0, len(all))
	for _, ex := range all {
		resolved, err := cfg.ResolveExercise(ex.Key)
		if err != nil {
			resolved = ex
		}
		out = append(out, resolved)
	}
	return out
}

func summaryLine(snap session.Snapshot) string {
	done := 0
	for _, c := range snap.Completed {
		if c {
			done++
		}
	}
	line := fmt.Sprintf("%s: %d/%d items completed", snap.Exercise, done, snap.Total)
	if snap.ExerciseCompleted {
		line += ", exercise complete"
	}
	return line
}

func logSessionSummary(logger *slog.Logger, snap session.Snapshot, started, finished time.Time) {
	if logger == nil {
		return
	}
	fields := []any{
		"exercise", snap.Exercise,
		"phase", snap.Phase,
		"items", snap.Total,
		"index", snap.Index,
		"from_fallback", snap.FromFallback,
		"exercise_completed", snap.ExerciseCompleted,
		"started_at", started.Format(time.RFC3339Nano),
		"finished_at", finished.Format(time.RFC3339Nano),
		"duration_ms", finished.Sub(started).Milliseconds(),
	}
	if snap.Feedback != nil {
		fields = append(fields, "last_score", snap.Feedback.Score)
	}
	if snap.Error != nil {
		logger.Warn("session finished with error", append(fields, "error_kind", snap.Error.Kind, "error", snap.Error.Message)...)
		return
	}
	logger.Info("session finished", fields...)
}

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dil-foundation/lms-web-app-sub004/internal/fsm"
	"github.com/dil-foundation/lms-web-app-sub004/internal/ipc"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/session"
)

const offlineConfig = `{
  // unreachable backend: content comes from the fallback catalog
  "backend": { "base_url": "http://127.0.0.1:1" },
  "progress": { "store": "memory" },
  "indicator": { "enable": false, "sound_enable": false },
  "exercises": {
    "abstract-topic": { "record_seconds": 45, },
  },
}`

func TestExecuteHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Contains(t, stdout.String(), "practice")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "recite ")
	require.Empty(t, stderr.String())
}

func TestExecuteUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"definitely-not-a-command"},
		{"--exercise"},
		{"toggle", "stop"},
	} {
		var stdout, stderr bytes.Buffer
		exitCode := Execute(context.Background(), args, &stdout, &stderr)
		require.Equal(t, 2, exitCode, args)
		require.Contains(t, stderr.String(), "error:", args)
		require.Contains(t, stderr.String(), "Usage:", args)
	}
}

func TestRunnerRejectsInvalidConfig(t *testing.T) {
	paths := setupRunnerEnv(t, `{"scoring": {"transport": "carrier-pigeon"}}`)

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "invalid fields")
}

func TestRunnerStatusIdleWhenSocketUnavailable(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerStopReturnsNoActiveSession(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "stop"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "no active recite session")
	require.Contains(t, stderr.String(), "recite practice")
}

func TestRunnerForwardsCommandsToActiveSession(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)
	requests := make(chan ipc.Request, 16)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, ipc.SocketName), func(_ context.Context, req ipc.Request) ipc.Response {
		requests <- req
		if req.Command == "status" {
			return ipc.Response{OK: true, State: "recording"}
		}
		return ipc.Response{OK: true, Message: req.Command + " handled"}
	})
	defer shutdown()

	commands := []string{"status", "toggle", "stop", "cancel", "next", "previous", "redo", "play", "hint"}
	for _, cmd := range commands {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		runner := Runner{Stdout: stdout, Stderr: stderr}

		exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "--exercise", "abstract-topic", cmd})
		require.Equal(t, 0, exitCode, cmd)
		require.Empty(t, stderr.String(), cmd)
		if cmd == "status" {
			require.Equal(t, "recording\n", stdout.String())
		} else {
			require.Equal(t, cmd+" handled\n", stdout.String())
		}
	}

	for _, cmd := range commands {
		req := <-requests
		require.Equal(t, cmd, req.Command)
		require.Equal(t, "abstract-topic", req.Exercise)
	}
}

func TestRunnerForwardSurfacesRejectedCommand(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, ipc.SocketName), func(_ context.Context, req ipc.Request) ipc.Response {
		return ipc.Response{OK: false, State: "evaluating", Error: "session is recording or evaluating"}
	})
	defer shutdown()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "next"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), `forward command "next": session is recording or evaluating`)
	require.Empty(t, stdout.String())
}

func TestRunnerStatusFallsBackToIdleWhenServerStateEmpty(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, ipc.SocketName), func(_ context.Context, req ipc.Request) ipc.Response {
		return ipc.Response{OK: true}
	})
	defer shutdown()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
}

func TestRunnerStatusDoesNotRemoveUnreachableSocket(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)
	socketPath := filepath.Join(paths.runtimeDir, ipc.SocketName)
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestRunnerPracticeRejectsUnknownExercise(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "--exercise", "karaoke", "practice"})
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), `unknown exercise "karaoke"`)

	_, statErr := os.Stat(filepath.Join(paths.runtimeDir, ipc.SocketName))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerPracticeRefusesSecondOwner(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, ipc.SocketName), func(_ context.Context, req ipc.Request) ipc.Response {
		return ipc.Response{OK: true, State: "idle"}
	})
	defer shutdown()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "practice"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "already running")
}

func TestRunnerPracticeServesSessionUntilCanceled(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)
	socketPath := filepath.Join(paths.runtimeDir, ipc.SocketName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdout := &lockedBuffer{}
	stderr := &lockedBuffer{}
	runner := Runner{Stdout: stdout, Stderr: stderr, Logger: slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))}

	done := make(chan int, 1)
	go func() {
		done <- runner.Execute(ctx, []string{"--config", paths.configPath, "--exercise", "repeat-after-me", "practice"})
	}()

	var snap session.Snapshot
	require.Eventually(t, func() bool {
		resp, err := ipc.Call(context.Background(), socketPath, ipc.Request{Command: "status"}, time.Second)
		if err != nil || resp.Data == nil {
			return false
		}
		if json.Unmarshal(resp.Data, &snap) != nil {
			return false
		}
		return snap.Loaded
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(t, practice.RepeatAfterMe, snap.Exercise)
	require.Equal(t, fsm.StateIdle, snap.Phase)
	require.True(t, snap.FromFallback)
	require.Positive(t, snap.Total)

	resp, err := ipc.Call(context.Background(), socketPath, ipc.Request{Command: "next", Exercise: practice.RepeatAfterMe}, time.Second)
	require.NoError(t, err)
	require.Equal(t, "moved to next item", resp.Message)

	_, err = ipc.Call(context.Background(), socketPath, ipc.Request{Command: "next", Exercise: practice.AbstractTopic}, time.Second)
	require.ErrorContains(t, err, "active session is repeat-after-me")

	cancel()
	select {
	case code := <-done:
		require.Equal(t, 0, code, stderr.String())
	case <-time.After(5 * time.Second):
		t.Fatal("practice did not exit after cancel")
	}

	require.Contains(t, stdout.String(), "practicing repeat-after-me")
	require.Contains(t, stdout.String(), "items completed")

	_, statErr := os.Stat(socketPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerExercisesListsCatalogWithOverrides(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "exercises"})
	require.Equal(t, 0, exitCode)

	out := stdout.String()
	for _, ex := range practice.Exercises() {
		require.Contains(t, out, ex.Key)
	}
	require.Contains(t, out, "* "+practice.DefaultExercise)
	require.Contains(t, out, "window=45s")
}

func TestRunnerDoctorCommandDispatchesAndPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "config: loaded")
	require.Contains(t, stdout.String(), "[FAIL] backend.health")
}

func TestRunnerDevicesCommandDispatches(t *testing.T) {
	paths := setupRunnerEnv(t, offlineConfig)
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "error:")
}

func TestSummaryLine(t *testing.T) {
	snap := session.Snapshot{Exercise: "repeat-after-me", Total: 3, Completed: []bool{true, false, true}}
	require.Equal(t, "repeat-after-me: 2/3 items completed", summaryLine(snap))

	snap.ExerciseCompleted = true
	require.Equal(t, "repeat-after-me: 2/3 items completed, exercise complete", summaryLine(snap))
}

func TestLogSessionSummaryWritesErrorAndSuccess(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	started := time.Now()
	finished := started.Add(1500 * time.Millisecond)

	logSessionSummary(logger, session.Snapshot{
		Exercise: "abstract-topic",
		Phase:    fsm.StateFeedback,
		Total:    1,
		Feedback: &practice.Feedback{Score: 72},
	}, started, finished)
	require.Contains(t, logBuf.String(), "session finished")
	require.Contains(t, logBuf.String(), `"last_score":72`)
	require.Contains(t, logBuf.String(), `"duration_ms":1500`)

	logBuf.Reset()
	logSessionSummary(logger, session.Snapshot{
		Exercise: "abstract-topic",
		Phase:    fsm.StateIdle,
		Error:    &practice.ErrorInfo{Kind: practice.KindSubmission, Message: "evaluation timed out"},
	}, started, finished)
	require.Contains(t, logBuf.String(), "session finished with error")
	require.Contains(t, logBuf.String(), "evaluation timed out")

	logSessionSummary(nil, session.Snapshot{}, started, finished)
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func setupRunnerEnv(t *testing.T, configBody string) runnerPaths {
	t.Helper()

	runtimeDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte(configBody), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler))
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

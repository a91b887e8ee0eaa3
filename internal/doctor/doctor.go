// Package doctor runs readiness diagnostics for config, backend, scoring,
// progress storage and audio.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dil-foundation/lms-web-app-sub004/internal/audio"
	"github.com/dil-foundation/lms-web-app-sub004/internal/backend"
	"github.com/dil-foundation/lms-web-app-sub004/internal/config"
	"github.com/dil-foundation/lms-web-app-sub004/internal/progress"
)

const (
	healthPath   = "/health"
	probeTimeout = 2 * time.Second
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes every check for a loaded config. exercise overrides the
// configured exercise key when non-empty.
func Run(ctx context.Context, loaded config.Loaded, exercise string) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkExercise(cfg, exercise))
	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "session socket directory is set", "XDG_RUNTIME_DIR is empty; session commands cannot connect"))

	if cfg.Indicator.Enable {
		switch cfg.Indicator.Backend {
		case "hypr":
			checks = append(checks, checkBinary("hyprctl", "hypr notifications"))
		default:
			checks = append(checks, checkBinary("busctl", "desktop notifications"))
		}
	}

	checks = append(checks, checkBackendHealth(ctx, cfg))
	if cfg.Scoring.Transport == "grpc" {
		checks = append(checks, checkScoringGRPC(ctx, cfg.Scoring.GRPCEndpoint))
	}
	checks = append(checks, checkProgressStore(ctx, cfg))
	checks = append(checks, checkAudioSelection(ctx, cfg))

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("no file at %q; using defaults", loaded.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

func checkExercise(cfg config.Config, key string) Check {
	ex, err := cfg.ResolveExercise(key)
	if err != nil {
		return Check{Name: "exercise", Pass: false, Message: err.Error()}
	}
	return Check{Name: "exercise", Pass: true, Message: fmt.Sprintf("%s (stage %d, exercise %d, window %s)", ex.Key, ex.StageID, ex.ExerciseID, ex.RecordWindow)}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	if predicate(os.Getenv(name)) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, purpose string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH (needed for %s)", purpose)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, purpose)}
}

// checkBackendHealth probes GET /health on the learning backend.
func checkBackendHealth(ctx context.Context, cfg config.Config) Check {
	client := backend.New(cfg.Backend.BaseURL)
	client.Timeout = probeTimeout
	if token := strings.TrimSpace(cfg.Backend.Token); token != "" {
		client.Header = map[string][]string{"Authorization": {"Bearer " + token}}
	}

	target := strings.TrimRight(cfg.Backend.BaseURL, "/") + healthPath
	if err := client.Get(ctx, healthPath, nil); err != nil {
		return Check{Name: "backend.health", Pass: false, Message: err.Error()}
	}
	return Check{Name: "backend.health", Pass: true, Message: fmt.Sprintf("reachable at %s", target)}
}

// checkScoringGRPC runs the standard gRPC health check against the scoring endpoint.
func checkScoringGRPC(ctx context.Context, endpoint string) Check {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Check{Name: "scoring.grpc", Pass: false, Message: "scoring.grpc_endpoint is empty"}
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return Check{Name: "scoring.grpc", Pass: false, Message: fmt.Sprintf("dial %s: %v", endpoint, err)}
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return Check{Name: "scoring.grpc", Pass: false, Message: fmt.Sprintf("health check %s: %v", endpoint, err)}
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: "scoring.grpc", Pass: false, Message: fmt.Sprintf("%s reports %s", endpoint, resp.GetStatus())}
	}
	return Check{Name: "scoring.grpc", Pass: true, Message: fmt.Sprintf("serving at %s", endpoint)}
}

func checkProgressStore(ctx context.Context, cfg config.Config) Check {
	switch cfg.Progress.Store {
	case "memory":
		return Check{Name: "progress.store", Pass: true, Message: "in-memory; progress is lost on exit"}
	case "sqlite":
		path := strings.TrimSpace(cfg.Progress.SQLitePath)
		if path == "" {
			var err error
			if path, err = config.DefaultSQLitePath(); err != nil {
				return Check{Name: "progress.store", Pass: false, Message: err.Error()}
			}
		}
		store, err := progress.OpenSQLite(path)
		if err != nil {
			return Check{Name: "progress.store", Pass: false, Message: err.Error()}
		}
		defer store.Close()
		if err := store.Ping(ctx); err != nil {
			return Check{Name: "progress.store", Pass: false, Message: err.Error()}
		}
		return Check{Name: "progress.store", Pass: true, Message: fmt.Sprintf("sqlite at %s", path)}
	default:
		msg := "stored by the learning backend"
		if strings.TrimSpace(cfg.User.ID) == "" {
			msg += "; user.id is empty so nothing is saved"
		}
		return Check{Name: "progress.store", Pass: true, Message: msg}
	}
}

// checkAudioSelection runs live source selection to surface fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectSource(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.source", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Source.ID)
	if selection.Warning != "" {
		message += " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.source", Pass: true, Message: message}
}

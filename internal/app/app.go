// Package app dispatches recite commands: it owns practice sessions and
// forwards session commands to a running owner.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/audio"
	"github.com/dil-foundation/lms-web-app-sub004/internal/cli"
	"github.com/dil-foundation/lms-web-app-sub004/internal/config"
	"github.com/dil-foundation/lms-web-app-sub004/internal/doctor"
	"github.com/dil-foundation/lms-web-app-sub004/internal/ipc"
	"github.com/dil-foundation/lms-web-app-sub004/internal/logging"
	"github.com/dil-foundation/lms-web-app-sub004/internal/version"
)

const (
	binaryName     = "recite"
	forwardTimeout = 3 * time.Second
	statusTimeout  = 500 * time.Millisecond
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"exercise", parsed.Exercise,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch {
	case parsed.Command == cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, parsed.Exercise)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case parsed.Command == cli.CommandDevices:
		return r.commandDevices(ctx)
	case parsed.Command == cli.CommandExercises:
		return r.commandExercises(cfgLoaded.Config)
	case parsed.Command == cli.CommandPractice:
		return r.commandPractice(ctx, cfgLoaded.Config, parsed.Exercise, logger)
	case parsed.Command == cli.CommandStatus:
		return r.commandStatus(ctx, parsed.Exercise)
	case parsed.Command.Forwarded():
		return r.forwardOrFail(ctx, string(parsed.Command), parsed.Exercise)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	sources, err := audio.ListSources(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(sources) == 0 {
		fmt.Fprintln(r.Stdout, "no audio sources found")
		return 1
	}

	for _, src := range sources {
		defaultMark := " "
		if src.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark, src.ID, src.Description, src.State, yesNo(src.Available), yesNo(src.Muted))
	}
	return 0
}

func (r Runner) commandExercises(cfg config.Config) int {
	for _, ex := range exerciseCatalog(cfg) {
		mark := " "
		if ex.Key == cfg.Exercise {
			mark = "*"
		}
		mode := "multi-attempt"
		if ex.SingleAttempt {
			mode = "single-attempt"
		}
		fmt.Fprintf(r.Stdout, "%s %-20s stage=%d exercise=%d window=%s %s | %s\n",
			mark, ex.Key, ex.StageID, ex.ExerciseID, ex.RecordWindow, mode, ex.Title)
	}
	return 0
}

// commandStatus prints the owner's phase, or idle when nothing is running.
func (r Runner) commandStatus(ctx context.Context, exercise string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, err := ipc.Call(ctx, socketPath, ipc.Request{Command: "status", Exercise: exercise}, statusTimeout)
	if errors.Is(err, ipc.ErrNoSession) {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	state := strings.TrimSpace(resp.State)
	if state == "" {
		state = "idle"
	}
	fmt.Fprintln(r.Stdout, state)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command, exercise string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, err := ipc.Call(ctx, socketPath, ipc.Request{Command: command, Exercise: exercise}, forwardTimeout)
	if errors.Is(err, ipc.ErrNoSession) {
		fmt.Fprintf(r.Stderr, "error: %v (start one with `%s practice`)\n", err, binaryName)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: forward command %q: %v\n", command, err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

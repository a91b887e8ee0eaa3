package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

type level int

// Hyprland notify icons.
const (
	levelInfo  level = 1
	levelHint  level = 2
	levelError level = 3
	levelOK    level = 5
)

const (
	colorRecording  = "rgb(89b4fa)"
	colorEvaluating = "rgb(cba6f7)"
	colorGood       = "rgb(a6e3a1)"
	colorRetry      = "rgb(f9e2af)"
	colorError      = "rgb(f38ba8)"
)

type notice struct {
	level     level
	timeoutMS int
	color     string
	text      string
}

type backend interface {
	notify(context.Context, notice) error
	dismiss(context.Context) error
}

// hyprBackend dispatches through hyprctl notify.
type hyprBackend struct{}

func (hyprBackend) notify(ctx context.Context, n notice) error {
	_, err := runCommand(ctx, "hyprctl", "--quiet", "dispatch", "notify",
		strconv.Itoa(int(n.level)), strconv.Itoa(n.timeoutMS), n.color, n.text)
	return err
}

func (hyprBackend) dismiss(ctx context.Context) error {
	_, err := runCommand(ctx, "hyprctl", "--quiet", "dispatch", "dismissnotify")
	return err
}

// desktopBackend sends replaceable freedesktop notifications over DBus via busctl.
type desktopBackend struct {
	appName string

	mu sync.Mutex
	id uint32
}

var notifyBus = []string{
	"--user", "call",
	"org.freedesktop.Notifications",
	"/org/freedesktop/Notifications",
	"org.freedesktop.Notifications",
}

func (d *desktopBackend) notify(ctx context.Context, n notice) error {
	d.mu.Lock()
	replace := d.id
	d.mu.Unlock()

	app := d.appName
	if app == "" {
		app = "recite"
	}
	args := append(append([]string(nil), notifyBus...),
		"Notify", "susssasa{sv}i",
		app, strconv.FormatUint(uint64(replace), 10), "", n.text, "",
		"0", // actions
		"0", // hints
		strconv.Itoa(n.timeoutMS),
	)
	out, err := runCommand(ctx, "busctl", args...)
	if err != nil {
		return err
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}

	d.mu.Lock()
	d.id = uint32(id)
	d.mu.Unlock()
	return nil
}

func (d *desktopBackend) dismiss(ctx context.Context) error {
	d.mu.Lock()
	id := d.id
	d.id = 0
	d.mu.Unlock()
	if id == 0 {
		return nil
	}
	args := append(append([]string(nil), notifyBus...),
		"CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	_, err := runCommand(ctx, "busctl", args...)
	return err
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("%s %s failed: %w", name, args[0], err)
		}
		return nil, fmt.Errorf("%s %s failed: %w (%s)", name, args[0], err, trimmed)
	}
	return out, nil
}

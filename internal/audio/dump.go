package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/logging"
	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/wire"
)

// Dumper writes recorded units as timestamped WAV files for debugging.
type Dumper struct {
	Dir string
	now func() time.Time
}

// NewDumper returns a dumper rooted at dir, or at DefaultDebugDir when dir is
// empty.
func NewDumper(dir string) (*Dumper, error) {
	if strings.TrimSpace(dir) == "" {
		def, err := DefaultDebugDir()
		if err != nil {
			return nil, err
		}
		dir = def
	}
	return &Dumper{Dir: dir, now: time.Now}, nil
}

// DefaultDebugDir returns the debug directory under the recite state dir.
func DefaultDebugDir() (string, error) {
	state, err := logging.StateDir()
	if err != nil {
		return "", fmt.Errorf("resolve state dir: %w", err)
	}
	return filepath.Join(state, "debug"), nil
}

// Dump writes unit to <dir>/<name>-<timestamp>.wav and returns the path.
func (d *Dumper) Dump(unit practice.AudioUnit, name string) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	if name = strings.TrimSpace(name); name == "" {
		name = "answer"
	}
	path := filepath.Join(d.Dir, fmt.Sprintf("%s-%s.wav", name, now().Format("20060102-150405.000")))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open debug file %q: %w", path, err)
	}
	if err := wire.WriteWAV(file, unit.PCM, unit.Format); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("write debug wav: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close debug file %q: %w", path, err)
	}
	return path, nil
}

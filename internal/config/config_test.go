package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/validate"
)

func TestDefaultValidates(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "user.id is empty")
}

func TestParseOverlaysSections(t *testing.T) {
	content := `
{
  // learner identity
  "user": {"id": "u-42", "email": "learner@example.com"},
  "exercise": "in-depth-interview",
  "backend": {"base_url": "https://api.example.com", "request_timeout_ms": 5000},
  "scoring": {"transport": "GRPC", "grpc_endpoint": "scoring.internal:443", "timeout_ms": 20000},
  "progress": {"store": "sqlite", "sqlite_path": "/tmp/p.db"},
  "exercises": {
    "repeat-after-me": {"record_seconds": 12, "single_attempt": true},
  },
  "indicator": {"backend": "hypr", "sound_enable": false},
  "http": {"listen": "127.0.0.1:8787"},
  "debug": {"audio_dump": true},
}
`
	cfg, warnings, err := Parse(content, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, "u-42", cfg.User.ID)
	require.Equal(t, practice.InDepthInterview, cfg.Exercise)
	require.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	require.Equal(t, 5*time.Second, cfg.RequestTimeout())
	require.Equal(t, "grpc", cfg.Scoring.Transport)
	require.Equal(t, 20*time.Second, cfg.ScoringTimeout())
	require.Equal(t, "sqlite", cfg.Progress.Store)
	require.Equal(t, "hypr", cfg.Indicator.Backend)
	require.False(t, cfg.Indicator.SoundEnable)
	require.True(t, cfg.Indicator.Enable)
	require.Equal(t, "127.0.0.1:8787", cfg.HTTP.Listen)
	require.True(t, cfg.Debug.AudioDump)

	ex, err := cfg.ResolveExercise(practice.RepeatAfterMe)
	require.NoError(t, err)
	require.Equal(t, 12*time.Second, ex.RecordWindow)
	require.True(t, ex.SingleAttempt)

	ex, err = cfg.ResolveExercise("")
	require.NoError(t, err)
	require.Equal(t, practice.InDepthInterview, ex.Key)
}

func TestParseRejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown key", content: `{"clipboard": {}}`, want: "unknown field"},
		{name: "bad transport", content: `{"scoring": {"transport": "carrier-pigeon"}}`, want: "transport"},
		{name: "grpc without endpoint", content: `{"scoring": {"transport": "grpc"}}`, want: "grpc_endpoint"},
		{name: "bad store", content: `{"progress": {"store": "redis"}}`, want: "store"},
		{name: "unknown exercise", content: `{"exercise": "karaoke"}`, want: "not one of"},
		{name: "bad base url", content: `{"backend": {"base_url": "not a url"}}`, want: "base_url"},
		{name: "record window too long", content: `{"exercises": {"abstract-topic": {"record_seconds": 9000}}}`, want: "record_seconds"},
		{name: "multiple values", content: `{} {}`, want: "multiple JSON values"},
		{name: "type error", content: "{\n  \"http\": {\"listen\": 8080}\n}", want: "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.content, Default())
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReturnsFieldsError(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Transport = "grpc"

	_, err := Validate(cfg)
	var fields *validate.FieldsError
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields.Fields, "scoring.grpc_endpoint")
}

func TestValidateWarnsOnUnknownOverride(t *testing.T) {
	cfg := Default()
	cfg.User.ID = "u-1"
	cfg.Exercises = map[string]ExerciseOverride{"karaoke": {}}

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "exercises.karaoke")
}

func TestResolveExerciseUnknown(t *testing.T) {
	_, err := Default().ResolveExercise("karaoke")
	require.Error(t, err)
	require.Contains(t, err.Error(), practice.RepeatAfterMe)
}

func TestNormalizeJSONC(t *testing.T) {
	input := "{\n  // comment\n  \"a\": [1, /* two */ 2,],\n  \"b\": {\"c\": \"// kept, /* kept */\",},\n}"
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Len(t, normalized, len(input))
	require.NotContains(t, normalized, "comment")
	require.Contains(t, normalized, `"// kept, /* kept */"`)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(normalized), &out))
	require.Equal(t, []any{float64(1), float64(2)}, out["a"])

	_, err = normalizeJSONC("{ /* open")
	require.ErrorContains(t, err, "unterminated block comment")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, [2]int{1, 1}, [2]int{line, col})

	line, col = offsetToLineCol(content, 8)
	require.Equal(t, [2]int{2, 2}, [2]int{line, col})

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, [2]int{3, 5}, [2]int{line, col})
}

func TestResolvePathPrecedence(t *testing.T) {
	resolved, err := ResolvePath("/tmp/custom.jsonc")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.jsonc", resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "recite", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "recite", "config.jsonc"), resolved)

	t.Setenv("XDG_DATA_HOME", "/data")
	db, err := DefaultSQLitePath()
	require.NoError(t, err)
	require.Equal(t, "/data/recite/progress.db", db)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	missing, err := Load(filepath.Join(dir, "missing.jsonc"))
	require.NoError(t, err)
	require.False(t, missing.Exists)
	require.Equal(t, Default(), missing.Config)
	require.Contains(t, missing.Warnings[0].Message, "not found")

	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"user": {"id": "u-7"}, "progress": {"store": "memory"}}`), 0o600))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "u-7", loaded.Config.User.ID)
	require.Empty(t, loaded.Warnings)

	require.NoError(t, os.WriteFile(path, []byte(`{"progress": {"store": "redis"}}`), 0o600))
	_, err = Load(path)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "parse config"))

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
	blank, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), blank.Config)
}

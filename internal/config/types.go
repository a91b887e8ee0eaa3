// Package config resolves, parses, validates, and defaults recite configuration.
package config

// Config is the fully materialized runtime configuration.
type Config struct {
	Exercise  string                      `json:"exercise" validate:"required"`
	Backend   BackendConfig               `json:"backend"`
	Scoring   ScoringConfig               `json:"scoring"`
	Progress  ProgressConfig              `json:"progress"`
	Audio     AudioConfig                 `json:"audio"`
	User      UserConfig                  `json:"user"`
	Exercises map[string]ExerciseOverride `json:"exercises" validate:"dive"`
	Indicator IndicatorConfig             `json:"indicator"`
	HTTP      HTTPConfig                  `json:"http"`
	Debug     DebugConfig                 `json:"debug"`
}

// BackendConfig locates the content, evaluation and progress APIs.
type BackendConfig struct {
	BaseURL          string `json:"base_url" validate:"required,url"`
	RequestTimeoutMS int    `json:"request_timeout_ms" validate:"gt=0"`
	Token            string `json:"token"`
}

// ScoringConfig selects the evaluation transport.
type ScoringConfig struct {
	Transport     string `json:"transport" validate:"oneof=http grpc"`
	GRPCEndpoint  string `json:"grpc_endpoint" validate:"required_if=Transport grpc"`
	TimeoutMS     int    `json:"timeout_ms" validate:"gt=0"`
	MaxAudioBytes int    `json:"max_audio_bytes" validate:"gte=0"`
}

// ProgressConfig selects where progress records live.
type ProgressConfig struct {
	Store      string `json:"store" validate:"oneof=http sqlite memory"`
	SQLitePath string `json:"sqlite_path"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `json:"input"`
	Fallback string `json:"fallback"`
}

// UserConfig identifies the learner. An empty ID runs anonymously.
type UserConfig struct {
	ID    string `json:"id"`
	Email string `json:"email" validate:"omitempty,email"`
}

// ExerciseOverride adjusts one catalog exercise.
type ExerciseOverride struct {
	RecordSeconds *int  `json:"record_seconds" validate:"omitempty,gt=0,lte=600"`
	SingleAttempt *bool `json:"single_attempt"`
}

// IndicatorConfig controls notifications and audio cues.
type IndicatorConfig struct {
	Enable         bool   `json:"enable"`
	Backend        string `json:"backend" validate:"oneof=hypr desktop"`
	DesktopAppName string `json:"desktop_app_name" validate:"required_if=Backend desktop"`
	SoundEnable    bool   `json:"sound_enable"`
	ErrorTimeoutMS int    `json:"error_timeout_ms" validate:"gte=0"`
}

// HTTPConfig controls the optional view API. An empty Listen disables it.
type HTTPConfig struct {
	Listen string `json:"listen" validate:"omitempty,hostname_port"`
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	AudioDump bool   `json:"audio_dump"`
	DumpDir   string `json:"dump_dir"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

package config

import "github.com/dil-foundation/lms-web-app-sub004/internal/practice"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Exercise: practice.DefaultExercise,
		Backend: BackendConfig{
			BaseURL:          "http://127.0.0.1:8000",
			RequestTimeoutMS: 10000,
		},
		Scoring: ScoringConfig{
			Transport:     "http",
			TimeoutMS:     15000,
			MaxAudioBytes: 8 << 20,
		},
		Progress: ProgressConfig{Store: "http"},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Exercises: map[string]ExerciseOverride{},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "desktop",
			DesktopAppName: "recite",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
	}
}

package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/validate"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	if err := validate.Default().Struct(cfg); err != nil {
		return nil, err
	}
	if _, ok := practice.Lookup(cfg.Exercise); !ok {
		return nil, fmt.Errorf("exercise %q is not one of: %s", cfg.Exercise, strings.Join(exerciseKeys(), ", "))
	}
	if strings.Contains(cfg.Backend.BaseURL, "?") {
		return nil, fmt.Errorf("backend.base_url must not carry a query string")
	}

	var warnings []Warning
	unknown := make([]string, 0)
	for key := range cfg.Exercises {
		if _, ok := practice.Lookup(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("exercises.%s does not name a known exercise; ignored", key)})
	}
	if strings.TrimSpace(cfg.User.ID) == "" && cfg.Progress.Store != "memory" {
		warnings = append(warnings, Warning{Message: "user.id is empty; progress will not be saved"})
	}
	return warnings, nil
}

// ResolveExercise returns the catalog exercise for key with overrides applied.
// An empty key selects cfg.Exercise.
func (cfg Config) ResolveExercise(key string) (practice.Exercise, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = cfg.Exercise
	}
	ex, ok := practice.Lookup(key)
	if !ok {
		return practice.Exercise{}, fmt.Errorf("unknown exercise %q (known: %s)", key, strings.Join(exerciseKeys(), ", "))
	}
	if o, ok := cfg.Exercises[key]; ok {
		if o.RecordSeconds != nil {
			ex.RecordWindow = time.Duration(*o.RecordSeconds) * time.Second
		}
		if o.SingleAttempt != nil {
			ex.SingleAttempt = *o.SingleAttempt
		}
	}
	return ex, nil
}

// RequestTimeout returns the backend call timeout.
func (cfg Config) RequestTimeout() time.Duration {
	return time.Duration(cfg.Backend.RequestTimeoutMS) * time.Millisecond
}

// ScoringTimeout returns the evaluation timeout.
func (cfg Config) ScoringTimeout() time.Duration {
	return time.Duration(cfg.Scoring.TimeoutMS) * time.Millisecond
}

func exerciseKeys() []string {
	exercises := practice.Exercises()
	keys := make([]string, 0, len(exercises))
	for _, ex := range exercises {
		keys = append(keys, ex.Key)
	}
	return keys
}

// Package practice defines the shared data model of the practice engine:
// items, feedback, progress records, captured audio and the exercise catalog.
package practice

import "strings"

// Item is one unit of practice content (a phrase, dialogue turn, topic, prompt or scenario).
// Items are immutable once loaded.
type Item struct {
	ID               int      `json:"id"`
	Prompt           string   `json:"prompt"`
	AudioRef         string   `json:"audio_ref,omitempty"`
	Secondary        string   `json:"secondary,omitempty"`
	ExpectedKeywords []string `json:"expected_keywords,omitempty"`
	Difficulty       string   `json:"difficulty,omitempty"`
}

const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

// NormalizeDifficulty maps CEFR and free-text labels onto the three display levels.
// Unknown labels are returned unchanged.
func NormalizeDifficulty(raw string) string {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "":
		return DifficultyIntermediate
	case "c2", "c1", "expert", "proficiency", "advanced":
		return DifficultyAdvanced
	case "b2", "b1", "intermediate":
		return DifficultyIntermediate
	case "a2", "a1", "elementary", "beginner":
		return DifficultyBeginner
	default:
		return trimmed
	}
}

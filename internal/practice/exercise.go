package practice

import (
	"fmt"
	"sort"
	"time"
)

// Exercise parametrizes the engine for one practice page.
type Exercise struct {
	Key           string
	Title         string
	StageID       int
	ExerciseID    int
	RecordWindow  time.Duration
	SingleAttempt bool

	// Backend routes. AudioPath is a format string taking the item id.
	ItemsPath    string
	AudioPath    string
	EvaluatePath string
	// ItemField names the item id field in audio and evaluation payloads.
	ItemField string
	// Mapper selects the response-to-feedback mapping.
	Mapper string

	Fallback []Item
}

// AudioRoute returns the prompt audio route for an item.
func (e Exercise) AudioRoute(itemID int) string {
	return fmt.Sprintf(e.AudioPath, itemID)
}

const (
	RepeatAfterMe     = "repeat-after-me"
	ListenAndReply    = "listen-and-reply"
	AbstractTopic     = "abstract-topic"
	InDepthInterview  = "in-depth-interview"
	SensitiveScenario = "sensitive-scenario"
)

// DefaultExercise is used when no exercise key is configured.
const DefaultExercise = RepeatAfterMe

var catalog = map[string]Exercise{
	RepeatAfterMe: {
		Key:          RepeatAfterMe,
		Title:        "Repeat After Me",
		StageID:      1,
		ExerciseID:   1,
		RecordWindow: 8 * time.Second,
		ItemsPath:    "/api/phrases",
		AudioPath:    "/api/repeat-after-me/%d",
		EvaluatePath: "/api/evaluate-audio",
		ItemField:    "phrase_id",
		Mapper:       "default",
		Fallback:     fallbackPhrases(),
	},
	ListenAndReply: {
		Key:          ListenAndReply,
		Title:        "Listen and Reply",
		StageID:      1,
		ExerciseID:   3,
		RecordWindow: 10 * time.Second,
		ItemsPath:    "/api/dialogues",
		AudioPath:    "/api/listen-and-reply/%d",
		EvaluatePath: "/api/evaluate-listen-reply",
		ItemField:    "dialogue_id",
		Mapper:       "default",
		Fallback:     fallbackDialogues(),
	},
	AbstractTopic: {
		Key:           AbstractTopic,
		Title:         "Abstract Topic Monologue",
		StageID:       4,
		ExerciseID:    1,
		RecordWindow:  120 * time.Second,
		SingleAttempt: true,
		ItemsPath:     "/api/abstract-topics",
		AudioPath:     "/api/abstract-topic/%d",
		EvaluatePath:  "/api/evaluate-abstract-topic",
		ItemField:     "topic_id",
		Mapper:        "default",
		Fallback:      fallbackTopics(),
	},
	InDepthInterview: {
		Key:           InDepthInterview,
		Title:         "In-Depth Interview Simulation",
		StageID:       5,
		ExerciseID:    2,
		RecordWindow:  120 * time.Second,
		SingleAttempt: true,
		ItemsPath:     "/api/in-depth-interview-prompts",
		AudioPath:     "/api/in-depth-interview/%d",
		EvaluatePath:  "/api/evaluate-in-depth-interview",
		ItemField:     "prompt_id",
		Mapper:        "interview",
		Fallback:      fallbackInterviewPrompts(),
	},
	SensitiveScenario: {
		Key:           SensitiveScenario,
		Title:         "Sensitive Scenario Roleplay",
		StageID:       6,
		ExerciseID:    2,
		RecordWindow:  120 * time.Second,
		SingleAttempt: true,
		ItemsPath:     "/api/sensitive-scenario-scenarios",
		AudioPath:     "/api/sensitive-scenario/%d",
		EvaluatePath:  "/api/evaluate-sensitive-scenario",
		ItemField:     "scenario_id",
		Mapper:        "default",
		Fallback:      fallbackScenarios(),
	},
}

// Lookup returns the catalog exercise for key.
func Lookup(key string) (Exercise, bool) {
	ex, ok := catalog[key]
	if !ok {
		return Exercise{}, false
	}
	ex.Fallback = append([]Item(nil), ex.Fallback...)
	return ex, true
}

// Exercises returns the catalog ordered by stage then exercise id.
func Exercises() []Exercise {
	out := make([]Exercise, 0, len(catalog))
	for key := range catalog {
		ex, _ := Lookup(key)
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StageID == out[j].StageID {
			return out[i].ExerciseID < out[j].ExerciseID
		}
		return out[i].StageID < out[j].StageID
	})
	return out
}

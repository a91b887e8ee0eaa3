package scoring

import (
	"strings"

	"github.com/dil-foundation/lms-web-app-sub004/internal/practice"
	"github.com/dil-foundation/lms-web-app-sub004/internal/validate"
)

// Response is the scoring service payload. Evaluation and completion are
// optional; success=false or a non-empty error marks a soft failure.
type Response struct {
	Success            *bool              `json:"success"`
	Error              string             `json:"error"`
	Message            string             `json:"message"`
	ExpectedKeywords   []string           `json:"expected_keywords"`
	Evaluation         *EvaluationPayload `json:"evaluation" validate:"omitempty"`
	ExerciseCompletion *CompletionPayload `json:"exercise_completion" validate:"omitempty"`
}

// EvaluationPayload is the scored part of a Response.
type EvaluationPayload struct {
	Score           *float64 `json:"score" validate:"required,min=0,max=100"`
	Feedback        string   `json:"feedback"`
	Suggestions     []string `json:"suggestions"`
	FluencyScore    *float64 `json:"fluency_score" validate:"omitempty,min=0,max=100"`
	VocabularyScore *float64 `json:"vocabulary_score" validate:"omitempty,min=0,max=100"`
	RelevanceScore  *float64 `json:"relevance_score" validate:"omitempty,min=0,max=100"`
	KeywordMatches  []string `json:"keyword_matches"`
	Transcription   string   `json:"transcription"`
	NextSteps       string   `json:"next_steps"`
}

// CompletionPayload is the explicit completion signal.
type CompletionPayload struct {
	Completed          bool    `json:"completed"`
	ProgressPercentage float64 `json:"progress_percentage" validate:"min=0,max=100"`
	CompletedItems     int     `json:"completed_items" validate:"min=0"`
	TotalItems         int     `json:"total_items" validate:"min=0"`
}

// Mapper converts a validated evaluation into learner feedback.
type Mapper func(EvaluationPayload) practice.Feedback

var mappers = map[string]Mapper{
	"default":   mapDefault,
	"interview": mapInterview,
}

// MapperFor returns the named mapper, falling back to the default one.
func MapperFor(name string) Mapper {
	if m, ok := mappers[name]; ok {
		return m
	}
	return mapDefault
}

func mapDefault(ev EvaluationPayload) practice.Feedback {
	fb := practice.Feedback{
		Message:         strings.TrimSpace(ev.Feedback),
		Suggestions:     nonEmpty(ev.Suggestions),
		KeywordsMatched: nonEmpty(ev.KeywordMatches),
		Transcription:   strings.TrimSpace(ev.Transcription),
		SubScores: practice.SubScores{
			Fluency:    ev.FluencyScore,
			Vocabulary: ev.VocabularyScore,
			Relevance:  ev.RelevanceScore,
		},
	}
	if ev.Score != nil {
		fb.Score = *ev.Score
	}
	return fb
}

func mapInterview(ev EvaluationPayload) practice.Feedback {
	fb := mapDefault(ev)
	if next := strings.TrimSpace(ev.NextSteps); next != "" {
		fb.Suggestions = append(fb.Suggestions, next)
	}
	return fb
}

const defaultRetryHint = "Please speak more clearly and try again"

// Classify turns a decoded Response into feedback and an optional completion.
// A schema violation returns a SubmissionError.
func Classify(resp Response, mapper Mapper) (*practice.Feedback, *practice.Completion, *SubmissionError) {
	if err := validate.Default().Struct(resp); err != nil {
		return nil, nil, &SubmissionError{Reason: ReasonSchema, Err: err}
	}
	if mapper == nil {
		mapper = mapDefault
	}

	if soft(resp) {
		return softFeedback(resp), nil, nil
	}
	if resp.Evaluation == nil {
		if resp.ExerciseCompletion != nil {
			fb := practice.Feedback{Message: strings.TrimSpace(resp.Message)}
			return &fb, completionFrom(resp.ExerciseCompletion), nil
		}
		return nil, nil, &SubmissionError{Reason: ReasonSchema, Err: errMissingEvaluation}
	}

	fb := mapper(*resp.Evaluation)
	if fb.Message == "" {
		fb.Message = strings.TrimSpace(resp.Message)
	}
	return &fb, completionFrom(resp.ExerciseCompletion), nil
}

func soft(resp Response) bool {
	return (resp.Success != nil && !*resp.Success) || strings.TrimSpace(resp.Error) != ""
}

func softFeedback(resp Response) *practice.Feedback {
	msg := strings.TrimSpace(resp.Message)
	if msg == "" {
		msg = strings.TrimSpace(resp.Error)
	}
	if msg == "" {
		msg = "No speech detected."
	}
	hint := defaultRetryHint
	if keywords := nonEmpty(resp.ExpectedKeywords); len(keywords) > 0 {
		hint = "Try using keywords: " + strings.Join(keywords, ", ")
	}
	return &practice.Feedback{
		Score:       0,
		Message:     msg,
		Suggestions: []string{hint},
		SoftFailure: true,
	}
}

func completionFrom(p *CompletionPayload) *practice.Completion {
	if p == nil {
		return nil
	}
	return &practice.Completion{
		Completed:          p.Completed,
		ProgressPercentage: p.ProgressPercentage,
		CompletedItems:     p.CompletedItems,
		TotalItems:         p.TotalItems,
	}
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

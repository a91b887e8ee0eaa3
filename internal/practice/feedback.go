package practice

// SubScores carries the optional per-dimension scores of an evaluation.
type SubScores struct {
	Fluency    *float64 `json:"fluency,omitempty"`
	Vocabulary *float64 `json:"vocabulary,omitempty"`
	Relevance  *float64 `json:"relevance,omitempty"`
}

// Feedback is the learner-facing result of one evaluated attempt.
// Score 0 is reserved for "no usable speech".
type Feedback struct {
	Score           float64   `json:"score"`
	Message         string    `json:"message"`
	Suggestions     []string  `json:"suggestions,omitempty"`
	SubScores       SubScores `json:"sub_scores"`
	KeywordsMatched []string  `json:"keywords_matched,omitempty"`
	Transcription   string    `json:"transcription,omitempty"`
	SoftFailure     bool      `json:"soft_failure,omitempty"`
}

// Accepted reports whether the feedback is a genuine scored attempt.
func (f Feedback) Accepted() bool {
	return !f.SoftFailure && f.Score > 0
}

// Completion is the scoring service's explicit exercise completion signal.
type Completion struct {
	Completed          bool    `json:"completed"`
	ProgressPercentage float64 `json:"progress_percentage"`
	CompletedItems     int     `json:"completed_items"`
	TotalItems         int     `json:"total_items"`
}

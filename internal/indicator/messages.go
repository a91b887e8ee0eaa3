package indicator

import (
	"fmt"
	"math"
	"strings"
)

// passScore splits encouraging from retry-styled feedback notices.
const passScore = 60

type messages struct {
	recording  string
	evaluating string
	completed  string
	errorText  string
}

func defaultMessages() messages {
	return messages{
		recording:  "Recording…",
		evaluating: "Evaluating…",
		completed:  "Exercise complete",
		errorText:  "Something went wrong",
	}
}

func (messages) feedback(score float64, message string) string {
	text := fmt.Sprintf("Score %d/100", int(math.Round(score)))
	first, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	if first = strings.TrimSpace(first); first != "" {
		text += " · " + first
	}
	return text
}

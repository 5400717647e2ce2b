package research

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput indicates the question was rejected before any research
// state was created.
var ErrInvalidInput = errors.New("invalid research question")

const minQuestionLength = 3

// Patterns that suggest injection attempts rather than research questions.
var suspiciousPatterns = []string{
	"<script",
	"javascript:",
	"eval(",
	"exec(",
}

// validateQuestion rejects empty, too-short, or injection-looking input.
func validateQuestion(question string) error {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}
	if len(trimmed) < minQuestionLength {
		return fmt.Errorf("%w: question too short (minimum %d characters)", ErrInvalidInput, minQuestionLength)
	}

	lower := strings.ToLower(trimmed)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: question contains suspicious pattern %q", ErrInvalidInput, pattern)
		}
	}
	return nil
}

package domain

import (
	"errors"
	"strings"
)

var (
	// ErrParticipantNotFound is returned when a participant lookup yields nothing.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrQuestionnaireNotFound indicates the questionnaire content could not be loaded.
	ErrQuestionnaireNotFound = errors.New("questionnaire not found")
	// ErrMalformedID indicates a participant reference that cannot be parsed.
	ErrMalformedID = errors.New("malformed participant id")
)

// ValidationError collects every violated input rule; the caller sees all of
// them at once, joined by comma.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// DuplicateSubmissionError reports that the identity behind a registration has
// already completed the quiz. Reason is "email" or "phone" depending on which
// field matched.
type DuplicateSubmissionError struct {
	Reason string
}

func (e *DuplicateSubmissionError) Error() string {
	if e.Reason == "phone" {
		return "This phone number has already been used to complete the quiz. Each participant can only submit once."
	}
	return "This email has already been used to complete the quiz. Each participant can only submit once."
}

package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ParticipantID is the opaque identifier assigned to a participant at
// creation. Submissions reference participants by raw string, so lookups must
// go through ParseParticipantID first; a parse failure is the modeled
// "dangling reference" case rather than an implicit nil.
type ParticipantID string

// NewParticipantID generates a fresh identifier.
func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.NewString())
}

// ParseParticipantID validates a loose reference. Malformed references return
// ErrMalformedID and must be treated as unresolvable, not as failures.
func ParseParticipantID(raw string) (ParticipantID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedID, raw)
	}
	return ParticipantID(id.String()), nil
}

func (id ParticipantID) String() string {
	return string(id)
}

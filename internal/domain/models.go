package domain

import "time"

// Participant is a registered quiz-taker. Records are created once and never
// updated or deleted.
type Participant struct {
	ID            ParticipantID `json:"_id"`
	Name          string        `json:"name"`
	Qualification string        `json:"qualification"`
	Email         string        `json:"email"` // stored lowercase
	Phone         string        `json:"phone"`
	CollegeName   string        `json:"collegeName"`
	State         string        `json:"state"`
	City          string        `json:"city"`
	Pincode       string        `json:"pincode"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Registration carries the fields a participant submits when signing up.
type Registration struct {
	Name          string `json:"name" validate:"min=2"`
	Qualification string `json:"qualification" validate:"min=2"`
	Email         string `json:"email" validate:"required,email,gmail"`
	Phone         string `json:"phone" validate:"phone10"`
	CollegeName   string `json:"collegeName" validate:"omitempty"`
	State         string `json:"state" validate:"min=2"`
	City          string `json:"city" validate:"min=2"`
	Pincode       string `json:"pincode" validate:"pincode6"`
}

// Submission is one participant's finished set of answers. ParticipantRef is a
// loose string reference, not a foreign key; it may be malformed or point at a
// participant that no longer resolves.
type Submission struct {
	ID             string            `json:"_id"`
	ParticipantRef string            `json:"participantId"`
	Answers        map[string]string `json:"answers"`
	SubmittedAt    time.Time         `json:"submittedAt"`
}

// SubmissionDraft is the inbound shape of a quiz submission.
type SubmissionDraft struct {
	ParticipantRef string            `json:"participantId" validate:"required"`
	Answers        map[string]string `json:"answers" validate:"required"`
}

// SubmissionWithParticipant is the composed admin view produced by the
// aggregator. It is never persisted.
type SubmissionWithParticipant struct {
	Submission
	Participant Participant `json:"participant"`
}

// Question is one entry of the fixed questionnaire. MCQ questions carry
// options; free-text questions do not.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}

// Questionnaire is the fixed question set served to quiz clients.
type Questionnaire struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

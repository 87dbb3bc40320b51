package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"quiz-registration-service/internal/domain"
)

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID             string            `bun:"id,pk"`
	ParticipantRef string            `bun:"participant_id"`
	Answers        map[string]string `bun:"answers,type:jsonb"`
	SubmittedAt    time.Time         `bun:"submitted_at"`
}

func (r submissionRow) toDomain() domain.Submission {
	return domain.Submission{
		ID:             r.ID,
		ParticipantRef: r.ParticipantRef,
		Answers:        r.Answers,
		SubmittedAt:    r.SubmittedAt,
	}
}

// SubmissionStore persists submissions in Postgres via bun. participant_id is
// a plain text column, not a foreign key; the duplicate guard and aggregator
// deal with dangling references.
type SubmissionStore struct {
	db *bun.DB
}

func NewSubmissionStore(db *bun.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

func (s *SubmissionStore) Create(ctx context.Context, participantRef string, answers map[string]string) (domain.Submission, error) {
	row := submissionRow{
		ID:             uuid.NewString(),
		ParticipantRef: participantRef,
		Answers:        answers,
		SubmittedAt:    time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return row.toDomain(), nil
}

func (s *SubmissionStore) ListAll(ctx context.Context) ([]domain.Submission, error) {
	var rows []submissionRow
	err := s.db.NewSelect().Model(&rows).Order("submitted_at DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	submissions := make([]domain.Submission, 0, len(rows))
	for _, row := range rows {
		submissions = append(submissions, row.toDomain())
	}
	return submissions, nil
}

func (s *SubmissionStore) ExistsForParticipant(ctx context.Context, id domain.ParticipantID) (bool, error) {
	exists, err := s.db.NewSelect().Model((*submissionRow)(nil)).Where("s.participant_id = ?", id.String()).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("submission exists check: %w", err)
	}
	return exists, nil
}

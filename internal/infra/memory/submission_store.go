package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-registration-service/internal/domain"
)

// SubmissionStore is an in-memory implementation of app.SubmissionStore.
type SubmissionStore struct {
	mu          sync.RWMutex
	submissions []domain.Submission
	clock       func() time.Time
}

func NewSubmissionStore() *SubmissionStore {
	return NewSubmissionStoreWithClock(time.Now)
}

// NewSubmissionStoreWithClock allows deterministic timestamps in tests.
func NewSubmissionStoreWithClock(now func() time.Time) *SubmissionStore {
	return &SubmissionStore{clock: now}
}

func (s *SubmissionStore) Create(_ context.Context, participantRef string, answers map[string]string) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]string, len(answers))
	for k, v := range answers {
		copied[k] = v
	}
	sub := domain.Submission{
		ID:             uuid.NewString(),
		ParticipantRef: participantRef,
		Answers:        copied,
		SubmittedAt:    s.clock(),
	}
	s.submissions = append(s.submissions, sub)
	return sub, nil
}

func (s *SubmissionStore) ListAll(_ context.Context) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Walk insertion order backwards so equal timestamps still come out
	// newest-insert-first after the stable sort.
	out := make([]domain.Submission, 0, len(s.submissions))
	for i := len(s.submissions) - 1; i >= 0; i-- {
		out = append(out, s.submissions[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

func (s *SubmissionStore) ExistsForParticipant(_ context.Context, id domain.ParticipantID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.ParticipantRef == id.String() {
			return true, nil
		}
	}
	return false, nil
}

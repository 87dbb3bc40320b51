package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"quiz-registration-service/internal/domain"
)

// ParticipantStore is an in-memory implementation of app.ParticipantStore.
type ParticipantStore struct {
	mu           sync.RWMutex
	participants map[domain.ParticipantID]domain.Participant
	clock        func() time.Time
}

func NewParticipantStore() *ParticipantStore {
	return NewParticipantStoreWithClock(time.Now)
}

// NewParticipantStoreWithClock allows deterministic timestamps in tests.
func NewParticipantStoreWithClock(now func() time.Time) *ParticipantStore {
	return &ParticipantStore{
		participants: make(map[domain.ParticipantID]domain.Participant),
		clock:        now,
	}
}

func (s *ParticipantStore) Create(_ context.Context, reg domain.Registration) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant := domain.Participant{
		ID:            domain.NewParticipantID(),
		Name:          reg.Name,
		Qualification: reg.Qualification,
		Email:         strings.ToLower(reg.Email),
		Phone:         reg.Phone,
		CollegeName:   reg.CollegeName,
		State:         reg.State,
		City:          reg.City,
		Pincode:       reg.Pincode,
		CreatedAt:     s.clock(),
	}
	s.participants[participant.ID] = participant
	return participant, nil
}

func (s *ParticipantStore) GetByID(_ context.Context, id domain.ParticipantID) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return participant, nil
}

func (s *ParticipantStore) GetByEmail(_ context.Context, email string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(email)
	for _, participant := range s.participants {
		if participant.Email == needle {
			return participant, nil
		}
	}
	return domain.Participant{}, domain.ErrParticipantNotFound
}

func (s *ParticipantStore) ListByEmail(_ context.Context, email string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(email)
	var matches []domain.Participant
	for _, participant := range s.participants {
		if participant.Email == needle {
			matches = append(matches, participant)
		}
	}
	return matches, nil
}

func (s *ParticipantStore) ListByPhone(_ context.Context, phone string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []domain.Participant
	for _, participant := range s.participants {
		if participant.Phone == phone {
			matches = append(matches, participant)
		}
	}
	return matches, nil
}

func (s *ParticipantStore) GetByIDs(_ context.Context, ids []domain.ParticipantID) (map[domain.ParticipantID]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[domain.ParticipantID]domain.Participant, len(ids))
	for _, id := range ids {
		if participant, ok := s.participants[id]; ok {
			found[id] = participant
		}
	}
	return found, nil
}

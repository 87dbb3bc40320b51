package app

import (
	"context"

	"go.uber.org/zap"

	"quiz-registration-service/internal/domain"
	"quiz-registration-service/internal/validate"
)

// ParticipantStore abstracts how participant records are persisted (in-memory, Postgres, etc).
type ParticipantStore interface {
	Create(ctx context.Context, reg domain.Registration) (domain.Participant, error)
	GetByID(ctx context.Context, id domain.ParticipantID) (domain.Participant, error)
	GetByEmail(ctx context.Context, email string) (domain.Participant, error)
	// ListByEmail returns every participant stored under the lowercased email.
	// Uniqueness is not enforced at the storage layer, so there may be several.
	ListByEmail(ctx context.Context, email string) ([]domain.Participant, error)
	ListByPhone(ctx context.Context, phone string) ([]domain.Participant, error)
	// GetByIDs resolves many participants in a single query.
	GetByIDs(ctx context.Context, ids []domain.ParticipantID) (map[domain.ParticipantID]domain.Participant, error)
}

// SubmissionStore abstracts how submissions are persisted.
type SubmissionStore interface {
	Create(ctx context.Context, participantRef string, answers map[string]string) (domain.Submission, error)
	// ListAll returns every submission, newest first.
	ListAll(ctx context.Context) ([]domain.Submission, error)
	ExistsForParticipant(ctx context.Context, id domain.ParticipantID) (bool, error)
}

// QuestionnaireRepository loads questionnaire content (from cache/backing store).
type QuestionnaireRepository interface {
	GetQuestionnaire(ctx context.Context, id string) (domain.Questionnaire, error)
}

// RegistrationService contains the registration, submission and admin-listing
// use cases.
type RegistrationService struct {
	participants    ParticipantStore
	submissions     SubmissionStore
	questionnaires  QuestionnaireRepository
	validator       *validate.Validator
	feed            *SubmissionFeed
	logger          *zap.Logger
	questionnaireID string
}

func NewRegistrationService(
	participants ParticipantStore,
	submissions SubmissionStore,
	questionnaires QuestionnaireRepository,
	validator *validate.Validator,
	feed *SubmissionFeed,
	logger *zap.Logger,
	questionnaireID string,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		participants:    participants,
		submissions:     submissions,
		questionnaires:  questionnaires,
		validator:       validator,
		feed:            feed,
		logger:          logger,
		questionnaireID: questionnaireID,
	}
}

// Register validates the payload, runs the duplicate guard and creates the
// participant. The guard-then-insert sequence is not atomic; two concurrent
// registrations with the same identity can both succeed.
func (s *RegistrationService) Register(ctx context.Context, reg domain.Registration) (domain.Participant, error) {
	if err := s.validator.Registration(reg); err != nil {
		return domain.Participant{}, err
	}
	if submitted, reason := s.HasSubmitted(ctx, reg.Email, reg.Phone); submitted {
		return domain.Participant{}, &domain.DuplicateSubmissionError{Reason: reason}
	}
	return s.participants.Create(ctx, reg)
}

// HasSubmitted is the duplicate guard: it reports whether any participant
// sharing the given email (case-insensitive) or phone already has a recorded
// submission. It fails open: a lookup error is logged and reported as "not
// submitted" so an infrastructure hiccup never blocks a legitimate
// registration.
func (s *RegistrationService) HasSubmitted(ctx context.Context, email, phone string) (bool, string) {
	byEmail, err := s.participants.ListByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("duplicate check by email failed, allowing registration", zap.Error(err))
		return false, ""
	}
	for _, p := range byEmail {
		exists, err := s.submissions.ExistsForParticipant(ctx, p.ID)
		if err != nil {
			s.logger.Warn("duplicate check lookup failed, allowing registration", zap.Error(err))
			return false, ""
		}
		if exists {
			return true, "email"
		}
	}

	if phone == "" {
		return false, ""
	}
	byPhone, err := s.participants.ListByPhone(ctx, phone)
	if err != nil {
		s.logger.Warn("duplicate check by phone failed, allowing registration", zap.Error(err))
		return false, ""
	}
	for _, p := range byPhone {
		exists, err := s.submissions.ExistsForParticipant(ctx, p.ID)
		if err != nil {
			s.logger.Warn("duplicate check lookup failed, allowing registration", zap.Error(err))
			return false, ""
		}
		if exists {
			return true, "phone"
		}
	}
	return false, ""
}

// GetParticipant looks up a participant by its raw identifier. Malformed
// identifiers are treated as not-found, not as errors.
func (s *RegistrationService) GetParticipant(ctx context.Context, raw string) (domain.Participant, error) {
	id, err := domain.ParseParticipantID(raw)
	if err != nil {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return s.participants.GetByID(ctx, id)
}

// SubmitAnswers validates and stores a submission, then publishes it to the
// live feed when the participant reference resolves.
func (s *RegistrationService) SubmitAnswers(ctx context.Context, draft domain.SubmissionDraft) (domain.Submission, error) {
	if err := s.validator.Submission(draft); err != nil {
		return domain.Submission{}, err
	}
	sub, err := s.submissions.Create(ctx, draft.ParticipantRef, draft.Answers)
	if err != nil {
		return domain.Submission{}, err
	}
	s.publish(ctx, sub)
	return sub, nil
}

func (s *RegistrationService) publish(ctx context.Context, sub domain.Submission) {
	if s.feed == nil {
		return
	}
	id, err := domain.ParseParticipantID(sub.ParticipantRef)
	if err != nil {
		return
	}
	participant, err := s.participants.GetByID(ctx, id)
	if err != nil {
		return
	}
	s.feed.Publish(domain.SubmissionWithParticipant{Submission: sub, Participant: participant})
}

// ListSubmissions joins every submission to its participant for the admin
// listing. Participants are fetched in exactly one batched query regardless of
// submission count; submissions whose reference is malformed or does not
// resolve are dropped from the result.
func (s *RegistrationService) ListSubmissions(ctx context.Context) ([]domain.SubmissionWithParticipant, error) {
	subs, err := s.submissions.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.ParticipantID]struct{}, len(subs))
	ids := make([]domain.ParticipantID, 0, len(subs))
	for _, sub := range subs {
		id, err := domain.ParseParticipantID(sub.ParticipantRef)
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	results := make([]domain.SubmissionWithParticipant, 0, len(subs))
	if len(ids) == 0 {
		return results, nil
	}

	byID, err := s.participants.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		id, err := domain.ParseParticipantID(sub.ParticipantRef)
		if err != nil {
			continue
		}
		participant, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, domain.SubmissionWithParticipant{Submission: sub, Participant: participant})
	}
	return results, nil
}

// Questionnaire returns the fixed question set served to quiz clients.
func (s *RegistrationService) Questionnaire(ctx context.Context) (domain.Questionnaire, error) {
	return s.questionnaires.GetQuestionnaire(ctx, s.questionnaireID)
}

package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-registration-service/internal/domain"
)

// QuestionnaireLoader fetches questionnaire content from a backing store.
type QuestionnaireLoader interface {
	LoadQuestionnaire(ctx context.Context, id string) (domain.Questionnaire, error)
}

// QuestionnaireRepository caches questionnaires with TTL to avoid repeated DB hits.
type QuestionnaireRepository struct {
	loader QuestionnaireLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestionnaire
}

type cachedQuestionnaire struct {
	questionnaire domain.Questionnaire
	expiresAt     time.Time
}

func NewQuestionnaireRepository(loader QuestionnaireLoader, ttl time.Duration) *QuestionnaireRepository {
	return &QuestionnaireRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestionnaire),
	}
}

func (r *QuestionnaireRepository) GetQuestionnaire(ctx context.Context, id string) (domain.Questionnaire, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questionnaire, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questionnaire, nil
		}
		r.mu.RUnlock()

		questionnaire, err := r.loader.LoadQuestionnaire(ctx, id)
		if err != nil {
			return domain.Questionnaire{}, err
		}

		r.mu.Lock()
		r.cache[id] = cachedQuestionnaire{
			questionnaire: questionnaire,
			expiresAt:     now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questionnaire, nil
	})
	if err != nil {
		return domain.Questionnaire{}, err
	}
	return result.(domain.Questionnaire), nil
}

func (r *QuestionnaireRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionnaireLoader is a simple loader backed by an in-memory map
// (useful for tests and for running without Postgres).
type StaticQuestionnaireLoader struct {
	questionnaires map[string]domain.Questionnaire
}

func NewStaticQuestionnaireLoader(questionnaires map[string]domain.Questionnaire) *StaticQuestionnaireLoader {
	return &StaticQuestionnaireLoader{questionnaires: questionnaires}
}

func (l *StaticQuestionnaireLoader) LoadQuestionnaire(_ context.Context, id string) (domain.Questionnaire, error) {
	if questionnaire, ok := l.questionnaires[id]; ok {
		return questionnaire, nil
	}
	return domain.Questionnaire{}, domain.ErrQuestionnaireNotFound
}

package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-registration-service/internal/domain"
)

// QuestionnaireLoader fetches questionnaire content from a backing store.
type QuestionnaireLoader interface {
	LoadQuestionnaire(ctx context.Context, id string) (domain.Questionnaire, error)
}

// QuestionnaireRepository caches the questionnaire document in Redis and
// falls back to a loader on cache miss. The whole document is stored as JSON:
// SET questionnaire:{id} {json} EX {ttl}
type QuestionnaireRepository struct {
	client *redis.Client
	loader QuestionnaireLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionnaireRepository(client *redis.Client, loader QuestionnaireLoader, ttl time.Duration) *QuestionnaireRepository {
	return &QuestionnaireRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionnaireRepository) GetQuestionnaire(ctx context.Context, id string) (domain.Questionnaire, error) {
	key := r.key(id)

	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		if questionnaire, ok := decode(raw); ok {
			return questionnaire, nil
		}
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := r.client.Get(ctx, key).Bytes()
		if err == nil {
			if questionnaire, ok := decode(raw); ok {
				return questionnaire, nil
			}
		}

		questionnaire, err := r.loader.LoadQuestionnaire(ctx, id)
		if err != nil {
			return domain.Questionnaire{}, err
		}

		if data, err := json.Marshal(questionnaire); err == nil {
			// best-effort cache fill
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return questionnaire, nil
	})
	if err != nil {
		return domain.Questionnaire{}, err
	}
	return result.(domain.Questionnaire), nil
}

func (r *QuestionnaireRepository) key(id string) string {
	return "questionnaire:" + id
}

func decode(raw []byte) (domain.Questionnaire, bool) {
	var questionnaire domain.Questionnaire
	if err := json.Unmarshal(raw, &questionnaire); err != nil {
		return domain.Questionnaire{}, false
	}
	return questionnaire, true
}

func (r *QuestionnaireRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-registration-service/internal/domain"
)

// QuestionnaireLoader loads questionnaire JSONB from Postgres.
type QuestionnaireLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionnaireLoader(pool *pgxpool.Pool) *QuestionnaireLoader {
	return &QuestionnaireLoader{pool: pool}
}

func (l *QuestionnaireLoader) LoadQuestionnaire(ctx context.Context, id string) (domain.Questionnaire, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM questionnaires WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Questionnaire{}, domain.ErrQuestionnaireNotFound
	}
	if err != nil {
		return domain.Questionnaire{}, fmt.Errorf("load questionnaire: %w", err)
	}
	var questionnaire domain.Questionnaire
	if err := json.Unmarshal(raw, &questionnaire); err != nil {
		return domain.Questionnaire{}, fmt.Errorf("unmarshal questionnaire: %w", err)
	}
	questionnaire.ID = id
	return questionnaire, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"quiz-registration-service/internal/domain"
)

type participantRow struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID            string    `bun:"id,pk"`
	Name          string    `bun:"name"`
	Qualification string    `bun:"qualification"`
	Email         string    `bun:"email"`
	Phone         string    `bun:"phone"`
	CollegeName   string    `bun:"college_name"`
	State         string    `bun:"state"`
	City          string    `bun:"city"`
	Pincode       string    `bun:"pincode"`
	CreatedAt     time.Time `bun:"created_at"`
}

func (r participantRow) toDomain() domain.Participant {
	return domain.Participant{
		ID:            domain.ParticipantID(r.ID),
		Name:          r.Name,
		Qualification: r.Qualification,
		Email:         r.Email,
		Phone:         r.Phone,
		CollegeName:   r.CollegeName,
		State:         r.State,
		City:          r.City,
		Pincode:       r.Pincode,
		CreatedAt:     r.CreatedAt,
	}
}

// ParticipantStore persists participants in Postgres via bun.
type ParticipantStore struct {
	db *bun.DB
}

func NewParticipantStore(db *bun.DB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

func (s *ParticipantStore) Create(ctx context.Context, reg domain.Registration) (domain.Participant, error) {
	row := participantRow{
		ID:            domain.NewParticipantID().String(),
		Name:          reg.Name,
		Qualification: reg.Qualification,
		Email:         strings.ToLower(reg.Email),
		Phone:         reg.Phone,
		CollegeName:   reg.CollegeName,
		State:         reg.State,
		City:          reg.City,
		Pincode:       reg.Pincode,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.Participant{}, fmt.Errorf("insert participant: %w", err)
	}
	return row.toDomain(), nil
}

func (s *ParticipantStore) GetByID(ctx context.Context, id domain.ParticipantID) (domain.Participant, error) {
	var row participantRow
	err := s.db.NewSelect().Model(&row).Where("p.id = ?", id.String()).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("select participant: %w", err)
	}
	return row.toDomain(), nil
}

func (s *ParticipantStore) GetByEmail(ctx context.Context, email string) (domain.Participant, error) {
	var row participantRow
	err := s.db.NewSelect().Model(&row).Where("p.email = ?", strings.ToLower(email)).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("select participant by email: %w", err)
	}
	return row.toDomain(), nil
}

func (s *ParticipantStore) ListByEmail(ctx context.Context, email string) ([]domain.Participant, error) {
	var rows []participantRow
	err := s.db.NewSelect().Model(&rows).Where("p.email = ?", strings.ToLower(email)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants by email: %w", err)
	}
	return toDomainSlice(rows), nil
}

func (s *ParticipantStore) ListByPhone(ctx context.Context, phone string) ([]domain.Participant, error) {
	var rows []participantRow
	err := s.db.NewSelect().Model(&rows).Where("p.phone = ?", phone).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants by phone: %w", err)
	}
	return toDomainSlice(rows), nil
}

func (s *ParticipantStore) GetByIDs(ctx context.Context, ids []domain.ParticipantID) (map[domain.ParticipantID]domain.Participant, error) {
	if len(ids) == 0 {
		return map[domain.ParticipantID]domain.Participant{}, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	var rows []participantRow
	err := s.db.NewSelect().Model(&rows).Where("p.id IN (?)", bun.In(raw)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("batch select participants: %w", err)
	}
	found := make(map[domain.ParticipantID]domain.Participant, len(rows))
	for _, row := range rows {
		found[domain.ParticipantID(row.ID)] = row.toDomain()
	}
	return found, nil
}

func toDomainSlice(rows []participantRow) []domain.Participant {
	participants := make([]domain.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, row.toDomain())
	}
	return participants
}

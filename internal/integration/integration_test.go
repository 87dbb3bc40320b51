package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-registration-service/internal/app"
	"quiz-registration-service/internal/domain"
	pginfra "quiz-registration-service/internal/infra/postgres"
	pgmigrations "quiz-registration-service/internal/infra/postgres/migrations"
	redisinfra "quiz-registration-service/internal/infra/redis"
	"quiz-registration-service/internal/validate"
)

func TestRegistrationEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	bunDB := openBun(pgURL)
	defer bunDB.Close()
	migrateAndSeed(t, ctx, bunDB, sampleQuestionnaire())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	participants := pginfra.NewParticipantStore(bunDB)
	submissions := pginfra.NewSubmissionStore(bunDB)
	loader := pginfra.NewQuestionnaireLoader(pool)
	questionnaires := redisinfra.NewQuestionnaireRepository(redisClient, loader, 5*time.Minute)
	service := app.NewRegistrationService(
		participants, submissions, questionnaires,
		validate.New(), app.NewSubmissionFeed(), nil, "default",
	)

	// Questionnaire round trip through postgres and the redis cache.
	questionnaire, err := service.Questionnaire(ctx)
	if err != nil {
		t.Fatalf("questionnaire: %v", err)
	}
	if len(questionnaire.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questionnaire.Questions))
	}

	// Register, submit, and verify the duplicate guard across real storage.
	created, err := service.Register(ctx, domain.Registration{
		Name:          "Dr. A",
		Qualification: "MBBS",
		Email:         "A@gmail.com",
		Phone:         "9876543210",
		State:         "MH",
		City:          "Pune",
		Pincode:       "411001",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.Email != "a@gmail.com" {
		t.Fatalf("expected lowercased email, got %q", created.Email)
	}

	fetched, err := service.GetParticipant(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if fetched.Phone != created.Phone || fetched.Pincode != created.Pincode {
		t.Fatalf("round trip mismatch: %+v vs %+v", fetched, created)
	}

	if _, err := service.SubmitAnswers(ctx, domain.SubmissionDraft{
		ParticipantRef: created.ID.String(),
		Answers:        map[string]string{"1": "Rarely (less than 10%)", "2": "Compliance"},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = service.Register(ctx, domain.Registration{
		Name:          "Dr. A",
		Qualification: "MBBS",
		Email:         "a@GMAIL.com",
		Phone:         "9000000000",
		State:         "MH",
		City:          "Pune",
		Pincode:       "411001",
	})
	var dup *domain.DuplicateSubmissionError
	if !errors.As(err, &dup) || dup.Reason != "email" {
		t.Fatalf("expected email duplicate rejection, got %v", err)
	}

	results, err := service.ListSubmissions(ctx)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one aggregated row, got %d", len(results))
	}
	if results[0].Participant.ID != created.ID {
		t.Fatalf("expected joined participant, got %+v", results[0].Participant)
	}
	if results[0].Answers["2"] != "Compliance" {
		t.Fatalf("unexpected answers: %+v", results[0].Answers)
	}
}

func openBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func migrateAndSeed(t *testing.T, ctx context.Context, db *bun.DB, questionnaire domain.Questionnaire) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(questionnaire)
	if err != nil {
		t.Fatalf("marshal questionnaire: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO questionnaires (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
		questionnaire.ID, string(data)); err != nil {
		t.Fatalf("insert questionnaire: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

func sampleQuestionnaire() domain.Questionnaire {
	return domain.Questionnaire{
		ID: "default",
		Questions: []domain.Question{
			{
				ID:   1,
				Text: "How often do you encounter patients with persistent reflux symptoms despite management therapy?",
				Type: "mcq",
				Options: []string{
					"Rarely (less than 10%)",
					"Occasionally (10–25%)",
					"Frequently (25–50%)",
					"Very often (>50%)",
				},
			},
			{
				ID:   2,
				Text: "What challenges have you faced with PPI-based H. pylori treatment?",
				Type: "text",
			},
		},
	}
}

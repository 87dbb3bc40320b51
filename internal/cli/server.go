package cli

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"quiz-registration-service/internal/app"
	"quiz-registration-service/internal/config"
	"quiz-registration-service/internal/domain"
	"quiz-registration-service/internal/infra/memory"
	pginfra "quiz-registration-service/internal/infra/postgres"
	redisinfra "quiz-registration-service/internal/infra/redis"
	"quiz-registration-service/internal/logging"
	transport "quiz-registration-service/internal/transport/http"
	"quiz-registration-service/internal/validate"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the registration server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Server.Mode)
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var bunDB *bun.DB
	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()

		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var participants app.ParticipantStore = memory.NewParticipantStore()
	var submissions app.SubmissionStore = memory.NewSubmissionStore()
	if bunDB != nil {
		participants = pginfra.NewParticipantStore(bunDB)
		submissions = pginfra.NewSubmissionStore(bunDB)
	}

	var loader memory.QuestionnaireLoader = memory.NewStaticQuestionnaireLoader(map[string]domain.Questionnaire{
		cfg.Questionnaire.ID: sampleQuestionnaire(cfg.Questionnaire.ID),
	})
	if pool != nil {
		loader = pginfra.NewQuestionnaireLoader(pool)
	}

	questionnaireTTL := config.TTLDuration(cfg.Questionnaire.TTL, 10*time.Minute)
	var questionnaires app.QuestionnaireRepository
	if redisClient != nil {
		questionnaires = redisinfra.NewQuestionnaireRepository(redisClient, loader, questionnaireTTL)
	} else {
		questionnaires = memory.NewQuestionnaireRepository(loader, questionnaireTTL)
	}

	feed := app.NewSubmissionFeed()
	service := app.NewRegistrationService(
		participants, submissions, questionnaires,
		validate.New(), feed, logger, cfg.Questionnaire.ID,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(service, logger).Register(mux)
	mux.HandleFunc("/ws/submissions", transport.NewFeedHandler(feed, logger).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting registration service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestionnaire provides a minimal question set for running without
// Postgres; production deployments load the questionnaire from the database.
func sampleQuestionnaire(id string) domain.Questionnaire {
	return domain.Questionnaire{
		ID: id,
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
				Text: "Have you prescribed Vonoprazan or any P-CAB in your practice?",
				Type: "mcq",
				Options: []string{
					"Yes, regularly",
					"Yes, occasionally",
					"Tried in few selected cases",
					"Not yet, but aware of it",
				},
			},
			{
				ID:   3,
				Text: "What challenges have you faced with PPI-based H. pylori treatment?",
				Type: "text",
			},
		},
	}
}

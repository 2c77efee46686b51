package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"onepercent-quiz-service/internal/app"
	"onepercent-quiz-service/internal/config"
	"onepercent-quiz-service/internal/domain"
	"onepercent-quiz-service/internal/grader"
	"onepercent-quiz-service/internal/infra/memory"
	pgloader "onepercent-quiz-service/internal/infra/postgres"
	infraredis "onepercent-quiz-service/internal/infra/redis"
	transport "onepercent-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	setupLogging(cfg)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := resolvePort(portFlag, cfg.Server.Port)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	static := memory.NewStaticEpisodeLoader(sampleEpisodes())
	var loader memory.EpisodeLoader = static
	var catalog app.CatalogReader = static
	if pool != nil {
		loader = pgloader.NewEpisodeLoader(pool)
		catalog = pgloader.NewCatalogReader(pool)
	}

	episodeTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var episodes app.EpisodeRepository
	if redisClient != nil {
		episodes = infraredis.NewEpisodeRepository(redisClient, loader, episodeTTL)
	} else {
		episodes = memory.NewEpisodeRepository(loader, episodeTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = infraredis.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	checker, err := grader.New(ctx, grader.Config{
		Provider:     cfg.Grader.Provider,
		BaseURL:      cfg.Grader.BaseURL,
		Endpoint:     cfg.Grader.Endpoint,
		Model:        cfg.Grader.Model,
		APIKey:       cfg.Grader.APIKey,
		RetryBackoff: config.TTLDuration(cfg.Grader.RetryBackoff, grader.DefaultRetryBackoff),
		Timeout:      config.TTLDuration(cfg.Grader.Timeout, grader.DefaultTimeout),
	})
	if err != nil {
		return err
	}
	defer checker.Close()

	service := app.NewQuizService(store, episodes, app.NewEvaluator(checker),
		app.WithQuestionSeconds(cfg.Quiz.QuestionSeconds), app.WithCatalog(catalog))
	wsHandler := transport.NewWSHandler(service,
		transport.WithTickInterval(config.TTLDuration(cfg.Quiz.TickInterval, time.Second)))
	apiHandler := transport.NewAPIHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Bool("grader", checker.Enabled()).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// resolvePort prefers the flag (or $PORT), then the config file, then 8080.
func resolvePort(flag, configured string) string {
	if flag != "" {
		return flag
	}
	if configured != "" {
		return configured
	}
	return "8080"
}

// sampleEpisodes serves a small demo episode when no database is configured.
func sampleEpisodes() []domain.Episode {
	rank := func(n int) *int { return &n }
	return []domain.Episode{
		{
			ID:          "demo-uk-1-1",
			Key:         domain.EpisodeKey{Country: "uk", Season: 1, Episode: 1},
			Title:       "Demo",
			CountryName: "United Kingdom",
			Questions: []domain.Question{
				{
					ID:          "q1",
					Text:        "What is 2 + 2?",
					Difficulty:  domain.DifficultyNinety,
					Explanation: "Two pairs make four.",
					OrderInShow: rank(1),
					Active:      true,
					Answers: []domain.Answer{
						{ID: "q1a", Text: "3", OrderIndex: 0},
						{ID: "q1b", Text: "4", Correct: true, OrderIndex: 1},
						{ID: "q1c", Text: "5", OrderIndex: 2},
					},
				},
				{
					ID:          "q2",
					Text:        "How many sides does a triangle have?",
					Difficulty:  domain.DifficultyEighty,
					OrderInShow: rank(2),
					Active:      true,
					Answers: []domain.Answer{
						{ID: "q2a", Text: "3", Correct: true, OrderIndex: 0},
						{ID: "q2b", Text: "4", OrderIndex: 1},
						{ID: "q2c", Text: "6", OrderIndex: 2},
					},
				},
				{
					ID:          "q3",
					Text:        "Which month has 28 days?",
					Difficulty:  domain.DifficultyFifty,
					Explanation: "Every month has at least 28 days.",
					OrderInShow: rank(3),
					Active:      true,
					Answers: []domain.Answer{
						{ID: "q3a", Text: "February", OrderIndex: 0},
						{ID: "q3b", Text: "All of them", Correct: true, OrderIndex: 1},
						{ID: "q3c", Text: "None", OrderIndex: 2},
					},
				},
				{
					ID:          "q4",
					Text:        "What comes after five?",
					Difficulty:  domain.DifficultyOne,
					Explanation: "Counting upwards from one.",
					OrderInShow: rank(4),
					Active:      true,
					Answers:     []domain.Answer{{ID: "q4a", Text: "six", Correct: true}},
				},
			},
		},
	}
}

package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizlit-live/internal/app"
	"quizlit-live/internal/config"
	"quizlit-live/internal/domain"
	"quizlit-live/internal/infra/memory"
	pgloader "quizlit-live/internal/infra/postgres"
	redisinfra "quizlit-live/internal/infra/redis"
	transport "quizlit-live/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live session engine",
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
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 4*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionStore
	var ledger app.AnswerLedger
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
		ledger = redisinfra.NewAnswerLedger(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
		ledger = memory.NewAnswerLedger()
	}

	engine := app.NewEngine(store, quizRepo, ledger, app.Options{
		CodeLength:         cfg.Session.CodeLength,
		CodeAlphabet:       cfg.Session.CodeAlphabet,
		MaxSessionsPerHost: cfg.Session.MaxPerHost,
	})
	wsHandler := transport.NewWSHandler(engine)
	sessionHandler := transport.NewSessionHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/sessions", sessionHandler.CreateSession)
	mux.HandleFunc("/results", sessionHandler.Results)
	mux.HandleFunc("/ws/host", wsHandler.ServeHost)
	mux.HandleFunc("/ws/join", wsHandler.ServeParticipant)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizlit engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes seeds a demo catalog when no postgres is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: map[domain.AnswerLabel]string{
						domain.LabelA: "3",
						domain.LabelB: "4",
						domain.LabelC: "5",
						domain.LabelD: "22",
					},
					Correct:    domain.LabelB,
					OrderIndex: 0,
				},
				{
					ID:     "q2",
					Prompt: "Which planet is closest to the sun?",
					Options: map[domain.AnswerLabel]string{
						domain.LabelA: "Venus",
						domain.LabelB: "Earth",
						domain.LabelC: "Mercury",
						domain.LabelD: "Mars",
					},
					Correct:    domain.LabelC,
					OrderIndex: 1,
				},
			},
		},
	}
}

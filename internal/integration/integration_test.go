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

	"quizlit-live/internal/app"
	"quizlit-live/internal/domain"
	pgloader "quizlit-live/internal/infra/postgres"
	pgmigrations "quizlit-live/internal/infra/postgres/migrations"
	redisinfra "quizlit-live/internal/infra/redis"
)

func TestLiveSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewQuizLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizRepo := redisinfra.NewQuizRepository(redisClient, loader, 5*time.Minute)
	store := redisinfra.NewSessionStore(redisClient, 5*time.Minute)
	ledger := redisinfra.NewAnswerLedger(redisClient, 5*time.Minute)
	engine := app.NewEngine(store, quizRepo, ledger, app.Options{MaxSessionsPerHost: 5})

	session, err := engine.CreateSession(ctx, "quiz-1", "host-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Status != domain.StatusWaiting {
		t.Fatalf("expected waiting session, got %s", session.Status)
	}

	if _, err := engine.JoinSession(ctx, strings.ToLower(session.Code), "Al"); err != nil {
		t.Fatalf("join: %v", err)
	}

	snapshots, cancel, err := engine.Subscribe(ctx, session.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-snapshots // initial waiting snapshot

	if _, err := engine.StartSession(ctx, session.ID, "host-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := <-snapshots
	if snap.Status != domain.StatusActive || snap.QuestionID != "q1" {
		t.Fatalf("expected active q1 snapshot, got %+v", snap)
	}

	if _, _, err := engine.SubmitAnswer(ctx, session.ID, "q1", "Al", "A"); err != nil {
		t.Fatalf("Al q1: %v", err)
	}
	if _, _, err := engine.SubmitAnswer(ctx, session.ID, "q1", "Bo", "B"); err != nil {
		t.Fatalf("Bo q1: %v", err)
	}

	if _, err := engine.AdvanceQuestion(ctx, session.ID, "host-1"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Al's repeat answer for q1 is stale once q2 is current.
	if _, _, err := engine.SubmitAnswer(ctx, session.ID, "q1", "Al", "B"); !errors.Is(err, domain.ErrStaleQuestion) {
		t.Fatalf("expected stale question, got %v", err)
	}
	if _, _, err := engine.SubmitAnswer(ctx, session.ID, "q2", "Al", "C"); err != nil {
		t.Fatalf("Al q2: %v", err)
	}

	if _, err := engine.EndSession(ctx, session.ID, "host-1"); err != nil {
		t.Fatalf("end: %v", err)
	}

	results, err := engine.Results(ctx, session.ID, "host-1")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.ParticipantCount != 2 || results.AverageScore != 50 || results.OverallAccuracy != 67 {
		t.Fatalf("unexpected session stats: %+v", results)
	}
	if results.PerQuestion[0].TotalResponses != 2 || results.PerQuestion[0].CorrectPercent != 50 {
		t.Fatalf("unexpected q1 stats: %+v", results.PerQuestion[0])
	}
	if results.PerQuestion[1].TotalResponses != 1 || results.PerQuestion[1].CorrectPercent != 100 {
		t.Fatalf("unexpected q2 stats: %+v", results.PerQuestion[1])
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quizlit", "POSTGRES_PASSWORD": "quizlitpass", "POSTGRES_DB": "quizlitdb"},
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
	dsn := fmt.Sprintf("postgres://quizlit:quizlitpass@%s:%s/quizlitdb?sslmode=disable", host, port.Port())
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

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Two questions",
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "Pick B",
				Options: map[domain.AnswerLabel]string{
					domain.LabelA: "no", domain.LabelB: "yes", domain.LabelC: "no", domain.LabelD: "no",
				},
				Correct:    domain.LabelB,
				OrderIndex: 0,
			},
			{
				ID:     "q2",
				Prompt: "Pick C",
				Options: map[domain.AnswerLabel]string{
					domain.LabelA: "no", domain.LabelB: "no", domain.LabelC: "yes", domain.LabelD: "no",
				},
				Correct:    domain.LabelC,
				OrderIndex: 1,
			},
		},
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

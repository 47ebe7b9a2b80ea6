package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/app/storetest"
	"trivia-board-service/internal/domain"
	"trivia-board-service/internal/infra/postgres"
	infraredis "trivia-board-service/internal/infra/redis"
)

func TestPostgresStoreContract(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	pool := migrateAndConnect(t, ctx, pgURL)

	storetest.Run(t, func(t *testing.T) app.Store {
		truncate(t, ctx, pool)
		return postgres.NewStore(pool)
	})
}

func TestResolveEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	pool := migrateAndConnect(t, ctx, pgURL)
	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := infraredis.NewCachedStore(postgres.NewStore(pool), redisClient, 5*time.Minute, nil)
	service := app.NewGameService(store)

	if _, err := service.Seed(ctx, app.SeedData{
		Topics: []app.SeedTopic{{
			Name: "Geography",
			Icon: "🌍",
			Questions: []app.SeedQuestion{
				{Points: 200, Question: "Capital of France?", Answer: "Paris"},
				{Points: 200, Question: "Longest river?", Answer: "Nile"},
			},
		}},
		Teams: []string{"Reds", "Blues"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	topics, err := service.ListTopics(ctx)
	if err != nil || len(topics) != 1 {
		t.Fatalf("list topics: %v %+v", err, topics)
	}
	teams, err := service.ListTeams(ctx)
	if err != nil || len(teams) != 2 {
		t.Fatalf("list teams: %v %+v", err, teams)
	}
	reds := teams[0]

	turn := app.NewTurn()
	turn.ChooseTeam(reds.ID)
	prompt, err := service.SelectQuestion(ctx, turn, topics[0].ID, 200)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if prompt.Question != "Capital of France?" {
		t.Fatalf("expected lowest id question, got %q", prompt.Question)
	}

	res, err := service.Resolve(ctx, turn, domain.OutcomeCorrect)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Team == nil || res.Team.Score != 200 {
		t.Fatalf("expected Reds at 200, got %+v", res.Team)
	}

	// the cached question list must reflect the used flag after commit
	questions, err := service.ListQuestions(ctx, &topics[0].ID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if !questions[0].Used || questions[1].Used {
		t.Fatalf("expected only first question used, got %+v", questions)
	}

	if _, err := service.ResolveQuestion(ctx, &reds.ID, prompt.ID, domain.OutcomeCorrect); !domain.IsConflict(err) {
		t.Fatalf("expected conflict resolving twice, got %v", err)
	}
	team, err := service.GetTeam(ctx, reds.ID)
	if err != nil || team.Score != 200 {
		t.Fatalf("score must be unchanged after conflict: %v %+v", err, team)
	}

	if err := service.ResetGame(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	board, err := service.Board(ctx)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if board[0].Tiers[0].Remaining != 2 {
		t.Fatalf("expected both questions available after reset, got %+v", board[0].Tiers[0])
	}
}

func migrateAndConnect(t *testing.T, ctx context.Context, dsn string) *pgxpool.Pool {
	t.Helper()
	if _, err := postgres.Migrate(ctx, dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func truncate(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE questions, topics, teams RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "trivia"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/trivia?sslmode=disable", host, port.Port())
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
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

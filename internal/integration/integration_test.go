package integration

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"quizboard/internal/domain"
	"quizboard/internal/infra/postgres"
	pgmigrations "quizboard/internal/infra/postgres/migrations"
	infraredis "quizboard/internal/infra/redis"
)

// Two service instances share Postgres and Redis: a quiz created through one
// reaches a subscriber of the other.
func TestQuizFansOutAcrossInstances(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	reader := newInstance(t, ctx, pgURL, redisURL)
	writer := newInstance(t, ctx, pgURL, redisURL)
	namespace := domain.CollectionPath("integration-app")

	snapshots, cancel, err := reader.Subscribe(ctx, namespace)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := nextSnapshot(t, snapshots)
	if initial.Err != nil || len(initial.Quizzes) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}

	id, err := writer.Create(ctx, namespace, sampleQuiz())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := writer.Create(ctx, domain.CollectionPath("other-app"), sampleQuiz()); err != nil {
		t.Fatalf("create other namespace: %v", err)
	}

	update := nextSnapshot(t, snapshots)
	if update.Err != nil || len(update.Quizzes) != 1 {
		t.Fatalf("expected one quiz, got %+v", update)
	}
	got := update.Quizzes[0]
	if got.ID != id || got.Title != "Sums" || got.CreatedBy != "author-1" {
		t.Fatalf("unexpected quiz %+v", got)
	}
	if got.Questions[0].CorrectIndex() != 1 || got.Questions[0].AnswerOptions[1].Rationale != "Two pairs." {
		t.Fatalf("question not stored intact: %+v", got.Questions[0])
	}

	listed, err := reader.List(ctx, namespace)
	if err != nil || len(listed) != 1 {
		t.Fatalf("list: %+v (%v)", listed, err)
	}
}

func newInstance(t *testing.T, ctx context.Context, pgURL, redisURL string) *postgres.Collection {
	t.Helper()
	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	return postgres.NewCollection(pool,
		infraredis.NewNotifier(redisClient),
		infraredis.NewSnapshotCache(redisClient, time.Minute),
		log,
	)
}

func nextSnapshot(t *testing.T, ch <-chan domain.Snapshot) domain.Snapshot {
	t.Helper()
	select {
	case snapshot, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed")
		}
		return snapshot
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return domain.Snapshot{}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	endpoint, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		// postgres restarts once after initdb
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432/tcp")
	return fmt.Sprintf("postgres://quiz:quizpass@%s/quizdb?sslmode=disable", endpoint), cleanup
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	endpoint, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}, "6379/tcp")
	return "redis://" + endpoint, cleanup
}

// startContainer runs req and returns host:port for the exposed port.
func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest, exposed nat.Port) (string, func()) {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	cleanup := func() { _ = container.Terminate(ctx) }

	endpoint, err := container.PortEndpoint(ctx, exposed, "")
	if err != nil {
		cleanup()
		t.Fatalf("%s endpoint: %v", req.Image, err)
	}
	return endpoint, cleanup
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
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
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Title:     "Sums",
		CreatedBy: "author-1",
		CreatedAt: time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC),
		Questions: []domain.Question{
			{
				Question: "What is 2 + 2?",
				AnswerOptions: []domain.AnswerOption{
					{Text: "3"},
					{Text: "4", IsCorrect: true, Rationale: "Two pairs."},
					{Text: "5"},
					{Text: "22"},
				},
			},
		},
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
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

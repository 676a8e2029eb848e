package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"quizboard/internal/app"
	"quizboard/internal/config"
	"quizboard/internal/domain"
	"quizboard/internal/identity"
	"quizboard/internal/infra/memory"
	"quizboard/internal/infra/postgres"
	redisinfra "quizboard/internal/infra/redis"
	transport "quizboard/internal/transport/http"
)

const (
	defaultPort        = "8080"
	defaultSessionTTL  = 30 * 24 * time.Hour
	defaultSnapshotTTL = 10 * time.Minute
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz board server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	log := config.Logger()
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = defaultPort
	}

	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.close()

	tokens, err := identity.NewTokenIssuer([]byte(cfg.Backend.Auth.Secret), cfg.Backend.Auth.Issuer)
	if err != nil {
		return err
	}
	identitySvc := identity.NewService(tokens, backend.sessions, log)

	namespace := domain.CollectionPath(cfg.App.ID)
	wsHandler := transport.NewWSHandler(identitySvc, backend.collection, transport.WSOptions{
		Namespace:    namespace,
		InitialToken: cfg.App.InitialAuthToken,
		SuccessDelay: config.TTLDuration(cfg.Notice.SuccessDelay, app.DefaultSuccessDelay),
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(wsHandler, log),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": finalPort, "namespace": namespace}).Info("starting quiz board")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// backend is the storage selected by the config: Postgres documents when a
// database is configured, Redis for sessions and change fan-out when an address
// is set, memory otherwise.
type backend struct {
	collection app.QuizCollection
	sessions   identity.SessionStore
	closers    []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, log *logrus.Logger) (*backend, error) {
	b := &backend{}
	sessionTTL := config.TTLDuration(cfg.Backend.Auth.SessionTTL, defaultSessionTTL)
	snapshotTTL := config.TTLDuration(cfg.Backend.Snapshot.TTL, defaultSnapshotTTL)

	var redisClient *redis.Client
	if cfg.Backend.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Backend.Redis.Addr,
			Password: cfg.Backend.Redis.Password,
			DB:       cfg.Backend.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			b.close()
			return nil, err
		}
		b.sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		b.sessions = memory.NewSessionStore(sessionTTL)
	}

	if cfg.Backend.Postgres.URL == "" {
		log.Warn("no postgres url configured, quizzes are kept in memory")
		b.collection = memory.NewCollection()
		return b, nil
	}

	if err := runMigrations(ctx, cfg.Backend.Postgres.URL); err != nil {
		b.close()
		return nil, err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Backend.Postgres.URL)
	if err != nil {
		b.close()
		return nil, err
	}
	b.closers = append(b.closers, pool.Close)

	var (
		notifier postgres.Notifier      = memory.NewNotifier()
		cache    postgres.SnapshotCache = memory.NewSnapshotCache(snapshotTTL)
	)
	if redisClient != nil {
		notifier = redisinfra.NewNotifier(redisClient)
		cache = redisinfra.NewSnapshotCache(redisClient, snapshotTTL)
	}
	b.collection = postgres.NewCollection(pool, notifier, cache, log)
	return b, nil
}

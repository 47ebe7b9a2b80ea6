package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/config"
	"trivia-board-service/internal/infra/memory"
	"trivia-board-service/internal/infra/postgres"
	rediscache "trivia-board-service/internal/infra/redis"
	"trivia-board-service/internal/infra/sqlite"
	"trivia-board-service/internal/logging"
	"trivia-board-service/internal/metrics"
	transport "trivia-board-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the trivia board server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, seedPath)
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML seed file to load before serving")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag, seedPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	m := metrics.New()
	store, cleanup, err := openStoreWithMetrics(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer cleanup()

	service := app.NewGameService(store,
		app.WithRules(gameRules(cfg)),
		app.WithLogger(log),
		app.WithResolutionObserver(m.ObserveResolution),
	)

	if seedPath != "" {
		if _, err := seedFromFile(ctx, service, seedPath); err != nil {
			return err
		}
	}
	if _, err := service.Standings(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      transport.NewRouter(transport.NewHandler(service, log), m, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Server.Port, "storage": cfg.Storage.Driver}).Info("starting trivia board")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func gameRules(cfg config.Config) app.Rules {
	rules := app.DefaultRules()
	if len(cfg.Game.PointTiers) > 0 {
		rules.PointTiers = cfg.Game.PointTiers
	}
	rules.MaxQuestionsPerTier = cfg.Game.MaxQuestionsPerTier
	rules.IncorrectPenalty = cfg.Game.IncorrectPenalty
	return rules
}

func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (app.Store, func(), error) {
	return openStoreWithMetrics(ctx, cfg, log, nil)
}

// openStoreWithMetrics selects the configured backend and fronts it with the
// Redis board cache when an address is set.
func openStoreWithMetrics(ctx context.Context, cfg config.Config, log logrus.FieldLogger, m *metrics.Metrics) (app.Store, func(), error) {
	var (
		store    app.Store
		closers  []func()
		closeAll = func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	)

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := runMigrations(ctx, cfg, log); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if m != nil {
			m.RegisterPoolStats(func() metrics.PoolStats {
				stat := pool.Stat()
				return metrics.PoolStats{Total: stat.TotalConns(), Idle: stat.IdleConns(), Acquired: stat.AcquiredConns()}
			})
		}
		store = postgres.NewStore(pool)
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		store = db
	default:
		store = memory.NewStore()
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable; board cache will fall back to storage")
		}
		closers = append(closers, func() { _ = client.Close() })
		store = rediscache.NewCachedStore(store, client, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute), log)
	}
	return store, closeAll, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-tracker/internal/api/http"
	"github.com/spec-kit/ticket-tracker/internal/api/http/handlers"
	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/observability"
	"github.com/spec-kit/ticket-tracker/internal/persistence"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	"github.com/spec-kit/ticket-tracker/internal/service"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, observability.ServiceFields(cfg.App)...)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(contextOrBackground(parent))
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redisClient := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redisClient.Close()

	metrics := observability.NewMetrics()
	checks := make([]handlers.DependencyCheck, 0, 2)

	var store repository.Store
	if pool := pg.PoolHandle(); pool != nil {
		store = repository.NewPostgresStore(pool)
		checks = append(checks, handlers.DependencyCheck{Name: "postgres", Check: pg.Ping})
	} else {
		store = repository.NewMemoryStore()
	}

	var denylist auth.Denylist
	if redisClient != nil {
		denylist = auth.NewRedisDenylist(redisClient.Client)
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Check: redisClient.Ping})
	}

	policy, err := auth.NewPolicy()
	if err != nil {
		return fmt.Errorf("build authorization policy: %w", err)
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenManager(cfg.Auth)

	authService, err := service.NewAuthService(service.AuthDependencies{
		Store:    store,
		Hasher:   hasher,
		Tokens:   tokens,
		Denylist: denylist,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("init auth service: %w", err)
	}
	userService := service.NewUserService(store, hasher, logger)
	ticketService := service.NewTicketService(store, policy, logger)
	commentService := service.NewCommentService(store, policy, logger)

	app := httptransport.NewServer(cfg.App.Name, logger, metrics, cfg.App.RequestTimeout(), httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, checks...),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Comments:       handlers.NewCommentsHandler(commentService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), denylist, logger),
		Policy:         policy,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case <-waitForShutdown(logger):
	}

	return app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		close(done)
	}()
	return done
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"ciphersql/internal/config"
	"ciphersql/internal/database"
	"ciphersql/internal/docstore"
	"ciphersql/internal/handlers"
	"ciphersql/internal/middlewares"
	"ciphersql/internal/repositories"
	"ciphersql/internal/routes"
	"ciphersql/internal/services"
)

// SetupLogger installs the default slog logger: JSON in release mode, text otherwise.
func SetupLogger() {
	var handler slog.Handler
	if gin.Mode() == gin.ReleaseMode {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}

// NewServer connects every backing store, wires the handlers and returns the
// HTTP server together with a cleanup function that releases the stores.
func NewServer(ctx context.Context, cfg *config.Config) (*http.Server, func(), error) {
	pool, err := database.Connect(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := prepareSandbox(ctx, pool, cfg.Sandbox); err != nil {
		pool.Close()
		return nil, nil, err
	}

	store, err := docstore.Open(cfg.DocStore.Path, repositories.AssignmentsBucket)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Optional hint cache
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, hints will not be cached", "addr", cfg.Redis.Addr, "error", err)
			rdb.Close()
			rdb = nil
		} else {
			slog.Info("connected to redis", "addr", cfg.Redis.Addr)
		}
	}

	cleanup := func() {
		if rdb != nil {
			rdb.Close()
		}
		if err := store.Close(); err != nil {
			slog.Error("closing docstore", "error", err)
		}
		pool.Close()
	}

	router := newRouter(cfg, pool, store, rdb)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return server, cleanup, nil
}

// prepareSandbox makes sure runs can switch to the configured sandbox role.
// Without it every run fails at set_config until the seeder has been run.
func prepareSandbox(ctx context.Context, pool *pgxpool.Pool, sandbox config.SandboxConfig) error {
	if sandbox.Role == "" {
		return nil
	}
	if err := database.EnsureSandboxRole(ctx, pool, sandbox.Role); err != nil {
		return fmt.Errorf("preparing sandbox role %s: %w", sandbox.Role, err)
	}
	return nil
}

func newRouter(cfg *config.Config, pool *pgxpool.Pool, store *docstore.Store, rdb *redis.Client) *gin.Engine {
	// Dependency injection
	assignmentRepo := repositories.NewAssignmentRepository(store)
	schemaRepo := repositories.NewSchemaRepository(pool)

	queryService := services.NewQueryService(assignmentRepo, pool, cfg.Sandbox)
	schemaService := services.NewSchemaService(assignmentRepo, schemaRepo)

	advisor := services.NewHintAdvisor(cfg.Hint, assignmentRepo)
	checks := map[string]handlers.HealthCheck{
		"postgres": pool.Ping,
		"docstore": func(context.Context) error { return assignmentRepo.Ping() },
	}
	if rdb != nil {
		redisRepo := repositories.NewRedisRepository(rdb, cfg.Redis.TTL)
		advisor = services.NewCachedAdvisor(advisor, redisRepo)
		checks["redis"] = redisRepo.Ping
	}
	slog.Info("hint advisor configured", "llm", cfg.HintsEnabled(), "cached", rdb != nil)

	router := gin.New()
	router.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		router.Use(gin.Logger())
	}
	router.Use(middlewares.CORS(), middlewares.Metrics)

	routes.RegisterRoutes(router, routes.Handlers{
		Assignments: handlers.NewAssignmentHandler(assignmentRepo),
		Queries:     handlers.NewQueryHandler(queryService, advisor),
		Schemas:     handlers.NewSchemaHandler(schemaService),
		Health:      handlers.NewHealthHandler(checks),
	})

	return router
}

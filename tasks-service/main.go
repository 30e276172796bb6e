package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chepyr/go-task-planner/internal/cache"
	"github.com/chepyr/go-task-planner/internal/config"
	"github.com/chepyr/go-task-planner/internal/db"
	"github.com/chepyr/go-task-planner/internal/handlers"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	dbConn := initDB(cfg)
	defer func() {
		if err := dbConn.Close(); err != nil {
			log.Errorf("Error closing database connection: %v", err)
		}
	}()

	rc := initRedis(cfg)
	if rc != nil {
		defer rc.Close()
	}

	handler := initHandler(cfg, dbConn, rc)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	startServer(server)
}

func initDB(cfg *config.Server) *sql.DB {
	dbConn, err := db.Connect(cfg.DBDriver, cfg.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Migrate(ctx, dbConn); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	return dbConn
}

// initRedis returns nil when no REDIS_URL is configured.
func initRedis(cfg *config.Server) *redis.Client {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, task cache disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	return redis.NewClient(opts)
}

func initHandler(cfg *config.Server, dbConn *sql.DB, rc *redis.Client) *handlers.Handler {
	logger := log.StandardLogger()

	var tasks handlers.TaskRepository = db.NewTaskRepository(dbConn)
	if rc != nil {
		tasks = cache.NewTaskCache(tasks, rc, cfg.CacheTTL, logger)
	}

	return &handlers.Handler{
		UserRepo:       db.NewUserRepository(dbConn),
		TaskRepo:       tasks,
		ProjectRepo:    db.NewProjectRepository(dbConn),
		RateLimiter:    handlers.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow),
		WSHub:          handlers.NewWSHub(logger),
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            logger,
		HealthCheck: func(ctx context.Context) error {
			if err := dbConn.PingContext(ctx); err != nil {
				return err
			}
			if rc != nil {
				return rc.Ping(ctx).Err()
			}
			return nil
		},
	}
}

func startServer(server *http.Server) {
	log.Infof("Starting tasks server on %s", server.Addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Info("Server stopped")
}

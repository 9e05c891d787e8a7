package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/redditflow/configs"
	"github.com/maheshrc27/redditflow/internal/api"
	"github.com/maheshrc27/redditflow/internal/api/handlers"
	"github.com/maheshrc27/redditflow/internal/database"
	job "github.com/maheshrc27/redditflow/internal/jobs"
	"github.com/maheshrc27/redditflow/internal/media"
	"github.com/maheshrc27/redditflow/internal/queue"
	"github.com/maheshrc27/redditflow/internal/ratelimit"
	"github.com/maheshrc27/redditflow/internal/reddit"
	"github.com/maheshrc27/redditflow/internal/repository"
	"github.com/maheshrc27/redditflow/internal/service"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}

	cfg := config.LoadConfig()
	setupLogger(cfg.LogLevel)

	if err := database.RunMigrations(cfg.PostgresURI); err != nil {
		fatal("failed to run migrations", err)
	}

	db, err := database.Open(cfg.PostgresURI)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer closeDB(db)

	redisOpts, err := redisOptions(cfg.RedisURI)
	if err != nil {
		fatal("invalid REDIS_URI", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	asynqConn := asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Username: redisOpts.Username,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}
	asynqClient := asynq.NewClient(asynqConn)
	defer asynqClient.Close()

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(ratelimit.DefaultLimits())
	if cfg.RateLimitBackend == "redis" {
		limiter = ratelimit.NewRedisLimiter(rdb, ratelimit.DefaultLimits())
	}

	uploader := newUploader(*cfg)
	redditClient := reddit.NewClient(cfg.Reddit, cfg.HTTPTimeout, reddit.WithLimiter(limiter))

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	postRepo := repository.NewPostRepository(db)
	postTargetRepo := repository.NewPostTargetRepository(db)
	postDestinationRepo := repository.NewPostDestinationRepository(db)

	enqueuer := queue.NewEnqueuer(asynqClient)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	tokenService := service.NewTokenService(*cfg, accountRepo, redditClient)
	platformService := service.NewPlatformService(*cfg, accountRepo, redditClient)
	redditService := service.NewRedditService(accountRepo, tokenService, redditClient, limiter)
	postService := service.NewPostService(db, postRepo, postTargetRepo, postDestinationRepo, accountRepo, tokenService, redditClient, enqueuer)
	scheduledService := service.NewScheduledPostService(*cfg, postRepo, postDestinationRepo, postService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("unhandled request error", "path", c.Path(), "error", err)
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	api.RegisterRoutes(app, *cfg, api.Handlers{
		Auth:     handlers.NewAuthHandler(*cfg, authService),
		User:     handlers.NewUserHandler(userService),
		Platform: handlers.NewPlatformHandler(platformService, *cfg),
		Post:     handlers.NewPostHandler(postService, uploader),
		Reddit:   handlers.NewRedditHandler(redditService),
		Cron:     handlers.NewCronHandler(scheduledService),
	})

	// cron jobs
	scheduler, err := job.NewScheduler(*cfg,
		job.NewTokenRefreshJob(tokenService),
		job.NewScheduledPublishJob(scheduledService))
	if err != nil {
		fatal("invalid job schedule", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// queue
	worker := queue.NewWorker(scheduledService)
	asynqServer := asynq.NewServer(asynqConn, asynq.Config{
		Concurrency: 10,
	})
	go func() {
		slog.Info("starting the asynq server")
		if err := asynqServer.Run(worker.Mux()); err != nil {
			fatal("could not start asynq server", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			fatal("failed to start server", err)
		}
	}()
	slog.Info("server is running", "port", cfg.Port)

	gracefulShutdown(app, asynqServer)
}

func setupLogger(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l})))
}

func redisOptions(uri string) (*redis.Options, error) {
	if strings.Contains(uri, "://") {
		return redis.ParseURL(uri)
	}
	return &redis.Options{Addr: uri}, nil
}

func newUploader(cfg config.Config) media.Uploader {
	var providers []media.Provider
	if cfg.R2.AccountID != "" && cfg.R2.BucketName != "" {
		r2, err := media.NewR2Provider(context.Background(), cfg.R2)
		if err != nil {
			slog.Error("r2 media provider disabled", "error", err)
		} else {
			providers = append(providers, r2)
		}
	}
	if cfg.ImageHost.ClientID != "" {
		providers = append(providers, media.NewImageHostProvider(cfg.ImageHost, cfg.HTTPTimeout))
	}
	if len(providers) == 0 {
		slog.Warn("no media provider configured, posts go out without media")
	}
	return media.NewUploader(providers...)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, asynqServer *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	asynqServer.Shutdown()
	slog.Info("server shutdown complete")
}

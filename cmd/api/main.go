package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Harshita0007/DropLater/internal/config"
	"github.com/Harshita0007/DropLater/internal/delivery"
	"github.com/Harshita0007/DropLater/internal/handler"
	"github.com/Harshita0007/DropLater/internal/infra/postgresql"
	"github.com/Harshita0007/DropLater/internal/infra/postgresql/migrations"
	infraredis "github.com/Harshita0007/DropLater/internal/infra/redis"
	"github.com/Harshita0007/DropLater/internal/observability"
	"github.com/Harshita0007/DropLater/internal/queue"
	"github.com/Harshita0007/DropLater/internal/repository"
	"github.com/Harshita0007/DropLater/internal/service"
	"github.com/Harshita0007/DropLater/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	guard, err := infraredis.NewRedisGuard(rdb)
	if err != nil {
		logger.Fatal("dispatch guard initialization failed", zap.Error(err))
	}

	noteRepo := repository.NewGormNoteRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)

	publisher := queue.NewRabbitMQPublisher(rabbit)
	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.WorkerConcurrency, logger)

	executor := delivery.NewWebhookExecutor(cfg.DeliveryTimeout())
	retryPolicy := delivery.NewRetryPolicy(cfg.RetryBaseDelay(), cfg.RetryMultiplier, cfg.MaxAttempts)

	metrics := observability.NewMetrics()

	noteService, err := service.NewNoteService(noteRepo, attemptRepo, publisher, guard, cfg.MaxAttempts, logger)
	if err != nil {
		logger.Fatal("note service initialization failed", zap.Error(err))
	}
	noteService.SetMetrics(metrics)

	scheduler, err := service.NewScheduler(noteRepo, publisher, cfg.SchedulerInterval(), cfg.SchedulerBatchLimit, logger)
	if err != nil {
		logger.Fatal("scheduler initialization failed", zap.Error(err))
	}

	retryScanner, err := service.NewRetryScanner(noteRepo, publisher, cfg.SchedulerInterval(), cfg.SchedulerBatchLimit, logger)
	if err != nil {
		logger.Fatal("retry scanner initialization failed", zap.Error(err))
	}

	worker, err := service.NewWorkerService(
		noteRepo,
		attemptRepo,
		consumer,
		executor,
		guard,
		retryPolicy,
		cfg.DeliveryTimeout(),
		cfg.WorkerConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("worker initialization failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		if requestID, ok := c.Locals("requestid").(string); ok && requestID != "" {
			c.SetUserContext(observability.WithCorrelationID(c.UserContext(), requestID))
		}
		return c.Next()
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterNoteRoutes(app.Group("/api"), noteService); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api listening", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("api server stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down api")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	g.Go(func() error {
		logger.Info("scheduler started", zap.Duration("interval", cfg.SchedulerInterval()))
		return scheduler.Start(groupCtx)
	})

	g.Go(func() error {
		logger.Info("retry scanner started", zap.Duration("interval", cfg.SchedulerInterval()))
		return retryScanner.Start(groupCtx)
	})

	g.Go(func() error {
		logger.Info("worker pool started", zap.Int("concurrency", cfg.WorkerConcurrency))
		return worker.Start(groupCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("service exited with error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

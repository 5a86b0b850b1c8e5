package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/minervahome/brain/internal/assistant"
	"github.com/minervahome/brain/internal/config"
	"github.com/minervahome/brain/internal/handler"
	"github.com/minervahome/brain/internal/infra/postgresql"
	"github.com/minervahome/brain/internal/infra/postgresql/migrations"
	infraredis "github.com/minervahome/brain/internal/infra/redis"
	"github.com/minervahome/brain/internal/observability"
	"github.com/minervahome/brain/internal/probe"
	"github.com/minervahome/brain/internal/repository"
	"github.com/minervahome/brain/internal/service"
	"github.com/minervahome/brain/internal/telegram"
	"github.com/minervahome/brain/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api terminated", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}

	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	reminderRepo := repository.NewGormReminderRepo(db)
	occurrenceRepo := repository.NewGormOccurrenceRepo(db)
	outboxRepo := repository.NewGormOutboxRepo(db)
	serviceRepo := repository.NewGormServiceRepo(db)
	wordRepo := repository.NewGormWordRepo(db)
	chatRepo := repository.NewGormChatRepo(db)

	resolver := service.NewChatResolver(chatRepo)
	metrics := observability.NewMetrics()

	engine, err := service.NewReminderEngine(
		reminderRepo,
		occurrenceRepo,
		outboxRepo,
		resolver,
		time.Duration(cfg.ReminderIntervalSec)*time.Second,
		logger.Named("reminders"),
	)
	if err != nil {
		return fmt.Errorf("reminder engine init failed: %w", err)
	}
	engine.SetMetrics(metrics)

	monitor, err := service.NewMonitor(
		serviceRepo,
		outboxRepo,
		probe.NewNetProber(),
		time.Duration(cfg.MonitorIntervalSec)*time.Second,
		logger.Named("monitor"),
	)
	if err != nil {
		return fmt.Errorf("monitor init failed: %w", err)
	}
	monitor.SetMetrics(metrics)

	statusCache, err := infraredis.NewStatusCache(rdb, time.Duration(cfg.StatusCacheTTLSec)*time.Second)
	if err != nil {
		return fmt.Errorf("status cache init failed: %w", err)
	}

	statusService, err := service.NewStatusService(
		reminderRepo,
		occurrenceRepo,
		serviceRepo,
		wordRepo,
		statusCache,
		logger.Named("status"),
	)
	if err != nil {
		return fmt.Errorf("status service init failed: %w", err)
	}

	// The in-process dispatcher only runs when a bot token is configured;
	// without one, outbox events wait for external consumers on the HTTP
	// claim surface.
	var dispatcher *service.Dispatcher
	if cfg.TelegramBotToken != "" {
		sender, err := telegram.NewBotSender(cfg.TelegramBotToken)
		if err != nil {
			return fmt.Errorf("telegram sender init failed: %w", err)
		}
		rateLimiter, err := infraredis.NewSendLimiter(rdb, cfg.RateLimitPerSec)
		if err != nil {
			return fmt.Errorf("rate limiter init failed: %w", err)
		}
		dispatcher, err = service.NewDispatcher(
			outboxRepo,
			resolver,
			sender,
			rateLimiter,
			cfg.DispatcherConcurrency,
			logger.Named("dispatcher"),
		)
		if err != nil {
			return fmt.Errorf("dispatcher init failed: %w", err)
		}
		dispatcher.SetMetrics(metrics)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := registerRoutes(app, routeDeps{
		reminders:    reminderRepo,
		occurrences:  occurrenceRepo,
		outbox:       outboxRepo,
		services:     serviceRepo,
		words:        wordRepo,
		chats:        chatRepo,
		status:       statusService,
		allowCleanup: !cfg.IsProduction(),
	}); err != nil {
		return fmt.Errorf("route registration failed: %w", err)
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("reminder engine started", zap.Int("intervalSec", cfg.ReminderIntervalSec))
		return engine.Start(groupCtx)
	})
	g.Go(func() error {
		logger.Info("service monitor started", zap.Int("intervalSec", cfg.MonitorIntervalSec))
		return monitor.Start(groupCtx)
	})
	if dispatcher != nil {
		g.Go(func() error {
			logger.Info("telegram dispatcher started", zap.Int("concurrency", cfg.DispatcherConcurrency))
			return dispatcher.Start(groupCtx)
		})
	}

	g.Go(func() error {
		logger.Info("api listening", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

type routeDeps struct {
	reminders    handler.ReminderStore
	occurrences  handler.OccurrenceStore
	outbox       handler.OutboxStore
	services     handler.ServiceStore
	words        handler.WordStore
	chats        handler.ChatStore
	status       handler.StatusProvider
	allowCleanup bool
}

func registerRoutes(app *fiber.App, deps routeDeps) error {
	if err := handler.RegisterReminderRoutes(app, deps.reminders); err != nil {
		return err
	}
	if err := handler.RegisterOccurrenceRoutes(app, deps.occurrences, deps.allowCleanup); err != nil {
		return err
	}
	if err := handler.RegisterNotificationRoutes(app, deps.outbox); err != nil {
		return err
	}
	if err := handler.RegisterServiceRoutes(app, deps.services); err != nil {
		return err
	}
	if err := handler.RegisterWordRoutes(app, deps.words); err != nil {
		return err
	}
	if err := handler.RegisterTelegramRoutes(app, deps.chats); err != nil {
		return err
	}
	if err := handler.RegisterStatusRoutes(app, deps.status); err != nil {
		return err
	}
	return handler.RegisterAssistantRoutes(app, assistant.NewDummyProvider())
}

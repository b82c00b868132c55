package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"

	"github.com/example/benmarket/internal/config"
	"github.com/example/benmarket/internal/database"
	"github.com/example/benmarket/internal/events"
	"github.com/example/benmarket/internal/handlers"
	"github.com/example/benmarket/internal/loyalty"
	"github.com/example/benmarket/internal/models"
	"github.com/example/benmarket/internal/routes"
	"github.com/example/benmarket/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	service := loyalty.NewService(st, loyalty.Options{
		DefaultExpiryMonths: cfg.DefaultExpiryMonths,
		ReferralTTL:         cfg.ReferralTTL,
	})

	if cfg.ProgramFile != "" {
		if err := seedProgram(ctx, service, cfg.ProgramFile, cfg.DefaultExpiryMonths); err != nil {
			return err
		}
	}

	bus := events.NewBus(cfg.EventQueueSize, cfg.EventWorkers, loyalty.EventHandler(service))
	bus.Start(ctx)
	defer bus.Close()

	app := fiber.New(fiber.Config{
		AppName:      "Benmarket Backend",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, st, service, bus, cfg)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			slog.Error("fiber shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "port", cfg.AppPort, "store", cfg.StoreDriver)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		return fmt.Errorf("fiber.Listen: %w", err)
	}
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		return nil, err
	}
	return store.NewGormStore(db), nil
}

func seedProgram(ctx context.Context, service *loyalty.Service, path string, defaultExpiry int) error {
	seed, err := config.LoadProgramSeed(path)
	if err != nil {
		return err
	}

	rate, err := decimal.NewFromString(seed.PointsPerDollar)
	if err != nil {
		return fmt.Errorf("program seed points_per_dollar: %w", err)
	}

	program := &models.LoyaltyProgram{
		Name:                  seed.Name,
		PointsPerDollar:       rate,
		PointsForRegistration: seed.PointsForRegistration,
		PointsForReview:       seed.PointsForReview,
		PointsForReferral:     seed.PointsForReferral,
		ExpiryMonths:          seed.ExpiryMonths,
	}
	if program.ExpiryMonths == 0 {
		program.ExpiryMonths = defaultExpiry
	}
	for _, t := range seed.Tiers {
		benefits := t.Benefits
		if benefits == nil {
			benefits = []string{}
		}
		program.Tiers = append(program.Tiers, models.Tier{Name: t.Name, MinPoints: t.MinPoints, Benefits: benefits})
	}

	created, err := service.EnsureProgram(ctx, program)
	if err != nil {
		return fmt.Errorf("seed program: %w", err)
	}
	if created {
		slog.Info("seeded loyalty program", "file", path)
	}
	return nil
}

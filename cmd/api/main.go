package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-inventory-pos/internal/app"
	"go-inventory-pos/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		slog.Info(".env file not found, using process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Database, optional infrastructure and services
	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	// 3. Seed default permissions, roles and the first admin
	if err := a.SeedDefaults(ctx); err != nil {
		slog.Error("seeding failed", "err", err)
		a.Close()
		os.Exit(1)
	}

	// 4. Hub, workers and periodic jobs
	a.StartBackground(ctx)
	jobsDone := make(chan struct{})
	go func() {
		defer close(jobsDone)
		_ = a.Jobs().Run(ctx)
	}()

	// 5. Setup Fiber
	server := fiber.New(fiber.Config{
		AppName:      "Inventory POS v1.0",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	server.Use(recover.New())
	server.Use(logger.New())
	server.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))

	a.Router().Mount(server)

	// 6. Graceful Shutdown
	listenErr := make(chan error, 1)
	go func() {
		slog.Info("listening", "port", cfg.Port)
		listenErr <- server.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err := <-listenErr:
		if err != nil {
			slog.Error("server stopped", "err", err)
		}
		stop()
	}

	slog.Info("shutting down server")
	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		slog.Error("server forced to shutdown", "err", err)
	}
	<-jobsDone
	slog.Info("server exited")
}

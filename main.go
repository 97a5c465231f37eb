package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/postboard-be/internal/api"
	"github.com/isdelr/postboard-be/internal/auth"
	"github.com/isdelr/postboard-be/internal/config"
	"github.com/isdelr/postboard-be/internal/database"
	"github.com/isdelr/postboard-be/internal/logger"
	"github.com/isdelr/postboard-be/internal/monitoring"
	"github.com/isdelr/postboard-be/internal/services"
	"github.com/isdelr/postboard-be/internal/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:   "postboard",
		Usage:  "account and post board service",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:   "reset",
				Usage:  "drop and recreate the users and posts tables",
				Action: reset,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("postboard failed")
	}
}

// setup loads configuration, initializes the logger and opens the migrated store.
func setup() (*config.Config, *sqlx.DB, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.IsProduction())

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return cfg, db, nil
}

func serve(c *cli.Context) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService)
	postService := services.NewPostService(db, eventService, hub)
	maintenanceService := services.NewMaintenanceService(db, eventService)

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(eventService, cfg.EventPruneSchedule, cfg.EventRetention)
	if err != nil {
		return err
	}
	scheduler.Run()

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	router := api.NewRouter(cfg, issuer, hub, api.Services{
		Users:       userService,
		Posts:       postService,
		Events:      eventService,
		Maintenance: maintenanceService,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.EnableClearRoute {
		log.Warn().Msg("GET /clear is enabled; any caller can wipe all users and posts")
	}

	// Graceful shutdown
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	case err := <-serverErr:
		scheduler.Stop()
		hub.Stop()
		return fmt.Errorf("listen: %w", err)
	}

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
	return nil
}

func reset(c *cli.Context) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := services.NewMaintenanceService(db, services.NewEventService(db)).ResetDatabase(c.Context); err != nil {
		return err
	}
	log.Info().Str("database", cfg.DatabasePath).Msg("Database cleared")
	return nil
}

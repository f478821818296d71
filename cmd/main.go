package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Baku-1/kingdom-tournament-sub000/config"
	"github.com/Baku-1/kingdom-tournament-sub000/db"
	"github.com/Baku-1/kingdom-tournament-sub000/events"
	"github.com/Baku-1/kingdom-tournament-sub000/guard"
	"github.com/Baku-1/kingdom-tournament-sub000/handlers"
	"github.com/Baku-1/kingdom-tournament-sub000/repositories"
	api "github.com/Baku-1/kingdom-tournament-sub000/routes"
	"github.com/Baku-1/kingdom-tournament-sub000/services"
	"github.com/Baku-1/kingdom-tournament-sub000/storage"
	"github.com/Baku-1/kingdom-tournament-sub000/utils"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("banner storage not configured, uploads disabled")
	}

	hub := events.NewHub(logger)
	go hub.Run()

	tx := repositories.NewTransactor(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	ledgerRepo := repositories.NewPostgresLedgerRepository(dbConn)

	platformHash, err := utils.HashPassword(cfg.PlatformPassword)
	if err != nil {
		logger.Error("failed to hash platform password", slog.Any("error", err))
		os.Exit(1)
	}
	platform, err := userRepo.EnsurePlatformAccount(context.Background(), cfg.PlatformEmail, platformHash)
	if err != nil {
		logger.Error("failed to ensure platform account", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("platform account ready", slog.Int("user_id", platform.ID))

	locks := guard.NewKeyed()

	authService := services.NewAuthService(userRepo)
	walletService := services.NewWalletService(ledgerRepo, logger)
	tournamentService := services.NewTournamentService(
		tx, tournamentRepo, participantRepo, ledgerRepo,
		locks, hub, uploader, cfg.MinRegistrationPeriod, logger,
	)
	registrationService := services.NewRegistrationService(
		tx, tournamentRepo, participantRepo, ledgerRepo, locks, hub, logger,
	)
	rewardService := services.NewRewardService(
		tx, tournamentRepo, participantRepo, ledgerRepo, locks, hub, logger,
	)
	entryFeeService := services.NewEntryFeeService(
		tx, tournamentRepo, participantRepo, ledgerRepo, locks, hub,
		platform.ID, cfg.PlatformFeeBPS, logger,
	)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		handlers.NewTournamentHandler(tournamentService),
		handlers.NewRegistrationHandler(registrationService),
		handlers.NewRewardHandler(rewardService),
		handlers.NewEntryFeeHandler(entryFeeService),
		handlers.NewWalletHandler(walletService),
		handlers.NewWebSocketHandler(hub),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}

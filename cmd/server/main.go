package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms/internal/accounts"
	"lms/internal/api"
	"lms/internal/auth"
	"lms/internal/blob"
	"lms/internal/catalog"
	"lms/internal/config"
	"lms/internal/db"
	"lms/internal/email"
	"lms/internal/media"
	"lms/internal/objectstore"
	"lms/internal/recovery"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting server", "name", cfg.Server.Name)

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.Info("database opened", "path", cfg.Database.Path)

	userRepo := db.NewUserRepository(database)
	courseRepo := db.NewCourseRepository(database)

	var (
		store       media.Store
		blobService *blob.Service
	)
	switch cfg.Media.Backend {
	case config.MediaBackendS3:
		s3Store, err := objectstore.New(context.Background(), cfg.Media.S3, cfg.Media.MaxUploadBytes)
		if err != nil {
			slog.Error("failed to initialize s3 media store", "error", err)
			os.Exit(1)
		}
		store = s3Store
		slog.Info("s3 media store initialized", "bucket", cfg.Media.S3.Bucket, "region", cfg.Media.S3.Region)
	default:
		blobService, err = blob.NewService(cfg.Media.LocalRoot, cfg.Server.BaseURL, cfg.Media.MaxUploadBytes)
		if err != nil {
			slog.Error("failed to initialize local media store", "error", err)
			os.Exit(1)
		}
		store = blobService
		slog.Info("local media store initialized", "root", cfg.Media.LocalRoot, "upload_max_bytes", cfg.Media.MaxUploadBytes)
	}

	tempArea, err := media.NewTempArea(cfg.Media.UploadDir)
	if err != nil {
		slog.Error("failed to initialize upload directory", "error", err)
		os.Exit(1)
	}
	coordinator := media.NewCoordinator(store)

	cleanupService := db.NewCleanupService(userRepo)
	uploadCleanupService := media.NewCleanupService(tempArea)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go cleanupService.Start(cleanupCtx)
	go uploadCleanupService.Start(cleanupCtx)

	emailService := email.NewSMTPService(
		cfg.Email.SMTP.Host,
		cfg.Email.SMTP.Port,
		cfg.Email.SMTP.Username,
		cfg.Email.SMTP.Password,
		cfg.Email.SMTP.From,
	)
	slog.Info("email configured", "host", cfg.Email.SMTP.Host, "port", cfg.Email.SMTP.Port)

	sessions := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	recoveryTokens := auth.NewRecoveryTokenService(cfg.Recovery.TokenWindow, cfg.Recovery.TokenEntropyBytes)

	server, err := api.NewServer(cfg, api.Dependencies{
		Database:    database,
		Sessions:    sessions,
		Accounts:    accounts.NewService(userRepo, sessions, coordinator, cfg.Media.Folder, cfg.Media.DefaultAvatarURL),
		Recovery:    recovery.NewFlow(userRepo, recoveryTokens, emailService, cfg.Recovery.FrontendURL),
		Catalog:     catalog.NewService(courseRepo, coordinator, cfg.Media.Folder),
		Coordinator: coordinator,
		TempArea:    tempArea,
		Blobs:       blobService,
	})
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr, "base_url", cfg.Server.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")

	cleanupCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	coordinator.Wait()

	slog.Info("server stopped")
}

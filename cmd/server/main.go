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
	_ "time/tzdata"

	"github.com/TridentTech8969/ASA/internal/api"
	"github.com/TridentTech8969/ASA/internal/api/handlers"
	"github.com/TridentTech8969/ASA/internal/api/middleware"
	"github.com/TridentTech8969/ASA/internal/config"
	"github.com/TridentTech8969/ASA/internal/database"
	"github.com/TridentTech8969/ASA/internal/imap"
	"github.com/TridentTech8969/ASA/internal/logger"
	"github.com/TridentTech8969/ASA/internal/mailer"
	"github.com/TridentTech8969/ASA/internal/metrics"
	"github.com/TridentTech8969/ASA/internal/repository"
	"github.com/TridentTech8969/ASA/internal/services"
	"github.com/TridentTech8969/ASA/internal/storage"
	"github.com/TridentTech8969/ASA/internal/websocket"
	"golang.org/x/time/rate"
)

const (
	shutdownTimeout   = 15 * time.Second
	limiterSweepEvery = time.Minute
	limiterMaxIdle    = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(log)

	log.Info("starting ASA inbox server")
	cfg.LogConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, cfg.AppEnv, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("failed to close database", slog.Any("error", err))
		}
	}()
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	location := cfg.Location()
	m := metrics.NewMetrics()
	secLogger := logger.NewSecurityLogger(log)

	messages := repository.NewMessageRepository(db)
	attachments := repository.NewAttachmentRepository(db)

	cache, err := storage.NewLocalCache(cfg.AttachmentCachePath)
	if err != nil {
		return fmt.Errorf("failed to open attachment cache: %w", err)
	}

	hub := websocket.NewHub(log, m)
	go hub.Run(ctx)

	var mailbox services.MailboxReader
	var syncService *services.SyncService
	if cfg.IMAP.SyncEnabled {
		client := imap.NewClient(imap.Config{
			Address:     cfg.IMAP.Address(),
			UseSSL:      cfg.IMAP.UseSSL,
			Username:    cfg.IMAP.Username,
			Password:    cfg.IMAP.Password,
			Timeout:     cfg.IMAP.Timeout,
			GmailLabels: cfg.IMAP.GmailLabels,
			Location:    location,
		}, log)
		mailbox = client

		syncService = services.NewSyncService(client, messages, hub, m, services.SyncConfig{
			Interval:        cfg.IMAP.SyncInterval,
			MaxMessages:     cfg.IMAP.MaxMessages,
			FilterLabel:     cfg.IMAP.FilterLabel,
			DetailedLogging: cfg.IMAP.DetailedLogging,
		}, log)
		syncService.Start(ctx)
		defer syncService.Stop()
	} else {
		log.Warn("mailbox sync disabled")
	}

	var outbound mailer.Mailer = mailer.NewNopMailer(log)
	if cfg.SMTP.Enabled() {
		outbound = mailer.NewSMTPMailer(mailer.Config{
			Address:   fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port),
			UseTLS:    cfg.SMTP.UseTLS,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromEmail: cfg.SMTP.FromEmail,
			FromName:  cfg.SMTP.FromName,
		}, log, m)
	}

	emails := services.NewEmailService(messages, attachments, mailbox, cache, location, log)
	contacts := services.NewContactService(messages, outbound, hub, m, services.ContactConfig{
		AdminEmail:       cfg.Contact.AdminEmail,
		SendConfirmation: cfg.Contact.SendConfirmation,
		BusinessName:     cfg.Contact.BusinessName,
	}, location, log)

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRequests), cfg.RateLimitBurst)
	go limiter.RunCleanup(ctx, limiterSweepEvery, limiterMaxIdle)

	var syncStatus handlers.SyncStatus
	if syncService != nil {
		syncStatus = syncService
	}

	e := api.NewRouter(&api.RouterConfig{
		DB:             db,
		Emails:         emails,
		Contacts:       contacts,
		Sync:           syncStatus,
		Hub:            hub,
		Metrics:        m,
		Limiter:        limiter,
		Logger:         log,
		SecLogger:      secLogger,
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.Origins(),
		Production:     cfg.IsProduction(),
	})

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		log.Info("HTTP server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", slog.Any("error", err))
	}

	log.Info("server stopped")
	return nil
}

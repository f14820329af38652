package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mortgageflow/application"
	"mortgageflow/auth"
	"mortgageflow/config"
	"mortgageflow/db"
	"mortgageflow/logging"
	"mortgageflow/notify"
	"mortgageflow/profile"
	"mortgageflow/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, db.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		logger.Fatal("bootstrap database pool", zap.Error(err))
	}
	defer pool.Close()

	mailer, err := notify.NewSESMailer(ctx, cfg.Email.Region, cfg.Email.Sender)
	if err != nil {
		logger.Fatal("bootstrap mailer", zap.Error(err))
	}

	profileRepo := profile.NewRepository(pool)
	applicationRepo := application.NewRepository(pool)

	profileSvc := profile.NewService(profileRepo, applicationRepo)
	authSvc := auth.NewService(profileRepo, notify.PasswordResetMailer{Mailer: mailer}, cfg.Auth.JWTSecret)
	registry := application.NewRegistry(applicationRepo, profileSvc)
	stageSvc := application.NewStageService(pool, nil).WithNoopSkip(cfg.Pipeline.SkipNoopStageChanges)

	reminderSvc := notify.NewReminderService(registry, stageSvc, mailer)
	if cfg.Reminders.IncludeExpired {
		reminderSvc.WithExpiryPolicy(application.IncludeExpired)
	}

	hub := realtime.NewHub()

	server := &Server{
		authService:        authSvc,
		profileService:     profileSvc,
		applicationService: registry,
		stageService:       stageSvc,
		reminderService:    reminderSvc,
		events:             hub,
		log:                logger,
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: server.routes(),
	}

	listener := realtime.NewListener(cfg.Database.URL, func(context.Context) {
		hub.Broadcast()
	}, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return listener.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return httpServer.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}

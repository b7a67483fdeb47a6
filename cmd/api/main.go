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

	"github.com/go-tasks-api/internal/application/auth"
	"github.com/go-tasks-api/internal/application/otp"
	"github.com/go-tasks-api/internal/application/task"
	"github.com/go-tasks-api/internal/config"
	jwtinfra "github.com/go-tasks-api/internal/infrastructure/jwt"
	"github.com/go-tasks-api/internal/infrastructure/metrics"
	"github.com/go-tasks-api/internal/infrastructure/smtp"
	"github.com/go-tasks-api/internal/infrastructure/sns"
	"github.com/go-tasks-api/internal/pkg/keylock"
	"github.com/go-tasks-api/internal/pkg/logger"
	"github.com/go-tasks-api/internal/pkg/secret"
	transporthttp "github.com/go-tasks-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		log.Info("no .env file found, reading from environment")
	}
	if err := run(cfg); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.close()

	issuer, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	codec := secret.New(cfg.BcryptCost, cfg.TokenPepper)
	if err := codec.Check(); err != nil {
		return fmt.Errorf("secret codec: %w", err)
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}

	rec := metrics.New()
	locks := keylock.New()

	taskSvc := task.NewService(task.ServiceDeps{
		TaskRepo:    st.tasks,
		AccountRepo: st.accounts,
		Locks:       locks,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		AccountRepo: st.accounts,
		Ledger:      otp.NewLedger(st.otps, codec, cfg.OTPTTL),
		Codec:       codec,
		Issuer:      issuer,
		Notifier:    notifier,
		Tasks:       taskSvc,
		Locks:       locks,
		Metrics:     rec,
		IOTimeout:   cfg.IOTimeout,
		ResetTTL:    cfg.ResetTTL,
	})

	sweeper := task.NewSweeper(st.tasks, st.accounts, locks, rec, cfg.OrphanSweepEvery)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, &transporthttp.Deps{Auth: authSvc, Tasks: taskSvc, Metrics: rec.Handler()}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func newNotifier(cfg *config.Config) (auth.Notifier, error) {
	switch cfg.NotifyChannel {
	case config.NotifySNS:
		sender, err := sns.NewCodeSender(cfg)
		if err != nil {
			return nil, err
		}
		return sender, nil
	case config.NotifyLog:
		return smtp.NewCodeSender(smtp.NewLogMailer(slog.Default())), nil
	default:
		return smtp.NewCodeSender(smtp.NewMailer(cfg)), nil
	}
}

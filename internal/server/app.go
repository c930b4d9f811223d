// Package server initializes and runs the credential service: configuration,
// database, OTP backing store, token issuer, HTTP transport and graceful
// shutdown are wired together here.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/uslugio/auth/internal/logging"
	"github.com/uslugio/auth/internal/server/auth"
	"github.com/uslugio/auth/internal/server/config"
	"github.com/uslugio/auth/internal/server/httpapi"
	"github.com/uslugio/auth/internal/server/mail"
	"github.com/uslugio/auth/internal/server/otp"
	"github.com/uslugio/auth/internal/server/repositories/repomanager"
	"github.com/uslugio/auth/internal/server/services"
	"github.com/uslugio/auth/internal/server/tokens"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rm     repomanager.RepositoryManager
	http   *httpapi.Server
}

// NewApp wires every component. Configuration problems (including an empty
// signing key) surface here and prevent startup.
func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	issuer, err := auth.NewIssuer(cfg.SigningKey, cfg.Issuer, cfg.Audience, cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	var otpStore otp.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		otpStore = otp.NewRedisStore(client, cfg.OtpTTL, logger)
	} else {
		otpStore = otp.NewMemoryStore(cfg.OtpTTL, logger)
	}

	var sender mail.Sender
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		sender = &mail.LogSender{Log: logger.Warn}
	}

	tokenStore := tokens.NewStore(db, rm, cfg.RefreshTokenTTL, cfg.RevokeOnReplay, logger)
	service := services.NewCredentialService(db, rm, issuer, tokenStore, otpStore, logger)
	handler := httpapi.NewHandler(service, sender, logger)
	httpServer := httpapi.NewServer(cfg.HTTPAddr, issuer, handler, logger)

	return &App{config: cfg, logger: logger, db: db, rm: rm, http: httpServer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema and serves until the context is cancelled or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting credential service", "addr", app.config.HTTPAddr)

	app.initSignalHandler(cancelFunc)

	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	defer func() {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "closing db", "error", err)
		}
	}()

	return app.http.Run(ctx)
}

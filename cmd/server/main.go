package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"quill/app/internal/article"
	"quill/app/internal/auth"
	"quill/app/internal/category"
	"quill/app/internal/config"
	appdb "quill/app/internal/db"
	"quill/app/internal/faults"
	apphttp "quill/app/internal/http"
	applog "quill/app/internal/log"
	"quill/app/internal/user"
	"quill/app/internal/validate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	dbConn, err := appdb.Open(appdb.Options{Path: cfg.DBPath})
	if err != nil {
		return eris.Wrap(err, "opening database")
	}
	defer func() {
		if closeErr := appdb.Close(dbConn); closeErr != nil {
			logger.WithError(closeErr).Error("closing database")
		}
	}()

	if err := user.Migrate(ctx, dbConn); err != nil {
		return eris.Wrap(err, "migrating users")
	}
	if err := category.Migrate(ctx, dbConn); err != nil {
		return eris.Wrap(err, "migrating categories")
	}
	if err := article.Migrate(ctx, dbConn); err != nil {
		return eris.Wrap(err, "migrating articles")
	}

	userRepo, err := user.NewRepository(dbConn, logger)
	if err != nil {
		return eris.Wrap(err, "building user repository")
	}
	categoryRepo, err := category.NewRepository(dbConn, logger)
	if err != nil {
		return eris.Wrap(err, "building category repository")
	}
	articleRepo, err := article.NewRepository(dbConn, logger)
	if err != nil {
		return eris.Wrap(err, "building article repository")
	}

	faultManager, err := faults.NewManager(logger, sentryHub)
	if err != nil {
		return eris.Wrap(err, "building fault manager")
	}

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	tokens, err := auth.NewTokenManager(auth.TokenSettings{
		Secret: cfg.JWTSecret,
		TTL:    cfg.JWTAccessTTL,
	})
	if err != nil {
		return eris.Wrap(err, "building token manager")
	}

	userService, err := user.NewService(userRepo, hasher, tokens, logger, sentryHub)
	if err != nil {
		return eris.Wrap(err, "creating user service")
	}

	categoryService, err := category.NewService(categoryRepo, logger, sentryHub)
	if err != nil {
		return eris.Wrap(err, "creating category service")
	}

	articleService, err := article.NewService(articleRepo, categoryRepo, userRepo, validate.NewSanitizer(), logger, sentryHub)
	if err != nil {
		return eris.Wrap(err, "creating article service")
	}

	transport, err := apphttp.NewServer(apphttp.Options{
		Users:      userService,
		Articles:   articleService,
		Categories: categoryService,
		Tokens:     tokens,
		Faults:     faultManager,
		Database:   dbConn,
		Logger:     logger,
		SentryHub:  sentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			ClientTTL:         cfg.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return eris.Wrap(err, "initialising http transport")
	}

	httpServer := &stdhttp.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.ServerPort),
		Handler: transport.Handler(),
	}

	logger.WithFields(logrus.Fields{
		"addr": httpServer.Addr,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	logger.Info("http server shut down cleanly")
	return nil
}

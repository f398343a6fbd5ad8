// @title                       Trello Clone API
// @version                     1.0
// @description                 Projects, tasks, comments and notifications with JWT auth.
// @host                        localhost:8080
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/duthaho/trello-clone-sub000/internal/app"
	"github.com/duthaho/trello-clone-sub000/internal/config"
	"github.com/duthaho/trello-clone-sub000/internal/logger"

	_ "github.com/duthaho/trello-clone-sub000/docs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.App.LogLevel, cfg.App.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Infow("config loaded, connecting to postgres and redis", "env", cfg.App.Env, "version", cfg.App.Version)
	application, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatalw("app init", "error", err)
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	serveErr := make(chan error, 1)
	go func() {
		lg.Infow("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		lg.Infow("shutting down")
	case err := <-serveErr:
		if err != nil {
			lg.Errorw("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Errorw("http shutdown", "error", err)
	}
	if err := application.Close(shutdownCtx); err != nil {
		lg.Errorw("app close", "error", err)
		os.Exit(1)
	}
	lg.Infow("bye")
}

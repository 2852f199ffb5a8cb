// Command server runs the community API.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/bootstrap"
	"github.com/yogull/yogull-social-platform-sub001/internal/config"
	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/observability"
	"github.com/yogull/yogull-social-platform-sub001/internal/server"
)

// @title Ordinary People Community API
// @version 1.0
// @description Community API with profile walls, comments, likes, discussions, chat, galleries and notifications.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the identity token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "opc-api",
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{Migrate: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv, err := server.NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Verifier, rt.Blobs)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	jobCtx, stopJobs := context.WithCancel(ctx)
	if interval := cfg.ReconcileInterval(); interval > 0 {
		middleware.Logger.Info("integrity job enabled",
			slog.Duration("interval", interval), slog.Bool("repair", cfg.ReconcileRepair))
		go srv.Integrity().Run(jobCtx, interval, cfg.ReconcileRepair)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		middleware.Logger.Info("shutting down server")
		stopJobs()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			middleware.Logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			middleware.Logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
	<-done
}

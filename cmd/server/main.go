// Command main is the entry point for the SocialHub API server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialhub/internal/bootstrap"
	"socialhub/internal/config"
	"socialhub/internal/jobs"
	"socialhub/internal/observability"
	"socialhub/internal/server"
)

// @title SocialHub API
// @version 1.0
// @description Identity, follow graph, posts, stories, engagement, notifications and saved items.

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the identity provider token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "socialhub-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{
		SeedScenario: cfg.SeedScenario,
	})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	go func() {
		if err := rt.StartRealtime(ctx); err != nil {
			log.Printf("realtime wiring stopped: %v", err)
		}
	}()

	runner := jobs.NewRunner().
		Add(&jobs.StorySweeper{
			Stories:       rt.Services.Content,
			Notifications: rt.Services.Notifications,
			Retention:     time.Duration(cfg.NotificationRetentionDays) * 24 * time.Hour,
		}, cfg.StorySweepInterval).
		Add(&jobs.EdgeReconciler{Graph: rt.Services.Graph}, cfg.ReconcileInterval)
	runner.Start(ctx)

	srv := server.NewServer(rt)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		stop()
		runner.Wait()
		rt.Close(shutdownCtx)
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
	<-done
	log.Println("Server shutdown complete")
}

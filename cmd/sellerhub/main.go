// Command sellerhub runs the seller backend: Google sign-in sessions with
// rotating refresh tokens, and the seller product catalog.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/sellerhub"
	"github.com/MrEthical07/sellerhub/blob"
	"github.com/MrEthical07/sellerhub/catalog"
	"github.com/MrEthical07/sellerhub/docstore"
	"github.com/MrEthical07/sellerhub/internal/api"
	otelexport "github.com/MrEthical07/sellerhub/metrics/export/otel"
	promexport "github.com/MrEthical07/sellerhub/metrics/export/prometheus"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := loadConfig(newViper())
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Production)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("sellerhub stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(production bool) *slog.Logger {
	if production {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg appConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------- redis ----------
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		// The process still starts; /healthz reports the outage.
		logger.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "error", err)
	}

	// ---------- mongo ----------
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := docstore.Open(openCtx, cfg.MongoURI, cfg.MongoName)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Close(closeCtx)
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		return err
	}
	logger.Info("mongo connected", "database", cfg.MongoName)

	// ---------- engine ----------
	builder := sellerhub.New().
		WithConfig(cfg.Engine).
		WithRedis(rdb).
		WithSubjectStore(db.Subjects()).
		WithLogger(logger)
	if cfg.Engine.Audit.Enabled {
		builder = builder.WithAuditSink(sellerhub.NewSlogSink(logger))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()
	logger.Info("security posture", "report", engine.SecurityReport())

	// ---------- images ----------
	var images catalog.ImageStore
	if cfg.S3.Bucket != "" {
		s3, err := blob.NewS3(ctx, cfg.S3)
		if err != nil {
			return err
		}
		images = s3
	} else {
		logger.Warn("S3_BUCKET not set; product image uploads are disabled")
	}
	products := catalog.NewService(db.Products(), images)

	// ---------- metrics ----------
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = promexport.NewExporter(engine).Handler()

		exp, err := otelexport.NewExporter(otel.GetMeterProvider().Meter("sellerhub"), engine)
		if err != nil {
			return err
		}
		defer exp.Close()
	}

	// ---------- http ----------
	srv := api.New(engine, products, logger, api.Config{
		Production: cfg.Production,
		CORSOrigin: cfg.CORSOrigin,
		Metrics:    metricsHandler,
	})

	httpServer := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "production", cfg.Production)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dejobratic/payflow/internal/config"
	"github.com/dejobratic/payflow/internal/database"
	"github.com/dejobratic/payflow/internal/payments/adapters"
	httpadapter "github.com/dejobratic/payflow/internal/payments/adapters/http"
	kafkaadapter "github.com/dejobratic/payflow/internal/payments/adapters/kafka"
	memoryadapter "github.com/dejobratic/payflow/internal/payments/adapters/memory"
	paymentspostgres "github.com/dejobratic/payflow/internal/payments/adapters/postgres"
	redisadapter "github.com/dejobratic/payflow/internal/payments/adapters/redis"
	stripeadapter "github.com/dejobratic/payflow/internal/payments/adapters/stripe"
	paymentsapp "github.com/dejobratic/payflow/internal/payments/app"
	paymentsmetrics "github.com/dejobratic/payflow/internal/payments/metrics"
	"github.com/dejobratic/payflow/internal/payments/ports"
	"github.com/dejobratic/payflow/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(parseLogLevel(cfg.Telemetry.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := initTelemetry(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	if tel != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown failed", "error", err)
			}
		}()
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations completed successfully")
	}

	meter := otel.Meter("payflow")

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create database metrics", "error", err)
		os.Exit(1)
	}
	domainMetrics, err := paymentsmetrics.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create payment metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create http metrics", "error", err)
		os.Exit(1)
	}
	notifierMetrics, err := kafkaadapter.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create notifier metrics", "error", err)
		os.Exit(1)
	}

	repo := adapters.NewObservableRepository(paymentspostgres.NewRepository(pool), dbMetrics)

	provider := adapters.NewObservableProvider(
		stripeadapter.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Timeout),
		domainMetrics,
	)

	events, err := newEventStore(cfg, pool)
	if err != nil {
		logger.Error("failed to create event store", "error", err)
		os.Exit(1)
	}

	var notifier ports.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier := kafkaadapter.NewNotifier(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic, logger)
		defer func() {
			if err := kafkaNotifier.Close(); err != nil {
				logger.Error("failed to close kafka notifier", "error", err)
			}
		}()
		notifier = kafkaNotifier
	} else {
		logger.Warn("no kafka brokers configured, notifications are logged only")
		notifier = kafkaadapter.NewNoopNotifier()
	}
	notifier = adapters.NewObservableNotifier(notifier, notifierMetrics)

	service := paymentsapp.NewService(repo, provider, events, notifier, logger, domainMetrics, paymentsapp.Config{
		Currency:       cfg.Payments.Currency,
		PublishableKey: cfg.Stripe.PublishableKey,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.CheckHealth(r.Context(), pool); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	httpadapter.NewHandler(service).Register(mux)

	handler := withRecovery(withLogging(httpadapter.WithMetrics(mux, httpMetrics)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("http server stopped")
	}
}

func initTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Telemetry, error) {
	if cfg.Telemetry.OTelEndpoint == "" {
		slog.Warn("no OTLP endpoint configured, telemetry export disabled")
		return nil, nil
	}

	return telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
}

// newEventStore picks the webhook dedup backend. Postgres is the default and
// shares the transactional store; Redis trades that for cheaper writes.
func newEventStore(cfg *config.Config, pool *pgxpool.Pool) (ports.EventStore, error) {
	switch cfg.Payments.DedupStore {
	case "postgres":
		return paymentspostgres.NewEventStore(pool), nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		return redisadapter.NewEventStore(client, "payflow:events:", cfg.Redis.EventTTL), nil
	case "memory":
		return memoryadapter.NewEventStore(), nil
	default:
		return nil, fmt.Errorf("unknown dedup store %q", cfg.Payments.DedupStore)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		slog.Info("http request", "method", r.Method, "path", r.URL.Path, "status", rw.status, "duration", time.Since(start))
	})
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered", "error", rec)
				respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}


// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"recruiting-pipeline/internal/api"
	"recruiting-pipeline/internal/applicants"
	"recruiting-pipeline/internal/audit"
	"recruiting-pipeline/internal/common/camunda"
	"recruiting-pipeline/internal/common/config"
	"recruiting-pipeline/internal/common/database"
	"recruiting-pipeline/internal/common/logger"
	"recruiting-pipeline/internal/common/notion"
	"recruiting-pipeline/internal/common/observability"
	"recruiting-pipeline/internal/common/pagestore"
	"recruiting-pipeline/internal/interview"

	uas "recruiting-pipeline/internal/workers/application/update-applicant-status"
	sis "recruiting-pipeline/internal/workers/interview/submit-interview-stage"
	uiq "recruiting-pipeline/internal/workers/interview/update-interview-questions"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// jobWorker is the registration surface shared by every worker handler.
type jobWorker interface {
	Register() error
	Close()
	GetTaskType() string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting recruiting pipeline",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("store", cfg.Notion.Store),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel exporter unavailable, job metrics disabled", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	ctx := context.Background()
	var apiOpts []api.Option

	// --- Page store ---
	var store pagestore.Directory
	switch cfg.Notion.Store {
	case config.StoreMemory:
		zapLog.Warn("Using in-memory page store; data is lost on restart")
		store = pagestore.NewMemory()
	default:
		ns, err := notion.New(cfg.Notion, log)
		if err != nil {
			zapLog.Fatal("notion store init failed", zap.Error(err))
		}
		store = ns
	}

	// --- Redis count cache (optional) ---
	var countCache *applicants.CountCache
	if cfg.Database.Redis.Enabled() {
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, applicant counts will not be cached", zap.Error(err))
		} else {
			defer rc.Close()
			countCache = applicants.NewCountCache(rc.GetClient(), cfg.Cache, log)
			apiOpts = append(apiOpts, api.WithReadinessCheck("redis", rc.Ping))
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Postgres audit trail (optional) ---
	recorder := audit.NewNoop()
	if cfg.Database.Postgres.Enabled() {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		recorder = audit.NewRecorder(pg, log)
		if err := recorder.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("audit schema setup failed", zap.Error(err))
		}
		apiOpts = append(apiOpts, api.WithReadinessCheck("postgres", pg.Ping))
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Domain services ---
	codec := interview.NewCodec(log)
	engine := interview.NewEngine(store, codec, log,
		interview.WithAuditor(recorder),
		interview.WithScoreRecorder(obs),
		interview.WithTracerProvider(obs.TracerProvider()),
	)
	patcher := interview.NewPatcher(store, codec, log,
		interview.WithPatchAuditor(recorder),
		interview.WithPatchTracerProvider(obs.TracerProvider()),
	)
	directory := applicants.NewDirectory(store, codec, log,
		applicants.WithCountCache(countCache),
		applicants.WithAuditor(recorder),
	)

	// --- Zeebe workers (optional) ---
	var workers []jobWorker
	if cfg.Camunda.BrokerAddress != "" {
		var zc *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zc, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zc.Close()
		apiOpts = append(apiOpts, api.WithReadinessCheck("zeebe", zc.HealthCheck))

		workers = buildWorkers(cfg, zc, engine, patcher, directory, obs, log, zapLog)
		for _, w := range workers {
			if err := w.Register(); err != nil {
				zapLog.Fatal("worker registration failed", zap.String("taskType", w.GetTaskType()), zap.Error(err))
			}
		}
		zapLog.Info("Zeebe workers started", zap.Int("count", len(workers)))
	} else {
		zapLog.Info("camunda.broker_address not set, Zeebe workers disabled")
	}

	// --- HTTP API ---
	apiOpts = append(apiOpts, api.WithTracerProvider(obs.TracerProvider()))
	srv := api.NewServer(cfg.Server, engine, patcher, directory, log, apiOpts...).HTTPServer()
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	for _, w := range workers {
		w.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Recruiting pipeline stopped")
}

func buildWorkers(
	cfg *config.Config,
	zc *camunda.Client,
	engine *interview.Engine,
	patcher *interview.Patcher,
	directory *applicants.Directory,
	obs *observability.Observability,
	log logger.Logger,
	zapLog *zap.Logger,
) []jobWorker {
	var out []jobWorker

	submit, err := sis.NewHandler(sis.HandlerOptions{AppConfig: cfg, Camunda: zc, Engine: engine, Logger: log, Observer: obs})
	if err != nil {
		zapLog.Fatal("worker init failed", zap.String("taskType", sis.TaskType), zap.Error(err))
	}
	out = append(out, submit)

	questions, err := uiq.NewHandler(uiq.HandlerOptions{AppConfig: cfg, Camunda: zc, Patcher: patcher, Logger: log, Observer: obs})
	if err != nil {
		zapLog.Fatal("worker init failed", zap.String("taskType", uiq.TaskType), zap.Error(err))
	}
	out = append(out, questions)

	status, err := uas.NewHandler(uas.HandlerOptions{AppConfig: cfg, Camunda: zc, Directory: directory, Logger: log, Observer: obs})
	if err != nil {
		zapLog.Fatal("worker init failed", zap.String("taskType", uas.TaskType), zap.Error(err))
	}
	out = append(out, status)

	return out
}

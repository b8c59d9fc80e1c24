// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loan-matching-workers/internal/common/config"
	"loan-matching-workers/internal/common/database"
	"loan-matching-workers/internal/common/logger"
	"loan-matching-workers/internal/common/observability"
	"loan-matching-workers/internal/matching/coordinator"
	"loan-matching-workers/internal/matching/scoring"
	"loan-matching-workers/internal/matching/selector"
	"loan-matching-workers/internal/search"
	"loan-matching-workers/internal/storage"

	awsclients "loan-matching-workers/internal/common/aws"
	rmb "loan-matching-workers/internal/workers/matching/run-matching-batch"
	smn "loan-matching-workers/internal/workers/notification/send-match-notifications"
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

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (only when match mirroring is on) ---
	var matchIndexer selector.MatchIndexer
	if cfg.Matching.MatchIndexEnabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		matchIndexer = search.NewMatchIndexer(esClient.Client, cfg.Matching.MatchIndexName)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Optional score refiner ---
	var refiner scoring.Refiner
	if cfg.Matching.RefinerEnabled {
		geminiRefiner, err := scoring.NewGeminiRefiner(ctx, cfg.APIs.GenAI.APIKey, cfg.APIs.GenAI.Model)
		if err != nil {
			zapLog.Fatal("gemini refiner failed", zap.Error(err))
		}
		refiner = geminiRefiner
		zapLog.Info("Gemini score refiner enabled", zap.String("model", cfg.APIs.GenAI.Model))
	}

	// --- Matching pipeline wiring ---
	userStore := storage.NewUserStore(pg.DB)
	productStore := storage.NewProductStore(
		pg.DB, redis,
		time.Duration(cfg.Matching.CatalogCacheTTL)*time.Second,
		log,
	)
	matchStore := storage.NewMatchStore(pg.DB, log)
	logStore := storage.NewProcessingLogStore(pg.DB)

	engine := scoring.NewEngine(&scoring.Config{
		IncomeCapMultiple:     cfg.Matching.IncomeCapMultiple,
		AgeEdgeMarginYears:    cfg.Matching.AgeEdgeMarginYears,
		StrongFactorThreshold: cfg.Matching.StrongReasonThreshold,
		MaxRefinerDelta:       cfg.Matching.MaxRefinerDelta,
	}, log)

	matchSelector := selector.New(cfg.Matching.MinMatchScore, matchStore, matchIndexer, log)

	batchCoordinator := coordinator.New(coordinator.Options{
		Users:     userStore,
		Catalog:   productStore,
		LogStore:  logStore,
		Engine:    engine,
		Refiner:   refiner,
		Persister: matchSelector,
		PageSize:  cfg.Matching.PageSize,
		Logger:    log,
	})

	// --- Register workers ---
	if cfg.Workers[rmb.TaskType].Enabled {
		handler := rmb.NewHandler(
			&rmb.Config{
				Timeout: time.Duration(cfg.Workers[rmb.TaskType].Timeout) * time.Millisecond,
			},
			batchCoordinator, obs, log,
		)
		startWorker(zeebeClient, rmb.TaskType, cfg.Workers[rmb.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[smn.TaskType].Enabled {
		var emailSender smn.EmailSender
		if cfg.Notifications.Email.Enabled {
			sesClient, err := awsclients.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client failed", zap.Error(err))
			}
			emailSender = sesClient
		}

		var smsPublisher smn.SMSPublisher
		if cfg.Notifications.SMS.Enabled {
			snsClient, err := awsclients.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client failed", zap.Error(err))
			}
			smsPublisher = snsClient
		}

		handler := smn.NewHandler(
			&smn.Config{
				Timeout:      time.Duration(cfg.Workers[smn.TaskType].Timeout) * time.Millisecond,
				BatchLimit:   100,
				EmailEnabled: cfg.Notifications.Email.Enabled,
				FromEmail:    cfg.Notifications.Email.FromEmail,
				SMSEnabled:   cfg.Notifications.SMS.Enabled,
				TopicARN:     cfg.Notifications.SMS.TopicARN,
			},
			matchStore, emailSender, smsPublisher, log,
		)
		startWorker(zeebeClient, smn.TaskType, cfg.Workers[smn.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_ = shutdownCtx

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}

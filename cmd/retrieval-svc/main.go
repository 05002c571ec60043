// Package main 仓库助手证据检索服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"warehouse-assistant-api/internal/application/invalidation"
	"warehouse-assistant-api/internal/application/retrieval"
	"warehouse-assistant-api/internal/config"
	"warehouse-assistant-api/internal/domain/repository"
	"warehouse-assistant-api/internal/infrastructure/embedding"
	"warehouse-assistant-api/internal/infrastructure/messaging"
	"warehouse-assistant-api/internal/infrastructure/persistence/memory"
	"warehouse-assistant-api/internal/infrastructure/persistence/milvus"
	"warehouse-assistant-api/internal/infrastructure/persistence/postgres"
	redisstore "warehouse-assistant-api/internal/infrastructure/persistence/redis"
	"warehouse-assistant-api/internal/interfaces/http/handler"
	"warehouse-assistant-api/internal/interfaces/http/middleware"
	"warehouse-assistant-api/internal/interfaces/http/router"
	"warehouse-assistant-api/pkg/logger"
	"warehouse-assistant-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting retrieval-svc",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// PostgreSQL（必需）
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	warehouseRepo := postgres.NewWarehouseRepository(pgClient)

	// Redis（缓存 + 事件流；不可用时降级为进程内缓存，事件消费停用）
	var cache repository.CacheStore
	redisClient, err := redisstore.NewClient(&cfg.Cache.Redis)
	if err != nil {
		log.Warn("redis unavailable, falling back to in-process cache", "error", err.Error())
		cache = memory.NewCache(cfg.Cache.Types)
	} else {
		defer func() { _ = redisClient.Close() }()
		cache = redisstore.NewTypedCache(redisClient, cfg.Retrieval.Timeouts.Cache, cfg.Cache.Types)
	}

	// Milvus（可选；不可用时向量路径按降级处理）
	var milvusClient *milvus.Client
	var docIndex retrieval.DocumentIndex
	milvusClient, err = milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		log.Warn("milvus unavailable, vector path will degrade", "error", err.Error())
		milvusClient = nil
	} else {
		defer func() { _ = milvusClient.Close() }()
		milvusRepo := milvus.NewRepository(milvusClient)
		if err := milvusRepo.EnsureCollections(ctx); err != nil {
			log.Warn("failed to ensure milvus collections", "error", err.Error())
		}
		docIndex = milvus.NewDocumentIndexAdapter(milvusRepo)
	}

	embedder := embedding.NewClient(&cfg.Embedding)

	// 检索引擎装配
	sqlTTL := cacheTTL(cfg, "sql", 5*time.Minute)
	vectorTTL := cacheTTL(cfg, "vector", 10*time.Minute)

	sqlPath := retrieval.NewSQLPath(warehouseRepo, cache, cfg.Retrieval.Timeouts.SQL, sqlTTL)
	vectorPath := retrieval.NewVectorPath(
		docIndex,
		embedder,
		cache,
		cfg.Retrieval.Timeouts.Vector,
		vectorTTL,
		cfg.Retrieval.TopK,
		cfg.Vector.Milvus.AcceleratedEnabled,
	)

	engine := retrieval.NewEngine(
		retrieval.NewClassifier(),
		sqlPath,
		vectorPath,
		retrieval.NewScorer(cfg.Retrieval.Scoring.Weights, cfg.Retrieval.Scoring.FreshnessMaxAge, nil),
		retrieval.NewConfidenceAssessor(cfg.Retrieval.Confidence),
		retrieval.NewClarifier(cfg.Retrieval.MaxClarifyingQuestions),
		cache,
	)

	// 事件流：生产者 + 缓存失效消费者
	var producer *messaging.Producer
	var consumerCancel context.CancelFunc
	if redisClient != nil {
		producer = messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))

		backoff := messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		}

		hostname, _ := os.Hostname()
		worker := invalidation.NewWorker(cache)
		inventoryConsumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
			Stream:        messaging.StreamInventoryUpdate,
			Group:         messaging.ConsumerGroupInvalidator,
			ConsumerName:  hostname + "-inventory",
			BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
			ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
			RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
			Backoff:       backoff,
		})
		equipmentConsumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
			Stream:        messaging.StreamEquipmentUpdate,
			Group:         messaging.ConsumerGroupInvalidator,
			ConsumerName:  hostname + "-equipment",
			BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
			ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
			RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
			Backoff:       backoff,
		})
		worker.Register(inventoryConsumer, equipmentConsumer)

		consumerCtx, cancel := context.WithCancel(ctx)
		consumerCancel = cancel
		if err := inventoryConsumer.Start(consumerCtx); err != nil {
			logger.Fatal(ctx, "failed to start inventory consumer", err)
		}
		if err := equipmentConsumer.Start(consumerCtx); err != nil {
			logger.Fatal(ctx, "failed to start equipment consumer", err)
		}
		defer func() {
			inventoryConsumer.Stop()
			equipmentConsumer.Stop()
		}()
	}

	// HTTP 路由
	handlers := router.Handlers{
		Health:   handler.NewHealthHandler(pgClient, redisClient, milvusClient),
		Evidence: handler.NewEvidenceHandler(engine),
		Event:    handler.NewEventHandler(producer),
	}
	rateLimit := middleware.NewRateLimitMiddleware(cfg.Security.RateLimit, redisClient)
	r := router.New(cfg, handlers, rateLimit)

	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	if consumerCancel != nil {
		consumerCancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

// cacheTTL 读取某缓存类型的 TTL，缺省时使用 fallback
func cacheTTL(cfg *config.Config, typ string, fallback time.Duration) time.Duration {
	if tc, ok := cfg.Cache.Types[typ]; ok && tc.TTL > 0 {
		return tc.TTL
	}
	return fallback
}

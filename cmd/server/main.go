package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"immerse-backend/internal/config"
	"immerse-backend/internal/database"
	"immerse-backend/internal/handlers"
	"immerse-backend/internal/logger"
	"immerse-backend/internal/middleware"
	"immerse-backend/internal/models"
	"immerse-backend/internal/repository"
	"immerse-backend/internal/router"
	"immerse-backend/internal/services"
	"immerse-backend/internal/submission"
	"immerse-backend/internal/websocket"
	"immerse-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logger.Install(logger.New(cfg.Env))
	log.Println("🚀 Starting Immerse AI Backend...")
	log.Println("✓ Environment variables loaded")

	var listeners []submission.Listener
	var history *services.HistoryRecorder

	// ──── Step 2: PostgreSQL (optional, attempt history) ────
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		log.Println("✓ PostgreSQL connected")

		if err := database.RunMigrations(pool); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		log.Println("✓ Database migrations applied")

		history = services.NewHistoryRecorder(repository.NewAttemptRepo(pool))
		listeners = append(listeners, history)
	} else {
		log.Println("• DATABASE_URL not set, attempt history disabled")
	}

	// ──── Step 3: Redis (optional, pub/sub fan-out and summary cache) ────
	var pubsub *redis.Client
	var cache services.SummaryCache
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		pubsub = redisClients.PubSub
		cache = services.NewRedisSummaryCache(redisClients.Cache, cfg.SummaryCacheTTL)
		log.Println("✓ Redis connected")
	} else {
		log.Println("• REDIS_URL not set, updates delivered locally")
	}

	// ──── Step 4: Video Storage ────
	videoStore, err := services.NewVideoStore(cfg.StoragePath)
	if err != nil {
		log.Fatalf("✗ Video storage initialization failed: %v", err)
	}
	log.Printf("✓ Video storage ready at %s", cfg.StoragePath)

	// ──── Step 5: Processing Service ────
	var processor submission.ProcessingService
	switch cfg.Processor {
	case config.ProcessorGemini:
		geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer geminiService.Close()
		processor = services.NewSummarizer(geminiService, services.NewYouTubeService(), videoStore, cache)
		log.Printf("✓ Gemini processor initialized (%s)", cfg.GeminiModel)
	default:
		processor = services.NewPlaceholderProcessor(cfg.PlaceholderDelay)
		log.Printf("✓ Placeholder processor initialized (delay %s)", cfg.PlaceholderDelay)
	}

	// ──── Step 6: Start Worker Pool ────
	workerPool := worker.NewPool(cfg.WorkerCount, cfg.WorkerQueueSize)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Sessions & WebSocket Hub ────
	sessionAuth := middleware.NewSessionAuth(cfg.JWTSecret)

	var registry *submission.Registry
	wsHub := websocket.NewHub(pubsub, sessionAuth, func(id uuid.UUID) (models.ResultUpdate, error) {
		s, err := registry.Get(id)
		if err != nil {
			return models.ResultUpdate{}, err
		}
		result, token := s.Result()
		return models.ResultUpdate{SessionID: id, Token: token, Result: result}, nil
	})
	listeners = append(listeners, wsHub)

	registry = submission.NewRegistry(submission.RegistryConfig{
		Processor: processor,
		Executor:  workerPool,
		Timeout:   cfg.ProcessingTimeout,
		TTL:       cfg.SessionTTL,
		Listeners: listeners,
		OnEvict: func(s *submission.Session) {
			if err := videoStore.RemoveSession(s.ID); err != nil {
				log.Printf("failed to remove uploads for session %s: %v", s.ID, err)
			}
		},
		OnFileReleased: func(key string) {
			if err := videoStore.Remove(key); err != nil {
				log.Printf("failed to remove replaced upload %s: %v", key, err)
			}
		},
	})
	registry.Start()
	log.Printf("✓ Session registry started (ttl %s)", cfg.SessionTTL)

	// ──── Step 8: Start HTTP Server ────
	var historyLister handlers.HistoryLister
	if history != nil {
		historyLister = history
	}

	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRateLimit, time.Minute)
	sessionHandler := handlers.NewSessionHandler(registry, videoStore, historyLister, sessionAuth, cfg.MaxUploadBytes())
	contentHandler := handlers.NewContentHandler()

	r := router.New(
		sessionAuth,
		sessionHandler,
		contentHandler,
		wsHub,
		submitLimiter,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Minute, // large uploads
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)

		registry.Stop()
		workerPool.Stop()
		submitLimiter.Stop()
	}()

	log.Printf("✓ Immerse AI Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	// in-flight submissions resolve before deferred pools and clients close
	<-done
	log.Println("✓ Shutdown complete")
}

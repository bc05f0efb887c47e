package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"moodloop/internal/config"
	"moodloop/internal/crypto"
	"moodloop/internal/db"
	"moodloop/internal/handlers"
	"moodloop/internal/insights"
	"moodloop/internal/llm"
	"moodloop/internal/logging"
	mw "moodloop/internal/middleware"
	"moodloop/internal/pattern"
	"moodloop/internal/ratelimit"
	"moodloop/internal/store"
	"moodloop/internal/synth"
	"moodloop/internal/tasks"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.Environment, cfg.LogFile)
	defer func() { _ = logger.Sync() }()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	cipher, err := crypto.NewCipher(cfg.EncryptionKey, cfg.BlindIndexKey)
	if err != nil {
		logger.Fatal("bad encryption keys", zap.Error(err))
	}

	dbConn, err := sqlx.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open db", zap.Error(err))
	}
	dbConn.SetMaxOpenConns(10)
	dbConn.SetConnMaxLifetime(2 * time.Hour)
	if err = dbConn.Ping(); err != nil {
		logger.Fatal("failed to ping db", zap.Error(err))
	}
	if err := db.RunMigrations(dbConn); err != nil {
		logger.Fatal("failed migrations", zap.Error(err))
	}

	st := store.New(dbConn, cipher, logger)

	llmClient, err := llm.New(cfg.LLMAPIKey, cfg.LLMAPIEndpoint, cfg.LLMModel, cfg.LLMTimeout(), logger)
	if err != nil {
		logger.Fatal("failed to create llm client", zap.Error(err))
	}

	// Single-instance deployments use the in-process counter map; with
	// REDIS_ADDR set, quota state is shared across instances.
	var limitStore ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisClient, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		limitStore = ratelimit.NewRedisStore(redisClient)
		logger.Info("rate limiting backed by redis", zap.String("addr", cfg.RedisAddr))
	}
	limiter := ratelimit.NewLimiter(limitStore, ratelimit.DefaultLimits(), logger)

	worker := tasks.NewWorker(llmClient, st, cfg.AnalysisQueueSize, cfg.AnalysisWorkers, logger)
	patternEngine := pattern.NewEngine(st, llmClient, logger)
	synthesizer := synth.New(st, cfg.MaxContextChars, synth.DefaultOrder, logger)
	insightsSvc := insights.NewService(st, logger)

	authHandler := handlers.NewAuthHandler(st, []byte(cfg.JWTSecret))
	moodHandler := handlers.NewMoodHandler(st)
	journalHandler := handlers.NewJournalHandler(st, worker)
	statsHandler, err := handlers.NewStatsHandler(st, cfg.ReferenceTimezone)
	if err != nil {
		logger.Fatal("bad reference timezone", zap.Error(err))
	}
	patternsHandler := handlers.NewPatternsHandler(patternEngine, st)
	insightsHandler := handlers.NewInsightsHandler(insightsSvc)
	chatHandler := handlers.NewChatHandler(st, synthesizer, llmClient, logger)
	cbtHandler := handlers.NewCBTHandler(st)
	authMW := mw.NewAuthMiddleware([]byte(cfg.JWTSecret))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(mw.ZapRequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After", "X-Response-Time"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)

		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)

			pr.With(mw.RateLimit(limiter, "mood")).Post("/mood", moodHandler.Create)
			pr.Get("/mood", moodHandler.List)

			pr.With(mw.RateLimit(limiter, "journal")).Post("/journal", journalHandler.Create)
			pr.Get("/journal", journalHandler.List)

			pr.Get("/streak", statsHandler.GetStreak)
			pr.Get("/trend", statsHandler.GetTrend)

			pr.Get("/patterns", patternsHandler.List)
			pr.With(mw.RateLimit(limiter, "pattern-detection")).Post("/patterns/detect", patternsHandler.Detect)
			pr.Post("/patterns/{id}/dismiss", patternsHandler.Dismiss)

			pr.Get("/coach-insights", insightsHandler.Get)

			pr.With(mw.RateLimit(limiter, "chat")).Post("/chat", chatHandler.Post)
			pr.Get("/chat", chatHandler.History)

			pr.With(mw.RateLimit(limiter, "cbt")).Post("/cbt", cbtHandler.Create)
			pr.Get("/cbt", cbtHandler.List)
			pr.Post("/reflections", cbtHandler.CreateReflection)
			pr.Get("/reflections/latest", cbtHandler.LatestReflection)
		})
	})

	srv := &http.Server{Addr: ":" + cfg.ServerPort, Handler: r}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	worker.Close()
	logger.Info("server stopped")
}

// DevEnglish - English coaching server for developers
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/devenglish/internal/api"
	"github.com/ashureev/devenglish/internal/chat"
	"github.com/ashureev/devenglish/internal/config"
	"github.com/ashureev/devenglish/internal/curriculum"
	"github.com/ashureev/devenglish/internal/health"
	"github.com/ashureev/devenglish/internal/identity"
	"github.com/ashureev/devenglish/internal/journal"
	"github.com/ashureev/devenglish/internal/middleware"
	"github.com/ashureev/devenglish/internal/provider"
	"github.com/ashureev/devenglish/internal/quiz"
	"github.com/ashureev/devenglish/internal/realtime"
	"github.com/ashureev/devenglish/internal/sessions"
	"github.com/ashureev/devenglish/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())
	if cfg.Provider.APIKey == "" {
		slog.Warn("API_KEY is not set, content requests will fail")
	}

	// Initialize dependencies.
	var repo journal.Repository = journal.Nop{}
	if cfg.Journal.Enabled {
		sqliteRepo, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			slog.Error("Failed to initialize journal database", "error", err)
			os.Exit(1)
		}
		repo = sqliteRepo
		slog.Info("Journal database connected", "path", cfg.Journal.DBPath)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close journal", "error", closeErr)
		}
	}()

	gemini := provider.NewGeminiClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, nil)
	content := provider.NewService(gemini, provider.Options{
		LessonModel: cfg.Provider.LessonModel,
		ChatModel:   cfg.Provider.ChatModel,
		Journal:     repo,
	})

	quizzes := sessions.NewRegistry[*quiz.Session]("quiz")
	chats := sessions.NewRegistry[*chat.Session]("chat")
	defer quizzes.CloseAll()
	defer chats.CloseAll()

	// Initialize handlers.
	apiHandler := api.NewHandler(api.Deps{
		Curricula:   curriculum.NewDirectory(),
		Provider:    content,
		Quizzes:     quizzes,
		Chats:       chats,
		Journal:     repo,
		QuizOptions: quiz.Options{RevealDelay: cfg.Sessions.RevealDelay},
		MaxBodySize: cfg.MaxRequestBodySize,
	})
	chatSocket := realtime.NewChatSocket(chats, content, cfg.CORSAllowedOrigins, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	apiHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", chatSocket.ServeHTTP)

	if cfg.FrontendDir != "" {
		spa, err := web.SPAHandler(cfg.FrontendDir)
		if err != nil {
			slog.Error("Failed to load frontend", "dir", cfg.FrontendDir, "error", err)
			os.Exit(1)
		}
		r.Handle("/*", spa)
		slog.Info("Serving frontend", "dir", cfg.FrontendDir)
	}

	// Note: SSE connections require long timeouts (no WriteTimeout).
	// Provider calls carry no timeout either, so a slow reply holds the request.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start session sweeper.
	sessions.StartSweeper(ctx, sessions.SweeperConfig{
		Interval:         cfg.Sessions.SweepInterval,
		TTL:              cfg.Sessions.TTL,
		JournalRetention: cfg.Journal.Retention,
	}, repo, quizzes, chats)

	// Optional gRPC health endpoint.
	var healthSrv *health.Server
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			slog.Error("Failed to listen for gRPC health", "addr", cfg.GRPCHealthAddr, "error", err)
			os.Exit(1)
		}
		healthSrv = health.NewServer(repo, 0)
		go healthSrv.Watch(ctx)
		go func() {
			if err := healthSrv.Serve(lis); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	if healthSrv != nil {
		healthSrv.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "birdconnect/cmd/api/router/v1"
	"birdconnect/internal/config"
	"birdconnect/internal/infrastructure/realtime"
	"birdconnect/internal/observability"
	"birdconnect/internal/pkg/chat/application/task"
	"birdconnect/internal/pkg/chat/application/usecase"
	httpHandler "birdconnect/internal/pkg/chat/presentation/http"
	"birdconnect/internal/pkg/chat/presentation/middleware"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		observability.Logger().Warn(".env file not loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		observability.Logger().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	observability.Configure(os.Stdout, cfg.LogLevel)
	log := observability.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	stores, err := openStores(startCtx, cfg)
	cancel()
	if err != nil {
		log.Error("failed to open stores", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	sockets := realtime.NewRouter()
	defer sockets.Close()

	q, err := openQueue(cfg)
	if err != nil {
		log.Error("failed to set up task queue", "error", err)
		os.Exit(1)
	}
	defer q.Close()
	task.RegisterMessageSentTask(q.Server, usecase.NewListParticipantsUseCase(stores.Chats), sockets)

	workerErr := make(chan error, 1)
	go func() { workerErr <- q.Server.Run(ctx) }()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		sessions, rooms := sockets.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":   "OK",
			"store":    cfg.StoreBackend,
			"sessions": sessions,
			"rooms":    rooms,
		})
	})

	v1.RegisterRoutes(r, httpHandler.Dependencies{
		Chats:          stores.Chats,
		Users:          stores.Users,
		Publisher:      task.NewQueuePublisher(q.Client),
		Sockets:        sockets,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http server listening", "addr", srv.Addr, "store", cfg.StoreBackend, "redis", cfg.RedisURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", "error", err)
			stop()
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-workerErr:
		if err != nil {
			log.Error("task worker stopped", "error", err)
		}
		stop()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	_ = q.Server.Stop(shutdownCtx)
	log.Info("shutdown complete")
}

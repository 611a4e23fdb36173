package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fluxao-backend-go/internal/app"
	"fluxao-backend-go/internal/config"
	httpapi "fluxao-backend-go/internal/http"
	"fluxao-backend-go/internal/logging"
	"fluxao-backend-go/internal/migrations"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, cleanupLogs, err := logging.Setup(logging.Options{
		Dir:           cfg.LogDir,
		Level:         cfg.LogLevel,
		RetentionDays: cfg.LogRetentionDays,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer cleanupLogs()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer engine.Close()
	if err := migrations.Apply(ctx, engine.DB); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	if cfg.PolicyPath != "" {
		if err := engine.Policies.Watch(ctx, cfg.PolicyPath, logger.Named("policy")); err != nil {
			logger.Warn("policy hot reload disabled", zap.Error(err))
		}
	}

	go engine.Hub.Run(ctx)
	go engine.Monitor.Run(ctx)

	server := httpapi.NewServer(cfg, httpapi.Services{
		Policies:  engine.Policies,
		Validator: engine.Validator,
		Gateway:   engine.Gateway,
		Enhancer:  engine.Enhancer,
		Reports:   engine.Reports,
		Monitor:   engine.Monitor,
		Store:     engine.Store,
		Hub:       engine.Hub,
		Latency:   engine.Latency,
	}, logger.Named("http"))

	addr := ":" + cfg.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
	logger.Info("shutdown complete")
}

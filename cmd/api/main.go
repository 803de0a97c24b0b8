package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"moneyrates-service/internal/bootstrap"
	infraconfig "moneyrates-service/internal/infrastructure/config"
	httpserver "moneyrates-service/internal/infrastructure/http"
	"moneyrates-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, cleanup, err := bootstrap.NewApp(ctx)
	if err != nil {
		logger.Fatal("bootstrap", zap.Error(err))
	}
	defer cleanup()

	// Loop-back path: changes published by any instance are re-applied to
	// local storage and re-broadcast to this instance's live subscribers.
	if err := app.Bus.Subscribe(ctx, app.Cfg.UpdatesTopic, app.Consumer.Handle); err != nil {
		logger.Fatal("bus subscribe", zap.Error(err))
	}

	app.Poller.Start(ctx)
	defer app.Poller.Stop()

	srv := httpserver.NewServer(app.Items, app.Poller, app.Hub, app.DB.Ping)
	server := &http.Server{
		Addr:    ":" + app.Cfg.Port,
		Handler: httpserver.NewRouter(srv),
	}

	go func() {
		logger.Info("server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shCancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}

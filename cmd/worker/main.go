package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"moneyrates-service/internal/bootstrap"
	"moneyrates-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

// The worker runs the poll pipeline without an HTTP surface. Live clients of
// other instances still see its changes through the bus loop-back.
func main() {
	log := logx.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, cleanup, err := bootstrap.NewWorkerApp(ctx)
	if err != nil {
		log.Fatal("bootstrap", zap.Error(err))
	}
	defer cleanup()

	app.Poller.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Poller.Stop()
	log.Info("worker stopped")
}

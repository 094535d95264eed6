package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"stockkeeper/internal/app/server"
	"stockkeeper/internal/app/server/config"
	"stockkeeper/internal/utils/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, log)
	if err != nil {
		log.Error("не удалось инициализировать сервер", logger.Err(err))
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		log.Error("сервер остановлен с ошибкой", logger.Err(err))
		os.Exit(1)
	}
	log.Info("сервер остановлен")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkoyasu/chatto/pkg/config"
	"github.com/mkoyasu/chatto/pkg/service"
	"github.com/mkoyasu/chatto/pkg/utils"
)

func main() {
	cfg, cfgPath, err := config.Load()
	if err != nil {
		utils.InitLogger("info")
		utils.GetLogger().Error("Failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	utils.InitLogger(cfg.LogLevel())
	logger := utils.GetLogger()
	logger.Info("starting", "app", cfg.Title(), "config", cfgPath)

	store, err := service.NewHistoryStore(cfg.DBPath())
	if err != nil {
		logger.Error("Failed to open history database", "path", cfg.DBPath(), "error", err)
		os.Exit(1)
	}
	history := service.NewHistoryManager(store)

	catalog, err := service.NewModelService(cfg.ModelCatalogPath())
	if err != nil {
		logger.Error("Failed to load model catalog", "error", err)
		os.Exit(1)
	}
	chat := service.NewChatService(history, catalog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := NewServer(cfg, history, catalog, chat)
	if err := server.Start(ctx); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")
}

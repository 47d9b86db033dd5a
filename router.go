package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkoyasu/chatto/pkg/config"
	"github.com/mkoyasu/chatto/pkg/handler"
	"github.com/mkoyasu/chatto/pkg/service"
	"github.com/mkoyasu/chatto/pkg/utils"
)

type Server struct {
	ginEngine *gin.Engine
	logger    *slog.Logger
	cfg       *config.AppConfig
	port      int
}

func NewServer(cfg *config.AppConfig, history *service.HistoryManager, catalog *service.ModelService, chat *service.ChatService) *Server {
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())

	server := &Server{
		ginEngine: ginEngine,
		logger:    utils.GetLogger(),
		cfg:       cfg,
	}
	server.SetupRoutes(history, catalog, chat)
	return server
}

// Start binds the listener and serves in the background. Cancelling ctx
// triggers a graceful shutdown. A bind failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host(), s.cfg.Port())
	srv := &http.Server{Addr: addr, Handler: s.ginEngine}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	} else {
		s.port = s.cfg.Port()
	}
	s.logger.Info("server listening", "addr", ln.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	default:
	}
	return nil
}

func (s *Server) SetupRoutes(history *service.HistoryManager, catalog *service.ModelService, chat *service.ChatService) {
	historyHandler := handler.NewHistoryHandler(history, s.logger)
	chatHandler := handler.NewChatHandler(chat, catalog, s.logger)
	uploadHandler := handler.NewUploadHandler(s.cfg, s.logger)

	// /api
	apiGroup := s.ginEngine.Group("/api")

	// Chat turn + model catalog
	apiGroup.POST("/chat", chatHandler.Chat)
	apiGroup.GET("/models", chatHandler.Models)

	// Conversation history
	convGroup := apiGroup.Group("/conversations")
	convGroup.GET("", historyHandler.List)
	convGroup.GET(":sessionId/messages", historyHandler.Messages)
	convGroup.GET(":sessionId/export", historyHandler.Export)
	convGroup.DELETE(":sessionId", historyHandler.Delete)
	convGroup.DELETE("", historyHandler.Clear)

	apiGroup.GET("/search", historyHandler.Search)
	apiGroup.GET("/statistics", historyHandler.Statistics)

	// File upload (classify + extract)
	apiGroup.POST("/upload", uploadHandler.Upload)
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"log/slog"

	"github.com/mkoyasu/chatto/pkg/models"
	"github.com/mkoyasu/chatto/pkg/sanitize"
	"github.com/mkoyasu/chatto/pkg/service"
)

// HistoryHandler provides HTTP handlers for conversation history operations
type HistoryHandler struct {
	Svc    *service.HistoryManager
	Logger *slog.Logger
}

func NewHistoryHandler(svc *service.HistoryManager, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{Svc: svc, Logger: logger}
}

func (h *HistoryHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 100)
	conversations, err := h.Svc.ListConversations(limit)
	if err != nil {
		h.Logger.Error("Failed to list conversations", "error", err)
		c.JSON(http.StatusInternalServerError, models.Response{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.Response{Code: 200, Message: "Retrieved successfully", Data: conversations})
}

// Messages returns a session's messages with user-authored content
// sanitized for redisplay.
func (h *HistoryHandler) Messages(c *gin.Context) {
	sessionID := c.Param("sessionId")
	limit := queryInt(c, "limit", 0)

	messages, err := h.Svc.LoadSessionMessages(sessionID, limit)
	if err != nil {
		h.Logger.Error("Failed to load messages", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, models.Response{Code: 500, Message: err.Error()})
		return
	}
	for i := range messages {
		messages[i].Content = sanitize.Sanitize(messages[i].Content)
	}
	c.JSON(http.StatusOK, models.Response{Code: 200, Message: "Retrieved successfully", Data: messages})
}

func (h *HistoryHandler) Delete(c *gin.Context) {
	sessionID := c.Param("sessionId")
	deleted, err := h.Svc.DeleteConversation(sessionID)
	if err != nil {
		h.Logger.Error("Failed to delete conversation", "sessionId", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, models.Response{Code: 500, Message: err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, models.Response{Code: 404, Message: "Conversation not found"})
		return
	}
	h.Logger.Info("Conversation deleted via API", "sessionId", sessionID, "clientIP", c.ClientIP())
	c.JSON(http.StatusOK, models.Response{Code: 200, Message: "Deleted successfully"})
}

func (h *HistoryHandler) Clear(c *gin.Context) {
	if !h.Svc.ClearAllHistory() {
		c.JSON(http.StatusInternalServerError, models.Response{Code: 500, Message: "Failed to clear history"})
		return
	}
	h.Logger.Info("All history cleared via API", "clientIP", c.ClientIP())
	c.JSON(http.StatusOK, models.Response{Code: 200, Message: "Cleared successfully"})
}

func (h *HistoryHandler) Export(c *gin.Context) {
	sessionID := c.Param("sessionId")
	format := c.DefaultQuery("format", models.ExportJSON)

	out, err := h.Svc.ExportConversation(sessionID, format)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedExportFormat) {
			c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
			return
		}
		h.Logger.Error("Failed to export conversation", "sessionId", sessionID, "format", format, "error", err)
		c.JSON(http.StatusInternalServerError, models.Response{Code: 500, Message: err.Error()})
		return
	}
	if out == "" {
		c.JSON(http.StatusNotFound, models.Response{Code: 404, Message: "Conversation not found or empty"})
		return
	}

	switch format {
	case models.ExportJSON:
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(out))
	case models.ExportMarkdown:
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(out))
	default:
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(out))
	}
}

func (h *HistoryHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "Query parameter q required"})
		return
	}
	limit := queryInt(c, "limit", 50)

	results, err := h.Svc.SearchMessages(query, limit)
	if err != nil {
		h.Logger.Error("Failed to search messages", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, models.Response{Code: 500, Message: err.Error()})
		return
	}
	for i := range results {
		results[i].Content = sanitize.Sanitize(results[i].Content)
	}
	c.JSON(http.StatusOK, models.Response{Code: 200, Message: "Retrieved successfully", Data: results})
}

func (h *HistoryHandler) Statistics(c *gin.Context) {
	c.JSON(http.StatusOK, models.Response{Code: 200, Message: "Retrieved successfully", Data: h.Svc.GetStatistics()})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"log/slog"

	"github.com/mkoyasu/chatto/pkg/models"
	"github.com/mkoyasu/chatto/pkg/service"
	"github.com/mkoyasu/chatto/pkg/utils"
)

// ChatHandler provides the HTTP entrypoint for one chat turn
type ChatHandler struct {
	Svc     *service.ChatService
	Catalog *service.ModelService
	Logger  *slog.Logger
}

func NewChatHandler(svc *service.ChatService, catalog *service.ModelService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{Svc: svc, Catalog: catalog, Logger: logger}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Logger.Warn("Invalid chat request", "error", err, "clientIP", c.ClientIP())
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "Invalid request parameters: " + err.Error()})
		return
	}

	resp, err := h.Svc.Chat(c.Request.Context(), &req)
	if err != nil {
		h.Logger.Error("Chat turn failed", "model", req.Model, "error", err)
		c.JSON(http.StatusInternalServerError, models.Response{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.Response{Code: 200, Message: "OK", Data: resp})
}

// Models lists the catalog, flagging which entries have credentials
// available right now. The credential itself is never returned in the
// clear, only a masked preview.
func (h *ChatHandler) Models(c *gin.Context) {
	type modelEntry struct {
		*models.ModelConfig
		Available     bool   `json:"available"`
		APIKeyPreview string `json:"api_key_preview,omitempty"`
	}
	catalog := h.Catalog.AllModels()
	entries := make([]modelEntry, 0, len(catalog))
	for _, mc := range catalog {
		entry := modelEntry{ModelConfig: mc, Available: mc.Available()}
		if mc.APIKeyEnv != "" {
			entry.APIKeyPreview = utils.MaskSensitiveString(os.Getenv(mc.APIKeyEnv))
		}
		entries = append(entries, entry)
	}
	c.JSON(http.StatusOK, models.Response{Code: 200, Message: "Retrieved successfully", Data: entries})
}

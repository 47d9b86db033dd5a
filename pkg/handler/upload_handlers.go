package handler

import (
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"log/slog"

	"github.com/mkoyasu/chatto/pkg/config"
	"github.com/mkoyasu/chatto/pkg/fileproc"
	"github.com/mkoyasu/chatto/pkg/filetype"
	"github.com/mkoyasu/chatto/pkg/models"
	"github.com/mkoyasu/chatto/pkg/utils"
)

// UploadHandler classifies an uploaded file and extracts its content
type UploadHandler struct {
	Cfg    *config.AppConfig
	Logger *slog.Logger
}

func NewUploadHandler(cfg *config.AppConfig, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{Cfg: cfg, Logger: logger}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "File required: " + err.Error()})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.Logger.Error("Failed to open uploaded file", "file", fileHeader.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, models.Response{Code: 500, Message: err.Error()})
		return
	}
	defer f.Close()

	kind := filetype.Classify(fileHeader.Filename, f)
	if kind == filetype.KindUnknown {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "Unsupported file type"})
		return
	}

	if limit := h.sizeLimit(kind); limit > 0 && fileHeader.Size > limit {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "File too large"})
		return
	}

	result := models.UploadResult{
		FileName: fileHeader.Filename,
		Kind:     string(kind),
	}

	switch kind {
	case filetype.KindImage:
		img, description, err := fileproc.ProcessImage(fileHeader.Filename, f)
		if err != nil {
			h.Logger.Error("Failed to process image", "file", fileHeader.Filename, "error", err)
			c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
			return
		}
		result.Description = description
		result.ImageBase64 = base64.StdEncoding.EncodeToString(img.Data)
		result.ImageFormat = img.Format

	case filetype.KindPDF:
		data, err := io.ReadAll(f)
		if err != nil {
			h.Logger.Error("Failed to read uploaded pdf", "file", fileHeader.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, models.Response{Code: 500, Message: err.Error()})
			return
		}
		text := fileproc.ExtractPDFText(data)
		if text == "" {
			c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "No extractable text in PDF"})
			return
		}
		result.Text = text
		result.Preview = utils.TruncateRunes(text, h.Cfg.PDFPreviewLength())
	}

	h.Logger.Info("File uploaded", "file", fileHeader.Filename, "kind", kind, "size", fileHeader.Size)
	c.JSON(http.StatusOK, models.Response{Code: 200, Message: "Processed successfully", Data: result})
}

// sizeLimit returns the configured byte limit per kind, 0 meaning
// unlimited.
func (h *UploadHandler) sizeLimit(kind filetype.Kind) int64 {
	switch kind {
	case filetype.KindImage:
		return int64(h.Cfg.MaxImageSizeMB()) * 1024 * 1024
	case filetype.KindPDF:
		return int64(h.Cfg.MaxPDFSizeMB()) * 1024 * 1024
	default:
		return 0
	}
}

// Chat flow: persist, invoke the model, persist the reply
package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/schema"

	"github.com/mkoyasu/chatto/pkg/fileproc"
	"github.com/mkoyasu/chatto/pkg/models"
	"github.com/mkoyasu/chatto/pkg/utils"
)

// systemPrompt precedes the conversation history on every model call.
const systemPrompt = "あなたは親切で有用なAIアシスタントです。日本語で丁寧に回答してください。"

// ChatService drives one chat turn: save the user message, call the
// model with the session history, save the reply.
type ChatService struct {
	history *HistoryManager
	catalog *ModelService
	logger  *slog.Logger
}

// NewChatService wires the chat flow together.
func NewChatService(history *HistoryManager, catalog *ModelService) *ChatService {
	return &ChatService{
		history: history,
		catalog: catalog,
		logger:  utils.GetLogger(),
	}
}

// Chat runs one turn. Persistence failures are logged but never block
// the conversation; a model failure is returned to the caller.
func (s *ChatService) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	config := s.catalog.GetModelConfig(req.Model)
	if config == nil {
		return nil, fmt.Errorf("unknown model: %s", req.Model)
	}

	if req.SessionID != "" {
		s.history.SetCurrentSession(req.SessionID)
	} else if s.history.GetCurrentSession() == "" {
		s.history.StartNewSession()
	}

	image, err := decodeRequestImage(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.history.SaveUserMessage(req.Message, image, config.Name); err != nil {
		s.logger.Error("failed to persist user message", "error", err)
	}

	messages, err := s.buildModelHistory(config)
	if err != nil {
		return nil, err
	}

	chatModel, err := s.catalog.CreateChatModel(ctx, config)
	if err != nil {
		return nil, err
	}

	response, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	if _, err := s.history.SaveAssistantMessage(response.Content); err != nil {
		s.logger.Error("failed to persist assistant message", "error", err)
	}

	return &models.ChatResponse{
		SessionID: s.history.GetCurrentSession(),
		Reply:     response.Content,
		Model:     config.Name,
	}, nil
}

// buildModelHistory converts the stored session into eino messages. An
// image becomes a multimodal data-URL part only when the active model
// supports vision; otherwise the text alone is sent.
func (s *ChatService) buildModelHistory(config *models.ModelConfig) ([]*schema.Message, error) {
	stored, err := s.history.LoadSessionMessages("", 0)
	if err != nil {
		return nil, fmt.Errorf("load session history: %w", err)
	}

	messages := make([]*schema.Message, 0, len(stored)+1)
	messages = append(messages, schema.SystemMessage(systemPrompt))

	for _, msg := range stored {
		if msg.Image != nil && config.SupportsVision {
			dataURI := fmt.Sprintf("data:%s;base64,%s",
				fileproc.ImageMIMEType(msg.Image.Format),
				base64.StdEncoding.EncodeToString(msg.Image.Data))
			messages = append(messages, &schema.Message{
				Role: schema.RoleType(msg.Role),
				MultiContent: []schema.ChatMessagePart{
					{
						Type: schema.ChatMessagePartTypeText,
						Text: msg.Content,
					},
					{
						Type: schema.ChatMessagePartTypeImageURL,
						ImageURL: &schema.ChatMessageImageURL{
							URL:    dataURI,
							Detail: "auto",
						},
					},
				},
			})
			continue
		}
		messages = append(messages, &schema.Message{
			Role:    schema.RoleType(msg.Role),
			Content: msg.Content,
		})
	}
	return messages, nil
}

// decodeRequestImage turns the request's base64 payload into a decoded
// image, or nil when the request carries none.
func decodeRequestImage(req *models.ChatRequest) (*models.ChatImage, error) {
	if req.ImageBase64 == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid image payload: %w", err)
	}
	img, err := fileproc.DecodeImageBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid image payload: %w", err)
	}
	if req.ImageFormat != "" {
		img.Format = req.ImageFormat
	}
	return img, nil
}

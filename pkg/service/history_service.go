// History manager - session-scoped facade over the history store
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkoyasu/chatto/pkg/db"
	"github.com/mkoyasu/chatto/pkg/models"
	"github.com/mkoyasu/chatto/pkg/utils"
)

// ErrUnsupportedExportFormat is returned for export formats outside
// {json, text, markdown}.
var ErrUnsupportedExportFormat = errors.New("unsupported export format")

// exportTimeFormat is the timestamp rendering used by text and markdown
// exports.
const exportTimeFormat = "2006-01-02 15:04:05"

// HistoryManager layers a "current session" pointer and UI-facing
// operations over the HistoryStore. Sessions are lazy: StartNewSession
// only mints an id, the conversation row appears with the first saved
// message. Safe for concurrent use.
type HistoryManager struct {
	store  *HistoryStore
	logger *slog.Logger

	mu               sync.Mutex
	currentSessionID string
}

// NewHistoryManager wraps an opened store.
func NewHistoryManager(store *HistoryStore) *HistoryManager {
	return &HistoryManager{
		store:  store,
		logger: utils.GetLogger(),
	}
}

// StartNewSession mints a fresh session id and makes it current. No
// database row is written until a message is saved.
func (m *HistoryManager) StartNewSession() string {
	sessionID := uuid.New().String()
	m.mu.Lock()
	m.currentSessionID = sessionID
	m.mu.Unlock()
	m.logger.Info("new session started", "session_id", sessionID)
	return sessionID
}

// SetCurrentSession points the manager at an existing session.
func (m *HistoryManager) SetCurrentSession(sessionID string) {
	m.mu.Lock()
	m.currentSessionID = sessionID
	m.mu.Unlock()
	m.logger.Debug("current session set", "session_id", sessionID)
}

// GetCurrentSession returns the current session id, or "" when none is
// set.
func (m *HistoryManager) GetCurrentSession() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentSessionID
}

// SaveUserMessage persists a user message into the current session,
// starting one implicitly when none is set.
func (m *HistoryManager) SaveUserMessage(content string, image *models.ChatImage, modelName string) (string, error) {
	sessionID := m.GetCurrentSession()
	if sessionID == "" {
		sessionID = m.StartNewSession()
	}
	return m.store.SaveMessage(sessionID, db.RoleUser, content, image, modelName)
}

// SaveAssistantMessage persists an assistant reply into the current
// session. An assistant message with no session is unexpected (replies
// follow user messages) so it is logged before a session is started.
func (m *HistoryManager) SaveAssistantMessage(content string) (string, error) {
	sessionID := m.GetCurrentSession()
	if sessionID == "" {
		m.logger.Warn("assistant message without a session, starting a new one")
		sessionID = m.StartNewSession()
	}
	return m.store.SaveMessage(sessionID, db.RoleAssistant, content, nil, "")
}

// LoadSessionMessages reads a session's messages. An empty sessionID
// means the current session; with no current session the result is
// empty.
func (m *HistoryManager) LoadSessionMessages(sessionID string, limit int) ([]models.LoadedMessage, error) {
	if sessionID == "" {
		sessionID = m.GetCurrentSession()
	}
	if sessionID == "" {
		return []models.LoadedMessage{}, nil
	}
	return m.store.LoadMessages(sessionID, limit)
}

// SearchMessages delegates a content search to the store.
func (m *HistoryManager) SearchMessages(query string, limit int) ([]models.SearchResult, error) {
	return m.store.SearchMessages(query, limit)
}

// ListConversations delegates to the store.
func (m *HistoryManager) ListConversations(limit int) ([]models.ConversationSummary, error) {
	return m.store.ListConversations(limit)
}

// DeleteConversation removes a session. Deleting the current session
// also clears the current pointer.
func (m *HistoryManager) DeleteConversation(sessionID string) (bool, error) {
	deleted, err := m.store.DeleteConversation(sessionID)
	if err != nil {
		return false, err
	}
	if deleted {
		m.mu.Lock()
		if m.currentSessionID == sessionID {
			m.currentSessionID = ""
			m.logger.Info("current session was deleted")
		}
		m.mu.Unlock()
	}
	return deleted, nil
}

// ClearAllHistory wipes the store and forgets the current session.
func (m *HistoryManager) ClearAllHistory() bool {
	ok := m.store.ClearAll()
	if ok {
		m.mu.Lock()
		m.currentSessionID = ""
		m.mu.Unlock()
	}
	return ok
}

// exportedMessage is the JSON export row shape.
type exportedMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	HasImage  bool      `json:"has_image"`
}

// ExportConversation renders a session's messages as json, text or
// markdown. An empty conversation exports to "".
func (m *HistoryManager) ExportConversation(sessionID, format string) (string, error) {
	messages, err := m.store.LoadMessages(sessionID, 0)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", nil
	}

	switch format {
	case models.ExportJSON:
		rows := make([]exportedMessage, 0, len(messages))
		for _, msg := range messages {
			rows = append(rows, exportedMessage{
				Role:      msg.Role,
				Content:   msg.Content,
				Timestamp: msg.Timestamp,
				// A decode-failed image is still an image on the stored
				// row; the export must not claim otherwise.
				HasImage: msg.Image != nil || msg.ImageDecodeFailed,
			})
		}
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return "", fmt.Errorf("export json: %w", err)
		}
		return string(data), nil

	case models.ExportText:
		var lines []string
		for _, msg := range messages {
			role := "アシスタント"
			if msg.Role == db.RoleUser {
				role = "ユーザー"
			}
			lines = append(lines, fmt.Sprintf("[%s] %s: %s",
				msg.Timestamp.Format(exportTimeFormat), role, msg.Content))
			if msg.Image != nil {
				lines = append(lines, "  (画像あり)")
			}
		}
		return strings.Join(lines, "\n"), nil

	case models.ExportMarkdown:
		var lines []string
		for _, msg := range messages {
			role := "🤖 アシスタント"
			if msg.Role == db.RoleUser {
				role = "👤 ユーザー"
			}
			lines = append(lines, fmt.Sprintf("## %s (%s)", role, msg.Timestamp.Format(exportTimeFormat)))
			lines = append(lines, msg.Content)
			if msg.Image != nil {
				lines = append(lines, "*📷 画像あり*")
			}
			lines = append(lines, "")
		}
		return strings.Join(lines, "\n"), nil

	default:
		m.logger.Error("unsupported export format requested", "format", format)
		return "", fmt.Errorf("%w: %q", ErrUnsupportedExportFormat, format)
	}
}

// GetStatistics combines store-level counts with manager state.
func (m *HistoryManager) GetStatistics() models.Statistics {
	info := m.store.DatabaseInfo()
	return models.Statistics{
		DatabaseInfo:     info,
		SizeMB:           math.Round(float64(info.SizeBytes)/(1024*1024)*100) / 100,
		CurrentSessionID: m.GetCurrentSession(),
	}
}

// MigrateTransientState imports messages held in memory before any
// persistence existed into a brand-new session, preserving order. An
// empty input still yields a fresh session.
func (m *HistoryManager) MigrateTransientState(messages []models.ChatMessage, modelName string) (string, error) {
	sessionID := m.StartNewSession()
	for i, msg := range messages {
		saveModel := ""
		if msg.Role == db.RoleUser {
			saveModel = modelName
		}
		if _, err := m.store.SaveMessage(sessionID, msg.Role, msg.Content, msg.Image, saveModel); err != nil {
			return "", fmt.Errorf("migrate message %d: %w", i, err)
		}
	}
	if len(messages) > 0 {
		m.logger.Info("transient history migrated", "messages", len(messages), "session_id", sessionID)
	}
	return sessionID, nil
}

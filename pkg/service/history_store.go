// History store - durable CRUD over conversations and messages
package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkoyasu/chatto/pkg/db"
	"github.com/mkoyasu/chatto/pkg/fileproc"
	"github.com/mkoyasu/chatto/pkg/models"
	"github.com/mkoyasu/chatto/pkg/utils"
)

var (
	// ErrDuplicateSession is returned when a conversation is created twice
	// for the same session id. Enforced by the UNIQUE constraint, not by a
	// check-then-insert, so there is no race window.
	ErrDuplicateSession = errors.New("session already exists")

	// ErrInvalidRole is returned for roles outside {user, assistant}.
	ErrInvalidRole = errors.New("invalid message role")
)

// titleMaxRunes is how much of the first message becomes the conversation
// title before an ellipsis is appended.
const titleMaxRunes = 50

// HistoryStore persists conversations and messages in a single SQLite
// file. Every operation runs its own short-lived transaction; nothing is
// held across calls.
type HistoryStore struct {
	db     *gorm.DB
	path   string
	logger *slog.Logger
}

// NewHistoryStore opens (creating if necessary) the database at path.
func NewHistoryStore(path string) (*HistoryStore, error) {
	gdb, err := db.Open(path)
	if err != nil {
		return nil, err
	}

	store := &HistoryStore{
		db:     gdb,
		path:   path,
		logger: utils.GetLogger(),
	}
	store.logger.Info("history database ready", "path", path)
	return store, nil
}

// Path returns the database file location.
func (s *HistoryStore) Path() string {
	return s.path
}

// CreateConversation creates a new conversation row for sessionID and
// returns its key. A second create for the same session id fails with
// ErrDuplicateSession.
func (s *HistoryStore) CreateConversation(sessionID, title, modelName string) (string, error) {
	conv := &db.Conversation{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Title:     title,
		ModelName: modelName,
	}
	if err := s.db.Create(conv).Error; err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateSession, sessionID)
		}
		return "", fmt.Errorf("create conversation: %w", err)
	}
	s.logger.Debug("conversation created", "session_id", sessionID, "id", conv.ID)
	return conv.ID, nil
}

// LookupConversationKey resolves a session id to its conversation key.
func (s *HistoryStore) LookupConversationKey(sessionID string) (string, bool) {
	var conv db.Conversation
	err := s.db.Select("id").First(&conv, "session_id = ?", sessionID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("conversation lookup failed", "session_id", sessionID, "error", err)
		}
		return "", false
	}
	return conv.ID, true
}

// SaveMessage appends a message to the session's conversation, creating
// the conversation on first use with a title derived from the content.
// The insert and the parent's updated_at bump happen in one transaction.
func (s *HistoryStore) SaveMessage(sessionID, role, content string, image *models.ChatImage, modelName string) (string, error) {
	if !db.ValidRole(role) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	msg := &db.Message{
		ID:      uuid.New().String(),
		Role:    role,
		Content: content,
	}
	if image != nil {
		msg.HasImage = true
		msg.ImageData = base64.StdEncoding.EncodeToString(image.Data)
		msg.ImageFormat = image.Format
		if msg.ImageFormat == "" {
			msg.ImageFormat = "PNG"
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var conv db.Conversation
		err := tx.First(&conv, "session_id = ?", sessionID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			conv = db.Conversation{
				ID:        uuid.New().String(),
				SessionID: sessionID,
				Title:     utils.TruncateRunes(content, titleMaxRunes),
				ModelName: modelName,
			}
			if err := tx.Create(&conv).Error; err != nil {
				return fmt.Errorf("create conversation: %w", err)
			}
		case err != nil:
			return fmt.Errorf("lookup conversation: %w", err)
		}

		// Insertion-order tie-breaker for identical timestamps.
		var maxSeq int64
		if err := tx.Model(&db.Message{}).
			Where("conversation_id = ?", conv.ID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return fmt.Errorf("next message seq: %w", err)
		}

		now := time.Now()
		msg.ConversationID = conv.ID
		msg.Timestamp = now
		msg.Seq = maxSeq + 1
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		if err := tx.Model(&db.Conversation{}).
			Where("id = ?", conv.ID).
			Update("updated_at", now).Error; err != nil {
			return fmt.Errorf("bump conversation updated_at: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("message saved", "id", msg.ID, "role", role, "has_image", msg.HasImage)
	return msg.ID, nil
}

// LoadMessages returns the session's messages in insertion order. An
// unknown session yields an empty slice. A message whose image payload no
// longer decodes is returned without its image, flagged, and logged.
func (s *HistoryStore) LoadMessages(sessionID string, limit int) ([]models.LoadedMessage, error) {
	convID, ok := s.LookupConversationKey(sessionID)
	if !ok {
		return []models.LoadedMessage{}, nil
	}

	query := s.db.Where("conversation_id = ?", convID).
		Order("timestamp ASC, seq ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []db.Message
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	loaded := make([]models.LoadedMessage, 0, len(rows))
	for _, row := range rows {
		m := models.LoadedMessage{
			Role:      row.Role,
			Content:   row.Content,
			Timestamp: row.Timestamp,
		}
		if row.HasImage && row.ImageData != "" {
			img, err := decodeStoredImage(row.ImageData, row.ImageFormat)
			if err != nil {
				s.logger.Error("failed to restore image payload", "message_id", row.ID, "error", err)
				m.ImageDecodeFailed = true
			} else {
				m.Image = img
			}
		}
		loaded = append(loaded, m)
	}

	s.logger.Debug("messages loaded", "session_id", sessionID, "count", len(loaded))
	return loaded, nil
}

// SearchMessages finds messages whose content contains queryText,
// newest first, across all conversations. The query is bound as a
// parameter and its LIKE metacharacters are escaped so `%` and `_`
// match literally.
func (s *HistoryStore) SearchMessages(queryText string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(queryText) + "%"

	var results []models.SearchResult
	err := s.db.Table("messages").
		Select("conversations.session_id, conversations.title, conversations.model_name, messages.role, messages.content, messages.timestamp").
		Joins("JOIN conversations ON messages.conversation_id = conversations.id").
		Where("messages.content LIKE ? ESCAPE '\\'", pattern).
		Order("messages.timestamp DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	if results == nil {
		results = []models.SearchResult{}
	}
	s.logger.Debug("messages searched", "query", queryText, "results", len(results))
	return results, nil
}

// ListConversations returns conversation summaries ordered by last
// activity, each with its message count.
func (s *HistoryStore) ListConversations(limit int) ([]models.ConversationSummary, error) {
	if limit <= 0 {
		limit = 100
	}

	var summaries []models.ConversationSummary
	err := s.db.Table("conversations").
		Select("session_id, title, model_name, created_at, updated_at, " +
			"(SELECT COUNT(*) FROM messages WHERE messages.conversation_id = conversations.id) AS message_count").
		Order("updated_at DESC").
		Limit(limit).
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	if summaries == nil {
		summaries = []models.ConversationSummary{}
	}
	return summaries, nil
}

// DeleteConversation removes the session's conversation and all of its
// messages. Returns true iff a conversation existed. A missing session is
// not an error.
func (s *HistoryStore) DeleteConversation(sessionID string) (bool, error) {
	deleted := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var conv db.Conversation
		err := tx.First(&conv, "session_id = ?", sessionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup conversation: %w", err)
		}

		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&db.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if err := tx.Delete(&db.Conversation{}, "id = ?", conv.ID).Error; err != nil {
			return fmt.Errorf("delete conversation: %w", err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if deleted {
		s.logger.Info("conversation deleted", "session_id", sessionID)
	}
	return deleted, nil
}

// ClearAll removes every conversation and message. It reports failure as
// false rather than an error; the caller sits behind a UI "danger zone"
// action that must degrade gracefully.
func (s *HistoryStore) ClearAll() bool {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM messages").Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM conversations").Error
	})
	if err != nil {
		s.logger.Error("failed to clear history", "error", err)
		return false
	}
	s.logger.Info("all history cleared")
	return true
}

// DatabaseInfo returns counts and the on-disk size of the database file.
func (s *HistoryStore) DatabaseInfo() models.DatabaseInfo {
	info := models.DatabaseInfo{Path: s.path}

	if err := s.db.Model(&db.Conversation{}).Count(&info.ConversationCount).Error; err != nil {
		s.logger.Error("count conversations failed", "error", err)
	}
	if err := s.db.Model(&db.Message{}).Count(&info.MessageCount).Error; err != nil {
		s.logger.Error("count messages failed", "error", err)
	}
	if err := s.db.Model(&db.Message{}).Where("has_image = ?", true).Count(&info.ImageMessageCount).Error; err != nil {
		s.logger.Error("count image messages failed", "error", err)
	}
	if st, err := os.Stat(s.path); err == nil {
		info.SizeBytes = st.Size()
	}
	return info
}

// decodeStoredImage reverses the base64 encoding done by SaveMessage and
// re-decodes the image header for dimensions.
func decodeStoredImage(data, format string) (*models.ChatImage, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	img, err := fileproc.DecodeImageBytes(raw)
	if err != nil {
		return nil, err
	}
	if format != "" {
		img.Format = format
	}
	return img, nil
}

// escapeLike makes % and _ (and the escape character itself) literal
// inside a LIKE pattern using backslash escaping.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// isUniqueViolation matches the driver's unique-constraint error both via
// gorm's translated sentinel and the raw SQLite message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package models

import "time"

// ChatImage is a decoded image attachment. Data holds the original binary
// bytes; Format is the source format name ("PNG", "JPEG", ...); Width and
// Height come from the decoded header.
type ChatImage struct {
	Data   []byte `json:"-"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ChatMessage is the transient message representation the UI layer works
// with: a fixed record with an optional image, not a dynamically keyed map.
type ChatMessage struct {
	Role    string     `json:"role"`
	Content string     `json:"content"`
	Image   *ChatImage `json:"image,omitempty"`
}

// LoadedMessage is a message as read back from the store. A corrupt image
// payload degrades to ImageDecodeFailed=true with Image=nil instead of
// failing the whole load.
type LoadedMessage struct {
	Role              string     `json:"role"`
	Content           string     `json:"content"`
	Timestamp         time.Time  `json:"timestamp"`
	Image             *ChatImage `json:"image,omitempty"`
	ImageDecodeFailed bool       `json:"image_decode_failed,omitempty"`
}

// SearchResult is one hit of a cross-conversation content search.
type SearchResult struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	ModelName string    `json:"model_name"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	ModelName    string    `json:"model_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int64     `json:"message_count"`
}

// DatabaseInfo is the store's operational snapshot.
type DatabaseInfo struct {
	ConversationCount int64  `json:"conversation_count"`
	MessageCount      int64  `json:"message_count"`
	ImageMessageCount int64  `json:"image_message_count"`
	SizeBytes         int64  `json:"database_size_bytes"`
	Path              string `json:"database_path"`
}

// Statistics extends DatabaseInfo with manager-level state.
type Statistics struct {
	DatabaseInfo
	SizeMB           float64 `json:"database_size_mb"`
	CurrentSessionID string  `json:"current_session_id,omitempty"`
}

// Export formats
const (
	ExportJSON     = "json"
	ExportText     = "text"
	ExportMarkdown = "markdown"
)

// ChatRequest is the /api/chat request body. An image comes in as base64
// next to its format tag, matching how the store persists it.
type ChatRequest struct {
	Message     string `json:"message" binding:"required"`
	Model       string `json:"model"`
	SessionID   string `json:"session_id"`
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageFormat string `json:"image_format,omitempty"`
}

// ChatResponse is the /api/chat reply.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Model     string `json:"model"`
}

// UploadResult is the /api/upload reply: the classification verdict plus
// whatever content extraction produced.
type UploadResult struct {
	FileName    string `json:"file_name"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
	Preview     string `json:"preview,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageFormat string `json:"image_format,omitempty"`
}

// Database models for chat messages
package db

import "time"

// Message represents one turn in a conversation. Image payloads are stored
// as base64 text next to their source format so the original binary can be
// reconstructed losslessly.
type Message struct {
	ID             string `json:"id" gorm:"primaryKey;size:36"`
	ConversationID string `json:"conversation_id" gorm:"index:idx_messages_conversation_id;size:36;not null"`

	Role    string `json:"role" gorm:"size:20;not null;check:role IN ('user','assistant')"`
	Content string `json:"content" gorm:"type:text;not null"`

	HasImage    bool   `json:"has_image" gorm:"default:false"`
	ImageData   string `json:"image_data,omitempty" gorm:"type:text"`
	ImageFormat string `json:"image_format,omitempty" gorm:"size:10"`

	// Seq breaks ties when timestamps collide at sub-second resolution;
	// it is assigned per conversation inside the save transaction.
	Timestamp time.Time `json:"timestamp" gorm:"index:idx_messages_timestamp"`
	Seq       int64     `json:"-" gorm:"not null;default:0"`
}

func (*Message) TableName() string {
	return "messages"
}

// Message roles (closed set; anything else is rejected at the storage boundary)
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

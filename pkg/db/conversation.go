// Database models for chat conversations
package db

import "time"

// Conversation represents one chat session. SessionID is the external
// handle handed to the UI; ID is the surrogate key messages reference.
type Conversation struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID string    `json:"session_id" gorm:"uniqueIndex:idx_conversations_session_id;size:36;not null"`
	Title     string    `json:"title" gorm:"size:200"`
	ModelName string    `json:"model_name,omitempty" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []Message `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Conversation) TableName() string {
	return "conversations"
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// ChatSession scopes a tutoring conversation to one (user, enrollment,
// subtopic) triple. A new session is minted on every topic selection;
// resuming picks an existing one back up.
type ChatSession struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	UserTopicID uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_topic_id"`
	SubtopicID  *uuid.UUID `gorm:"type:uuid;index" json:"subtopic_id,omitempty"`

	Title        string    `gorm:"type:text;not null;default:''" json:"title"`
	StartedAt    time.Time `gorm:"not null;default:now()" json:"started_at"`
	LastActivity time.Time `gorm:"not null;default:now();index" json:"last_activity"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Role        string         `gorm:"type:text;not null" json:"role"`
	Content     string         `gorm:"type:text;not null" json:"content"`
	MessageType string         `gorm:"type:text;not null;default:'text'" json:"message_type"`
	Metadata    datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

package domain

import (
	"time"

	"github.com/google/uuid"
)

// MasterTopic is a catalog entry (e.g. "Go", "Linear Algebra") that users
// enroll in. Subtopics hang off it with per-subtopic weightages.
type MasterTopic struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Slug        string    `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	Category    string    `gorm:"type:text;not null;default:'';index" json:"category"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (MasterTopic) TableName() string { return "master_topics" }

// Subtopic carries a weightage: its share of the parent topic's overall
// completion. Weightages across a topic are expected to sum to 100 but the
// aggregate math does not assume it.
type Subtopic struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	MasterTopicID uuid.UUID `gorm:"type:uuid;not null;index" json:"master_topic_id"`
	Title         string    `gorm:"type:text;not null" json:"title"`
	Weightage     float64   `gorm:"not null;default:0" json:"weightage"`
	OrderIndex    int       `gorm:"not null;default:0" json:"order_index"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Subtopic) TableName() string { return "subtopics" }

// UserTopic is a user's enrollment in a master topic. CompletedPercent is
// the weighted aggregate over the user's per-subtopic progress.
type UserTopic struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index:idx_user_topic,unique" json:"user_id"`
	MasterTopicID uuid.UUID `gorm:"type:uuid;not null;index:idx_user_topic,unique" json:"master_topic_id"`

	IsActive         bool       `gorm:"not null;default:true" json:"is_active"`
	CompletedPercent float64    `gorm:"not null;default:0" json:"completed_percent"`
	LastAccessedAt   *time.Time `gorm:"index" json:"last_accessed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserTopic) TableName() string { return "user_topics" }

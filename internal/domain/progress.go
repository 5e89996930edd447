package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubtopicProgress is one row per (user, enrollment, subtopic). Scores are
// clamped to [0,100] before they land here; the topic-level aggregate is
// recomputed from these rows inside the same transaction that writes them.
type SubtopicProgress struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index:idx_subtopic_progress,unique" json:"user_id"`
	UserTopicID uuid.UUID `gorm:"type:uuid;not null;index:idx_subtopic_progress,unique" json:"user_topic_id"`
	SubtopicID  uuid.UUID `gorm:"type:uuid;not null;index:idx_subtopic_progress,unique" json:"subtopic_id"`

	CompletedPercent float64 `gorm:"not null;default:0" json:"completed_percent"`
	Reasoning        string  `gorm:"type:text;not null;default:''" json:"reasoning"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SubtopicProgress) TableName() string { return "subtopic_progress" }

package db

import (
	types "github.com/NavnathGunjal07/LearnBase-sub000/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity
		&types.User{},

		// Topic catalog + enrollments
		&types.MasterTopic{},
		&types.Subtopic{},
		&types.UserTopic{},

		// Tutoring sessions
		&types.ChatSession{},
		&types.ChatMessage{},

		// Progress ledger
		&types.SubtopicProgress{},
	)
}

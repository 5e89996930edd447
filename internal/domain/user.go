package domain

import (
	"time"

	"github.com/google/uuid"
)

// Onboarding steps, in order. A user always sits on exactly one step;
// COMPLETE is terminal.
const (
	OnboardingStepAskName      = "ASK_NAME"
	OnboardingStepAskInterests = "ASK_INTERESTS"
	OnboardingStepAskGoals     = "ASK_GOALS"
	OnboardingStepAskEducation = "ASK_EDUCATION"
	OnboardingStepComplete     = "COMPLETE"
)

const (
	SkillLevelBeginner     = "beginner"
	SkillLevelIntermediate = "intermediate"
	SkillLevelAdvanced     = "advanced"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email        string    `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Name         string    `gorm:"type:text;not null;default:''" json:"name"`
	PasswordHash string    `gorm:"type:text;not null;default:''" json:"-"`

	// Profile collected during onboarding.
	LearningInterests string `gorm:"type:text;not null;default:''" json:"learning_interests"`
	Goals             string `gorm:"type:text;not null;default:''" json:"goals"`
	Background        string `gorm:"type:text;not null;default:''" json:"background"`
	SkillLevel        string `gorm:"type:text;not null;default:''" json:"skill_level"`

	OnboardingStep         string     `gorm:"type:text;not null;default:'ASK_NAME'" json:"onboarding_step"`
	OnboardingAttempts     int        `gorm:"not null;default:0" json:"onboarding_attempts"`
	OnboardingLockedUntil  *time.Time `gorm:"index" json:"onboarding_locked_until,omitempty"`
	HasCompletedOnboarding bool       `gorm:"not null;default:false;index" json:"has_completed_onboarding"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "users" }

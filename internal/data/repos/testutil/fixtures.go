package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/NavnathGunjal07/LearnBase-sub000/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:             uuid.New(),
		Email:          email,
		Name:           "Test User",
		OnboardingStep: types.OnboardingStepAskName,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedMasterTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.MasterTopic {
	tb.Helper()
	t := &types.MasterTopic{
		ID:   uuid.New(),
		Name: name,
		Slug: name + "-" + uuid.NewString()[:8],
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed master topic: %v", err)
	}
	return t
}

func SeedSubtopic(tb testing.TB, ctx context.Context, tx *gorm.DB, masterTopicID uuid.UUID, title string, weightage float64, order int) *types.Subtopic {
	tb.Helper()
	s := &types.Subtopic{
		ID:            uuid.New(),
		MasterTopicID: masterTopicID,
		Title:         title,
		Weightage:     weightage,
		OrderIndex:    order,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed subtopic: %v", err)
	}
	return s
}

func SeedUserTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, masterTopicID uuid.UUID) *types.UserTopic {
	tb.Helper()
	ut := &types.UserTopic{
		ID:            uuid.New(),
		UserID:        userID,
		MasterTopicID: masterTopicID,
		IsActive:      true,
	}
	if err := tx.WithContext(ctx).Create(ut).Error; err != nil {
		tb.Fatalf("seed user topic: %v", err)
	}
	return ut
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, userTopicID uuid.UUID, subtopicID *uuid.UUID, lastActivity time.Time) *types.ChatSession {
	tb.Helper()
	s := &types.ChatSession{
		ID:           uuid.New(),
		UserID:       userID,
		UserTopicID:  userTopicID,
		SubtopicID:   subtopicID,
		StartedAt:    lastActivity,
		LastActivity: lastActivity,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

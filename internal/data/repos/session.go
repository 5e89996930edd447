package repos

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/NavnathGunjal07/LearnBase-sub000/internal/domain"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/dbctx"
	pkgerrors "github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/errors"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
)

type ChatSessionRepo interface {
	Create(dbc dbctx.Context, s *types.ChatSession) (*types.ChatSession, error)
	// GetForUser enforces ownership: a session id belonging to a different
	// user reports ErrNotFound, never the row.
	GetForUser(dbc dbctx.Context, id, userID uuid.UUID) (*types.ChatSession, error)
	// MostRecent returns the latest session for a (user, enrollment,
	// subtopic) triple, ordered by last activity.
	MostRecent(dbc dbctx.Context, userID, userTopicID uuid.UUID, subtopicID *uuid.UUID) (*types.ChatSession, error)
	Touch(dbc dbctx.Context, id uuid.UUID, at time.Time) error
}

type chatSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatSessionRepo(db *gorm.DB, log *logger.Logger) ChatSessionRepo {
	return &chatSessionRepo{db: db, log: log.With("repo", "ChatSessionRepo")}
}

func (r *chatSessionRepo) Create(dbc dbctx.Context, s *types.ChatSession) (*types.ChatSession, error) {
	if s == nil {
		return nil, fmt.Errorf("missing session")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *chatSessionRepo) GetForUser(dbc dbctx.Context, id, userID uuid.UUID) (*types.ChatSession, error) {
	if id == uuid.Nil || userID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id or user_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var s types.ChatSession
	if err := txx.WithContext(dbc.Ctx).
		First(&s, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *chatSessionRepo) MostRecent(dbc dbctx.Context, userID, userTopicID uuid.UUID, subtopicID *uuid.UUID) (*types.ChatSession, error) {
	if userID == uuid.Nil || userTopicID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id or user_topic_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	q := txx.WithContext(dbc.Ctx).
		Where("user_id = ? AND user_topic_id = ?", userID, userTopicID)
	if subtopicID != nil && *subtopicID != uuid.Nil {
		q = q.Where("subtopic_id = ?", *subtopicID)
	}
	var s types.ChatSession
	if err := q.Order("last_activity DESC").First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *chatSessionRepo) Touch(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing session_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&types.ChatSession{}).
		Where("id = ?", id).
		Update("last_activity", at).Error
}

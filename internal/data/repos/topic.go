package repos

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/NavnathGunjal07/LearnBase-sub000/internal/domain"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/dbctx"
	pkgerrors "github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/errors"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
)

type TopicRepo interface {
	GetMasterTopic(dbc dbctx.Context, id uuid.UUID) (*types.MasterTopic, error)
	GetSubtopic(dbc dbctx.Context, id uuid.UUID) (*types.Subtopic, error)
	ListSubtopics(dbc dbctx.Context, masterTopicID uuid.UUID) ([]*types.Subtopic, error)

	GetUserTopic(dbc dbctx.Context, id uuid.UUID) (*types.UserTopic, error)
	GetOrCreateUserTopic(dbc dbctx.Context, userID, masterTopicID uuid.UUID) (*types.UserTopic, error)
	UpdateUserTopicFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type topicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicRepo(db *gorm.DB, log *logger.Logger) TopicRepo {
	return &topicRepo{db: db, log: log.With("repo", "TopicRepo")}
}

func (r *topicRepo) GetMasterTopic(dbc dbctx.Context, id uuid.UUID) (*types.MasterTopic, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing master_topic_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var t types.MasterTopic
	if err := txx.WithContext(dbc.Ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *topicRepo) GetSubtopic(dbc dbctx.Context, id uuid.UUID) (*types.Subtopic, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing subtopic_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var s types.Subtopic
	if err := txx.WithContext(dbc.Ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *topicRepo) ListSubtopics(dbc dbctx.Context, masterTopicID uuid.UUID) ([]*types.Subtopic, error) {
	if masterTopicID == uuid.Nil {
		return nil, fmt.Errorf("missing master_topic_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Subtopic
	if err := txx.WithContext(dbc.Ctx).
		Where("master_topic_id = ?", masterTopicID).
		Order("order_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *topicRepo) GetUserTopic(dbc dbctx.Context, id uuid.UUID) (*types.UserTopic, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing user_topic_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var ut types.UserTopic
	if err := txx.WithContext(dbc.Ctx).First(&ut, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &ut, nil
}

func (r *topicRepo) GetOrCreateUserTopic(dbc dbctx.Context, userID, masterTopicID uuid.UUID) (*types.UserTopic, error) {
	if userID == uuid.Nil || masterTopicID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id or master_topic_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var ut types.UserTopic
	err := txx.WithContext(dbc.Ctx).
		First(&ut, "user_id = ? AND master_topic_id = ?", userID, masterTopicID).Error
	if err == nil {
		return &ut, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	ut = types.UserTopic{
		UserID:        userID,
		MasterTopicID: masterTopicID,
		IsActive:      true,
	}
	if err := txx.WithContext(dbc.Ctx).Create(&ut).Error; err != nil {
		return nil, err
	}
	return &ut, nil
}

func (r *topicRepo) UpdateUserTopicFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing user_topic_id")
	}
	if len(updates) == 0 {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&types.UserTopic{}).
		Where("id = ?", id).
		Updates(updates).Error
}

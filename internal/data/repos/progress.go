package repos

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/NavnathGunjal07/LearnBase-sub000/internal/domain"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/dbctx"
	pkgerrors "github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/errors"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
)

type SubtopicProgressRepo interface {
	// Upsert overwrites the row for (user, enrollment, subtopic). Progress
	// is an absolute percentage, not a delta, so last write wins.
	Upsert(dbc dbctx.Context, row *types.SubtopicProgress) error
	Get(dbc dbctx.Context, userID, userTopicID, subtopicID uuid.UUID) (*types.SubtopicProgress, error)
	ListByUserTopic(dbc dbctx.Context, userID, userTopicID uuid.UUID) ([]*types.SubtopicProgress, error)
}

type subtopicProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubtopicProgressRepo(db *gorm.DB, log *logger.Logger) SubtopicProgressRepo {
	return &subtopicProgressRepo{db: db, log: log.With("repo", "SubtopicProgressRepo")}
}

func (r *subtopicProgressRepo) Upsert(dbc dbctx.Context, row *types.SubtopicProgress) error {
	if row == nil {
		return fmt.Errorf("missing progress row")
	}
	if row.UserID == uuid.Nil || row.UserTopicID == uuid.Nil || row.SubtopicID == uuid.Nil {
		return fmt.Errorf("missing progress key")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "user_topic_id"},
				{Name: "subtopic_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"completed_percent", "reasoning", "updated_at"}),
		}).
		Create(row).Error
}

func (r *subtopicProgressRepo) Get(dbc dbctx.Context, userID, userTopicID, subtopicID uuid.UUID) (*types.SubtopicProgress, error) {
	if userID == uuid.Nil || userTopicID == uuid.Nil || subtopicID == uuid.Nil {
		return nil, fmt.Errorf("missing progress key")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var row types.SubtopicProgress
	if err := txx.WithContext(dbc.Ctx).
		First(&row, "user_id = ? AND user_topic_id = ? AND subtopic_id = ?", userID, userTopicID, subtopicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *subtopicProgressRepo) ListByUserTopic(dbc dbctx.Context, userID, userTopicID uuid.UUID) ([]*types.SubtopicProgress, error) {
	if userID == uuid.Nil || userTopicID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id or user_topic_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.SubtopicProgress
	if err := txx.WithContext(dbc.Ctx).
		Where("user_id = ? AND user_topic_id = ?", userID, userTopicID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

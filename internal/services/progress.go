package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NavnathGunjal07/LearnBase-sub000/internal/data/repos"
	types "github.com/NavnathGunjal07/LearnBase-sub000/internal/domain"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/dbctx"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
)

// ProgressUpdate is the result of recording one subtopic score: the
// clamped subtopic percentage and the recomputed topic aggregate.
type ProgressUpdate struct {
	SubtopicPercent float64
	TopicPercent    float64
}

// ProgressService owns the progress ledger. RecordScore writes the
// subtopic row and recomputes the enrollment's weighted aggregate in one
// transaction, so readers never observe the row without the aggregate.
type ProgressService interface {
	RecordScore(ctx context.Context, userID, userTopicID, subtopicID uuid.UUID, percent float64, reasoning string) (ProgressUpdate, error)
}

type progressService struct {
	run      dbctx.Runner
	log      *logger.Logger
	topics   repos.TopicRepo
	progress repos.SubtopicProgressRepo
	now      func() time.Time
}

func NewProgressService(run dbctx.Runner, log *logger.Logger, topics repos.TopicRepo, progress repos.SubtopicProgressRepo) ProgressService {
	return &progressService{
		run:      run,
		log:      log.With("service", "ProgressService"),
		topics:   topics,
		progress: progress,
		now:      time.Now,
	}
}

func (ps *progressService) RecordScore(ctx context.Context, userID, userTopicID, subtopicID uuid.UUID, percent float64, reasoning string) (ProgressUpdate, error) {
	percent = clampPercent(percent)

	var out ProgressUpdate
	err := ps.run.InTx(ctx, func(dbc dbctx.Context) error {
		row := &types.SubtopicProgress{
			UserID:           userID,
			UserTopicID:      userTopicID,
			SubtopicID:       subtopicID,
			CompletedPercent: percent,
			Reasoning:        reasoning,
		}
		if err := ps.progress.Upsert(dbc, row); err != nil {
			return err
		}

		ut, err := ps.topics.GetUserTopic(dbc, userTopicID)
		if err != nil {
			return err
		}
		subs, err := ps.topics.ListSubtopics(dbc, ut.MasterTopicID)
		if err != nil {
			return err
		}
		rows, err := ps.progress.ListByUserTopic(dbc, userID, userTopicID)
		if err != nil {
			return err
		}

		aggregate := weightedAggregate(subs, rows)

		at := ps.now()
		if err := ps.topics.UpdateUserTopicFields(dbc, userTopicID, map[string]interface{}{
			"completed_percent": aggregate,
			"last_accessed_at":  at,
			"updated_at":        at,
		}); err != nil {
			return err
		}

		out = ProgressUpdate{SubtopicPercent: percent, TopicPercent: aggregate}
		return nil
	})
	if err != nil {
		return ProgressUpdate{}, err
	}

	ps.log.Debug("recorded subtopic score",
		"user_id", userID,
		"subtopic_percent", out.SubtopicPercent,
		"topic_percent", out.TopicPercent,
	)
	return out, nil
}

// weightedAggregate computes sum(percent*weightage)/sum(weightage) across
// every subtopic of the topic. Subtopics without a progress row count as
// zero; zero total weight yields zero rather than dividing.
func weightedAggregate(subs []*types.Subtopic, rows []*types.SubtopicProgress) float64 {
	bySubtopic := make(map[uuid.UUID]float64, len(rows))
	for _, r := range rows {
		bySubtopic[r.SubtopicID] = r.CompletedPercent
	}

	var weightSum, scoreSum float64
	for _, s := range subs {
		weightSum += s.Weightage
		scoreSum += bySubtopic[s.ID] * s.Weightage
	}
	if weightSum == 0 {
		return 0
	}
	return scoreSum / weightSum
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

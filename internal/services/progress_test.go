package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/NavnathGunjal07/LearnBase-sub000/internal/domain"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/dbctx"
)

type progressHarness struct {
	svc      ProgressService
	topics   *fakeTopicRepo
	progress *fakeProgressRepo

	userID uuid.UUID
	ut     *types.UserTopic
	subA   *types.Subtopic
	subB   *types.Subtopic
}

// newProgressHarness seeds one enrollment with two subtopics weighted
// 30/70.
func newProgressHarness(t *testing.T) *progressHarness {
	t.Helper()
	topics := newFakeTopicRepo()
	progress := newFakeProgressRepo()

	master := topics.addMaster("calculus")
	subA := topics.addSubtopic(master.ID, "limits", 30)
	subB := topics.addSubtopic(master.ID, "derivatives", 70)

	userID := uuid.New()
	ut, err := topics.GetOrCreateUserTopic(dbctx.Context{}, userID, master.ID)
	if err != nil {
		t.Fatalf("seed user topic: %v", err)
	}

	return &progressHarness{
		svc:      NewProgressService(passRunner{}, testLogger(), topics, progress),
		topics:   topics,
		progress: progress,
		userID:   userID,
		ut:       ut,
		subA:     subA,
		subB:     subB,
	}
}

func TestRecordScoreWeightedAggregate(t *testing.T) {
	h := newProgressHarness(t)
	ctx := context.Background()

	// 100% on the 30-weight subtopic, nothing on the 70-weight one:
	// aggregate must be exactly 30.
	res, err := h.svc.RecordScore(ctx, h.userID, h.ut.ID, h.subA.ID, 100, "done")
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if res.SubtopicPercent != 100 {
		t.Fatalf("subtopic percent: got %.2f want 100", res.SubtopicPercent)
	}
	if res.TopicPercent != 30 {
		t.Fatalf("topic percent: got %.2f want 30", res.TopicPercent)
	}
	if h.ut.CompletedPercent != 30 {
		t.Fatalf("persisted aggregate: got %.2f want 30", h.ut.CompletedPercent)
	}
	if h.ut.LastAccessedAt == nil {
		t.Fatalf("last_accessed_at not set")
	}

	// 50% on the 70-weight subtopic: 30 + 35 = 65.
	res, err = h.svc.RecordScore(ctx, h.userID, h.ut.ID, h.subB.ID, 50, "halfway")
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if res.TopicPercent != 65 {
		t.Fatalf("topic percent: got %.2f want 65", res.TopicPercent)
	}
}

func TestRecordScoreClampsInput(t *testing.T) {
	h := newProgressHarness(t)
	ctx := context.Background()

	res, err := h.svc.RecordScore(ctx, h.userID, h.ut.ID, h.subA.ID, 180, "overshoot")
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if res.SubtopicPercent != 100 {
		t.Fatalf("clamped high: got %.2f want 100", res.SubtopicPercent)
	}

	res, err = h.svc.RecordScore(ctx, h.userID, h.ut.ID, h.subA.ID, -20, "undershoot")
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if res.SubtopicPercent != 0 {
		t.Fatalf("clamped low: got %.2f want 0", res.SubtopicPercent)
	}
}

func TestRecordScoreOverwritesNotAccumulates(t *testing.T) {
	h := newProgressHarness(t)
	ctx := context.Background()

	if _, err := h.svc.RecordScore(ctx, h.userID, h.ut.ID, h.subA.ID, 80, ""); err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	res, err := h.svc.RecordScore(ctx, h.userID, h.ut.ID, h.subA.ID, 40, "regressed")
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if res.SubtopicPercent != 40 {
		t.Fatalf("overwrite: got %.2f want 40", res.SubtopicPercent)
	}
	if res.TopicPercent != 12 {
		t.Fatalf("aggregate after overwrite: got %.2f want 12", res.TopicPercent)
	}
}

func TestWeightedAggregateZeroWeight(t *testing.T) {
	subs := []*types.Subtopic{
		{ID: uuid.New(), Weightage: 0},
		{ID: uuid.New(), Weightage: 0},
	}
	rows := []*types.SubtopicProgress{
		{SubtopicID: subs[0].ID, CompletedPercent: 100},
	}
	if got := weightedAggregate(subs, rows); got != 0 {
		t.Fatalf("zero total weight: got %.2f want 0", got)
	}
}

func TestWeightedAggregateIgnoresUnknownRows(t *testing.T) {
	// A progress row pointing at a subtopic the topic no longer has must
	// not skew the aggregate.
	sub := &types.Subtopic{ID: uuid.New(), Weightage: 100}
	rows := []*types.SubtopicProgress{
		{SubtopicID: sub.ID, CompletedPercent: 50},
		{SubtopicID: uuid.New(), CompletedPercent: 100},
	}
	if got := weightedAggregate([]*types.Subtopic{sub}, rows); got != 50 {
		t.Fatalf("got %.2f want 50", got)
	}
}

func TestRecordScoreTimestamps(t *testing.T) {
	h := newProgressHarness(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.svc.(*progressService).now = func() time.Time { return fixed }

	if _, err := h.svc.RecordScore(context.Background(), h.userID, h.ut.ID, h.subA.ID, 10, ""); err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if h.ut.LastAccessedAt == nil || !h.ut.LastAccessedAt.Equal(fixed) {
		t.Fatalf("last_accessed_at: got %v want %v", h.ut.LastAccessedAt, fixed)
	}
}

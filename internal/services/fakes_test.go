package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	types "github.com/NavnathGunjal07/LearnBase-sub000/internal/domain"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/dbctx"
	pkgerrors "github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/errors"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/groq"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/realtime"
)

func dbcNil() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }

func testLogger() *logger.Logger {
	log, err := logger.New("test")
	if err != nil {
		panic(err)
	}
	return log
}

// passRunner runs the function without a transaction; the fake repos are
// in-memory so there is nothing to roll back.
type passRunner struct{}

func (passRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
}

// captureSink records every frame sent to the client.
type captureSink struct {
	frames []any
}

func (c *captureSink) Send(v any) error {
	c.frames = append(c.frames, v)
	return nil
}

func (c *captureSink) reset() { c.frames = nil }

// ---- users ----

type fakeUserRepo struct {
	users map[uuid.UUID]*types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*types.User{}}
}

func (r *fakeUserRepo) add(u *types.User) *types.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pkgerrors.ErrNotFound
}

func (r *fakeUserRepo) Create(dbc dbctx.Context, u *types.User) (*types.User, error) {
	return r.add(u), nil
}

func (r *fakeUserRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	u, ok := r.users[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "name":
			u.Name = v.(string)
		case "learning_interests":
			u.LearningInterests = v.(string)
		case "goals":
			u.Goals = v.(string)
		case "background":
			u.Background = v.(string)
		case "skill_level":
			u.SkillLevel = v.(string)
		case "onboarding_step":
			u.OnboardingStep = v.(string)
		case "onboarding_attempts":
			u.OnboardingAttempts = v.(int)
		case "onboarding_locked_until":
			if v == nil {
				u.OnboardingLockedUntil = nil
			} else {
				t := v.(time.Time)
				u.OnboardingLockedUntil = &t
			}
		case "has_completed_onboarding":
			u.HasCompletedOnboarding = v.(bool)
		default:
			return fmt.Errorf("fakeUserRepo: unknown column %q", k)
		}
	}
	return nil
}

// ---- topics ----

type fakeTopicRepo struct {
	masters    map[uuid.UUID]*types.MasterTopic
	subtopics  map[uuid.UUID]*types.Subtopic
	userTopics map[uuid.UUID]*types.UserTopic
}

func newFakeTopicRepo() *fakeTopicRepo {
	return &fakeTopicRepo{
		masters:    map[uuid.UUID]*types.MasterTopic{},
		subtopics:  map[uuid.UUID]*types.Subtopic{},
		userTopics: map[uuid.UUID]*types.UserTopic{},
	}
}

func (r *fakeTopicRepo) addMaster(name string) *types.MasterTopic {
	t := &types.MasterTopic{ID: uuid.New(), Name: name, Slug: name}
	r.masters[t.ID] = t
	return t
}

func (r *fakeTopicRepo) addSubtopic(masterID uuid.UUID, title string, weightage float64) *types.Subtopic {
	s := &types.Subtopic{ID: uuid.New(), MasterTopicID: masterID, Title: title, Weightage: weightage}
	r.subtopics[s.ID] = s
	return s
}

func (r *fakeTopicRepo) GetMasterTopic(dbc dbctx.Context, id uuid.UUID) (*types.MasterTopic, error) {
	t, ok := r.masters[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	return t, nil
}

func (r *fakeTopicRepo) GetSubtopic(dbc dbctx.Context, id uuid.UUID) (*types.Subtopic, error) {
	s, ok := r.subtopics[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	return s, nil
}

func (r *fakeTopicRepo) ListSubtopics(dbc dbctx.Context, masterTopicID uuid.UUID) ([]*types.Subtopic, error) {
	var out []*types.Subtopic
	for _, s := range r.subtopics {
		if s.MasterTopicID == masterTopicID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *fakeTopicRepo) GetUserTopic(dbc dbctx.Context, id uuid.UUID) (*types.UserTopic, error) {
	ut, ok := r.userTopics[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	return ut, nil
}

func (r *fakeTopicRepo) GetOrCreateUserTopic(dbc dbctx.Context, userID, masterTopicID uuid.UUID) (*types.UserTopic, error) {
	if _, ok := r.masters[masterTopicID]; !ok {
		return nil, pkgerrors.ErrNotFound
	}
	for _, ut := range r.userTopics {
		if ut.UserID == userID && ut.MasterTopicID == masterTopicID {
			return ut, nil
		}
	}
	ut := &types.UserTopic{ID: uuid.New(), UserID: userID, MasterTopicID: masterTopicID, IsActive: true}
	r.userTopics[ut.ID] = ut
	return ut, nil
}

func (r *fakeTopicRepo) UpdateUserTopicFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	ut, ok := r.userTopics[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "completed_percent":
			ut.CompletedPercent = v.(float64)
		case "last_accessed_at":
			t := v.(time.Time)
			ut.LastAccessedAt = &t
		case "updated_at":
			ut.UpdatedAt = v.(time.Time)
		default:
			return fmt.Errorf("fakeTopicRepo: unknown column %q", k)
		}
	}
	return nil
}

// ---- sessions ----

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*types.ChatSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[uuid.UUID]*types.ChatSession{}}
}

func (r *fakeSessionRepo) Create(dbc dbctx.Context, s *types.ChatSession) (*types.ChatSession, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = s
	return s, nil
}

func (r *fakeSessionRepo) GetForUser(dbc dbctx.Context, id, userID uuid.UUID) (*types.ChatSession, error) {
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return nil, pkgerrors.ErrNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) MostRecent(dbc dbctx.Context, userID, userTopicID uuid.UUID, subtopicID *uuid.UUID) (*types.ChatSession, error) {
	var best *types.ChatSession
	for _, s := range r.sessions {
		if s.UserID != userID || s.UserTopicID != userTopicID {
			continue
		}
		if subtopicID != nil && (s.SubtopicID == nil || *s.SubtopicID != *subtopicID) {
			continue
		}
		if best == nil || s.LastActivity.After(best.LastActivity) {
			best = s
		}
	}
	if best == nil {
		return nil, pkgerrors.ErrNotFound
	}
	return best, nil
}

func (r *fakeSessionRepo) Touch(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	s, ok := r.sessions[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	s.LastActivity = at
	return nil
}

// ---- messages ----

type fakeMessageRepo struct {
	rows []*types.ChatMessage
	seq  int
}

func newFakeMessageRepo() *fakeMessageRepo { return &fakeMessageRepo{} }

func (r *fakeMessageRepo) Create(dbc dbctx.Context, rows []*types.ChatMessage) ([]*types.ChatMessage, error) {
	for _, m := range rows {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		r.seq++
		m.CreatedAt = time.Unix(int64(r.seq), 0)
		r.rows = append(r.rows, m)
	}
	return rows, nil
}

func (r *fakeMessageRepo) ListRecent(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	var all []*types.ChatMessage
	for _, m := range r.rows {
		if m.SessionID == sessionID {
			all = append(all, m)
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *fakeMessageRepo) CountBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	var n int64
	for _, m := range r.rows {
		if m.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

// ---- progress rows ----

type progressKey struct {
	user, userTopic, subtopic uuid.UUID
}

type fakeProgressRepo struct {
	rows map[progressKey]*types.SubtopicProgress
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: map[progressKey]*types.SubtopicProgress{}}
}

func (r *fakeProgressRepo) Upsert(dbc dbctx.Context, row *types.SubtopicProgress) error {
	key := progressKey{row.UserID, row.UserTopicID, row.SubtopicID}
	r.rows[key] = row
	return nil
}

func (r *fakeProgressRepo) Get(dbc dbctx.Context, userID, userTopicID, subtopicID uuid.UUID) (*types.SubtopicProgress, error) {
	row, ok := r.rows[progressKey{userID, userTopicID, subtopicID}]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	return row, nil
}

func (r *fakeProgressRepo) ListByUserTopic(dbc dbctx.Context, userID, userTopicID uuid.UUID) ([]*types.SubtopicProgress, error) {
	var out []*types.SubtopicProgress
	for _, row := range r.rows {
		if row.UserID == userID && row.UserTopicID == userTopicID {
			out = append(out, row)
		}
	}
	return out, nil
}

// ---- llm ----

type llmScript struct {
	deltas     []string
	structured map[string]any
	err        error
}

type llmCall struct {
	messages []groq.Message
}

type fakeLLM struct {
	scripts []llmScript
	calls   []llmCall
}

func (f *fakeLLM) StreamChat(ctx context.Context, messages []groq.Message, opts groq.StreamOptions) (string, error) {
	f.calls = append(f.calls, llmCall{messages: messages})
	if len(f.scripts) == 0 {
		return "", fmt.Errorf("fakeLLM: unscripted call")
	}
	script := f.scripts[0]
	f.scripts = f.scripts[1:]
	if script.err != nil {
		return "", script.err
	}
	full := ""
	for _, d := range script.deltas {
		full += d
		if opts.OnDelta != nil {
			opts.OnDelta(d)
		}
	}
	if script.structured != nil && opts.OnStructured != nil {
		opts.OnStructured(script.structured)
	}
	return full, nil
}

// ---- events ----

type fakeEvents struct {
	published []realtime.Event
}

func (f *fakeEvents) Publish(ctx context.Context, msg realtime.Event) error {
	f.published = append(f.published, msg)
	return nil
}

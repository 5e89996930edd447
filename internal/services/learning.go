package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/NavnathGunjal07/LearnBase-sub000/internal/data/repos"
	types "github.com/NavnathGunjal07/LearnBase-sub000/internal/domain"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/dbctx"
	pkgerrors "github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/errors"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/groq"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/realtime"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/wire"
)

const historyWindow = 20

// EventPublisher fans progress events out to the user's sockets on other
// instances. A nil publisher keeps everything single-instance.
type EventPublisher interface {
	Publish(ctx context.Context, msg realtime.Event) error
}

// LearningService drives the tutoring loop: topic selection, session
// resumption, and the two-pass reply (streamed teaching text, then a
// metadata completion carrying suggestions and progress).
type LearningService interface {
	InitSession(ctx context.Context, st *wire.ConnState, sink wire.Sink) error
	HandleTopicSelected(ctx context.Context, st *wire.ConnState, sink wire.Sink, sel wire.TopicSelect) error
	HandleSessionResumed(ctx context.Context, st *wire.ConnState, sink wire.Sink, msg wire.Inbound) error
	HandleNewChat(ctx context.Context, st *wire.ConnState, sink wire.Sink) error
	HandleMessage(ctx context.Context, st *wire.ConnState, sink wire.Sink, content string) error
	HandleQuizAnswer(ctx context.Context, st *wire.ConnState, sink wire.Sink, content string) error
}

type learningService struct {
	log          *logger.Logger
	llm          groq.Client
	users        repos.UserRepo
	topics       repos.TopicRepo
	sessions     repos.ChatSessionRepo
	messages     repos.ChatMessageRepo
	progressRepo repos.SubtopicProgressRepo
	progress     ProgressService
	events       EventPublisher

	// greetingInterval paces the canned topic greeting so it renders like
	// a streamed reply instead of one large frame.
	greetingInterval time.Duration
	now              func() time.Time
}

func NewLearningService(
	log *logger.Logger,
	llm groq.Client,
	users repos.UserRepo,
	topics repos.TopicRepo,
	sessions repos.ChatSessionRepo,
	messages repos.ChatMessageRepo,
	progressRepo repos.SubtopicProgressRepo,
	progress ProgressService,
	events EventPublisher,
) LearningService {
	return &learningService{
		log:              log.With("service", "LearningService"),
		llm:              llm,
		users:            users,
		topics:           topics,
		sessions:         sessions,
		messages:         messages,
		progressRepo:     progressRepo,
		progress:         progress,
		events:           events,
		greetingInterval: 30 * time.Millisecond,
		now:              time.Now,
	}
}

func (ls *learningService) InitSession(ctx context.Context, st *wire.ConnState, sink wire.Sink) error {
	st.ClearSession()
	return sink.Send(wire.NewMessage(sessionOpener))
}

func (ls *learningService) HandleNewChat(ctx context.Context, st *wire.ConnState, sink wire.Sink) error {
	return ls.InitSession(ctx, st, sink)
}

func (ls *learningService) HandleTopicSelected(ctx context.Context, st *wire.ConnState, sink wire.Sink, sel wire.TopicSelect) error {
	dbc := dbctx.Context{Ctx: ctx}

	topicID, err := uuid.Parse(sel.TopicID)
	if err != nil {
		return sink.Send(wire.NewError(wire.ErrValidation, "Invalid topicId"))
	}
	topic, err := ls.topics.GetMasterTopic(dbc, topicID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return sink.Send(wire.NewError(wire.ErrNotFound, "Topic not found"))
		}
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to load topic"))
	}

	// Subtopic is optional: without one the session is scoped to the
	// enrollment alone.
	var sub *types.Subtopic
	if sel.SubtopicID != "" {
		subtopicID, err := uuid.Parse(sel.SubtopicID)
		if err != nil {
			return sink.Send(wire.NewError(wire.ErrValidation, "Invalid subtopicId"))
		}
		sub, err = ls.topics.GetSubtopic(dbc, subtopicID)
		if err != nil || sub.MasterTopicID != topic.ID {
			return sink.Send(wire.NewError(wire.ErrNotFound, "Subtopic not found"))
		}
	}

	ut, err := ls.topics.GetOrCreateUserTopic(dbc, st.UserID, topic.ID)
	if err != nil {
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to open topic"))
	}

	title := topic.Name
	subtopicTitle := ""
	var subPtr *uuid.UUID
	if sub != nil {
		title = topic.Name + ": " + sub.Title
		subtopicTitle = sub.Title
		subPtr = &sub.ID
	}

	now := ls.now()
	session := &types.ChatSession{
		UserID:       st.UserID,
		UserTopicID:  ut.ID,
		SubtopicID:   subPtr,
		Title:        title,
		StartedAt:    now,
		LastActivity: now,
	}
	if _, err := ls.sessions.Create(dbc, session); err != nil {
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to start session"))
	}
	if err := ls.topics.UpdateUserTopicFields(dbc, ut.ID, map[string]interface{}{
		"last_accessed_at": now,
	}); err != nil {
		ls.log.Warn("failed to touch user topic", "error", err)
	}

	st.SessionID = &session.ID
	st.UserTopicID = &ut.ID
	st.SubtopicID = subPtr

	if err := sink.Send(wire.NewSessionStarted(session.ID)); err != nil {
		return err
	}

	// The greeting is templated, not generated: no model call happens on
	// topic selection.
	greeting := greetingFor(topic.Name, subtopicTitle)
	suggestions := greetingSuggestions()

	meta, _ := json.Marshal(map[string]any{"suggestions": suggestions})
	if _, err := ls.messages.Create(dbc, []*types.ChatMessage{{
		SessionID: session.ID,
		UserID:    st.UserID,
		Role:      types.MessageRoleAssistant,
		Content:   greeting,
		Metadata:  datatypes.JSON(meta),
	}}); err != nil {
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to save greeting"))
	}

	if err := ls.streamCanned(ctx, sink, greeting); err != nil {
		return err
	}
	done := wire.NewDone()
	done.Suggestions = suggestions
	return sink.Send(done)
}

// streamCanned pushes pre-written text through the same delta framing a
// model reply uses, paced by a ticker rather than sleeps.
func (ls *learningService) streamCanned(ctx context.Context, sink wire.Sink, text string) error {
	if err := sink.Send(wire.NewTyping()); err != nil {
		return err
	}

	p := newPacer(text)
	ticker := time.NewTicker(ls.greetingInterval)
	defer ticker.Stop()

	for {
		chunk, ok := p.Next()
		if !ok {
			return nil
		}
		if err := sink.Send(wire.NewDelta(chunk)); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (ls *learningService) HandleSessionResumed(ctx context.Context, st *wire.ConnState, sink wire.Sink, msg wire.Inbound) error {
	dbc := dbctx.Context{Ctx: ctx}

	var session *types.ChatSession
	switch {
	case msg.SessionID != "":
		id, err := uuid.Parse(msg.SessionID)
		if err != nil {
			return sink.Send(wire.NewError(wire.ErrValidation, "Invalid sessionId"))
		}
		session, err = ls.sessions.GetForUser(dbc, id, st.UserID)
		if err != nil {
			// Missing and not-owned look identical to the client.
			return sink.Send(wire.NewError(wire.ErrNotFound, "Session not found"))
		}
	case msg.TopicID != "":
		topicID, err := uuid.Parse(msg.TopicID)
		if err != nil {
			return sink.Send(wire.NewError(wire.ErrValidation, "Invalid topicId"))
		}
		ut, err := ls.topics.GetOrCreateUserTopic(dbc, st.UserID, topicID)
		if err != nil {
			return sink.Send(wire.NewError(wire.ErrNotFound, "Topic not found"))
		}
		var subPtr *uuid.UUID
		if msg.SubtopicID != "" {
			subID, err := uuid.Parse(msg.SubtopicID)
			if err != nil {
				return sink.Send(wire.NewError(wire.ErrValidation, "Invalid subtopicId"))
			}
			subPtr = &subID
		}
		session, err = ls.sessions.MostRecent(dbc, st.UserID, ut.ID, subPtr)
		if err != nil {
			return sink.Send(wire.NewError(wire.ErrNotFound, "Session not found"))
		}
	default:
		return sink.Send(wire.NewError(wire.ErrValidation, "Missing sessionId"))
	}

	st.SessionID = &session.ID
	st.UserTopicID = &session.UserTopicID
	st.SubtopicID = session.SubtopicID

	if err := ls.sessions.Touch(dbc, session.ID, ls.now()); err != nil {
		ls.log.Warn("failed to touch session", "session_id", session.ID, "error", err)
	}

	history, err := ls.messages.ListRecent(dbc, session.ID, historyWindow)
	if err != nil {
		ls.log.Warn("failed to load session history", "session_id", session.ID, "error", err)
	}
	turns := make([]wire.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, wire.Turn{Role: m.Role, Content: m.Content})
	}
	return sink.Send(wire.SessionResumed{
		Type:      "session_resumed",
		SessionID: session.ID.String(),
		History:   turns,
	})
}

func (ls *learningService) HandleMessage(ctx context.Context, st *wire.ConnState, sink wire.Sink, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return sink.Send(wire.NewError(wire.ErrValidation, "Empty message"))
	}
	if st.SessionID == nil || st.UserTopicID == nil {
		return sink.Send(wire.NewError(wire.ErrValidation, "No active session. Select a topic first."))
	}

	dbc := dbctx.Context{Ctx: ctx}
	tutorCtx, err := ls.loadTutorContext(dbc, st)
	if err != nil {
		ls.log.Error("failed to load tutoring context", "session_id", *st.SessionID, "error", err)
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to load session context"))
	}

	if _, err := ls.messages.Create(dbc, []*types.ChatMessage{{
		SessionID: *st.SessionID,
		UserID:    st.UserID,
		Role:      types.MessageRoleUser,
		Content:   content,
	}}); err != nil {
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to save message"))
	}
	if err := ls.sessions.Touch(dbc, *st.SessionID, ls.now()); err != nil {
		ls.log.Warn("failed to touch session", "session_id", *st.SessionID, "error", err)
	}

	history, err := ls.messages.ListRecent(dbc, *st.SessionID, historyWindow)
	if err != nil {
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to load history"))
	}

	system := learningPrompt + learningContext(
		tutorCtx.topicName, tutorCtx.subtopicTitle,
		tutorCtx.subtopicPercent, tutorCtx.weightage,
	)
	// The greeting counts as one prior turn, so a two-message history
	// means this is the tutor's first real reply.
	if len(history) <= 2 {
		system += firstReplyNote(tutorCtx.skillLevel)
	} else {
		system += continueNote
	}

	msgs := make([]groq.Message, 0, len(history)+1)
	msgs = append(msgs, groq.Message{Role: types.MessageRoleSystem, Content: system})
	for _, m := range history {
		msgs = append(msgs, groq.Message{Role: m.Role, Content: m.Content})
	}

	if err := sink.Send(wire.NewTyping()); err != nil {
		return err
	}

	reply, err := ls.llm.StreamChat(ctx, msgs, groq.StreamOptions{
		OnDelta: func(d string) {
			_ = sink.Send(wire.NewDelta(d))
		},
	})
	if err != nil {
		ls.log.Error("teaching completion failed", "session_id", *st.SessionID, "error", err)
		return sink.Send(wire.NewError(wire.ErrModelUpstream, "Failed to generate a response. Please try again."))
	}

	if _, err := ls.messages.Create(dbc, []*types.ChatMessage{{
		SessionID: *st.SessionID,
		UserID:    st.UserID,
		Role:      types.MessageRoleAssistant,
		Content:   reply,
	}}); err != nil {
		ls.log.Error("failed to persist reply", "session_id", *st.SessionID, "error", err)
	}

	// Second pass: metadata only. Its failure never fails the turn; the
	// done frame is owed to the client once the reply streamed.
	ls.runMetadataPass(ctx, st, sink, tutorCtx, reply)

	return sink.Send(wire.NewDone())
}

type tutorContext struct {
	topicName       string
	subtopicTitle   string
	subtopicID      uuid.UUID
	weightage       float64
	subtopicPercent float64
	skillLevel      string
}

func (ls *learningService) loadTutorContext(dbc dbctx.Context, st *wire.ConnState) (*tutorContext, error) {
	ut, err := ls.topics.GetUserTopic(dbc, *st.UserTopicID)
	if err != nil {
		return nil, fmt.Errorf("load user topic: %w", err)
	}
	topic, err := ls.topics.GetMasterTopic(dbc, ut.MasterTopicID)
	if err != nil {
		return nil, fmt.Errorf("load master topic: %w", err)
	}

	out := &tutorContext{topicName: topic.Name}

	if st.SubtopicID != nil {
		sub, err := ls.topics.GetSubtopic(dbc, *st.SubtopicID)
		if err != nil {
			return nil, fmt.Errorf("load subtopic: %w", err)
		}
		out.subtopicTitle = sub.Title
		out.subtopicID = sub.ID
		out.weightage = sub.Weightage
		if row, err := ls.progressRepo.Get(dbc, st.UserID, ut.ID, sub.ID); err == nil {
			out.subtopicPercent = row.CompletedPercent
		}
	}

	if user, err := ls.users.GetByID(dbc, st.UserID); err == nil {
		out.skillLevel = user.SkillLevel
	}
	return out, nil
}

func (ls *learningService) runMetadataPass(ctx context.Context, st *wire.ConnState, sink wire.Sink, tutorCtx *tutorContext, reply string) {
	userMsg := fmt.Sprintf(
		"Topic: %s\nSubtopic: %s\nCurrent score: %.0f\n\nAssistant reply:\n%s",
		tutorCtx.topicName, tutorCtx.subtopicTitle, tutorCtx.subtopicPercent, reply,
	)

	var handled bool
	_, err := ls.llm.StreamChat(ctx, []groq.Message{
		{Role: types.MessageRoleSystem, Content: metadataPrompt},
		{Role: types.MessageRoleUser, Content: userMsg},
	}, groq.StreamOptions{
		OnStructured: func(payload map[string]any) {
			handled = true
			ls.applyMetadata(ctx, st, sink, tutorCtx, payload)
		},
	})
	if err != nil {
		ls.log.Warn("metadata completion failed", "session_id", *st.SessionID, "error", err)
		return
	}
	if !handled {
		ls.log.Debug("metadata completion returned no payload", "session_id", *st.SessionID)
	}
}

func (ls *learningService) applyMetadata(ctx context.Context, st *wire.ConnState, sink wire.Sink, tutorCtx *tutorContext, payload map[string]any) {
	if suggestions := stringSlice(payload["suggestions"]); len(suggestions) > 0 {
		_ = sink.Send(wire.NewSuggestions(suggestions))
	}

	if pu, ok := payload["progress_update"].(map[string]any); ok && tutorCtx.subtopicID != uuid.Nil {
		score, scoreOK := asFloat(pu["score"])
		reasoning, _ := pu["reasoning"].(string)
		if scoreOK {
			ls.recordAndAnnounce(ctx, st, sink, tutorCtx.subtopicID, score, reasoning)
		}
	}

	if ce, ok := payload["code_execution"].(map[string]any); ok {
		lang, _ := ce["language"].(string)
		code, _ := ce["code"].(string)
		if strings.TrimSpace(code) != "" {
			_ = sink.Send(wire.CodeExecution{Type: "code_execution", Language: lang, Code: code})
		}
	}

	if questions := parseQuizQuestions(payload["quiz"]); len(questions) > 0 {
		st.Quiz = &wire.QuizState{Questions: questions}
		_ = sink.Send(wire.NewQuiz(len(questions), questions[0]))
	}
}

// recordAndAnnounce persists one score and announces the new aggregate on
// this socket and, through the bus, on the user's other sockets.
func (ls *learningService) recordAndAnnounce(ctx context.Context, st *wire.ConnState, sink wire.Sink, subtopicID uuid.UUID, score float64, reasoning string) {
	res, err := ls.progress.RecordScore(ctx, st.UserID, *st.UserTopicID, subtopicID, score, reasoning)
	if err != nil {
		ls.log.Error("failed to record progress", "session_id", *st.SessionID, "error", err)
		return
	}
	frame := wire.ProgressUpdated{
		Type:          "progress_updated",
		TopicID:       st.UserTopicID.String(),
		SubtopicID:    subtopicID.String(),
		Progress:      res.SubtopicPercent,
		TopicProgress: res.TopicPercent,
	}
	_ = sink.Send(frame)
	if ls.events != nil {
		if err := ls.events.Publish(ctx, realtime.Event{
			Kind:         realtime.EventProgressUpdated,
			UserID:       st.UserID,
			OriginConnID: st.ConnID,
			Payload:      frame,
		}); err != nil {
			ls.log.Warn("failed to publish progress event", "error", err)
		}
	}
}

// HandleQuizAnswer judges one answer of the quiz the metadata pass opened,
// advances to the next question, and on completion feeds the tally into
// the progress ledger.
func (ls *learningService) HandleQuizAnswer(ctx context.Context, st *wire.ConnState, sink wire.Sink, content string) error {
	quiz := st.Quiz
	if quiz == nil || quiz.Next >= len(quiz.Questions) {
		return sink.Send(wire.NewError(wire.ErrValidation, "No active quiz"))
	}

	q := quiz.Questions[quiz.Next]
	correct := strings.EqualFold(strings.TrimSpace(content), strings.TrimSpace(q.Answer))
	if correct {
		quiz.Correct++
	}
	if err := sink.Send(wire.QuizAck{
		Type:    "quiz_ack",
		Index:   quiz.Next,
		Correct: correct,
		Answer:  q.Answer,
	}); err != nil {
		return err
	}
	quiz.Next++

	if quiz.Next < len(quiz.Questions) {
		return sink.Send(wire.QuizNext{
			Type:     "quiz_next",
			Index:    quiz.Next,
			Question: quiz.Questions[quiz.Next],
		})
	}

	score := float64(quiz.Correct) / float64(len(quiz.Questions)) * 100
	if st.SubtopicID != nil && st.UserTopicID != nil {
		reasoning := fmt.Sprintf("quiz result: %d/%d correct", quiz.Correct, len(quiz.Questions))
		ls.recordAndAnnounce(ctx, st, sink, *st.SubtopicID, score, reasoning)
	}
	st.Quiz = nil
	return sink.Send(wire.QuizComplete{
		Type:    "quiz_complete",
		Correct: quiz.Correct,
		Total:   len(quiz.Questions),
		Score:   score,
	})
}

// parseQuizQuestions validates the metadata pass's quiz payload. Questions
// missing a prompt or an expected answer are dropped; an empty result
// leaves the turn quiz-free.
func parseQuizQuestions(v any) []wire.QuizQuestion {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	items, ok := raw["questions"].([]any)
	if !ok {
		return nil
	}
	out := make([]wire.QuizQuestion, 0, len(items))
	for _, item := range items {
		qm, ok := item.(map[string]any)
		if !ok {
			continue
		}
		question, _ := qm["question"].(string)
		answer, _ := qm["answer"].(string)
		if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
			continue
		}
		out = append(out, wire.QuizQuestion{
			Question: question,
			Options:  stringSlice(qm["options"]),
			Answer:   answer,
		})
	}
	return out
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

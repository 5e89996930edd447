package wire

import "github.com/google/uuid"

// Inbound message types accepted over the socket.
const (
	TypeStartOnboarding   = "start_onboarding"
	TypeOnboardingMessage = "onboarding_message"
	TypeMessage           = "message"
	TypeTopicSelected     = "topic_selected"
	TypeSessionResumed    = "session_resumed"
	TypeNewChat           = "new_chat"
	TypeQuizAnswer        = "quiz_answer"
)

// Error taxonomy carried in the error envelope.
const (
	ErrValidation    = "VALIDATION_ERROR"
	ErrAuth          = "AUTH_ERROR"
	ErrNotFound      = "NOT_FOUND"
	ErrRateLimited   = "RATE_LIMITED"
	ErrInternal      = "INTERNAL_ERROR"
	ErrUnsupported   = "UNSUPPORTED_MESSAGE"
	ErrModelUpstream = "MODEL_ERROR"
)

// Inbound is the envelope parsed from every client frame. Fields are
// populated per message type; absent fields stay zero.
type Inbound struct {
	Type       string       `json:"type"`
	Content    string       `json:"content,omitempty"`
	Topic      *TopicSelect `json:"topic,omitempty"`
	SessionID  string       `json:"sessionId,omitempty"`
	TopicID    string       `json:"topicId,omitempty"`
	SubtopicID string       `json:"subtopicId,omitempty"`
}

// TopicSelect is the payload of a topic_selected frame.
type TopicSelect struct {
	TopicID    string `json:"topicId"`
	SubtopicID string `json:"subtopicId"`
	Name       string `json:"name"`
	Subtopic   string `json:"subtopic"`
}

// ---- Outbound frames ----

type Message struct {
	Type        string   `json:"type"`
	Content     string   `json:"content"`
	Sender      string   `json:"sender,omitempty"`
	CurrentStep string   `json:"currentStep,omitempty"`
	InputType   string   `json:"inputType,omitempty"`
	Options     []string `json:"options,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func NewMessage(content string) Message {
	return Message{Type: "message", Content: content, Sender: "assistant"}
}

type Delta struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func NewDelta(content string) Delta {
	return Delta{Type: "delta", Content: content}
}

type Typing struct {
	Type string `json:"type"`
}

func NewTyping() Typing { return Typing{Type: "typing"} }

type Done struct {
	Type        string   `json:"type"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func NewDone() Done { return Done{Type: "done"} }

type Suggestions struct {
	Type        string   `json:"type"`
	Suggestions []string `json:"suggestions"`
}

func NewSuggestions(s []string) Suggestions {
	return Suggestions{Type: "suggestions", Suggestions: s}
}

type ProgressUpdated struct {
	Type          string  `json:"type"`
	TopicID       string  `json:"topicId"`
	SubtopicID    string  `json:"subtopicId"`
	Progress      float64 `json:"progress"`
	TopicProgress float64 `json:"topicProgress"`
}

type SessionStarted struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

func NewSessionStarted(id uuid.UUID) SessionStarted {
	return SessionStarted{Type: "session_started", SessionID: id.String()}
}

// SessionResumed acknowledges a resumption and replays the recent window
// of the conversation so the client can re-render it.
type SessionResumed struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	History   []Turn `json:"history,omitempty"`
}

type OnboardingComplete struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	SkillLevel string `json:"skillLevel,omitempty"`
}

type Authenticated struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type AuthRequired struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewAuthRequired() AuthRequired {
	return AuthRequired{Type: "auth_required", Message: "Authentication required"}
}

// QuizQuestion is one question of an in-session quiz. The expected answer
// stays server-side; frames carry the question and options only.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Answer   string   `json:"-"`
}

// Quiz opens a quiz turn with its first question.
type Quiz struct {
	Type     string       `json:"type"`
	Total    int          `json:"total"`
	Index    int          `json:"index"`
	Question QuizQuestion `json:"question"`
}

func NewQuiz(total int, first QuizQuestion) Quiz {
	return Quiz{Type: "quiz", Total: total, Index: 0, Question: first}
}

// QuizAck judges one submitted answer and reveals the expected one.
type QuizAck struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Correct bool   `json:"correct"`
	Answer  string `json:"answer"`
}

// QuizNext advances the quiz to the following question.
type QuizNext struct {
	Type     string       `json:"type"`
	Index    int          `json:"index"`
	Question QuizQuestion `json:"question"`
}

// QuizComplete closes the quiz with the final tally.
type QuizComplete struct {
	Type    string  `json:"type"`
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Score   float64 `json:"score"`
}

// CodeExecution forwards a model-signaled runnable snippet to the client.
type CodeExecution struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
	Code     string `json:"code,omitempty"`
}

type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorFrame is the single error envelope every failure path uses.
type ErrorFrame struct {
	Type  string    `json:"type"`
	Error ErrorBody `json:"error"`
}

func NewError(kind, message string) ErrorFrame {
	return ErrorFrame{Type: "error", Error: ErrorBody{Type: kind, Message: message}}
}

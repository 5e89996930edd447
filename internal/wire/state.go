package wire

import "github.com/google/uuid"

// Sink delivers one outbound frame to a connected client. Implementations
// must be safe for concurrent use.
type Sink interface {
	Send(v any) error
}

// Turn is one onboarding exchange kept in connection memory; the
// transcript is persisted onto the user row only at completion.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConnState is the per-connection session context. It is owned by the
// connection's read loop: flows receive it synchronously, one message at
// a time, so no locking is needed.
type ConnState struct {
	// ConnID identifies this socket for cross-instance fan-out.
	ConnID uuid.UUID

	Authenticated  bool
	UserID         uuid.UUID
	OnboardingDone bool

	// Active tutoring scope. Nil until a topic is selected or a session
	// is resumed.
	SessionID   *uuid.UUID
	UserTopicID *uuid.UUID
	SubtopicID  *uuid.UUID

	// Quiz is the in-flight quiz, if the metadata pass opened one. Like
	// the transcript it is connection-local.
	Quiz *QuizState

	OnboardingTranscript []Turn
}

// QuizState tracks quiz progress between answer frames.
type QuizState struct {
	Questions []QuizQuestion
	Next      int
	Correct   int
}

// ClearSession drops the active tutoring scope, e.g. on new_chat.
func (s *ConnState) ClearSession() {
	s.SessionID = nil
	s.UserTopicID = nil
	s.SubtopicID = nil
	s.Quiz = nil
}

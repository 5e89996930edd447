package groq

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
)

func testClient(t *testing.T, baseURL string) *client {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &client{
		log:        log,
		baseURL:    baseURL,
		apiKey:     "test-key",
		model:      "test-model",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		maxRetries: 1,
	}
}

func sseChunk(content string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
}

func TestStreamChatDeltasMatchFullText(t *testing.T) {
	fragments := []string{"Hello", ", ", "world", "!"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range fragments {
			_, _ = fmt.Fprint(w, sseChunk(f))
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	var deltas []string
	full, err := c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, StreamOptions{
		OnDelta: func(d string) { deltas = append(deltas, d) },
	})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if full != "Hello, world!" {
		t.Fatalf("full text: %q", full)
	}
	if strings.Join(deltas, "") != full {
		t.Fatalf("delta concat %q != full %q", strings.Join(deltas, ""), full)
	}
}

func TestStreamChatStructuredPayloadFiresOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, sseChunk("prefix "))
		_, _ = fmt.Fprint(w, sseChunk("```json\n{\"progress_update\":{\"score\":60}}\n```"))
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	calls := 0
	var got map[string]any
	_, err := c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, StreamOptions{
		OnStructured: func(p map[string]any) {
			calls++
			got = p
		},
	})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if calls != 1 {
		t.Fatalf("OnStructured calls = %d, want 1", calls)
	}
	pu, ok := got["progress_update"].(map[string]any)
	if !ok || pu["score"].(float64) != 60 {
		t.Fatalf("payload: %#v", got)
	}
}

func TestStreamChatNoStructuredPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, sseChunk("plain prose only"))
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	_, err := c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, StreamOptions{
		OnStructured: func(p map[string]any) {
			t.Fatalf("OnStructured should not fire: %#v", p)
		},
	})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
}

func TestStreamChatNonRetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	_, err := c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, StreamOptions{})
	if err == nil {
		t.Fatalf("expected error")
	}
	var he *groqHTTPError
	if !asHTTPError(err, &he) || he.StatusCode != http.StatusBadRequest {
		t.Fatalf("error: %v", err)
	}
}

func TestStreamChatDoesNotRetryAfterEmittedDelta(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "text/event-stream")
		if attempts == 1 {
			_, _ = fmt.Fprint(w, sseChunk("Hel"))
			_, _ = fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\"}}\n\n")
			return
		}
		_, _ = fmt.Fprint(w, sseChunk("Hello"))
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	var deltas []string
	_, err := c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, StreamOptions{
		OnDelta: func(d string) { deltas = append(deltas, d) },
	})
	if err == nil {
		t.Fatalf("expected error after mid-stream failure")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1: a retry would replay fragments the caller already saw", attempts)
	}
	if got := strings.Join(deltas, ""); got != "Hel" {
		t.Fatalf("deltas = %q, want only the pre-failure fragment", got)
	}
}

func TestStreamChatRetriesMidStreamFailureWithoutDeltas(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "text/event-stream")
		if attempts == 1 {
			_, _ = fmt.Fprint(w, sseChunk("Hel"))
			_, _ = fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\"}}\n\n")
			return
		}
		_, _ = fmt.Fprint(w, sseChunk("Hello"))
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	// No OnDelta: nothing escaped, so the retry is safe (the metadata pass
	// relies on this).
	full, err := c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, StreamOptions{})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if full != "Hello" {
		t.Fatalf("full: %q", full)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestStreamChatRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, sseChunk("recovered"))
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	full, err := c.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}}, StreamOptions{})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if full != "recovered" {
		t.Fatalf("full: %q", full)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
)

// Message is one chat turn sent to the completions API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamOptions controls a single streamed completion. OnDelta fires once
// per content fragment in arrival order; OnStructured fires at most once,
// after the stream ends, when the accumulated text carries a trailing JSON
// payload.
type StreamOptions struct {
	Model        string
	Temperature  *float64
	MaxTokens    int
	OnDelta      func(delta string)
	OnStructured func(payload map[string]any)
}

// Client streams chat completions. StreamChat returns the full
// concatenated text; the concatenation of OnDelta fragments always equals
// the returned value.
type Client interface {
	StreamChat(ctx context.Context, messages []Message, opts StreamOptions) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int

	temperature *float64
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GROQ_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("GROQ_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("GROQ_MODEL"))
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}

	timeoutSec := 120
	if v := strings.TrimSpace(os.Getenv("GROQ_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := strings.TrimSpace(os.Getenv("GROQ_MAX_RETRIES")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	var tempPtr *float64
	if v := strings.TrimSpace(os.Getenv("GROQ_TEMPERATURE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			tempPtr = &f
		}
	} else {
		t := 0.7
		tempPtr = &t
	}

	return &client{
		log:         log.With("service", "GroqClient"),
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		httpClient:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries:  maxRetries,
		temperature: tempPtr,
	}, nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type groqHTTPError struct {
	StatusCode int
	Body       string
}

func (e *groqHTTPError) Error() string {
	return fmt.Sprintf("groq http %d: %s", e.StatusCode, e.Body)
}

func retryable(err error) bool {
	var he *groqHTTPError
	if asHTTPError(err, &he) {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	// Network-level failures are worth another attempt.
	return true
}

func asHTTPError(err error, out **groqHTTPError) bool {
	for err != nil {
		if he, ok := err.(*groqHTTPError); ok {
			*out = he
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func (c *client) StreamChat(ctx context.Context, messages []Message, opts StreamOptions) (string, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = c.model
	}
	temp := opts.Temperature
	if temp == nil {
		temp = c.temperature
	}
	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temp,
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	}

	backoff := 1 * time.Second
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		full, emitted, err := c.streamOnce(ctx, reqBody, opts.OnDelta)
		if err == nil {
			if opts.OnStructured != nil {
				if payload, ok := ExtractStructured(full); ok {
					opts.OnStructured(payload)
				}
			}
			return full, nil
		}
		lastErr = err

		// Once a delta has reached the caller it cannot be unsent; a retry
		// would replay the opening fragments and the concatenation of
		// OnDelta calls would no longer match the returned text.
		if emitted || !retryable(err) || attempt == c.maxRetries {
			return "", err
		}

		c.log.Warn("completion request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", backoff.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", lastErr
}

// streamOnce performs one streamed request. The second return reports
// whether any delta was forwarded to onDelta before the error, i.e.
// whether partial output already escaped to the caller.
func (c *client) streamOnce(ctx context.Context, body chatRequest, onDelta func(string)) (string, bool, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", false, &groqHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var full strings.Builder
	var emitted bool
	err = streamSSE(resp.Body, func(_ string, data string) error {
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			return nil
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Unparseable keep-alive noise; skip rather than abort the stream.
			return nil
		}
		if chunk.Error != nil {
			return fmt.Errorf("completion stream error: %s", chunk.Error.Message)
		}
		for _, ch := range chunk.Choices {
			if d := ch.Delta.Content; d != "" {
				full.WriteString(d)
				if onDelta != nil {
					emitted = true
					onDelta(d)
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", emitted, err
	}
	return full.String(), false, nil
}

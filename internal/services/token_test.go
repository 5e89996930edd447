package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	ts, err := NewTokenService(testLogger(), "test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	userID := uuid.New()
	token, err := ts.Issue(userID, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != userID {
		t.Fatalf("subject: got %s want %s", got, userID)
	}
}

func TestTokenVerifyRejects(t *testing.T) {
	ts, err := NewTokenService(testLogger(), "test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	other, err := NewTokenService(testLogger(), "different-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	userID := uuid.New()

	if _, err := ts.Verify(""); err == nil {
		t.Fatalf("empty token accepted")
	}
	if _, err := ts.Verify("not-a-jwt"); err == nil {
		t.Fatalf("garbage token accepted")
	}

	foreign, err := other.Issue(userID, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := ts.Verify(foreign); err == nil {
		t.Fatalf("token signed with a different secret accepted")
	}

	expired, err := ts.Issue(userID, -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := ts.Verify(expired); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService(testLogger(), ""); err == nil {
		t.Fatalf("empty secret accepted")
	}
}

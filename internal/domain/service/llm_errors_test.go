package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError_Quota(t *testing.T) {
	cases := []string{
		"429 You exceeded your current quota",
		"rate limit reached for requests",
		"RESOURCE_EXHAUSTED: try again later",
	}
	for _, msg := range cases {
		classified := ClassifyError(errors.New(msg), "gemini", "gemini-2.5-flash")
		if classified.Kind != ErrKindQuota {
			t.Errorf("%q: kind = %s, want quota", msg, classified.Kind)
		}
	}

	classified := ClassifyError(errors.New("429 You exceeded your current quota"), "gemini", "m")
	if classified.StatusCode != 429 {
		t.Errorf("status code = %d, want 429", classified.StatusCode)
	}
	if !IsQuotaError(classified) {
		t.Errorf("IsQuotaError = false, want true")
	}
}

func TestClassifyError_Blocked(t *testing.T) {
	classified := ClassifyError(errors.New("prompt blocked by SAFETY settings"), "gemini", "m")
	if classified.Kind != ErrKindBlocked {
		t.Errorf("kind = %s, want blocked", classified.Kind)
	}
	if !IsBlockedError(classified) {
		t.Errorf("IsBlockedError = false, want true")
	}
}

func TestClassifyError_Cancelled(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w", context.Canceled)
	classified := ClassifyError(wrapped, "gemini", "m")
	if classified.Kind != ErrKindCancelled {
		t.Errorf("kind = %s, want cancelled", classified.Kind)
	}

	classified = ClassifyError(context.DeadlineExceeded, "gemini", "m")
	if classified.Kind != ErrKindCancelled {
		t.Errorf("deadline: kind = %s, want cancelled", classified.Kind)
	}
}

func TestClassifyError_Auth(t *testing.T) {
	classified := ClassifyError(errors.New("401 unauthorized: invalid api key"), "openai", "gpt-4o")
	if classified.Kind != ErrKindAuth {
		t.Errorf("kind = %s, want auth", classified.Kind)
	}
	if classified.StatusCode != 401 {
		t.Errorf("status code = %d, want 401", classified.StatusCode)
	}
}

func TestClassifyError_DefaultTransient(t *testing.T) {
	classified := ClassifyError(errors.New("connection reset by peer"), "gemini", "m")
	if classified.Kind != ErrKindTransient {
		t.Errorf("kind = %s, want transient", classified.Kind)
	}
}

func TestClassifyError_PassthroughAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	original := &LLMError{Kind: ErrKindBlocked, Message: "blocked by safety policy", Cause: cause}

	wrapped := fmt.Errorf("generate: %w", original)
	classified := ClassifyError(wrapped, "gemini", "m")
	if classified != original {
		t.Fatalf("expected the already-classified error to pass through")
	}
	if !errors.Is(classified, cause) {
		t.Errorf("expected the cause to stay on the unwrap chain")
	}
	if IsQuotaError(wrapped) {
		t.Errorf("IsQuotaError on a blocked error = true, want false")
	}
	if !IsBlockedError(wrapped) {
		t.Errorf("IsBlockedError through wrapping = false, want true")
	}
}

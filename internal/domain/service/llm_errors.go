package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// LLMErrorKind classifies LLM errors for reporting decisions.
type LLMErrorKind int

const (
	// ErrKindTransient means the error is temporary and retrying may succeed.
	// Examples: timeout, network reset, 502/503/504.
	ErrKindTransient LLMErrorKind = iota

	// ErrKindAuth means authentication or authorization failed.
	// Examples: invalid API key, 401/403.
	ErrKindAuth

	// ErrKindBadRequest means the request itself is malformed.
	// Examples: invalid argument, model not found, 400.
	ErrKindBadRequest

	// ErrKindBlocked means the prompt was rejected by the provider's
	// safety policy rather than failing technically.
	ErrKindBlocked

	// ErrKindQuota means the provider refused the request over usage
	// limits. Examples: 429, quota exhausted, rate limit.
	ErrKindQuota

	// ErrKindCancelled means the request was explicitly cancelled.
	// Examples: context.Canceled, context.DeadlineExceeded.
	ErrKindCancelled
)

var kindLabels = [...]string{
	ErrKindTransient:  "transient",
	ErrKindAuth:       "auth",
	ErrKindBadRequest: "bad_request",
	ErrKindBlocked:    "blocked",
	ErrKindQuota:      "quota",
	ErrKindCancelled:  "cancelled",
}

// String returns a human-readable label for the error kind.
func (k LLMErrorKind) String() string {
	if k < 0 || int(k) >= len(kindLabels) {
		return "unknown"
	}
	return kindLabels[k]
}

// LLMError is a structured error from an LLM operation. The kind and
// provider metadata let the conversation layer pick the matching
// user-facing reply instead of echoing raw provider output.
type LLMError struct {
	Kind       LLMErrorKind
	Message    string
	StatusCode int    // HTTP status if one could be determined, else 0
	Provider   string
	Model      string
	Cause      error
}

func (e *LLMError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap enables errors.Is/errors.As on the cause chain.
func (e *LLMError) Unwrap() error {
	return e.Cause
}

// IsQuotaError reports whether err is an LLM quota or rate limit failure.
func IsQuotaError(err error) bool {
	var llmErr *LLMError
	return errors.As(err, &llmErr) && llmErr.Kind == ErrKindQuota
}

// IsBlockedError reports whether err is a safety policy rejection.
func IsBlockedError(err error) bool {
	var llmErr *LLMError
	return errors.As(err, &llmErr) && llmErr.Kind == ErrKindBlocked
}

// classifyRules are checked in order against the lowercased error text.
// Quota sits before auth so a 429 carrying an explanatory body never
// reads as an authentication failure.
var classifyRules = []struct {
	kind     LLMErrorKind
	message  string
	patterns []string
}{
	{ErrKindQuota, "quota exceeded",
		[]string{"429", "quota", "resource_exhausted", "resource exhausted", "rate limit", "too many requests"}},
	{ErrKindBlocked, "blocked by safety policy",
		[]string{"safety", "blocked", "content filter", "content policy", "prohibited"}},
	{ErrKindAuth, "authentication failed",
		[]string{"unauthorized", "invalid api key", "401", "403", "authentication", "permission denied"}},
	{ErrKindBadRequest, "invalid request",
		[]string{"bad request", "invalid argument", "model not found", "400", "invalid_request"}},
}

// ClassifyError examines an error and returns a classified LLMError.
// An error that is already an *LLMError passes through unchanged;
// anything else is pattern-matched against known categories and falls
// back to transient.
func ClassifyError(err error, provider, model string) *LLMError {
	if err == nil {
		return nil
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(errStr, "context canceled") ||
		strings.Contains(errStr, "context deadline exceeded") {
		return &LLMError{
			Kind:     ErrKindCancelled,
			Message:  "request cancelled",
			Provider: provider,
			Model:    model,
			Cause:    err,
		}
	}

	kind, message := ErrKindTransient, "transient error"
	for _, rule := range classifyRules {
		if containsAny(errStr, rule.patterns) {
			kind, message = rule.kind, rule.message
			break
		}
	}

	return &LLMError{
		Kind:       kind,
		Message:    message,
		StatusCode: extractStatusCode(errStr),
		Provider:   provider,
		Model:      model,
		Cause:      err,
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// statusCodes lists the codes extractStatusCode scans for, in the order
// they are tried.
var statusCodes = []int{400, 401, 403, 404, 429, 500, 502, 503, 504, 529}

func extractStatusCode(errStr string) int {
	for _, code := range statusCodes {
		if strings.Contains(errStr, strconv.Itoa(code)) {
			return code
		}
	}
	return 0
}

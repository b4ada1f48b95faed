package service

import (
	"context"

	"github.com/mollysec/molly/internal/domain/tool"
)

// Conversation roles. Providers translate RoleModel into their native
// assistant role.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// LLMMessage is a single conversation turn.
type LLMMessage struct {
	Role    string
	Content string
}

// LLMRequest is a provider-agnostic generation request.
type LLMRequest struct {
	System   string
	Messages []LLMMessage
	Tools    []tool.Definition
	Model    string
}

// LLMResponse is the provider's reply to a generation request.
type LLMResponse struct {
	Content    string
	ModelUsed  string
	TokensUsed int
}

// LLMClient is the interface for calling language model providers.
// It decouples conversation handling from specific provider
// implementations.
type LLMClient interface {
	Generate(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
}

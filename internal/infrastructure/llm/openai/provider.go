// Package openai adapts the OpenAI chat completions API to the
// provider interface. Unlike the Gemini provider it rides on the
// official-compatible SDK instead of hand-rolled HTTP.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/domain/service"
	llm "github.com/mollysec/molly/internal/infrastructure/llm"
)

const defaultTimeout = 120 * time.Second

func init() {
	llm.RegisterFactory("openai", func(cfg llm.ProviderConfig, logger *zap.Logger) llm.Provider {
		return New(cfg, logger)
	})
}

// Provider implements the OpenAI chat completions API.
type Provider struct {
	name   string
	apiKey string
	client *openai.Client
	logger *zap.Logger
}

// New creates an OpenAI provider. BaseURL may point at any
// OpenAI-compatible endpoint.
func New(cfg llm.ProviderConfig, logger *zap.Logger) *Provider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	return &Provider{
		name:   name,
		apiKey: cfg.APIKey,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger.With(zap.String("provider", name), zap.String("type", "openai")),
	}
}

var _ llm.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return p.name }

func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.apiKey != ""
}

// Generate implements service.LLMClient.
func (p *Provider) Generate(ctx context.Context, req *service.LLMRequest) (*service.LLMResponse, error) {
	apiReq := p.buildAPIRequest(req)

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, p.classify(err, req.Model)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty OpenAI response: no choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return nil, &service.LLMError{
			Kind:     service.ErrKindBlocked,
			Message:  "response stopped by content filter",
			Provider: p.name,
			Model:    req.Model,
		}
	}

	if choice.Message.Content == "" {
		return nil, fmt.Errorf("OpenAI response contained no text content")
	}

	return &service.LLMResponse{
		Content:    choice.Message.Content,
		ModelUsed:  resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// --- Internal ---

func (p *Provider) buildAPIRequest(req *service.LLMRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, msg := range req.Messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == service.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}

	for _, td := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  td.Parameters,
			},
		})
	}

	return apiReq
}

func (p *Provider) classify(err error, model string) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		kind := service.ErrKindTransient
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			kind = service.ErrKindQuota
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = service.ErrKindAuth
		case http.StatusBadRequest:
			kind = service.ErrKindBadRequest
		}
		return &service.LLMError{
			Kind:       kind,
			Message:    fmt.Sprintf("OpenAI API error %d", apiErr.HTTPStatusCode),
			StatusCode: apiErr.HTTPStatusCode,
			Provider:   p.name,
			Model:      model,
			Cause:      err,
		}
	}
	return service.ClassifyError(err, p.name, model)
}

package gemini

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/domain/service"
	llm "github.com/mollysec/molly/internal/infrastructure/llm"
)

const defaultTimeout = 120 * time.Second

func init() {
	llm.RegisterFactory("gemini", func(cfg llm.ProviderConfig, logger *zap.Logger) llm.Provider {
		return New(cfg, logger)
	})
}

// Provider talks to the Google Gemini API natively.
type Provider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// New creates a Google Gemini API provider.
func New(cfg llm.ProviderConfig, logger *zap.Logger) *Provider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	name := cfg.Name
	if name == "" {
		name = "gemini"
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   15 * time.Second,
			ResponseHeaderTimeout: timeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   5,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}

	return &Provider{
		name:    name,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  client,
		logger:  logger.With(zap.String("provider", name), zap.String("type", "gemini")),
	}
}

var _ llm.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return p.name }

func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.apiKey != ""
}

// Generate implements service.LLMClient (non-streaming).
func (p *Provider) Generate(ctx context.Context, req *service.LLMRequest) (*service.LLMResponse, error) {
	model := stripPrefix(req.Model)

	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, service.ClassifyError(fmt.Errorf("HTTP request failed: %w", err), p.name, model)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.statusError(resp.StatusCode, respBody, model)
	}

	return p.parseResponse(respBody, model)
}

// stripPrefix drops a "provider/" prefix from a routed model name, so
// "gemini/gemini-2.5-flash" becomes the bare API model id.
func stripPrefix(model string) string {
	if idx := strings.Index(model, "/"); idx >= 0 {
		return model[idx+1:]
	}
	return model
}

func buildRequest(req *service.LLMRequest) *generateRequest {
	out := &generateRequest{
		Contents: make([]content, 0, len(req.Messages)),
	}

	if req.System != "" {
		out.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}

	for _, msg := range req.Messages {
		turn := content{Role: "user", Parts: []part{{Text: msg.Content}}}
		if msg.Role == service.RoleModel {
			turn.Role = "model"
		}
		out.Contents = append(out.Contents, turn)
	}

	if len(req.Tools) == 0 {
		return out
	}

	decls := make([]functionDeclaration, 0, len(req.Tools))
	for _, td := range req.Tools {
		decls = append(decls, functionDeclaration{
			Name:        td.Name,
			Description: td.Description,
			Parameters:  normalizeSchema(td.Parameters),
		})
	}
	out.Tools = []toolSpec{{FunctionDeclarations: decls}}

	return out
}

// normalizeSchema guarantees the parameter schema the API receives is a
// well-formed object schema even when a tool declares none.
func normalizeSchema(schema map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{"type": "object"}
	if schema == nil {
		out["properties"] = map[string]interface{}{}
		return out
	}
	for k, v := range schema {
		out[k] = v
	}
	return out
}

// statusError maps an HTTP failure to a classified LLM error so the
// conversation layer can pick the matching user-facing reply.
func (p *Provider) statusError(status int, body []byte, model string) error {
	kind := service.ErrKindTransient
	switch status {
	case http.StatusTooManyRequests:
		kind = service.ErrKindQuota
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = service.ErrKindAuth
	case http.StatusBadRequest:
		kind = service.ErrKindBadRequest
	}

	detail := strings.TrimSpace(string(body))
	if len(detail) > 2048 {
		detail = detail[:2048]
	}

	return &service.LLMError{
		Kind:       kind,
		Message:    fmt.Sprintf("Gemini API error %d", status),
		StatusCode: status,
		Provider:   p.name,
		Model:      model,
		Cause:      fmt.Errorf("%s", detail),
	}
}

func (p *Provider) parseResponse(body []byte, model string) (*service.LLMResponse, error) {
	var apiResp generateResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse Gemini response: %w", err)
	}

	if fb := apiResp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, &service.LLMError{
			Kind:     service.ErrKindBlocked,
			Message:  fmt.Sprintf("prompt blocked: %s", fb.BlockReason),
			Provider: p.name,
			Model:    model,
		}
	}

	if len(apiResp.Candidates) == 0 {
		return nil, fmt.Errorf("empty Gemini response: no candidates")
	}

	best := apiResp.Candidates[0]
	if best.FinishReason == "SAFETY" {
		return nil, &service.LLMError{
			Kind:     service.ErrKindBlocked,
			Message:  "candidate blocked by safety settings",
			Provider: p.name,
			Model:    model,
		}
	}

	resp := &service.LLMResponse{ModelUsed: apiResp.ModelVersion}
	if resp.ModelUsed == "" {
		resp.ModelUsed = model
	}
	if u := apiResp.UsageMetadata; u != nil {
		resp.TokensUsed = u.TotalTokenCount
		if resp.TokensUsed == 0 {
			resp.TokensUsed = u.PromptTokenCount + u.CandidatesTokenCount
		}
	}

	// Extract text from parts. The system directive steers the model to
	// answer in text (with fenced JSON for intents), so a native function
	// call with no text counts as a failed turn.
	for _, pt := range best.Content.Parts {
		if pt.Text != "" {
			resp.Content += pt.Text
		}
		if pt.FunctionCall != nil {
			p.logger.Debug("Ignoring native function call in response",
				zap.String("function", pt.FunctionCall.Name))
		}
	}

	if resp.Content == "" {
		return nil, fmt.Errorf("Gemini response contained no text parts")
	}

	return resp, nil
}

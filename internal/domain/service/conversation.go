package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/domain/tool"
)

// Tool intent actions the orchestrator dispatches. Five tools are
// declared to the model, but only these three are executable; the rest
// fall back to prose handling.
const (
	ActionStartNetworkScan           = "start_network_scan"
	ActionGetScanResults             = "get_scan_results"
	ActionGenerateDetailedHostReport = "generate_detailed_host_report"
)

// Intent is a tool invocation the model requested via a fenced JSON
// block. Top-level target and session_name keys are promoted into
// Parameters for backward compatibility with older model outputs.
type Intent struct {
	Action     string
	Parameters map[string]interface{}
}

// ConversationContext owns the ordered turn history of one chat. It is
// bound at construction to a system directive and a declared tool set.
//
// It is not internally synchronized: the dispatcher serializes
// concurrent calls on the same chat.
type ConversationContext struct {
	client  LLMClient
	system  string
	tools   []tool.Definition
	model   string
	history []LLMMessage
	logger  *zap.Logger
}

// NewConversationContext creates a context with an empty history.
func NewConversationContext(client LLMClient, system string, tools []tool.Definition, model string, logger *zap.Logger) *ConversationContext {
	return &ConversationContext{
		client: client,
		system: system,
		tools:  tools,
		model:  model,
		logger: logger,
	}
}

// Ask composes a dynamic user turn from the four named fields and sends
// it. If the reply carries a fenced JSON block with an action field, the
// decoded intent is returned; otherwise the reply is plain prose.
// Provider failures leave the history untouched.
func (c *ConversationContext) Ask(ctx context.Context, objective, inputType, inputData, responseRequirements string) (string, *Intent, error) {
	prompt := fmt.Sprintf(
		"**Objetivo actual de esta interacción:** %s\n"+
			"**Tipo de entrada:** %s\n"+
			"**Petición del usuario:** %s\n"+
			"**Requisitos de respuesta específicos:** %s\n",
		objective, inputType, inputData, responseRequirements,
	)

	reply, err := c.send(ctx, prompt)
	if err != nil {
		return "", nil, err
	}

	if intent := extractIntent(reply); intent != nil {
		c.logger.Info("Model suggested an action",
			zap.String("action", intent.Action),
		)
		return "", intent, nil
	}

	return reply, nil, nil
}

// InjectToolResult appends tool output to the conversation as a
// synthetic user turn. Never a tool-role turn: the provider's strict
// function_response contract does not apply to free-form user text.
// If followUp is non-empty it is sent afterwards and its reply is
// returned; otherwise the model's immediate reaction to the injection
// is returned.
func (c *ConversationContext) InjectToolResult(ctx context.Context, toolOutput map[string]interface{}, followUp string) (string, error) {
	payload, err := json.MarshalIndent(toolOutput, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode tool output: %w", err)
	}

	framed := "Aquí están los resultados de la acción solicitada:\n```json\n" + string(payload) + "\n```\n"

	c.logger.Debug("Injecting tool results as a user turn",
		zap.Int("payload_bytes", len(payload)),
	)

	reply, err := c.send(ctx, framed)
	if err != nil {
		return "", err
	}

	if followUp != "" {
		return c.send(ctx, followUp)
	}
	return reply, nil
}

// Reset discards the history. The system directive and tool bindings
// remain.
func (c *ConversationContext) Reset() {
	c.history = nil
	c.logger.Info("Chat history reset")
}

// History returns a copy of the recorded turns.
func (c *ConversationContext) History() []LLMMessage {
	out := make([]LLMMessage, len(c.history))
	copy(out, c.history)
	return out
}

// send performs one round trip. The user turn and the model's reply are
// recorded only when the call succeeds.
func (c *ConversationContext) send(ctx context.Context, content string) (string, error) {
	req := &LLMRequest{
		System:   c.system,
		Messages: append(append([]LLMMessage{}, c.history...), LLMMessage{Role: RoleUser, Content: content}),
		Tools:    c.tools,
		Model:    c.model,
	}

	resp, err := c.client.Generate(ctx, req)
	if err != nil {
		c.logger.Error("LLM call failed", zap.Error(err))
		return "", err
	}

	c.history = append(c.history,
		LLMMessage{Role: RoleUser, Content: content},
		LLMMessage{Role: RoleModel, Content: resp.Content},
	)

	return strings.TrimSpace(resp.Content), nil
}

// extractIntent scans text for a fenced JSON block containing an action
// field. Malformed JSON, a non-object payload or a missing closing fence
// all mean the text is prose.
func extractIntent(text string) *Intent {
	start := strings.Index(text, "```json")
	if start < 0 {
		return nil
	}
	start += len("```json")

	end := strings.Index(text[start:], "```")
	if end < 0 {
		return nil
	}
	jsonStr := strings.TrimSpace(text[start : start+end])

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &decoded); err != nil {
		return nil
	}

	rawAction, ok := decoded["action"]
	if !ok {
		return nil
	}
	action, ok := rawAction.(string)
	if !ok {
		action = fmt.Sprintf("%v", rawAction)
	}

	params, _ := decoded["parameters"].(map[string]interface{})
	if params == nil {
		params = make(map[string]interface{})
	}
	for _, key := range []string{"target", "session_name"} {
		if v, ok := decoded[key]; ok {
			if _, exists := params[key]; !exists {
				params[key] = v
			}
		}
	}

	return &Intent{Action: action, Parameters: params}
}

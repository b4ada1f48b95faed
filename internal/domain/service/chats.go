package service

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/domain/tool"
)

// ChatRegistry hands out one ConversationContext per chat id, creating it
// lazily on first use. ConversationContext is not synchronized, so the
// registry also owns a per-chat lock: Acquire returns the context with its
// lock held and the caller releases it when the turn is finished. Turns on
// the same chat apply in submission order; distinct chats run in parallel.
type ChatRegistry struct {
	mu    sync.Mutex
	chats map[string]*chatEntry

	client LLMClient
	system string
	tools  []tool.Definition
	model  string
	logger *zap.Logger
}

type chatEntry struct {
	mu   sync.Mutex
	conv *ConversationContext
}

// NewChatRegistry creates a registry whose contexts share the given LLM
// binding, system directive and tool declarations.
func NewChatRegistry(client LLMClient, system string, tools []tool.Definition, model string, logger *zap.Logger) *ChatRegistry {
	return &ChatRegistry{
		chats:  make(map[string]*chatEntry),
		client: client,
		system: system,
		tools:  tools,
		model:  model,
		logger: logger,
	}
}

// Acquire returns the conversation context for chatID with its turn lock
// held. The release function must be called exactly once.
func (r *ChatRegistry) Acquire(chatID string) (*ConversationContext, func()) {
	r.mu.Lock()
	entry, ok := r.chats[chatID]
	if !ok {
		entry = &chatEntry{
			conv: NewConversationContext(r.client, r.system, r.tools, r.model, r.logger),
		}
		r.chats[chatID] = entry
		r.logger.Info("Chat context created", zap.String("chat_id", chatID))
	}
	r.mu.Unlock()

	entry.mu.Lock()
	return entry.conv, entry.mu.Unlock
}

// Reset discards the conversation history of one chat. A chat never seen
// before is a no-op.
func (r *ChatRegistry) Reset(chatID string) {
	r.mu.Lock()
	entry, ok := r.chats[chatID]
	r.mu.Unlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	entry.conv.Reset()
	entry.mu.Unlock()
	r.logger.Info("Chat context reset", zap.String("chat_id", chatID))
}

// Len returns the number of chats with a live context.
func (r *ChatRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chats)
}

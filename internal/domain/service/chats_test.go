package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/domain/tool"
)

func newTestRegistry(client LLMClient) *ChatRegistry {
	return NewChatRegistry(client, "Eres Molly.", []tool.Definition{{Name: "start_network_scan"}}, "gemini-2.5-flash", zap.NewNop())
}

func TestChatRegistry_ReusesContextPerChat(t *testing.T) {
	reg := newTestRegistry(&scriptedLLM{})

	conv1, release1 := reg.Acquire("chat-a")
	release1()
	conv2, release2 := reg.Acquire("chat-a")
	release2()

	if conv1 != conv2 {
		t.Error("same chat id produced two contexts")
	}
	if reg.Len() != 1 {
		t.Errorf("registry size = %d, want 1", reg.Len())
	}
}

func TestChatRegistry_IsolatesChats(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"hola a", "hola b"}}
	reg := newTestRegistry(llm)

	convA, releaseA := reg.Acquire("chat-a")
	if _, _, err := convA.Ask(context.Background(), "o", "t", "pregunta de a", "r"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	releaseA()

	convB, releaseB := reg.Acquire("chat-b")
	defer releaseB()
	if got := len(convB.History()); got != 0 {
		t.Errorf("chat-b inherited %d turns from chat-a", got)
	}
}

func TestChatRegistry_SerializesSameChat(t *testing.T) {
	reg := newTestRegistry(&scriptedLLM{})

	// With the lock held, a second Acquire on the same chat must wait.
	_, release := reg.Acquire("chat-a")

	acquired := make(chan struct{})
	go func() {
		_, r2 := reg.Acquire("chat-a")
		close(acquired)
		r2()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire proceeded while the chat lock was held")
	default:
	}

	release()
	<-acquired
}

func TestChatRegistry_ConcurrentDistinctChats(t *testing.T) {
	reg := newTestRegistry(&scriptedLLM{})

	var wg sync.WaitGroup
	for _, id := range []string{"chat-1", "chat-2", "chat-3", "chat-1", "chat-2"} {
		wg.Add(1)
		go func(chatID string) {
			defer wg.Done()
			_, release := reg.Acquire(chatID)
			release()
		}(id)
	}
	wg.Wait()

	if reg.Len() != 3 {
		t.Errorf("registry size = %d, want 3", reg.Len())
	}
}

func TestChatRegistry_Reset(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"hola"}}
	reg := newTestRegistry(llm)

	conv, release := reg.Acquire("chat-a")
	if _, _, err := conv.Ask(context.Background(), "o", "t", "hola", "r"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	release()

	reg.Reset("chat-a")

	conv, release = reg.Acquire("chat-a")
	defer release()
	if got := len(conv.History()); got != 0 {
		t.Errorf("history length after reset = %d, want 0", got)
	}

	// Resetting an unknown chat must not create it.
	reg.Reset("chat-z")
	if reg.Len() != 1 {
		t.Errorf("registry size = %d, want 1", reg.Len())
	}
}

package adapter_test

import (
	"context"
	"testing"
	"time"

	"birdconnect/internal/pkg/chat/persistence/repository/adapter"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"

	"github.com/google/uuid"
)

func TestMemoryChatRepositoryContract(t *testing.T) {
	runChatRepositoryContract(t, func(t *testing.T) repository.ChatRepository {
		return adapter.NewMemoryChatRepository()
	})
}

func TestMemoryChatRepositoryClampsBackwardsClock(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	repo := adapter.NewMemoryChatRepository().WithClock(func() time.Time { return clock })

	alice, bob := uuid.NewString(), uuid.NewString()
	conv := mustCreate(t, repo, alice, bob)

	first := mustSave(t, repo, conv.ID, alice, "first")
	clock = base.Add(-time.Hour)
	second := mustSave(t, repo, conv.ID, bob, "second")

	if second.CreatedAt.Before(first.CreatedAt) {
		t.Fatalf("timestamp went backwards: %v < %v", second.CreatedAt, first.CreatedAt)
	}

	msgs, err := repo.ListMessages(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if msgs[0].Content != "first" || msgs[1].Content != "second" {
		t.Fatalf("expected insertion order on equal timestamps, got %q, %q", msgs[0].Content, msgs[1].Content)
	}
}

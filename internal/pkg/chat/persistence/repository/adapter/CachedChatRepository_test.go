package adapter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	cacheadapter "birdconnect/internal/infrastructure/cache/adapter"
	chat "birdconnect/internal/pkg/chat/application/domain"
	"birdconnect/internal/pkg/chat/persistence/repository/adapter"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"

	"github.com/google/uuid"
)

// countingRepository counts reads of the latest message.
type countingRepository struct {
	repository.ChatRepository
	latestReads int
}

func (c *countingRepository) GetLatestMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	c.latestReads++
	return c.ChatRepository.GetLatestMessage(ctx, conversationID)
}

func TestCachedChatRepositoryContract(t *testing.T) {
	runChatRepositoryContract(t, func(t *testing.T) repository.ChatRepository {
		return adapter.NewCachedChatRepository(adapter.NewMemoryChatRepository(), cacheadapter.NewMemoryCache(), time.Minute)
	})
}

func TestCachedChatRepositoryInvalidatesOnSend(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepository{ChatRepository: adapter.NewMemoryChatRepository()}
	cache := cacheadapter.NewMemoryCache()
	repo := adapter.NewCachedChatRepository(inner, cache, time.Minute)

	alice, bob := uuid.NewString(), uuid.NewString()
	conv := mustCreate(t, repo, alice, bob)

	latest, err := repo.GetLatestMessage(ctx, conv.ID)
	if err != nil || latest != nil {
		t.Fatalf("expected empty conversation, got %+v, %v", latest, err)
	}
	if _, err := repo.GetLatestMessage(ctx, conv.ID); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if inner.latestReads != 1 {
		t.Fatalf("expected the empty answer to be cached, got %d backend reads", inner.latestReads)
	}

	mustSave(t, repo, conv.ID, alice, "hello")
	if gen, err := cache.Get(ctx, adapter.GenerationKey(conv.ID)); err != nil || gen != "1" {
		t.Fatalf("expected send to bump the generation to 1, got %q, %v", gen, err)
	}

	latest, err = repo.GetLatestMessage(ctx, conv.ID)
	if err != nil || latest == nil || latest.Content != "hello" {
		t.Fatalf("expected fresh latest message, got %+v, %v", latest, err)
	}
	latest, err = repo.GetLatestMessage(ctx, conv.ID)
	if err != nil || latest == nil || latest.Content != "hello" {
		t.Fatalf("expected cached latest message, got %+v, %v", latest, err)
	}
	if inner.latestReads != 2 {
		t.Fatalf("expected 2 backend reads, got %d", inner.latestReads)
	}

	mustSave(t, repo, conv.ID, bob, "hi back")
	latest, _ = repo.GetLatestMessage(ctx, conv.ID)
	if latest == nil || latest.Content != "hi back" {
		t.Fatalf("expected summary to follow the newest send, got %+v", latest)
	}
}

// stallingRepository pauses the first GetLatestMessage after it has read the
// store, so a send can commit before the reader writes the cache.
type stallingRepository struct {
	repository.ChatRepository
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (s *stallingRepository) GetLatestMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	m, err := s.ChatRepository.GetLatestMessage(ctx, conversationID)
	s.once.Do(func() {
		close(s.loaded)
		<-s.release
	})
	return m, err
}

func TestCachedChatRepositoryIgnoresEntryFromRacingReader(t *testing.T) {
	ctx := context.Background()
	inner := &stallingRepository{
		ChatRepository: adapter.NewMemoryChatRepository(),
		loaded:         make(chan struct{}),
		release:        make(chan struct{}),
	}
	repo := adapter.NewCachedChatRepository(inner, cacheadapter.NewMemoryCache(), time.Hour)

	alice, bob := uuid.NewString(), uuid.NewString()
	conv, _, err := inner.ChatRepository.CreateDirectConversation(ctx, mustConversation(t, alice, bob))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mustSave(t, repo, conv.ID, alice, "hello")

	done := make(chan *chat.Message, 1)
	go func() {
		m, err := repo.GetLatestMessage(ctx, conv.ID)
		if err != nil {
			t.Errorf("racing read: %v", err)
		}
		done <- m
	}()

	<-inner.loaded
	mustSave(t, repo, conv.ID, bob, "are you there?")
	close(inner.release)
	if m := <-done; m == nil || m.Content != "hello" {
		t.Fatalf("racing reader should have seen the older message, got %+v", m)
	}

	latest, err := repo.GetLatestMessage(ctx, conv.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	stored, _ := inner.ChatRepository.GetLatestMessage(ctx, conv.ID)
	if latest == nil || latest.Content != stored.Content || latest.Content != "are you there?" {
		t.Fatalf("cached latest %+v, store latest %+v", latest, stored)
	}
}

func TestCachedChatRepositoryDedupeHitKeepsGeneration(t *testing.T) {
	ctx := context.Background()
	cache := cacheadapter.NewMemoryCache()
	repo := adapter.NewCachedChatRepository(adapter.NewMemoryChatRepository(), cache, time.Minute)

	alice, bob := uuid.NewString(), uuid.NewString()
	conv := mustCreate(t, repo, alice, bob)

	key := "k1"
	for i := 0; i < 2; i++ {
		m, err := chat.NewMessage(chat.Message{ConversationID: conv.ID, SenderID: alice, Content: "once", DedupeKey: &key})
		if err != nil {
			t.Fatalf("NewMessage: %v", err)
		}
		if _, err := repo.SaveMessage(ctx, *m); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}
	if gen, _ := cache.Get(ctx, adapter.GenerationKey(conv.ID)); gen != "1" {
		t.Fatalf("expected one generation bump, got %q", gen)
	}
}

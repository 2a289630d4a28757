package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	cacheport "birdconnect/internal/infrastructure/cache/port"
	"birdconnect/internal/observability"
	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"
)

const (
	latestMessageKeyPrefix = "chat:latest:"
	generationKeyPrefix    = "chat:latest-gen:"
)

// cachedLatest is the cached value. Gen is the conversation's write
// generation observed before the store read; Message is nil for an empty
// conversation.
type cachedLatest struct {
	Gen     int64         `json:"gen"`
	Message *chat.Message `json:"message,omitempty"`
}

// CachedChatRepository wraps a ChatRepository and caches the latest message per
// conversation, which is what summary projection reads most.
//
// Every new message bumps the conversation's generation counter. A cached
// entry is served only while its generation matches the counter, so an entry
// written by a reader that raced a send is ignored rather than served until
// it expires.
//
// Cache failures are logged and fall through to the wrapped repository.
type CachedChatRepository struct {
	repository.ChatRepository
	cache cacheport.Cache
	ttl   time.Duration
}

var _ repository.ChatRepository = (*CachedChatRepository)(nil)

func NewCachedChatRepository(inner repository.ChatRepository, cache cacheport.Cache, ttl time.Duration) *CachedChatRepository {
	return &CachedChatRepository{ChatRepository: inner, cache: cache, ttl: ttl}
}

// LatestMessageKey is the cache key holding a conversation's latest message.
func LatestMessageKey(conversationID string) string {
	return latestMessageKeyPrefix + conversationID
}

// GenerationKey is the cache key counting writes to a conversation.
func GenerationKey(conversationID string) string {
	return generationKeyPrefix + conversationID
}

func (r *CachedChatRepository) SaveMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	saved, err := r.ChatRepository.SaveMessage(ctx, m)
	if err != nil {
		return chat.Message{}, err
	}
	// A dedupe hit returns the stored original; the latest message is unchanged.
	if m.ID == "" || saved.ID == m.ID {
		r.bump(ctx, saved.ConversationID)
	}
	return saved, nil
}

func (r *CachedChatRepository) GetLatestMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	log := observability.LoggerFromContext(ctx)

	gen, err := r.generation(ctx, conversationID)
	if err != nil {
		log.Warn("summary cache generation read failed", "conversation_id", conversationID, "error", err)
		return r.ChatRepository.GetLatestMessage(ctx, conversationID)
	}

	raw, err := r.cache.Get(ctx, LatestMessageKey(conversationID))
	switch {
	case err == nil:
		var cached cachedLatest
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil && cached.Gen == gen {
			return cached.Message, nil
		}
	case !errors.Is(err, cacheport.ErrMiss):
		log.Warn("summary cache read failed", "conversation_id", conversationID, "error", err)
	}

	latest, err := r.ChatRepository.GetLatestMessage(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(cachedLatest{Gen: gen, Message: latest})
	if err != nil {
		return latest, nil
	}
	if err := r.cache.Set(ctx, LatestMessageKey(conversationID), string(b), r.ttl); err != nil {
		log.Warn("summary cache write failed", "conversation_id", conversationID, "error", err)
	}
	return latest, nil
}

func (r *CachedChatRepository) generation(ctx context.Context, conversationID string) (int64, error) {
	raw, err := r.cache.Get(ctx, GenerationKey(conversationID))
	if errors.Is(err, cacheport.ErrMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// bump advances the generation. If that fails the cached entry is dropped instead.
func (r *CachedChatRepository) bump(ctx context.Context, conversationID string) {
	_, err := r.cache.Incr(ctx, GenerationKey(conversationID))
	if err == nil {
		return
	}
	observability.LoggerFromContext(ctx).Warn("summary cache generation bump failed",
		"conversation_id", conversationID, "error", err)
	if _, err := r.cache.Del(ctx, LatestMessageKey(conversationID)); err != nil {
		observability.LoggerFromContext(ctx).Warn("summary cache invalidation failed",
			"conversation_id", conversationID, "error", err)
	}
}

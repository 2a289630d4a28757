package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"
)

// MemoryChatRepository keeps chat state in process. A single mutex makes every
// operation atomic, and pairs maps the normalized user pair to its conversation
// the way the unique index does in SQL stores.
type MemoryChatRepository struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	pairs         map[[2]string]string          // {low, high} -> conversationID
	participants  map[string][]chat.Participant // conversationID -> rows
	byUser        map[string][]string           // userID -> conversationIDs
	messages      map[string][]chat.Message     // conversationID -> ordered messages
	now           func() time.Time
}

var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		conversations: make(map[string]chat.Conversation),
		pairs:         make(map[[2]string]string),
		participants:  make(map[string][]chat.Participant),
		byUser:        make(map[string][]string),
		messages:      make(map[string][]chat.Message),
		now:           time.Now,
	}
}

// WithClock replaces the time source used to stamp messages.
func (r *MemoryChatRepository) WithClock(now func() time.Time) *MemoryChatRepository {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
	return r
}

func (r *MemoryChatRepository) CreateDirectConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, bool, error) {
	if err := ctx.Err(); err != nil {
		return chat.Conversation{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := [2]string{c.UserLow, c.UserHigh}
	if id, ok := r.pairs[key]; ok {
		return r.conversations[id], false, nil
	}

	r.conversations[c.ID] = c
	r.pairs[key] = c.ID
	r.participants[c.ID] = c.Participants()
	r.byUser[c.UserLow] = append(r.byUser[c.UserLow], c.ID)
	r.byUser[c.UserHigh] = append(r.byUser[c.UserHigh], c.ID)
	return c, true, nil
}

func (r *MemoryChatRepository) FindDirectConversation(ctx context.Context, userLow string, userHigh string) (chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return chat.Conversation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.pairs[[2]string{userLow, userHigh}]
	if !ok {
		return chat.Conversation{}, chat.ErrConversationNotFound
	}
	return r.conversations[id], nil
}

func (r *MemoryChatRepository) GetConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return chat.Conversation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conversations[conversationID]
	if !ok {
		return chat.Conversation{}, chat.ErrConversationNotFound
	}
	return c, nil
}

func (r *MemoryChatRepository) ListConversationsByUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	convs := make([]chat.Conversation, 0, len(ids))
	for _, id := range ids {
		convs = append(convs, r.conversations[id])
	}
	return convs, nil
}

func (r *MemoryChatRepository) ListParticipants(ctx context.Context, conversationID string) ([]chat.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, ok := r.participants[conversationID]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	return append([]chat.Participant(nil), rows...), nil
}

func (r *MemoryChatRepository) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isParticipantLocked(conversationID, userID), nil
}

func (r *MemoryChatRepository) isParticipantLocked(conversationID string, userID string) bool {
	for _, p := range r.participants[conversationID] {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (r *MemoryChatRepository) SaveMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[m.ConversationID]; !ok {
		return chat.Message{}, chat.ErrConversationNotFound
	}
	if !r.isParticipantLocked(m.ConversationID, m.SenderID) {
		return chat.Message{}, chat.ErrNotParticipant
	}

	msgs := r.messages[m.ConversationID]
	if m.DedupeKey != nil {
		for _, existing := range msgs {
			if existing.SenderID == m.SenderID && existing.DedupeKey != nil && *existing.DedupeKey == *m.DedupeKey {
				return existing, nil
			}
		}
	}

	var last *time.Time
	if n := len(msgs); n > 0 {
		last = &msgs[n-1].CreatedAt
	}
	m.CreatedAt = chat.NextTimestamp(r.now(), last)

	msgs = append(msgs, m)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Before(msgs[j]) })
	r.messages[m.ConversationID] = msgs
	return m, nil
}

func (r *MemoryChatRepository) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conversations[conversationID]; !ok {
		return nil, chat.ErrConversationNotFound
	}
	out := make([]chat.Message, len(r.messages[conversationID]))
	copy(out, r.messages[conversationID])
	return out, nil
}

func (r *MemoryChatRepository) GetLatestMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conversations[conversationID]; !ok {
		return nil, chat.ErrConversationNotFound
	}
	msgs := r.messages[conversationID]
	if len(msgs) == 0 {
		return nil, nil
	}
	latest := msgs[len(msgs)-1]
	return &latest, nil
}

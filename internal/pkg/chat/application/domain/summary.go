package chat

import (
	"sort"
	"strings"
	"time"
)

// NoMessagesText is shown in place of a last message for conversations that have none.
const NoMessagesText = "No messages yet"

// ConversationSummary is the per-viewer projection of a conversation used for chat lists.
// It is derived on every read and never stored.
type ConversationSummary struct {
	ConversationID   string
	OtherParticipant User
	LastMessageText  string
	LastMessageTime  time.Time
	HasMessages      bool
}

// Summarize projects conv for the viewer facing other. latest may be nil.
func Summarize(conv Conversation, other User, latest *Message) ConversationSummary {
	s := ConversationSummary{
		ConversationID:   conv.ID,
		OtherParticipant: other,
		LastMessageText:  NoMessagesText,
		LastMessageTime:  conv.CreatedAt,
	}
	if latest != nil {
		s.LastMessageText = latest.Content
		s.LastMessageTime = latest.CreatedAt
		s.HasMessages = true
	}
	return s
}

// SortSummaries orders by last activity, newest first. Ties fall back to conversation id.
func SortSummaries(summaries []ConversationSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !a.LastMessageTime.Equal(b.LastMessageTime) {
			return a.LastMessageTime.After(b.LastMessageTime)
		}
		return a.ConversationID < b.ConversationID
	})
}

// MatchesQuery reports whether the other participant's name contains query, case-insensitively.
// An empty query matches everything.
func (s ConversationSummary) MatchesQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.OtherParticipant.DisplayName), q)
}

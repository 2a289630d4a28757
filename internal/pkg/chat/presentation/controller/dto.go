package controller

import (
	"time"

	chat "birdconnect/internal/pkg/chat/application/domain"
)

type userResponse struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	AvatarRef   *string `json:"avatar_ref,omitempty"`
}

func toUserResponse(u chat.User) userResponse {
	return userResponse{ID: u.ID, DisplayName: u.DisplayName, AvatarRef: u.AvatarRef}
}

type conversationResponse struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ParticipantIDs []string  `json:"participant_ids"`
	OtherUserID    string    `json:"other_user_id"`
}

func toConversationResponse(conv chat.Conversation, viewerID string) conversationResponse {
	return conversationResponse{
		ID:             conv.ID,
		CreatedAt:      conv.CreatedAt,
		ParticipantIDs: []string{conv.UserLow, conv.UserHigh},
		OtherUserID:    conv.Other(viewerID),
	}
}

type messageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name,omitempty"`
	SenderAvatar   *string   `json:"sender_avatar,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	DedupeKey      *string   `json:"dedupe_key,omitempty"`
}

func toMessageResponse(m chat.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		DedupeKey:      m.DedupeKey,
	}
}

type summaryResponse struct {
	ConversationID  string       `json:"conversation_id"`
	OtherUser       userResponse `json:"other_user"`
	LastMessageText string       `json:"last_message_text"`
	LastMessageTime time.Time    `json:"last_message_time"`
	HasMessages     bool         `json:"has_messages"`
}

func toSummaryResponse(s chat.ConversationSummary) summaryResponse {
	return summaryResponse{
		ConversationID:  s.ConversationID,
		OtherUser:       toUserResponse(s.OtherParticipant),
		LastMessageText: s.LastMessageText,
		LastMessageTime: s.LastMessageTime,
		HasMessages:     s.HasMessages,
	}
}

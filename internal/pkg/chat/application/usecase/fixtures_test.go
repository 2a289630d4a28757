package usecase_test

import (
	"context"
	"testing"

	chat "birdconnect/internal/pkg/chat/application/domain"
	"birdconnect/internal/pkg/chat/application/event"
	"birdconnect/internal/pkg/chat/application/usecase"
	chatAdapter "birdconnect/internal/pkg/chat/persistence/repository/adapter"
	userAdapter "birdconnect/internal/repository/adapter"

	"github.com/google/uuid"
)

type fixture struct {
	repo  *chatAdapter.MemoryChatRepository
	users *userAdapter.MemoryUserRepository

	resolve   *usecase.ResolveConversationUseCase
	send      *usecase.SendMessageUseCase
	list      *usecase.ListMessagesUseCase
	summaries *usecase.ListConversationSummariesUseCase

	events []event.MessageSent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:  chatAdapter.NewMemoryChatRepository(),
		users: userAdapter.NewMemoryUserRepository(),
	}
	pub := event.PublisherFunc(func(_ context.Context, e event.MessageSent) error {
		f.events = append(f.events, e)
		return nil
	})
	f.resolve = usecase.NewResolveConversationUseCase(f.repo, f.users)
	f.send = usecase.NewSendMessageUseCase(f.repo, pub)
	f.list = usecase.NewListMessagesUseCase(f.repo)
	f.summaries = usecase.NewListConversationSummariesUseCase(f.repo, f.users)
	return f
}

func (f *fixture) user(name string) string {
	id := uuid.NewString()
	f.users.Put(chat.User{ID: id, DisplayName: name})
	return id
}

func (f *fixture) mustResolve(t *testing.T, viewer, target string) chat.Conversation {
	t.Helper()
	out, err := f.resolve.Execute(context.Background(), usecase.ResolveConversationInput{ViewerID: viewer, TargetUserID: target})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return out.Conversation
}

func (f *fixture) mustSend(t *testing.T, convID, sender, content string) chat.Message {
	t.Helper()
	m, err := f.send.Execute(context.Background(), usecase.SendMessageInput{ConversationID: convID, SenderID: sender, Content: content})
	if err != nil {
		t.Fatalf("send %q: %v", content, err)
	}
	return *m
}

func (f *fixture) mustSummaries(t *testing.T, viewer string) *usecase.ListConversationSummariesOutput {
	t.Helper()
	out, err := f.summaries.Execute(context.Background(), usecase.ListConversationSummariesInput{ViewerID: viewer})
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	return out
}

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	chat "birdconnect/internal/pkg/chat/application/domain"
	"birdconnect/internal/pkg/chat/application/usecase"
	chatAdapter "birdconnect/internal/pkg/chat/persistence/repository/adapter"
	userAdapter "birdconnect/internal/repository/adapter"

	"github.com/google/uuid"
)

func TestResolveConversationCreatesOnceFromEitherSide(t *testing.T) {
	f := newFixture(t)
	u, v := f.user("Jane"), f.user("Robin")
	ctx := context.Background()

	first, err := f.resolve.Execute(ctx, usecase.ResolveConversationInput{ViewerID: u, TargetUserID: v})
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if !first.Created {
		t.Fatalf("expected first resolve to create")
	}

	again, err := f.resolve.Execute(ctx, usecase.ResolveConversationInput{ViewerID: v, TargetUserID: u})
	if err != nil {
		t.Fatalf("reverse resolve: %v", err)
	}
	if again.Created {
		t.Fatalf("reverse resolve must not create")
	}
	if again.Conversation.ID != first.Conversation.ID {
		t.Fatalf("got %s and %s for the same pair", first.Conversation.ID, again.Conversation.ID)
	}

	ids, err := usecase.NewListParticipantsUseCase(f.repo).Execute(ctx, usecase.ListParticipantsInput{ConversationID: first.Conversation.ID})
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 participants, got %v", ids)
	}
}

func TestResolveConversationAcceptsUpperCaseIDs(t *testing.T) {
	f := newFixture(t)
	u, v := f.user("Jane"), f.user("Robin")
	conv := f.mustResolve(t, u, v)

	out, err := f.resolve.Execute(context.Background(), usecase.ResolveConversationInput{
		ViewerID:     strings.ToUpper(v),
		TargetUserID: strings.ToUpper(u),
	})
	if err != nil {
		t.Fatalf("upper-case resolve: %v", err)
	}
	if out.Created || out.Conversation.ID != conv.ID {
		t.Fatalf("expected the existing conversation, got %+v", out)
	}

	ids, err := usecase.NewListParticipantsUseCase(f.repo).Execute(context.Background(), usecase.ListParticipantsInput{ConversationID: strings.ToUpper(conv.ID)})
	if err != nil || len(ids) != 2 {
		t.Fatalf("participants by upper-case id: %v %v", ids, err)
	}
}

func TestResolveConversationConcurrent(t *testing.T) {
	f := newFixture(t)
	u, v := f.user("Jane"), f.user("Robin")

	const n = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]struct{}{}
		created int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := usecase.ResolveConversationInput{ViewerID: u, TargetUserID: v}
			if i%2 == 1 {
				in = usecase.ResolveConversationInput{ViewerID: v, TargetUserID: u}
			}
			out, err := f.resolve.Execute(context.Background(), in)
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			mu.Lock()
			ids[out.Conversation.ID] = struct{}{}
			if out.Created {
				created++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if len(ids) != 1 {
		t.Fatalf("expected one conversation, got %d", len(ids))
	}
	if created != 1 {
		t.Fatalf("expected exactly one creator, got %d", created)
	}
}

// blindRepository never finds an existing pair, so both racing callers reach the insert.
type blindRepository struct {
	*chatAdapter.MemoryChatRepository
}

func (blindRepository) FindDirectConversation(context.Context, string, string) (chat.Conversation, error) {
	return chat.Conversation{}, chat.ErrConversationNotFound
}

func TestResolveConversationBothMissThePairIndex(t *testing.T) {
	users := userAdapter.NewMemoryUserRepository()
	u, v := uuid.NewString(), uuid.NewString()
	users.Put(chat.User{ID: u, DisplayName: "Jane"})
	users.Put(chat.User{ID: v, DisplayName: "Robin"})
	repo := chatAdapter.NewMemoryChatRepository()
	uc := usecase.NewResolveConversationUseCase(blindRepository{repo}, users)

	a, err := uc.Execute(context.Background(), usecase.ResolveConversationInput{ViewerID: u, TargetUserID: v})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := uc.Execute(context.Background(), usecase.ResolveConversationInput{ViewerID: u, TargetUserID: v})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a.Conversation.ID != b.Conversation.ID || !a.Created || b.Created {
		t.Fatalf("expected one creation, got %+v and %+v", a, b)
	}

	convs, err := repo.ListConversationsByUser(context.Background(), u)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected one stored conversation, got %d", len(convs))
	}
}

func TestResolveConversationRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	u := f.user("Jane")
	ctx := context.Background()

	cases := []struct {
		name   string
		in     usecase.ResolveConversationInput
		target error
	}{
		{"self", usecase.ResolveConversationInput{ViewerID: u, TargetUserID: u}, chat.ErrInvalidInput},
		{"malformed target", usecase.ResolveConversationInput{ViewerID: u, TargetUserID: "bird"}, chat.ErrInvalidInput},
		{"empty viewer", usecase.ResolveConversationInput{TargetUserID: u}, chat.ErrInvalidInput},
		{"unknown target", usecase.ResolveConversationInput{ViewerID: u, TargetUserID: uuid.NewString()}, chat.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.resolve.Execute(ctx, tc.in)
			if !errors.Is(err, tc.target) {
				t.Fatalf("expected %v, got %v", tc.target, err)
			}
		})
	}

	convs, _ := f.repo.ListConversationsByUser(ctx, u)
	if len(convs) != 0 {
		t.Fatalf("rejected resolves must not store anything, got %d", len(convs))
	}
}

package adapter_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	chat "birdconnect/internal/pkg/chat/application/domain"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"

	"github.com/google/uuid"
)

// runChatRepositoryContract exercises behavior every ChatRepository adapter must share.
func runChatRepositoryContract(t *testing.T, newRepo func(t *testing.T) repository.ChatRepository) {
	t.Run("create is atomic and idempotent per pair", func(t *testing.T) {
		repo := newRepo(t)
		testCreateDirectConversation(t, repo)
	})
	t.Run("concurrent creates yield one conversation", func(t *testing.T) {
		repo := newRepo(t)
		testConcurrentCreate(t, repo)
	})
	t.Run("messages are ordered and deduplicated", func(t *testing.T) {
		repo := newRepo(t)
		testMessageOrdering(t, repo)
	})
	t.Run("non participant cannot write", func(t *testing.T) {
		repo := newRepo(t)
		testNonParticipantWrite(t, repo)
	})
	t.Run("missing conversation", func(t *testing.T) {
		repo := newRepo(t)
		testMissingConversation(t, repo)
	})
}

func mustConversation(t *testing.T, a, b string) chat.Conversation {
	t.Helper()
	c, err := chat.NewDirectConversation(a, b, time.Now())
	if err != nil {
		t.Fatalf("NewDirectConversation: %v", err)
	}
	return c
}

func mustCreate(t *testing.T, repo repository.ChatRepository, a, b string) chat.Conversation {
	t.Helper()
	c, _, err := repo.CreateDirectConversation(context.Background(), mustConversation(t, a, b))
	if err != nil {
		t.Fatalf("CreateDirectConversation: %v", err)
	}
	return c
}

func mustSave(t *testing.T, repo repository.ChatRepository, convID, sender, content string) chat.Message {
	t.Helper()
	m, err := chat.NewMessage(chat.Message{ConversationID: convID, SenderID: sender, Content: content})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	saved, err := repo.SaveMessage(context.Background(), *m)
	if err != nil {
		t.Fatalf("SaveMessage(%q): %v", content, err)
	}
	return saved
}

func testCreateDirectConversation(t *testing.T, repo repository.ChatRepository) {
	ctx := context.Background()
	alice, bob := uuid.NewString(), uuid.NewString()

	first, created, err := repo.CreateDirectConversation(ctx, mustConversation(t, alice, bob))
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}

	second, created, err := repo.CreateDirectConversation(ctx, mustConversation(t, bob, alice))
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Fatalf("expected second create to return the existing conversation")
	}
	if second.ID != first.ID {
		t.Fatalf("expected %s, got %s", first.ID, second.ID)
	}

	low, high := chat.NormalizePair(alice, bob)
	found, err := repo.FindDirectConversation(ctx, low, high)
	if err != nil || found.ID != first.ID {
		t.Fatalf("FindDirectConversation = %+v, %v", found, err)
	}

	members, err := repo.ListParticipants(ctx, first.ID)
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected exactly two participants, got %d", len(members))
	}

	for _, uid := range []string{alice, bob} {
		convs, err := repo.ListConversationsByUser(ctx, uid)
		if err != nil {
			t.Fatalf("ListConversationsByUser: %v", err)
		}
		if len(convs) != 1 || convs[0].ID != first.ID {
			t.Fatalf("expected one conversation for %s, got %+v", uid, convs)
		}
		ok, err := repo.IsParticipant(ctx, first.ID, uid)
		if err != nil || !ok {
			t.Fatalf("IsParticipant(%s) = %v, %v", uid, ok, err)
		}
	}

	stranger := uuid.NewString()
	convs, err := repo.ListConversationsByUser(ctx, stranger)
	if err != nil {
		t.Fatalf("ListConversationsByUser stranger: %v", err)
	}
	if len(convs) != 0 {
		t.Fatalf("expected no conversations for stranger, got %d", len(convs))
	}
}

func testConcurrentCreate(t *testing.T, repo repository.ChatRepository) {
	ctx := context.Background()
	alice, bob := uuid.NewString(), uuid.NewString()

	const workers = 16
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := alice, bob
			if i%2 == 1 {
				a, b = bob, alice
			}
			c, err := chat.NewDirectConversation(a, b, time.Now())
			if err != nil {
				errs[i] = err
				return
			}
			got, _, err := repo.CreateDirectConversation(ctx, c)
			ids[i], errs[i] = got.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got conversation %s, worker 0 got %s", i, ids[i], ids[0])
		}
	}

	convs, err := repo.ListConversationsByUser(ctx, alice)
	if err != nil {
		t.Fatalf("ListConversationsByUser: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected exactly one conversation, got %d", len(convs))
	}
}

func testMessageOrdering(t *testing.T, repo repository.ChatRepository) {
	ctx := context.Background()
	alice, bob := uuid.NewString(), uuid.NewString()
	conv := mustCreate(t, repo, alice, bob)

	latest, err := repo.GetLatestMessage(ctx, conv.ID)
	if err != nil || latest != nil {
		t.Fatalf("expected no latest message, got %+v, %v", latest, err)
	}
	empty, err := repo.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages on empty conversation: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}

	contents := []string{"hello", "are you there?", "saw a heron", "nice!"}
	senders := []string{alice, alice, bob, alice}
	for i, c := range contents {
		mustSave(t, repo, conv.ID, senders[i], c)
	}

	msgs, err := repo.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(msgs))
	}
	for i, m := range msgs {
		if m.Content != contents[i] {
			t.Fatalf("message %d: expected %q, got %q", i, contents[i], m.Content)
		}
		if i > 0 && !msgs[i-1].Before(m) {
			t.Fatalf("messages %d and %d are out of order", i-1, i)
		}
	}

	latest, err = repo.GetLatestMessage(ctx, conv.ID)
	if err != nil || latest == nil || latest.Content != "nice!" {
		t.Fatalf("GetLatestMessage = %+v, %v", latest, err)
	}

	key := "tap-1"
	m, _ := chat.NewMessage(chat.Message{ConversationID: conv.ID, SenderID: bob, Content: "once", DedupeKey: &key})
	first, err := repo.SaveMessage(ctx, *m)
	if err != nil {
		t.Fatalf("SaveMessage with dedupe key: %v", err)
	}
	retry, _ := chat.NewMessage(chat.Message{ConversationID: conv.ID, SenderID: bob, Content: "once", DedupeKey: &key})
	second, err := repo.SaveMessage(ctx, *retry)
	if err != nil {
		t.Fatalf("SaveMessage retry: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected retry to return original message %s, got %s", first.ID, second.ID)
	}
	msgs, _ = repo.ListMessages(ctx, conv.ID)
	if len(msgs) != len(contents)+1 {
		t.Fatalf("expected dedupe to prevent a second row, got %d messages", len(msgs))
	}
}

func testNonParticipantWrite(t *testing.T, repo repository.ChatRepository) {
	ctx := context.Background()
	alice, bob, mallory := uuid.NewString(), uuid.NewString(), uuid.NewString()
	conv := mustCreate(t, repo, alice, bob)

	m, _ := chat.NewMessage(chat.Message{ConversationID: conv.ID, SenderID: mallory, Content: "hi"})
	if _, err := repo.SaveMessage(ctx, *m); !errors.Is(err, chat.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	ok, err := repo.IsParticipant(ctx, conv.ID, mallory)
	if err != nil || ok {
		t.Fatalf("IsParticipant(mallory) = %v, %v", ok, err)
	}
	msgs, _ := repo.ListMessages(ctx, conv.ID)
	if len(msgs) != 0 {
		t.Fatalf("expected no stored messages, got %d", len(msgs))
	}
}

func testMissingConversation(t *testing.T, repo repository.ChatRepository) {
	ctx := context.Background()
	missing := uuid.NewString()

	if _, err := repo.GetConversation(ctx, missing); !errors.Is(err, chat.ErrConversationNotFound) {
		t.Fatalf("GetConversation: expected ErrConversationNotFound, got %v", err)
	}
	if _, err := repo.ListMessages(ctx, missing); !errors.Is(err, chat.ErrConversationNotFound) {
		t.Fatalf("ListMessages: expected ErrConversationNotFound, got %v", err)
	}
	if _, err := repo.GetLatestMessage(ctx, missing); !errors.Is(err, chat.ErrConversationNotFound) {
		t.Fatalf("GetLatestMessage: expected ErrConversationNotFound, got %v", err)
	}
	m, _ := chat.NewMessage(chat.Message{ConversationID: missing, SenderID: uuid.NewString(), Content: "hi"})
	if _, err := repo.SaveMessage(ctx, *m); !errors.Is(err, chat.ErrConversationNotFound) {
		t.Fatalf("SaveMessage: expected ErrConversationNotFound, got %v", err)
	}
}

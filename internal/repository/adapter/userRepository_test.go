package adapter_test

import (
	"context"
	"errors"
	"testing"

	"birdconnect/internal/infrastructure/database"
	chat "birdconnect/internal/pkg/chat/application/domain"
	"birdconnect/internal/repository/adapter"
	repository "birdconnect/internal/repository/port"

	"github.com/google/uuid"
)

type seededDirectory struct {
	repo  repository.UserRepository
	jane  chat.User
	bird  chat.User
	ghost chat.User
	self  chat.User
}

func seedUsers() (jane, bird, ghost, self chat.User) {
	avatar := "avatars/jane.png"
	jane = chat.User{ID: uuid.NewString(), DisplayName: "JaneDoe", AvatarRef: &avatar}
	bird = chat.User{ID: uuid.NewString(), DisplayName: "BirdLover42"}
	ghost = chat.User{ID: uuid.NewString(), DisplayName: "  "}
	self = chat.User{ID: uuid.NewString(), DisplayName: "JaneSelf"}
	return
}

func runUserRepositoryContract(t *testing.T, d seededDirectory) {
	ctx := context.Background()

	got, err := d.repo.FindByID(ctx, d.jane.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.DisplayName != "JaneDoe" || got.AvatarRef == nil || *got.AvatarRef != "avatars/jane.png" {
		t.Fatalf("unexpected profile %+v", got)
	}

	if _, err := d.repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, chat.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	all, err := d.repo.Search(ctx, "", d.self.ID, 0)
	if err != nil {
		t.Fatalf("Search all: %v", err)
	}
	if len(all) != 2 || all[0].ID != d.bird.ID || all[1].ID != d.jane.ID {
		t.Fatalf("expected [BirdLover42 JaneDoe], got %+v", all)
	}

	matches, err := d.repo.Search(ctx, "JANE", d.self.ID, 10)
	if err != nil {
		t.Fatalf("Search jane: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != d.jane.ID {
		t.Fatalf("expected only JaneDoe, got %+v", matches)
	}

	limited, err := d.repo.Search(ctx, "", d.self.ID, 1)
	if err != nil {
		t.Fatalf("Search limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestMemoryUserRepository(t *testing.T) {
	jane, bird, ghost, self := seedUsers()
	repo := adapter.NewMemoryUserRepository(jane, bird, ghost, self)
	runUserRepositoryContract(t, seededDirectory{repo: repo, jane: jane, bird: bird, ghost: ghost, self: self})
}

func TestSqliteUserRepository(t *testing.T) {
	db, err := database.OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := adapter.NewSqliteUserRepository(db)
	jane, bird, ghost, self := seedUsers()
	for _, u := range []chat.User{jane, bird, ghost, self} {
		if err := repo.Upsert(context.Background(), u); err != nil {
			t.Fatalf("Upsert %s: %v", u.DisplayName, err)
		}
	}
	runUserRepositoryContract(t, seededDirectory{repo: repo, jane: jane, bird: bird, ghost: ghost, self: self})
}

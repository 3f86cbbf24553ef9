package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sunmarke/assistant/internal/log"
	"github.com/sunmarke/assistant/internal/session"
	"github.com/sunmarke/assistant/internal/testutil"
)

func setupStore(t *testing.T) *session.Store {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	return session.New(session.NewQuerier(tdb.Pool), log.NewNop())
}

func TestSessionLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "What are the school fees?")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("Create() returned nil session ID")
	}
	if created.Title != "What are the school fees?" {
		t.Errorf("Create() title = %q", created.Title)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != created.Title {
		t.Errorf("Get() title = %q, want %q", got.Title, created.Title)
	}

	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, created.ID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestAppendExchangeOrdersMessages(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "chat")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	exchanges := [][2]string{
		{"What curriculum do you offer?", "We offer the International Baccalaureate and A-Levels."},
		{"And the fees?", "Fees depend on the year group."},
	}
	for _, ex := range exchanges {
		if err := store.AppendExchange(ctx, sess.ID, ex[0], ex[1]); err != nil {
			t.Fatalf("AppendExchange() error = %v", err)
		}
	}

	msgs, err := store.Messages(ctx, sess.ID, 10, 0)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("Messages() returned %d messages, want 4", len(msgs))
	}

	wantRoles := []string{session.RoleUser, session.RoleAssistant, session.RoleUser, session.RoleAssistant}
	for i, msg := range msgs {
		if msg.Role != wantRoles[i] {
			t.Errorf("message %d role = %q, want %q", i, msg.Role, wantRoles[i])
		}
		if msg.SequenceNumber != i+1 {
			t.Errorf("message %d sequence = %d, want %d", i, msg.SequenceNumber, i+1)
		}
	}
	if msgs[2].Content != "And the fees?" {
		t.Errorf("message 2 content = %q", msgs[2].Content)
	}

	// Message count is maintained on the session row.
	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.MessageCount != 4 {
		t.Errorf("MessageCount = %d, want 4", got.MessageCount)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, "first")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := store.Create(ctx, "second")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Touch the first session so it becomes the most recently updated.
	if err := store.AppendExchange(ctx, first.ID, "hello", "hi there"); err != nil {
		t.Fatalf("AppendExchange() error = %v", err)
	}

	sessions, err := store.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("List() returned %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != first.ID {
		t.Errorf("List() first = %q (title %q), want the recently touched session", sessions[0].ID, sessions[0].Title)
	}
	if sessions[1].ID != second.ID {
		t.Errorf("List() second = %q, want the untouched session", sessions[1].ID)
	}
}

package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sunmarke/assistant/internal/log"
)

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	createErr  error
	getErr     error
	listErr    error
	deleteErr  error
	addErr     error
	maxSeqErr  error
	touchErr   error
	getRows    []MessageRow
	listRows   []SessionRow
	maxSeq     int32
	sessionRow SessionRow

	addedMessages []AddMessageParams
	lastTitle     *string
	touchedCount  int32
	deletedID     pgtype.UUID
}

func (m *mockQuerier) CreateSession(_ context.Context, title *string) (SessionRow, error) {
	m.lastTitle = title
	if m.createErr != nil {
		return SessionRow{}, m.createErr
	}
	row := m.sessionRow
	if !row.ID.Valid {
		row.ID = pgtype.UUID{Bytes: uuid.New(), Valid: true}
	}
	row.Title = title
	row.CreatedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	row.UpdatedAt = row.CreatedAt
	return row, nil
}

func (m *mockQuerier) GetSession(_ context.Context, _ pgtype.UUID) (SessionRow, error) {
	if m.getErr != nil {
		return SessionRow{}, m.getErr
	}
	return m.sessionRow, nil
}

func (m *mockQuerier) ListSessions(_ context.Context, _, _ int32) ([]SessionRow, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listRows, nil
}

func (m *mockQuerier) DeleteSession(_ context.Context, id pgtype.UUID) error {
	m.deletedID = id
	return m.deleteErr
}

func (m *mockQuerier) AddMessage(_ context.Context, arg AddMessageParams) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.addedMessages = append(m.addedMessages, arg)
	return nil
}

func (m *mockQuerier) GetMessages(_ context.Context, _ GetMessagesParams) ([]MessageRow, error) {
	return m.getRows, nil
}

func (m *mockQuerier) MaxSequenceNumber(_ context.Context, _ pgtype.UUID) (int32, error) {
	if m.maxSeqErr != nil {
		return 0, m.maxSeqErr
	}
	return m.maxSeq, nil
}

func (m *mockQuerier) TouchSession(_ context.Context, _ pgtype.UUID, messageCount int32) error {
	m.touchedCount = messageCount
	return m.touchErr
}

func TestCreateSession(t *testing.T) {
	querier := &mockQuerier{}
	store := New(querier, log.NewNop())

	sess, err := store.Create(context.Background(), "What are the school fees?")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if sess.Title != "What are the school fees?" {
		t.Errorf("title = %q", sess.Title)
	}
	if sess.ID == uuid.Nil {
		t.Error("session ID should be set")
	}
}

func TestCreateSessionTruncatesTitle(t *testing.T) {
	querier := &mockQuerier{}
	store := New(querier, log.NewNop())

	long := strings.Repeat("a", 300)
	if _, err := store.Create(context.Background(), long); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if querier.lastTitle == nil {
		t.Fatal("title should be stored")
	}
	if got := len([]rune(*querier.lastTitle)); got != TitleMaxLength {
		t.Errorf("stored title length = %d, want %d", got, TitleMaxLength)
	}
	if !strings.HasSuffix(*querier.lastTitle, "...") {
		t.Error("truncated title should end with ellipsis")
	}
}

func TestCreateSessionEmptyTitleIsNull(t *testing.T) {
	querier := &mockQuerier{}
	store := New(querier, log.NewNop())

	if _, err := store.Create(context.Background(), ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if querier.lastTitle != nil {
		t.Error("empty title should be stored as NULL")
	}
}

func TestAppendExchange(t *testing.T) {
	querier := &mockQuerier{maxSeq: 4}
	store := New(querier, log.NewNop())
	sessionID := uuid.New()

	err := store.AppendExchange(context.Background(), sessionID,
		"What is the IB programme?", "The IB Diploma runs in Years 12 and 13.")
	if err != nil {
		t.Fatalf("AppendExchange() error = %v", err)
	}

	if len(querier.addedMessages) != 2 {
		t.Fatalf("messages = %d, want 2", len(querier.addedMessages))
	}

	user := querier.addedMessages[0]
	if user.Role != RoleUser || user.SequenceNumber != 5 {
		t.Errorf("user message = %+v", user)
	}
	if user.Content != "What is the IB programme?" {
		t.Errorf("user content = %q", user.Content)
	}

	assistant := querier.addedMessages[1]
	if assistant.Role != RoleAssistant || assistant.SequenceNumber != 6 {
		t.Errorf("assistant message = %+v", assistant)
	}

	if querier.touchedCount != 6 {
		t.Errorf("touched count = %d, want 6", querier.touchedCount)
	}
}

func TestAppendExchangeInsertFailure(t *testing.T) {
	querier := &mockQuerier{addErr: errors.New("insert failed")}
	store := New(querier, log.NewNop())

	err := store.AppendExchange(context.Background(), uuid.New(), "q", "a")
	if err == nil {
		t.Fatal("expected error from failing insert")
	}
}

func TestMessagesOrdering(t *testing.T) {
	sessionID := uuid.New()
	querier := &mockQuerier{
		getRows: []MessageRow{
			{
				ID:             pgtype.UUID{Bytes: uuid.New(), Valid: true},
				SessionID:      pgtype.UUID{Bytes: sessionID, Valid: true},
				Role:           RoleUser,
				Content:        "hello",
				SequenceNumber: 1,
				CreatedAt:      pgtype.Timestamptz{Time: time.Now(), Valid: true},
			},
			{
				ID:             pgtype.UUID{Bytes: uuid.New(), Valid: true},
				SessionID:      pgtype.UUID{Bytes: sessionID, Valid: true},
				Role:           RoleAssistant,
				Content:        "Hi there!",
				SequenceNumber: 2,
				CreatedAt:      pgtype.Timestamptz{Time: time.Now(), Valid: true},
			},
		},
	}
	store := New(querier, log.NewNop())

	messages, err := store.Messages(context.Background(), sessionID, 100, 0)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].Role != RoleUser || messages[0].SequenceNumber != 1 {
		t.Errorf("first message = %+v", messages[0])
	}
	if messages[1].Role != RoleAssistant || messages[1].Content != "Hi there!" {
		t.Errorf("second message = %+v", messages[1])
	}
}

func TestGetSessionNotFound(t *testing.T) {
	querier := &mockQuerier{getErr: ErrNotFound}
	store := New(querier, log.NewNop())

	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestListSessions(t *testing.T) {
	title := "Admissions questions"
	querier := &mockQuerier{
		listRows: []SessionRow{
			{
				ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
				Title:        &title,
				MessageCount: 8,
				CreatedAt:    pgtype.Timestamptz{Time: time.Now(), Valid: true},
				UpdatedAt:    pgtype.Timestamptz{Time: time.Now(), Valid: true},
			},
			{
				ID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
				CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
				UpdatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
			},
		},
	}
	store := New(querier, log.NewNop())

	sessions, err := store.List(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].Title != "Admissions questions" || sessions[0].MessageCount != 8 {
		t.Errorf("first session = %+v", sessions[0])
	}
	if sessions[1].Title != "" {
		t.Errorf("untitled session title = %q, want empty", sessions[1].Title)
	}
}

func TestDeleteSession(t *testing.T) {
	querier := &mockQuerier{}
	store := New(querier, log.NewNop())
	id := uuid.New()

	if err := store.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if querier.deletedID.Bytes != id {
		t.Error("delete should target the given session")
	}
}

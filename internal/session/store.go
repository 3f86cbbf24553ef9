package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sunmarke/assistant/internal/log"
)

// ErrNotFound indicates the requested session does not exist.
var ErrNotFound = errors.New("session not found")

// SessionRow is one sessions table row.
type SessionRow struct {
	ID           pgtype.UUID
	Title        *string
	MessageCount int32
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

// MessageRow is one messages table row.
type MessageRow struct {
	ID             pgtype.UUID
	SessionID      pgtype.UUID
	Role           string
	Content        string
	SequenceNumber int32
	CreatedAt      pgtype.Timestamptz
}

// AddMessageParams carries one message insert.
type AddMessageParams struct {
	SessionID      pgtype.UUID
	Role           string
	Content        string
	SequenceNumber int32
}

// GetMessagesParams carries one paginated message read.
type GetMessagesParams struct {
	SessionID    pgtype.UUID
	ResultLimit  int32
	ResultOffset int32
}

// Querier defines the database operations the Store depends on.
type Querier interface {
	CreateSession(ctx context.Context, title *string) (SessionRow, error)
	GetSession(ctx context.Context, id pgtype.UUID) (SessionRow, error)
	ListSessions(ctx context.Context, limit, offset int32) ([]SessionRow, error)
	DeleteSession(ctx context.Context, id pgtype.UUID) error
	AddMessage(ctx context.Context, arg AddMessageParams) error
	GetMessages(ctx context.Context, arg GetMessagesParams) ([]MessageRow, error)
	MaxSequenceNumber(ctx context.Context, sessionID pgtype.UUID) (int32, error)
	TouchSession(ctx context.Context, id pgtype.UUID, messageCount int32) error
}

// Store manages session persistence.
//
// Sequence numbers are assigned by reading the current maximum and
// incrementing; the assistant is a single-writer CLI, so exchanges of one
// session are never appended concurrently.
type Store struct {
	querier Querier
	logger  log.Logger
}

// New creates a Store. A nil logger discards output.
func New(querier Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{querier: querier, logger: logger}
}

// Create starts a new session. The title is truncated to TitleMaxLength;
// an empty title is stored as NULL.
func (s *Store) Create(ctx context.Context, title string) (*Session, error) {
	if runes := []rune(title); len(runes) > TitleMaxLength {
		title = string(runes[:TitleMaxLength-3]) + "..."
	}

	var titlePtr *string
	if title != "" {
		titlePtr = &title
	}

	row, err := s.querier.CreateSession(ctx, titlePtr)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	sess := rowToSession(row)
	s.logger.Debug("created session", "id", sess.ID, "title", sess.Title)
	return sess, nil
}

// Get retrieves a session by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	row, err := s.querier.GetSession(ctx, uuidToPg(id))
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return rowToSession(row), nil
}

// List returns sessions ordered by last activity, newest first.
func (s *Store) List(ctx context.Context, limit, offset int32) ([]*Session, error) {
	rows, err := s.querier.ListSessions(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, rowToSession(row))
	}
	return sessions, nil
}

// Delete removes a session and its messages.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.querier.DeleteSession(ctx, uuidToPg(id)); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	s.logger.Debug("deleted session", "id", id)
	return nil
}

// AppendExchange records one question/answer pair as two consecutive
// messages and refreshes the session's activity timestamp.
func (s *Store) AppendExchange(ctx context.Context, sessionID uuid.UUID, question, answer string) error {
	pgID := uuidToPg(sessionID)

	maxSeq, err := s.querier.MaxSequenceNumber(ctx, pgID)
	if err != nil {
		return fmt.Errorf("reading sequence number: %w", err)
	}

	entries := []struct {
		role    string
		content string
	}{
		{RoleUser, question},
		{RoleAssistant, answer},
	}
	for i, entry := range entries {
		err := s.querier.AddMessage(ctx, AddMessageParams{
			SessionID:      pgID,
			Role:           entry.role,
			Content:        entry.content,
			SequenceNumber: maxSeq + int32(i) + 1,
		})
		if err != nil {
			return fmt.Errorf("inserting %s message: %w", entry.role, err)
		}
	}

	if err := s.querier.TouchSession(ctx, pgID, maxSeq+2); err != nil {
		return fmt.Errorf("updating session metadata: %w", err)
	}

	s.logger.Debug("appended exchange", "session_id", sessionID, "sequence", maxSeq+2)
	return nil
}

// Messages returns a session's messages ordered by sequence number.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID, limit, offset int32) ([]*Message, error) {
	rows, err := s.querier.GetMessages(ctx, GetMessagesParams{
		SessionID:    uuidToPg(sessionID),
		ResultLimit:  limit,
		ResultOffset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("getting messages for session %s: %w", sessionID, err)
	}

	messages := make([]*Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, &Message{
			ID:             pgToUUID(row.ID),
			SessionID:      pgToUUID(row.SessionID),
			Role:           row.Role,
			Content:        row.Content,
			SequenceNumber: int(row.SequenceNumber),
			CreatedAt:      row.CreatedAt.Time,
		})
	}
	return messages, nil
}

func rowToSession(row SessionRow) *Session {
	sess := &Session{
		ID:           pgToUUID(row.ID),
		MessageCount: int(row.MessageCount),
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
	if row.Title != nil {
		sess.Title = *row.Title
	}
	return sess
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgToUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return id.Bytes
}

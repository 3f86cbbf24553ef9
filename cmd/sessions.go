package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sunmarke/assistant/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage recorded question-answering sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd.Context(), runSessionsList)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the messages of one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session ID %q: %w", args[0], err)
		}
		return withSessions(cmd.Context(), func(ctx context.Context, store *session.Store) error {
			return runSessionsShow(ctx, store, id)
		})
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session ID %q: %w", args[0], err)
		}
		return withSessions(cmd.Context(), func(ctx context.Context, store *session.Store) error {
			if err := store.Delete(ctx, id); err != nil {
				if errors.Is(err, session.ErrNotFound) {
					return fmt.Errorf("session %s not found", id)
				}
				return fmt.Errorf("deleting session: %w", err)
			}
			fmt.Printf("Session %s deleted.\n", id)
			return nil
		})
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// withSessions runs fn against the session store of a fully constructed
// application, closing it afterwards.
func withSessions(ctx context.Context, fn func(context.Context, *session.Store) error) error {
	a, logger, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing application", "error", err)
		}
	}()

	return fn(ctx, a.Sessions)
}

func runSessionsList(ctx context.Context, store *session.Store) error {
	sessions, err := store.List(ctx, 100, 0)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions recorded yet.")
		return nil
	}

	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %-40s  %d messages  %s\n",
			s.ID, title, s.MessageCount, formatTime(s.UpdatedAt))
	}
	return nil
}

func runSessionsShow(ctx context.Context, store *session.Store, id uuid.UUID) error {
	s, err := store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("session %s not found", id)
		}
		return fmt.Errorf("getting session: %w", err)
	}

	messages, err := store.Messages(ctx, id, 1000, 0)
	if err != nil {
		return fmt.Errorf("getting messages: %w", err)
	}

	fmt.Printf("Session: %s\n", s.ID)
	if s.Title != "" {
		fmt.Printf("Title: %s\n", s.Title)
	}
	fmt.Printf("Created: %s\n", formatTime(s.CreatedAt))
	fmt.Printf("Updated: %s\n", formatTime(s.UpdatedAt))
	fmt.Printf("Messages: %d\n", len(messages))
	fmt.Println()

	for _, msg := range messages {
		role := "you"
		if msg.Role == session.RoleAssistant {
			role = "assistant"
		}
		fmt.Printf("%s> %s\n\n", role, msg.Content)
	}
	return nil
}

// formatTime renders recent timestamps relative, older ones absolute.
func formatTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}

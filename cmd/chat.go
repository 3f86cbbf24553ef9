package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sunmarke/assistant/internal/pipeline"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question-answering session",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, logger, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing application", "error", err)
		}
	}()

	if err := a.WarmUp(ctx); err != nil {
		return fmt.Errorf("preparing knowledge index: %w", err)
	}

	sess, err := a.Sessions.Create(ctx, "")
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	fmt.Printf("Sunmarke School assistant (session %s)\n", sess.ID)
	fmt.Println("Ask a question, or /exit to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.HasPrefix(question, "/") {
			if handleChatCommand(question) {
				break
			}
			continue
		}

		answer, err := a.Pipeline.Run(ctx, question)
		if err != nil {
			if errors.Is(err, pipeline.ErrUnavailable) {
				fmt.Fprintln(os.Stderr, "The assistant is temporarily unavailable, please try again.")
				logger.Warn("pipeline unavailable", "error", err)
				continue
			}
			return fmt.Errorf("answering question: %w", err)
		}

		fmt.Printf("assistant> %s\n\n", answer)

		if err := a.Sessions.AppendExchange(ctx, sess.ID, question, answer); err != nil {
			logger.Warn("recording exchange", "error", err)
		}
	}

	return scanner.Err()
}

// handleChatCommand processes slash commands. Returns true when the loop
// should exit.
func handleChatCommand(input string) bool {
	switch strings.ToLower(input) {
	case "/exit", "/quit":
		fmt.Println("Goodbye!")
		return true
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /help         Show this help")
		fmt.Println("  /exit, /quit  End the session")
	default:
		fmt.Printf("Unknown command %q, try /help\n", input)
	}
	return false
}

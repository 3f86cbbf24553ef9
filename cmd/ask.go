package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askNoSave bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askNoSave, "no-save", false, "do not record the exchange as a session")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	answer, err := a.Pipeline.Run(ctx, question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(answer)

	if askNoSave {
		return nil
	}

	sess, err := a.Sessions.Create(ctx, question)
	if err != nil {
		logger.Warn("recording session", "error", err)
		return nil
	}
	if err := a.Sessions.AppendExchange(ctx, sess.ID, question, answer); err != nil {
		logger.Warn("recording exchange", "error", err)
	}
	return nil
}

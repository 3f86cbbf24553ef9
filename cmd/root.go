// Package cmd contains the assistant's CLI commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sunmarke/assistant/internal/app"
	"github.com/sunmarke/assistant/internal/config"
	"github.com/sunmarke/assistant/internal/log"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Conversational question answering for Sunmarke School",
	Long: `assistant answers questions about Sunmarke School from a curated
knowledge base, falling back to live web lookup for general questions
and plain conversation for casual input.

Running assistant with no arguments starts an interactive chat.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}

// newLogger builds the process logger. Debug level comes from --debug or
// the DEBUG environment variable.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if debugFlag || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// setupApp loads configuration and constructs the application. A .env file
// in the working directory is applied first so GEMINI_API_KEY and
// DATABASE_URL can live next to the binary during development.
func setupApp(ctx context.Context) (*app.App, log.Logger, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, logger, nil
}

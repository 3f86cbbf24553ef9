package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexRebuild bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the knowledge index from the school corpus",
	Long: `index loads the school corpus file, chunks it and stores the
embedded chunks in the knowledge base.

By default nothing happens when the index already holds corpus documents;
pass --rebuild to wipe and reindex from scratch.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "wipe the index and rebuild it from the corpus file")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
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

	if indexRebuild {
		if err := a.Reindex(ctx); err != nil {
			return fmt.Errorf("rebuilding index: %w", err)
		}
		fmt.Println("Index rebuilt.")
		return nil
	}

	if err := a.WarmUp(ctx); err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	fmt.Println("Index ready.")
	return nil
}

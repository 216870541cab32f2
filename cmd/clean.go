package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pingen/internal/history"
	"pingen/pkg/config"
)

var cleanHistory bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove leftover scratch images",
	Long:  `Delete the scratch directory, including images kept after failed uploads. With --history the run history is cleared too.`,
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanHistory, "history", false, "Also clear the run history")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(cmd.Context(), configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cleanHistory {
		store := history.NewStore(cfg.History.Path, cfg.History.MaxRuns)
		count := store.Len()
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("Cleared %d run(s) from history", count)))
	}

	dir := cfg.Pipeline.ScratchDir
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		fmt.Println(infoStyle.Render("No scratch images to clean"))
		return nil
	}
	if err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("Cleared %d run(s) from %s", len(entries), dir)))
	return nil
}

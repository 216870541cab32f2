package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"pingen/internal/history"
	"pingen/pkg/config"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent runs or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(cmd.Context(), configPath)
	if err != nil {
		return err
	}

	store := history.NewStore(cfg.History.Path, cfg.History.MaxRuns)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		result, err := store.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, titleStyle.Render(result.Topic))
		fmt.Fprintln(out, renderRecords(result.Records))
		fmt.Fprintln(out, infoStyle.Render(renderSummary(result)))
		return nil
	}

	runs := store.List()
	if len(runs) == 0 {
		fmt.Fprintln(out, infoStyle.Render("No runs yet"))
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunID,
			truncate(r.Topic, 40),
			r.Board,
			renderSummary(r),
		})
	}

	fmt.Fprintln(out, table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Run", "Topic", "Board", "Outcome").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render())
	return nil
}

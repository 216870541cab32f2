package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"pingen/internal/app"
	"pingen/internal/llm"
	"pingen/pkg/config"
)

var modelsAll bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List Gemini models available to your credentials",
	RunE:  runModels,
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsAll, "all", false, "Include models that cannot generate content")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadFrom(ctx, configPath)
	if err != nil {
		return err
	}

	lister, err := app.BuildModelLister(ctx, cfg)
	if err != nil {
		return err
	}

	models, err := listModels(ctx, lister, modelsAll)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(models) == 0 {
		fmt.Fprintln(out, warnStyle.Render("No models found"))
		return nil
	}

	rows := make([][]string, 0, len(models))
	for _, m := range models {
		marker := ""
		if m.Name == cfg.Gemini.Model || m.Name == "models/"+cfg.Gemini.Model {
			marker = "●"
		}
		rows = append(rows, []string{
			marker,
			m.Name,
			m.DisplayName,
			fmt.Sprint(m.InputTokenLimit),
			fmt.Sprint(m.OutputTokenLimit),
		})
	}

	fmt.Fprintln(out, table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("", "Name", "Display name", "Input tokens", "Output tokens").
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

func listModels(ctx context.Context, lister llm.ModelLister, all bool) ([]llm.ModelInfo, error) {
	models, err := lister.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	if !all {
		models = llm.FilterGenerative(models)
	}
	return models, nil
}

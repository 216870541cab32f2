package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"pingen/internal/app"
	"pingen/pkg/config"
)

var (
	genTopic     string
	genBoard     string
	genTargetURL string
	genJSONPath  string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one batch of pins",
	Long: `Generate pin records for a topic, render an image for each one and upload it.
Without --topic, --board and --url an interactive form is shown.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genTopic, "topic", "t", "", "Topic for the pins")
	generateCmd.Flags().StringVarP(&genBoard, "board", "b", "", "Pinterest board name")
	generateCmd.Flags().StringVarP(&genTargetURL, "url", "u", "", "Target URL the pins link to")
	generateCmd.Flags().StringVar(&genJSONPath, "json", "", "Write the batch result to this file")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req := app.Request{Topic: genTopic, Board: genBoard, TargetURL: genTargetURL}
	if req.Topic == "" && req.Board == "" && req.TargetURL == "" {
		var err error
		if req, err = promptRequest(); err != nil {
			return err
		}
	}

	cfg, err := config.LoadFrom(ctx, configPath)
	if err != nil {
		return err
	}

	service, err := app.BuildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := service.Close(); err != nil {
			slog.Warn("Failed to close service", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("📌 Pin Generator"))

	result, err := service.Run(ctx, req, terminalReporter(out))
	if result != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderRecords(result.Records))
		fmt.Fprintln(out, infoStyle.Render(renderSummary(result)))

		if genJSONPath != "" {
			if werr := writeJSON(genJSONPath, result); werr != nil {
				return werr
			}
			fmt.Fprintln(out, successStyle.Render("✓ Saved result to "+genJSONPath))
		}
	}
	if errors.Is(err, app.ErrMissingInput) {
		return fmt.Errorf("%w: use --topic, --board and --url", err)
	}
	return err
}

func promptRequest() (app.Request, error) {
	var req app.Request

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Topic").
				Description("What should the pins be about?").
				Value(&req.Topic).
				Validate(required("Topic")),
			huh.NewInput().
				Title("Pinterest board").
				Value(&req.Board).
				Validate(required("Board")),
			huh.NewInput().
				Title("Target URL").
				Placeholder("https://").
				Value(&req.TargetURL).
				Validate(required("Target URL")),
		),
	)

	if err := form.Run(); err != nil {
		return app.Request{}, err
	}

	var proceed bool
	if err := huh.NewConfirm().
		Title("Generate pins?").
		Description(fmt.Sprintf("Board %q, linking to %s", strings.TrimSpace(req.Board), strings.TrimSpace(req.TargetURL))).
		Affirmative("Generate").
		Negative("Cancel").
		Value(&proceed).
		Run(); err != nil {
		return app.Request{}, err
	}
	if !proceed {
		fmt.Fprintln(os.Stderr, infoStyle.Render("Cancelled"))
		return app.Request{}, huh.ErrUserAborted
	}

	return req, nil
}

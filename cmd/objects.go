package cmd

import (
	"fmt"
	"log/slog"
	"path"

	"github.com/spf13/cobra"

	"pingen/internal/app"
	"pingen/pkg/config"
)

var objectsCmd = &cobra.Command{
	Use:   "objects [run-id]",
	Short: "List uploaded pin images",
	Long:  `List the images stored under the configured prefix, optionally only those of one run.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runObjects,
}

func init() {
	rootCmd.AddCommand(objectsCmd)
}

func runObjects(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(cmd.Context(), configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lister, closeStore, err := app.BuildObjectLister(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			slog.Warn("Failed to close object store", "error", err)
		}
	}()

	prefix := objectPrefix(cfg.GCS.Prefix, args)
	names, err := lister.List(cmd.Context(), prefix)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, infoStyle.Render("No objects under "+prefix))
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	fmt.Fprintln(out, infoStyle.Render(fmt.Sprintf("%d object(s)", len(names))))
	return nil
}

func objectPrefix(base string, args []string) string {
	if len(args) == 1 {
		return path.Join(base, args[0]) + "/"
	}
	if base == "" {
		return ""
	}
	return base + "/"
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"pingen/internal/app"
	"pingen/internal/pin"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func styleFor(level app.Level) lipgloss.Style {
	switch level {
	case app.LevelSuccess:
		return successStyle
	case app.LevelWarn:
		return warnStyle
	case app.LevelError:
		return errorStyle
	default:
		return infoStyle
	}
}

// terminalReporter prints notices as they arrive.
func terminalReporter(w io.Writer) app.Reporter {
	return app.ReporterFunc(func(level app.Level, message string) {
		_, _ = fmt.Fprintln(w, styleFor(level).Render(message))
	})
}

func statusStyle(status pin.Status) lipgloss.Style {
	switch status {
	case pin.StatusImageUploaded:
		return cellStyle.Foreground(lipgloss.Color("42"))
	case pin.StatusUploadFailed, pin.StatusImageGenerationFailed:
		return cellStyle.Foreground(lipgloss.Color("196"))
	default:
		return cellStyle
	}
}

const statusColumn = 4

func renderRecords(records []*pin.Record) string {
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			truncate(r.Title, 40),
			truncate(r.Hook, 40),
			truncate(r.Hashtags.String(), 30),
			string(r.Status),
			r.ImageURL,
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("#", "Title", "Hook", "Hashtags", "Status", "Image URL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusColumn && row >= 0 && row < len(records) {
				return statusStyle(records[row].Status)
			}
			return cellStyle
		}).
		Render()
}

func renderSummary(result *pin.BatchResult) string {
	counts := result.Counts()
	return fmt.Sprintf("%d uploaded, %d upload failed, %d image failed in %s",
		counts[pin.StatusImageUploaded],
		counts[pin.StatusUploadFailed],
		counts[pin.StatusImageGenerationFailed],
		result.Duration().Round(1e9),
	)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

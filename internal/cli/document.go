package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"atas/api/internal/export"
	"atas/api/internal/metrics"
	"atas/api/internal/minutes"
)

func NewImportCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Parse a draft into the section model and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, report := minutes.ImportWithReport(text)
			metrics.Imports.WithLabelValues("cli").Inc()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"document": doc, "report": report})
		},
	}
}

func NewExportCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "export <model.json>",
		Short: "Print the canonical draft text of a section model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var doc minutes.Document
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			doc.Renumber()
			_, err = io.WriteString(cmd.OutOrStdout(), minutes.Export(doc))
			return err
		},
	}
}

func NewRenderCmd(deps *Dependencies) *cobra.Command {
	var (
		format        string
		out           string
		sessionNumber string
		sessionType   string
		committee     string
	)

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a draft as txt, pdf or docx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			// Round trip through the section model so the output is canonical.
			text = minutes.Export(minutes.Import(text))

			service := export.NewService(0, deps.Logger)
			result, err := service.Export(cmd.Context(), export.Request{
				MinutesID:     "cli",
				SessionNumber: sessionNumber,
				SessionType:   sessionType,
				Committee:     committee,
				Text:          text,
			}, parsed)
			if err != nil {
				return err
			}

			if out == "" {
				out = result.Filename
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(result.Data)
				return err
			}
			if err := os.WriteFile(out, result.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(result.Data))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "txt", "output format: txt, pdf or docx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path, - for stdout (default: derived from the session)")
	cmd.Flags().StringVar(&sessionNumber, "number", "", "session number used in the file name and header")
	cmd.Flags().StringVar(&sessionType, "type", "", "session type used in the file name and header")
	cmd.Flags().StringVar(&committee, "committee", "", "committee name printed in the header")
	return cmd
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

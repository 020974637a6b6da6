package cli

import (
	"fmt"

	"github.com/dshills/llmflow/pkg/storage"
	"github.com/dshills/llmflow/pkg/workflow"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command
func NewExportCommand(opts *Options) *cobra.Command {
	var (
		outputPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "export <workflow>",
		Short: "Export a workflow as JSON, Mermaid or Graphviz",
		Long: `Export a workflow to another format.

Formats:
  json      the workflow file format (default)
  mermaid   a Mermaid flowchart (alias: mmd)
  dot       a Graphviz digraph (alias: graphviz)

Text that looks like a pasted API key or password is reported on stderr
before export, since exported files are usually shared.

Examples:
  llmflow export research --format mermaid
  llmflow export research --format dot -o research.dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := workflow.ParseFormat(format)
			if err != nil {
				return err
			}
			exporter, err := workflow.NewExporter(f)
			if err != nil {
				return err
			}

			repo, err := opts.repository()
			if err != nil {
				return err
			}
			path, err := resolveWorkflowPath(repo, args[0])
			if err != nil {
				return err
			}
			data, err := readWorkflowFile(path)
			if err != nil {
				return err
			}
			wf, err := workflow.Deserialize(data)
			if err != nil {
				return fmt.Errorf("failed to load workflow: %w", err)
			}

			for _, cw := range workflow.ScanForCredentials(wf) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s: %s\n", cw.Location, cw.Message)
			}

			exported, err := exporter.Export(wf)
			if err != nil {
				return fmt.Errorf("failed to export workflow: %w", err)
			}

			if outputPath == "" {
				_, err := cmd.OutOrStdout().Write(exported)
				return err
			}
			if err := storage.WriteFileAtomic(outputPath, exported); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Workflow exported to: %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", string(workflow.FormatJSON), "Output format: json, mermaid or dot")

	return cmd
}

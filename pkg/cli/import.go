package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dshills/llmflow/pkg/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewImportCommand creates the import command
func NewImportCommand(opts *Options) *cobra.Command {
	var (
		name    string
		lenient bool
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "import <workflow-file>",
		Short: "Import a workflow file into the workflows directory",
		Long: `Import a workflow from a JSON file.

This command:
- Parses and validates the workflow file
- Reports text that looks like a pasted credential
- Saves the workflow to the workflows directory under its derived file name

A file that cannot be parsed is rejected. With --lenient it is imported
as an empty workflow instead, keeping the document's name when one can be
read, so it can be rebuilt in the editor.

Examples:
  llmflow import ./Research_Flow.json
  llmflow import shared.json --name "Team Research"
  llmflow import broken.json --lenient`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readWorkflowFile(args[0])
			if err != nil {
				return err
			}

			errOut := cmd.ErrOrStderr()

			var wf *workflow.Workflow
			if lenient {
				wf, err = workflow.DeserializeOrDefault(data)
				if err != nil {
					opts.Logger.Debug("lenient import fell back to empty workflow", zap.Error(err))
					_, _ = fmt.Fprintf(errOut, "⚠ %v\n", err)
					_, _ = fmt.Fprintln(errOut, "  Importing an empty workflow instead")
				}
			} else {
				wf, err = workflow.Deserialize(data)
				if err != nil {
					_, _ = fmt.Fprintln(errOut, "✗ Workflow is malformed")
					printMalformed(errOut, err)
					return err
				}
			}

			if name = strings.TrimSpace(name); name != "" {
				if err := checkWorkflowName(name); err != nil {
					return err
				}
				wf.Name = name
			}

			repo, err := opts.repository()
			if err != nil {
				return err
			}
			path, err := repo.Path(wf.Name)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("workflow already exists: %s\n\nLocation: %s\nUse --name to import under another name or --force to overwrite", wf.Name, path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to check workflow file: %w", err)
			}

			for _, cw := range workflow.ScanForCredentials(wf) {
				_, _ = fmt.Fprintf(errOut, "⚠ %s: %s\n", cw.Location, cw.Message)
			}

			if _, err := repo.Save(wf); err != nil {
				return fmt.Errorf("failed to save workflow: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "✓ Imported workflow: %s (%d nodes, %d edges)\n", wf.Name, len(wf.Nodes), len(wf.Edges))
			_, _ = fmt.Fprintf(out, "  Location: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Import under a different workflow name")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "Import an unreadable file as an empty workflow")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing workflow")

	return cmd
}

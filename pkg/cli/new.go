package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dshills/llmflow/pkg/workflow"
	"github.com/spf13/cobra"
)

const maxWorkflowNameLength = 128

// NewNewCommand creates the new command
func NewNewCommand(opts *Options) *cobra.Command {
	var (
		description string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "new <workflow-name>",
		Short: "Create an empty workflow",
		Long: `Create an empty workflow in the workflows directory.

The file name is derived from the workflow name: whitespace runs become
underscores, so "My Research Flow" is stored as My_Research_Flow.json.

Examples:
  llmflow new research
  llmflow new "Support Triage" --description "Routes tickets to tools"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if err := checkWorkflowName(name); err != nil {
				return err
			}

			repo, err := opts.repository()
			if err != nil {
				return err
			}
			path, err := repo.Path(name)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("workflow already exists: %s\n\nLocation: %s\nUse --force to overwrite it", name, path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to check workflow file: %w", err)
			}

			file, err := repo.Save(workflow.NewWorkflow(name, description))
			if err != nil {
				return fmt.Errorf("failed to create workflow: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "✓ Created workflow: %s\n", name)
			_, _ = fmt.Fprintf(out, "  Location: %s\n", path)
			_, _ = fmt.Fprintln(out, "\nNext steps:")
			_, _ = fmt.Fprintf(out, "  1. Edit the workflow: llmflow edit %s\n", file)
			_, _ = fmt.Fprintf(out, "  2. Validate: llmflow validate %s\n", file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Workflow description")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing workflow")

	return cmd
}

// checkWorkflowName rejects names that cannot produce a sensible file name
func checkWorkflowName(name string) error {
	if name == "" {
		return errors.New("workflow name cannot be empty")
	}
	if len(name) > maxWorkflowNameLength {
		return fmt.Errorf("workflow name is longer than %d characters", maxWorkflowNameLength)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("invalid workflow name: %q\n\nNames cannot contain path separators", name)
	}
	return nil
}

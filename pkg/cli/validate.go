package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/dshills/llmflow/pkg/models"
	"github.com/dshills/llmflow/pkg/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewValidateCommand creates the validate command
func NewValidateCommand(opts *Options) *cobra.Command {
	var (
		strict   bool
		noModels bool
	)

	cmd := &cobra.Command{
		Use:   "validate <workflow>",
		Short: "Validate a workflow",
		Long: `Validate a workflow file for correctness.

This checks:
- JSON syntax and the workflow schema
- Unique node and edge ids, edges pointing at existing nodes
- Model settings within range and known enum values (warnings)
- Models missing from the model registry (warnings)
- Self-loops and parallel edges (warnings)
- Text that looks like a pasted credential (warnings)

Warnings never fail validation unless --strict is given.

Examples:
  llmflow validate research
  llmflow validate ./shared/Research_Flow.json --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

			wf, err := workflow.Deserialize(data)
			if err != nil {
				_, _ = fmt.Fprintln(errOut, "✗ Workflow is malformed")
				printMalformed(errOut, err)
				return err
			}
			_, _ = fmt.Fprintln(out, "✓ Workflow JSON parsed successfully")
			_, _ = fmt.Fprintln(out, "✓ Schema and integrity checks passed")

			var warnings []string
			for _, issue := range workflow.Validate(wf) {
				warnings = append(warnings, issue.String())
			}
			if !noModels {
				providers, err := opts.providers(cmd.Context())
				if err != nil {
					opts.Logger.Debug("model check skipped", zap.Error(err))
					_, _ = fmt.Fprintf(errOut, "  Warning: could not read model registry: %v\n", err)
				} else {
					warnings = append(warnings, unknownModels(wf, providers)...)
				}
			}
			for _, cw := range workflow.ScanForCredentials(wf) {
				warnings = append(warnings, fmt.Sprintf("warning: %s: %s", cw.Location, cw.Message))
			}

			if len(warnings) == 0 {
				_, _ = fmt.Fprintln(out, "✓ No warnings")
			}
			for _, w := range warnings {
				_, _ = fmt.Fprintf(out, "⚠ %s\n", w)
			}

			if strict && len(warnings) > 0 {
				return fmt.Errorf("%d warnings (--strict)", len(warnings))
			}

			_, _ = fmt.Fprintf(out, "\n✓ Workflow '%s' is valid: %d nodes, %d edges\n", wf.Name, len(wf.Nodes), len(wf.Edges))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail if there are any warnings")
	cmd.Flags().BoolVar(&noModels, "no-models", false, "Skip checking models against the registry")

	return cmd
}

// unknownModels reports language-model nodes whose model is not offered
// by any provider
func unknownModels(wf *workflow.Workflow, providers []models.Provider) []string {
	var out []string
	for _, node := range wf.Nodes {
		data, ok := node.Data.(*workflow.LanguageModelData)
		if !ok || data.Model == "" || models.Contains(providers, data.Model) {
			continue
		}
		out = append(out, fmt.Sprintf("warning: node %s (model): model %q is not in the model registry", node.ID, data.Model))
	}
	return out
}

func printMalformed(w io.Writer, err error) {
	var mErr *workflow.MalformedWorkflowError
	if !errors.As(err, &mErr) {
		_, _ = fmt.Fprintf(w, "  Error: %v\n", err)
		return
	}
	_, _ = fmt.Fprintf(w, "  Reason: %s\n", mErr.Reason)
	for _, p := range mErr.Problems {
		_, _ = fmt.Fprintf(w, "  - %s\n", p)
	}
	if mErr.Err != nil {
		_, _ = fmt.Fprintf(w, "  Error: %v\n", mErr.Err)
	}
}

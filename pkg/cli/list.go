package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewListCommand creates the list command
func NewListCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.repository()
			if err != nil {
				return err
			}
			files, err := repo.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				_, _ = fmt.Fprintf(out, "No workflows in %s\n", repo.Dir())
				_, _ = fmt.Fprintln(out, "\nCreate one with: llmflow new <name>")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "FILE\tNAME\tNODES\tEDGES")
			for _, file := range files {
				wf, err := repo.Load(file)
				if err != nil {
					opts.Logger.Debug("skipping unreadable workflow", zap.String("file", file), zap.Error(err))
					_, _ = fmt.Fprintf(w, "%s\t(invalid)\t-\t-\n", file)
					continue
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", file, wf.Name, len(wf.Nodes), len(wf.Edges))
			}
			return w.Flush()
		},
	}
}

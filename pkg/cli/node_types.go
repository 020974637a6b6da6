package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dshills/llmflow/pkg/registry"
	"github.com/spf13/cobra"
)

// NewNodeTypesCommand creates the node-types command
func NewNodeTypesCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "node-types",
		Short: "List the node types the editor can add",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "TYPE\tICON\tTITLE\tDESCRIPTION")
			for _, d := range registry.Default().Descriptors() {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Kind, d.Icon, d.Title, d.Description)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			toolTypes := make([]string, 0)
			for _, t := range registry.ToolTypes() {
				toolTypes = append(toolTypes, string(t))
			}
			paramTypes := make([]string, 0)
			for _, p := range registry.ParamTypes() {
				paramTypes = append(paramTypes, string(p))
			}
			_, _ = fmt.Fprintf(out, "\nTool types:      %s\n", strings.Join(toolTypes, ", "))
			_, _ = fmt.Fprintf(out, "Parameter types: %s\n", strings.Join(paramTypes, ", "))
			return nil
		},
	}
}

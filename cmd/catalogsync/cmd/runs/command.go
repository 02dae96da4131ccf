// Package runs provides the runs command for reading import history.
package runs

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync/internal/appcontext"
	"github.com/agentstation/catalogsync/internal/cmd/output"
)

// NewCommand creates the runs command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		vendorID string
		limit    int
	)

	cmd := &cobra.Command{
		Use:     "runs [run-id]",
		Aliases: []string{"run", "history"},
		GroupID: "core",
		Short:   "List import runs or show one run",
		Args:    cobra.MaximumNArgs(1),
		Example: `  catalogsync runs                     # every vendor, newest first
  catalogsync runs --vendor acme --limit 5
  catalogsync runs 3f2c9a1e-...        # one run with its log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			format := output.DetectFormat(app.OutputFormat())

			if len(args) == 1 {
				run, err := engine.GetImportRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return output.WriteRun(cmd.OutOrStdout(), run, format)
			}

			list, err := engine.GetImportRuns(cmd.Context(), vendorID)
			if err != nil {
				return err
			}
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}
			return output.WriteRuns(cmd.OutOrStdout(), list, format)
		},
	}

	cmd.Flags().StringVar(&vendorID, "vendor", "", "only runs of this vendor")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "show at most this many runs")
	return cmd
}

// Package fetch provides the fetch command, a dry run of a remote import.
package fetch

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync/internal/appcontext"
	"github.com/agentstation/catalogsync/internal/cmd/cmdutil"
	"github.com/agentstation/catalogsync/internal/cmd/output"
)

// NewCommand creates the fetch command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fetch <vendor-id>",
		GroupID: "core",
		Short:   "Preview the records a remote import would see",
		Long: `Fetch pages through a remote product API with the vendor's limits and
prints the normalized records and skips. Nothing is written and no import
run is recorded.`,
		Args: cobra.ExactArgs(1),
	}
	remoteFlags := cmdutil.AddRemoteFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := remoteFlags.Resolve(cmd)
		if err != nil {
			return err
		}
		engine, err := app.Engine()
		if err != nil {
			return err
		}

		batch, err := engine.PreviewRemote(cmd.Context(), args[0], cfg)
		if err != nil {
			return err
		}
		app.Logger().Info().
			Int("candidates", len(batch.Candidates)).
			Int("skipped", len(batch.Skipped)).
			Msg("Fetched remote records")
		return output.WriteBatch(cmd.OutOrStdout(), batch, output.DetectFormat(app.OutputFormat()))
	}
	return cmd
}

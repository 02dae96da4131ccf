// Package migrate provides the migrate command.
package migrate

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync/internal/appcontext"
)

// NewCommand creates the migrate command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "migrate",
		GroupID: "management",
		Short:   "Create or update the database schema",
		Long: `Migrate applies the catalog, vendor and import run tables to the
database named by database_url. It is safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Migrate(cmd.Context()); err != nil {
				return err
			}
			app.Logger().Info().Msg("Database schema is up to date")
			return nil
		},
	}
}

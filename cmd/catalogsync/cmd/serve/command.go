// Package serve provides the serve command.
package serve

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync/internal/appcontext"
	"github.com/agentstation/catalogsync/internal/server"
	"github.com/agentstation/catalogsync/internal/server/events"
)

// NewCommand creates the serve command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "core",
		Short:   "Serve the import API over HTTP",
		Long: `Serve exposes imports and import history as a JSON API:

  POST /api/v1/vendors/{vendorID}/imports/flatfile
  POST /api/v1/vendors/{vendorID}/imports/remote
  POST /api/v1/vendors/{vendorID}/imports/remote/preview
  GET  /api/v1/vendors/{vendorID}/imports
  GET  /api/v1/imports
  GET  /api/v1/imports/{runID}
  GET  /api/v1/imports/events          (WebSocket run events)

plus /health, /ready and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}

			cfg := app.ServerConfig()
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			hub := events.NewHub(app.Logger())
			engine.OnRunStarted(hub.OnRunStarted)
			engine.OnRunFinished(hub.OnRunFinished)

			opts := append(app.ServerOptions(), server.WithEvents(hub))
			srv := server.New(engine, app.Logger(), cfg, opts...)
			return srv.ListenAndServe(cmd.Context())
		},
	}

	defaults := server.DefaultConfig()
	cmd.Flags().StringVar(&host, "host", defaults.Host, "address to bind")
	cmd.Flags().IntVarP(&port, "port", "p", defaults.Port, "port to listen on")
	return cmd
}

// Package imports provides the import command.
package imports

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync/internal/appcontext"
	"github.com/agentstation/catalogsync/internal/cmd/cmdutil"
	"github.com/agentstation/catalogsync/internal/cmd/output"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/runs"
	"github.com/agentstation/catalogsync/pkg/sources/flatfile"
)

// NewCommand creates the import command and its subcommands.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import",
		Aliases: []string{"imports"},
		GroupID: "core",
		Short:   "Import a vendor's products into the catalog",
		Long: `Import runs one reconciliation pass for a vendor and prints the
resulting import run. The command exits non-zero when the run failed.`,
	}
	cmd.AddCommand(newFlatFileCommand(app), newRemoteCommand(app))
	return cmd
}

func newFlatFileCommand(app appcontext.Interface) *cobra.Command {
	var charset string

	cmd := &cobra.Command{
		Use:   "flatfile <vendor-id> <file>",
		Short: "Import a semicolon-delimited product feed",
		Args:  cobra.ExactArgs(2),
		Example: `  catalogsync import flatfile acme ./feed.csv
  catalogsync import flatfile acme ./feed.csv --charset windows-1252
  curl -s https://acme.example.com/feed.csv | catalogsync import flatfile acme -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			vendorID, path := args[0], args[1]

			data, err := readFeed(cmd, path)
			if err != nil {
				return err
			}
			opts := []flatfile.Option{flatfile.WithName(filepath.Base(path))}
			if charset != "" {
				opts = append(opts, flatfile.WithCharset(charset))
			}

			engine, err := app.Engine()
			if err != nil {
				return err
			}
			run, runErr := engine.RunFlatFileImport(cmd.Context(), vendorID, data, opts...)
			return report(cmd, app, run, runErr)
		},
	}

	cmd.Flags().StringVar(&charset, "charset", "", "feed character set: utf-8, windows-1252, iso-8859-1 (default utf-8)")
	return cmd
}

func newRemoteCommand(app appcontext.Interface) *cobra.Command {
	var refs []string

	cmd := &cobra.Command{
		Use:   "remote <vendor-id>",
		Short: "Import products from a remote product API",
		Args:  cobra.ExactArgs(1),
		Example: `  catalogsync import remote acme --endpoint https://acme.example.com/wp-json/wc/v3/products --only-published
  catalogsync import remote acme --source-file acme-shop.yaml --refs 101,102`,
	}
	remoteFlags := cmdutil.AddRemoteFlags(cmd)
	cmd.Flags().StringSliceVar(&refs, "refs", nil, "refresh only these remote record ids")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := remoteFlags.Resolve(cmd)
		if err != nil {
			return err
		}
		engine, err := app.Engine()
		if err != nil {
			return err
		}

		var (
			run    *runs.ImportRun
			runErr error
		)
		if len(refs) > 0 {
			run, runErr = engine.RunRemoteRefresh(cmd.Context(), args[0], cfg, refs)
		} else {
			run, runErr = engine.RunRemoteImport(cmd.Context(), args[0], cfg)
		}
		return report(cmd, app, run, runErr)
	}
	return cmd
}

func readFeed(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, errors.WrapIO("read", "stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return data, nil
}

// report prints the run, even a failed one, and returns runErr.
func report(cmd *cobra.Command, app appcontext.Interface, run *runs.ImportRun, runErr error) error {
	if run != nil {
		format := output.DetectFormat(app.OutputFormat())
		if err := output.WriteRun(cmd.OutOrStdout(), run, format); err != nil {
			return err
		}
	}
	return runErr
}

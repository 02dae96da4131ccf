package app

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
)

func (a *App) newDocsCommand() *cobra.Command {
	var (
		dir string
		man bool
	)

	cmd := &cobra.Command{
		Use:     "docs",
		GroupID: "management",
		Short:   "Generate CLI reference pages",
		Long: `Docs writes one page per command into --dir, as Markdown by default
or as man pages with --man.`,
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
				return errors.WrapIO("create", dir, err)
			}

			root := cmd.Root()
			root.DisableAutoGenTag = true
			if man {
				header := &doc.GenManHeader{
					Title:   "CATALOGSYNC",
					Section: "1",
					Source:  "catalogsync " + a.version,
					Manual:  "catalogsync Manual",
				}
				if err := doc.GenManTree(root, header, dir); err != nil {
					return errors.WrapIO("write", dir, err)
				}
			} else if err := doc.GenMarkdownTree(root, dir); err != nil {
				return errors.WrapIO("write", dir, err)
			}

			a.logger.Info().Str("dir", dir).Bool("man", man).Msg("CLI reference generated")
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "docs/cli", "output directory")
	cmd.Flags().BoolVar(&man, "man", false, "generate man pages instead of Markdown")
	return cmd
}

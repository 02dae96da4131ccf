// Package cmdutil provides flags shared by catalogsync commands.
package cmdutil

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/sources/remote"
)

// Environment variables consulted for remote credentials when the flags
// are empty.
const (
	EnvConsumerKey    = "CATALOGSYNC_CONSUMER_KEY"
	EnvConsumerSecret = "CATALOGSYNC_CONSUMER_SECRET"
)

// RemoteFlags holds the flags describing a remote product source.
type RemoteFlags struct {
	SourceFile string
	Config     remote.Config
}

// AddRemoteFlags adds remote source flags to cmd.
func AddRemoteFlags(cmd *cobra.Command) *RemoteFlags {
	flags := &RemoteFlags{}
	f := cmd.Flags()

	f.StringVar(&flags.SourceFile, "source-file", "",
		"YAML file holding the remote source settings; flags override it")
	f.StringVar(&flags.Config.Endpoint, "endpoint", "",
		"Product listing URL, e.g. https://shop.example.com/wp-json/wc/v3/products")
	f.StringVar(&flags.Config.ConsumerKey, "consumer-key", "",
		"API consumer key (default $"+EnvConsumerKey+")")
	f.StringVar(&flags.Config.ConsumerSecret, "consumer-secret", "",
		"API consumer secret (default $"+EnvConsumerSecret+")")
	f.IntVar(&flags.Config.PerPage, "per-page", constants.DefaultPageSize,
		"Records requested per page")
	f.BoolVar(&flags.Config.OnlyPublished, "only-published", false,
		"Import published records only")
	f.BoolVar(&flags.Config.OnlyFeatured, "only-featured", false,
		"Import featured records only")
	f.BoolVar(&flags.Config.OnlyWithImages, "only-with-images", false,
		"Import records that have at least one image")
	f.IntVar(&flags.Config.TimeoutMs, "timeout-ms", 0,
		"Per-request timeout in milliseconds (default 30000)")
	f.IntVar(&flags.Config.Retries, "retries", constants.DefaultPageRetries,
		"Times a failed page is re-requested")

	return flags
}

// Resolve merges the source file, the flags set on cmd and the credential
// environment variables, in increasing order of precedence for flags.
func (r *RemoteFlags) Resolve(cmd *cobra.Command) (remote.Config, error) {
	cfg := remote.Config{PerPage: constants.DefaultPageSize, Retries: constants.DefaultPageRetries}
	if r.SourceFile != "" {
		data, err := os.ReadFile(r.SourceFile)
		if err != nil {
			return cfg, errors.WrapIO("read", r.SourceFile, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.WrapParse("yaml", r.SourceFile, err)
		}
	}

	overrides := map[string]func(){
		"endpoint":         func() { cfg.Endpoint = r.Config.Endpoint },
		"consumer-key":     func() { cfg.ConsumerKey = r.Config.ConsumerKey },
		"consumer-secret":  func() { cfg.ConsumerSecret = r.Config.ConsumerSecret },
		"per-page":         func() { cfg.PerPage = r.Config.PerPage },
		"only-published":   func() { cfg.OnlyPublished = r.Config.OnlyPublished },
		"only-featured":    func() { cfg.OnlyFeatured = r.Config.OnlyFeatured },
		"only-with-images": func() { cfg.OnlyWithImages = r.Config.OnlyWithImages },
		"timeout-ms":       func() { cfg.TimeoutMs = r.Config.TimeoutMs },
		"retries":          func() { cfg.Retries = r.Config.Retries },
	}
	// Visit only walks flags set on the command line
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		if apply, ok := overrides[flag.Name]; ok {
			apply()
		}
	})

	if cfg.ConsumerKey == "" {
		cfg.ConsumerKey = os.Getenv(EnvConsumerKey)
	}
	if cfg.ConsumerSecret == "" {
		cfg.ConsumerSecret = os.Getenv(EnvConsumerSecret)
	}
	return cfg, cfg.Validate()
}

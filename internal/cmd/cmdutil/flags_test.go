package cmdutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/errors"
)

func newCmd() (*cobra.Command, *RemoteFlags) {
	cmd := &cobra.Command{Use: "test"}
	return cmd, AddRemoteFlags(cmd)
}

func TestResolveFlagsOnly(t *testing.T) {
	t.Setenv(EnvConsumerKey, "")
	t.Setenv(EnvConsumerSecret, "")
	cmd, flags := newCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--endpoint", "https://shop.test/products", "--only-published", "--per-page", "25"}))

	cfg, err := flags.Resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.test/products", cfg.Endpoint)
	assert.True(t, cfg.OnlyPublished)
	assert.Equal(t, 25, cfg.PerPage)
	assert.Equal(t, 2, cfg.Retries)
}

func TestResolveSourceFileWithOverrides(t *testing.T) {
	t.Setenv(EnvConsumerKey, "")
	t.Setenv(EnvConsumerSecret, "")
	path := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
endpoint: https://shop.test/products
only_featured: true
per_page: 40
consumer_key: ck_file
consumer_secret: cs_file
`), 0o600))

	cmd, flags := newCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--source-file", path, "--per-page", "10"}))

	cfg, err := flags.Resolve(cmd)
	require.NoError(t, err)
	assert.True(t, cfg.OnlyFeatured)
	assert.Equal(t, 10, cfg.PerPage, "flags win over the file")
	assert.Equal(t, "ck_file", cfg.ConsumerKey)
}

func TestResolveCredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvConsumerKey, "ck_env")
	t.Setenv(EnvConsumerSecret, "cs_env")
	cmd, flags := newCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--endpoint", "https://shop.test/products"}))

	cfg, err := flags.Resolve(cmd)
	require.NoError(t, err)
	assert.Equal(t, "ck_env", cfg.ConsumerKey)
	assert.Equal(t, "cs_env", cfg.ConsumerSecret)
}

func TestResolveInvalid(t *testing.T) {
	cmd, flags := newCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	_, err := flags.Resolve(cmd)
	assert.True(t, errors.IsValidationError(err), "endpoint is required")
}

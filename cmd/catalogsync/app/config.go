package app

import (
	stderrors "errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/catalogsync/internal/countcache"
	"github.com/agentstation/catalogsync/internal/server"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/vendors"
)

// EnvPrefix prefixes every environment variable the CLI reads, e.g.
// CATALOGSYNC_DATABASE_URL or CATALOGSYNC_SERVER_PORT.
const EnvPrefix = "CATALOGSYNC"

// Config holds the application configuration loaded from flags, the
// environment, .env files and .catalogsync.yaml.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	ConfigFile string

	// Backends. Without a database URL the catalog lives in memory and
	// is gone when the process exits.
	DatabaseURL    string
	Redis          countcache.Config
	VendorsFile    string
	VendorCacheTTL time.Duration

	// Engine
	TouchUnchanged bool
	ImportTimeout  time.Duration

	Server server.Config

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration in order of precedence:
//  1. Command-line flags (applied later by UpdateFromFlags)
//  2. CATALOGSYNC_* environment variables
//  3. .env and .env.local
//  4. configFile, or .catalogsync.yaml in the working or home directory
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".catalogsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !stderrors.As(err, &notFound) {
			return nil, errors.NewConfigError("config file", "cannot read configuration", err)
		}
	}

	return &Config{
		Verbose:    v.GetBool("verbose"),
		Quiet:      v.GetBool("quiet"),
		NoColor:    v.GetBool("no_color") || os.Getenv("NO_COLOR") != "",
		Format:     v.GetString("output"),
		ConfigFile: v.ConfigFileUsed(),

		DatabaseURL: v.GetString("database_url"),
		Redis: countcache.Config{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		VendorsFile:    v.GetString("vendors_file"),
		VendorCacheTTL: v.GetDuration("vendor_cache_ttl"),

		TouchUnchanged: v.GetBool("touch_unchanged"),
		ImportTimeout:  v.GetDuration("import_timeout"),

		Server: server.Config{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			PathPrefix:     v.GetString("server.path_prefix"),
			MaxUploadSize:  v.GetInt64("server.max_upload_size"),
			APIKey:         v.GetString("server.api_key"),
			AuthHeader:     v.GetString("server.auth_header"),
			RateLimit:      v.GetInt("server.rate_limit"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			IdleTimeout:    v.GetDuration("server.idle_timeout"),
			MetricsEnabled: v.GetBool("server.metrics_enabled"),
		},

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	srv := server.DefaultConfig()
	v.SetDefault("import_timeout", constants.ImportTimeout)
	v.SetDefault("vendor_cache_ttl", vendors.DefaultCacheTTL)
	v.SetDefault("server.host", srv.Host)
	v.SetDefault("server.port", srv.Port)
	v.SetDefault("server.path_prefix", srv.PathPrefix)
	v.SetDefault("server.max_upload_size", srv.MaxUploadSize)
	v.SetDefault("server.auth_header", srv.AuthHeader)
	v.SetDefault("server.rate_limit", srv.RateLimit)
	v.SetDefault("server.read_timeout", srv.ReadTimeout)
	v.SetDefault("server.write_timeout", srv.WriteTimeout)
	v.SetDefault("server.idle_timeout", srv.IdleTimeout)
	v.SetDefault("server.metrics_enabled", srv.MetricsEnabled)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// UpdateFromFlags lets explicitly passed flags win over every other source.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env then .env.local. Variables already set in the
// process environment are never overwritten.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

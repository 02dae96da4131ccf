package server

import (
	"net"
	"strconv"
	"time"

	"github.com/agentstation/catalogsync/pkg/constants"
)

// Config holds server configuration.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// API settings
	PathPrefix    string `mapstructure:"path_prefix"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"`

	// Authentication; an empty APIKey leaves the API open
	APIKey     string `mapstructure:"api_key"`
	AuthHeader string `mapstructure:"auth_header"`

	// Requests per minute per client address (0 to disable)
	RateLimit int `mapstructure:"rate_limit"`

	// HTTP timeouts. WriteTimeout must outlast the longest import.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		PathPrefix:     "/api/v1",
		MaxUploadSize:  constants.MaxUploadSize,
		AuthHeader:     "X-API-Key",
		RateLimit:      120,
		ReadTimeout:    time.Minute,
		WriteTimeout:   constants.ImportTimeout,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

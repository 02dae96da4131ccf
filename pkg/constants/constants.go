// Package constants provides shared constants used throughout catalogsync.
// Timeouts, paging limits and field defaults live here so the adapters,
// the engine and the CLI agree on them.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout is the per-request timeout for remote product sources
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown of the CLI and HTTP server
	DefaultShutdownTimeout = 5 * time.Second

	// ImportTimeout bounds one import invocation started from the CLI
	ImportTimeout = 30 * time.Minute

	// RetryBackoff is the base backoff between whole-page retries
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff caps the exponential page retry backoff
	MaxRetryBackoff = 30 * time.Second

	// ReadHeaderTimeout is the HTTP server header read timeout
	ReadHeaderTimeout = 10 * time.Second
)

// File permission constants
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Paging and concurrency limits
const (
	// DefaultPageSize is the per_page value sent to remote sources
	DefaultPageSize = 100

	// MaxPageSize is the largest per_page value a remote config may request
	MaxPageSize = 1000

	// MaxPages stops pagination against sources that ignore per_page
	MaxPages = 10000

	// DefaultPageRetries is how many times a failed page is re-requested
	DefaultPageRetries = 2

	// DefaultVendorConcurrency applies when a vendor has no concurrency limit
	DefaultVendorConcurrency = 1

	// MaxVendorConcurrency caps the vendor-supplied concurrency limit
	MaxVendorConcurrency = 16

	// MaxUploadSize is the largest flat file accepted over HTTP (32 MB)
	MaxUploadSize = 32 << 20
)

// Field defaults applied by the source adapters
const (
	// FlatFileDelimiter separates flat-file columns
	FlatFileDelimiter = ';'

	// CategorySeparator separates levels of a category path
	CategorySeparator = ">"

	// FallbackCategory is used for flat-file rows without a category path
	FallbackCategory = "Other"

	// UncategorizedCategory is used for remote records without categories
	UncategorizedCategory = "Uncategorized"

	// PublishedStatus is the remote status value of a published product
	PublishedStatus = "publish"
)

// Metadata keys written by the commit executor
const (
	// MetaLastSyncedAt records the last import that saw an entry
	MetaLastSyncedAt = "lastSyncedAt"

	// MetaImportedAt records when an entry was first created by an import
	MetaImportedAt = "importedAt"

	// MetaSource records which adapter produced an entry
	MetaSource = "source"

	// MetaSourceRef records the source-specific id of an entry
	MetaSourceRef = "sourceRef"
)

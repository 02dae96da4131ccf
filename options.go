package catalogsync

import (
	"net/http"
	"time"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/runs"
	"github.com/agentstation/catalogsync/pkg/sources/remote"
)

// options configures an engine.
type options struct {
	ledger           runs.Ledger
	touchUnchanged   bool
	serializeVendors bool
	importTimeout    time.Duration
	clock            func() time.Time

	// remote adapter
	httpClient     *http.Client
	retryBackoff   time.Duration
	remoteObserver remote.RequestObserver
}

func defaultOptions() *options {
	return &options{
		ledger:           runs.NewMemoryLedger(),
		serializeVendors: true,
		importTimeout:    constants.ImportTimeout,
		clock:            time.Now,
		retryBackoff:     constants.RetryBackoff,
	}
}

// Option is a function that configures an Engine.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns engine options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithLedger sets where import runs are recorded. The default keeps them
// in memory.
func WithLedger(ledger runs.Ledger) Option {
	return func(o *options) error {
		if ledger == nil {
			return &errors.ValidationError{
				Field:   "ledger",
				Message: "cannot be nil",
			}
		}
		o.ledger = ledger
		return nil
	}
}

// WithTouchUnchanged makes imports stamp unchanged entries with a
// lastSyncedAt metadata key.
func WithTouchUnchanged(enabled bool) Option {
	return func(o *options) error {
		o.touchUnchanged = enabled
		return nil
	}
}

// WithVendorSerialization controls whether imports for the same vendor
// wait for each other. Enabled by default.
func WithVendorSerialization(enabled bool) Option {
	return func(o *options) error {
		o.serializeVendors = enabled
		return nil
	}
}

// WithImportTimeout bounds a whole import. Zero disables the bound.
func WithImportTimeout(timeout time.Duration) Option {
	return func(o *options) error {
		if timeout < 0 {
			return &errors.ValidationError{
				Field:   "importTimeout",
				Value:   timeout,
				Message: "cannot be negative",
			}
		}
		o.importTimeout = timeout
		return nil
	}
}

// WithClock sets the time source for run timestamps and metadata stamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) error {
		if clock == nil {
			return &errors.ValidationError{
				Field:   "clock",
				Message: "cannot be nil",
			}
		}
		o.clock = clock
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for remote sources.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) error {
		o.httpClient = client
		return nil
	}
}

// WithRetryBackoff sets the base delay between remote page retries.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(o *options) error {
		if backoff <= 0 {
			return &errors.ValidationError{
				Field:   "retryBackoff",
				Value:   backoff,
				Message: "must be positive",
			}
		}
		o.retryBackoff = backoff
		return nil
	}
}

// WithRemoteObserver registers a callback for every remote HTTP request.
func WithRemoteObserver(fn remote.RequestObserver) Option {
	return func(o *options) error {
		o.remoteObserver = fn
		return nil
	}
}

// Package remote fetches catalog candidates from a paginated JSON product
// API. Requests made through one Adapter share a per-vendor concurrency
// ceiling and a minimum spacing between requests.
package remote

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/agentstation/catalogsync/internal/transport"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/sources"
)

// RequestObserver is told about every HTTP request the adapter finishes.
// status is zero when no response arrived.
type RequestObserver func(source string, status int, elapsed time.Duration)

// Adapter talks to remote product APIs on behalf of one vendor.
type Adapter struct {
	limits     catalog.Limits
	sem        *semaphore.Weighted
	limiter    *rate.Limiter
	httpClient *http.Client
	backoff    time.Duration
	observe    RequestObserver
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient sets the HTTP client requests go through.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = hc
	}
}

// WithBackoff sets the base delay between page retries.
func WithBackoff(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.backoff = d
		}
	}
}

// WithObserver registers a request observer.
func WithObserver(fn RequestObserver) Option {
	return func(a *Adapter) {
		a.observe = fn
	}
}

// New creates an adapter bound to a vendor's rate limits.
func New(limits catalog.Limits, opts ...Option) *Adapter {
	limit := rate.Inf
	if d := limits.Delay(); d > 0 {
		limit = rate.Every(d)
	}
	a := &Adapter{
		limits:  limits,
		sem:     semaphore.NewWeighted(int64(limits.MaxInFlight())),
		limiter: rate.NewLimiter(limit, 1),
		backoff: constants.RetryBackoff,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fetch walks every page of the remote listing, applies the config's
// filters and converts the surviving records. Records without a name or a
// permalink are reported as skipped. Any page failure after retries fails
// the whole fetch.
func (a *Adapter) Fetch(ctx context.Context, cfg *Config) (*sources.Batch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := a.client(cfg)
	perPage := cfg.PageSize()
	logger := logging.Ctx(ctx)

	var products []Product
	for page := 1; ; page++ {
		if page > constants.MaxPages {
			return nil, errors.NewAPIError(cfg.Source(), 0, fmt.Sprintf("pagination did not end after %d pages", constants.MaxPages))
		}
		records, err := a.fetchPage(ctx, client, cfg, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		logger.Debug().
			Str("source", cfg.Source()).
			Int("page", page).
			Int("records", len(records)).
			Msg("Fetched remote page")
		products = append(products, records...)
		if len(records) < perPage {
			break
		}
	}

	return toBatch(FilterProducts(products, cfg.Filter())), nil
}

// FetchAll returns the importable candidates of every page.
func (a *Adapter) FetchAll(ctx context.Context, cfg *Config) ([]catalog.Candidate, error) {
	batch, err := a.Fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return batch.Candidates, nil
}

// FetchOne fetches a single record by its remote id. Filters do not apply.
func (a *Adapter) FetchOne(ctx context.Context, cfg *Config, ref string) (catalog.Candidate, error) {
	if err := cfg.Validate(); err != nil {
		return catalog.Candidate{}, err
	}
	p, err := a.fetchRecord(ctx, a.client(cfg), cfg, ref)
	if err != nil {
		return catalog.Candidate{}, err
	}
	batch := toBatch([]Product{*p})
	if len(batch.Skipped) > 0 {
		return catalog.Candidate{}, errors.NewValidationError("ref", ref, batch.Skipped[0].Reason)
	}
	return batch.Candidates[0], nil
}

// FetchMany fetches records by remote id, at most limits.MaxInFlight at a
// time. Candidates come back in the order of refs. Records the source no
// longer has are reported as skipped; any other failure fails the call.
func (a *Adapter) FetchMany(ctx context.Context, cfg *Config, refs []string) (*sources.Batch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := a.client(cfg)

	results := make([]*Product, len(refs))
	missing := make([]bool, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limits.MaxInFlight())
	for i, ref := range refs {
		g.Go(func() error {
			p, err := a.fetchRecord(gctx, client, cfg, ref)
			if errors.IsNotFound(err) {
				missing[i] = true
				return nil
			}
			if err != nil {
				return fmt.Errorf("record %s: %w", ref, err)
			}
			results[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &sources.Batch{Source: sources.RemoteID}
	for i, p := range results {
		if missing[i] {
			batch.Skipped = append(batch.Skipped, sources.Skip{Ref: "product " + refs[i], Reason: "not found at source"})
			continue
		}
		one := toBatch([]Product{*p})
		batch.Candidates = append(batch.Candidates, one.Candidates...)
		batch.Skipped = append(batch.Skipped, one.Skipped...)
	}
	return batch, nil
}

func (a *Adapter) client(cfg *Config) *transport.Client {
	var auth transport.Authenticator = &transport.NoAuth{}
	if cfg.ConsumerKey != "" || cfg.ConsumerSecret != "" {
		auth = &transport.BasicAuth{Key: cfg.ConsumerKey, Secret: cfg.ConsumerSecret}
	}
	opts := []transport.ClientOption{transport.WithTimeout(cfg.Timeout())}
	if a.httpClient != nil {
		hc := *a.httpClient
		opts = append([]transport.ClientOption{transport.WithHTTPClient(&hc)}, opts...)
	}
	return transport.New(auth, opts...)
}

// fetchPage requests one listing page, retrying the whole page when the
// failure is transient.
func (a *Adapter) fetchPage(ctx context.Context, client *transport.Client, cfg *Config, page int) ([]Product, error) {
	target, err := cfg.pageURL(page)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.Retries; attempt++ {
		if attempt > 0 {
			limited := errors.IsRateLimited(lastErr)
			if err := a.wait(ctx, retryDelay(a.backoff, attempt, limited)); err != nil {
				return nil, err
			}
			logging.Ctx(ctx).Warn().
				Err(lastErr).
				Int("page", page).
				Int("attempt", attempt).
				Bool("rate_limited", limited).
				Msg("Retrying remote page")
		}
		var records []Product
		lastErr = a.get(ctx, client, cfg.Source(), target, &records)
		if lastErr == nil {
			return records, nil
		}
		if !retryable(lastErr) {
			break
		}
	}
	return nil, lastErr
}

func (a *Adapter) fetchRecord(ctx context.Context, client *transport.Client, cfg *Config, ref string) (*Product, error) {
	target, err := cfg.recordURL(ref)
	if err != nil {
		return nil, err
	}
	var p Product
	if err := a.get(ctx, client, cfg.Source(), target, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// get performs one rate-limited request inside the vendor's concurrency
// ceiling.
func (a *Adapter) get(ctx context.Context, client *transport.Client, source, target string, out any) error {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return canceled(err)
	}
	defer a.sem.Release(1)

	if err := a.limiter.Wait(ctx); err != nil {
		return canceled(err)
	}

	start := time.Now()
	resp, err := client.Get(ctx, target)
	if err != nil {
		a.report(source, 0, start)
		if ctx.Err() != nil {
			return canceled(ctx.Err())
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return errors.WrapAPI(source, 0, fmt.Errorf("%w: %v", errors.ErrTimeout, err))
		}
		return errors.WrapAPI(source, 0, err)
	}
	a.report(source, resp.StatusCode, start)
	return transport.DecodeResponse(resp, source, out)
}

func (a *Adapter) report(source string, status int, start time.Time) {
	if a.observe != nil {
		a.observe(source, status, time.Since(start))
	}
}

// retryDelay is the pause before retry attempt n (1-based): base doubled
// per attempt, capped at MaxRetryBackoff. A rate-limited answer moves one
// step further along the curve.
func retryDelay(base time.Duration, attempt int, rateLimited bool) time.Duration {
	if rateLimited {
		attempt++
	}
	d := base << (attempt - 1)
	if d <= 0 || d > constants.MaxRetryBackoff {
		d = constants.MaxRetryBackoff
	}
	return d
}

func (a *Adapter) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return canceled(ctx.Err())
	case <-t.C:
		return nil
	}
}

func retryable(err error) bool {
	var apiErr *errors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

func canceled(err error) error {
	return fmt.Errorf("%w: %v", errors.ErrCanceled, err)
}

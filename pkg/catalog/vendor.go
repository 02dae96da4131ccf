package catalog

import (
	"context"
	"time"

	"github.com/agentstation/catalogsync/pkg/constants"
)

// Limits bound how a vendor's remote source is fetched.
type Limits struct {
	// Concurrency caps in-flight outbound requests.
	Concurrency int `json:"concurrency" yaml:"concurrency" validate:"gte=0,lte=16"`

	// DelayMs is the minimum spacing between outbound requests.
	DelayMs int `json:"delayMs" yaml:"delayMs" validate:"gte=0"`
}

// MaxInFlight returns the effective concurrency limit.
func (l Limits) MaxInFlight() int {
	switch {
	case l.Concurrency <= 0:
		return constants.DefaultVendorConcurrency
	case l.Concurrency > constants.MaxVendorConcurrency:
		return constants.MaxVendorConcurrency
	default:
		return l.Concurrency
	}
}

// Delay returns DelayMs as a duration.
func (l Limits) Delay() time.Duration {
	if l.DelayMs <= 0 {
		return 0
	}
	return time.Duration(l.DelayMs) * time.Millisecond
}

// Vendor is the account that owns a slice of the catalog.
type Vendor struct {
	ID     string `json:"id" yaml:"id" validate:"required"`
	Name   string `json:"name,omitempty" yaml:"name"`
	Limits Limits `json:"limits" yaml:"limits"`
}

// VendorDirectory resolves vendors. Implementations return an error
// matching errors.ErrNotFound for unknown ids.
type VendorDirectory interface {
	Get(ctx context.Context, vendorID string) (*Vendor, error)
}

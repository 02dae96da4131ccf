// Package catalogsync imports vendor product catalogs into a catalog store.
//
// An import reads every record from one source (a semicolon-delimited flat
// file or a paginated remote product API), classifies each record against
// the store by its identity key, and writes new and changed entries one at
// a time. Every import is recorded as an ImportRun carrying its counters
// and a log of per-item failures.
//
// Example usage:
//
//	store := memory.New()
//	vendors := memory.NewVendors(catalog.Vendor{ID: "acme"})
//
//	engine, err := catalogsync.New(store, vendors)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine.OnRunFinished(func(run runs.ImportRun) {
//	    log.Printf("run %s: %s (%d new)", run.ID, run.Status, run.New)
//	})
//
//	run, err := engine.RunFlatFileImport(ctx, "acme", data)
//	if err != nil {
//	    log.Fatal(err) // run.Status is failed
//	}
//
//	run, err = engine.RunRemoteImport(ctx, "acme", remote.Config{
//	    Endpoint:       "https://shop.example.com/wp-json/wc/v3/products",
//	    ConsumerKey:    key,
//	    ConsumerSecret: secret,
//	    OnlyPublished:  true,
//	})
package catalogsync

import (
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ Engine = (*engine)(nil)

// Engine runs catalog imports and answers questions about past runs.
type Engine interface {
	// Importer starts imports from the supported sources
	Importer

	// History reads recorded import runs
	History

	// Hooks registers run lifecycle callbacks
	Hooks
}

// engine is the internal implementation of the Engine interface.
type engine struct {
	options *options

	// collaborators
	store   catalog.Store
	vendors catalog.VendorDirectory

	// per-vendor import serialization
	locks *vendorLocks

	hooks *hooks
}

// New creates an engine writing through store and resolving vendors
// through vendors.
func New(store catalog.Store, vendors catalog.VendorDirectory, opts ...Option) (Engine, error) {
	if store == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}
	if vendors == nil {
		return nil, &errors.ValidationError{Field: "vendors", Message: "cannot be nil"}
	}

	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &engine{
		options: options,
		store:   store,
		vendors: vendors,
		locks:   newVendorLocks(),
		hooks:   newHooks(),
	}, nil
}

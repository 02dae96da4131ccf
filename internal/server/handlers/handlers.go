// Package handlers provides the HTTP handlers of the catalogsync API.
package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync"
)

// Engine is the slice of catalogsync.Engine the handlers need.
type Engine interface {
	catalogsync.Importer
	catalogsync.History
}

// ReadyFunc reports whether a backing service is reachable.
type ReadyFunc func(ctx context.Context) error

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	engine    Engine
	logger    *zerolog.Logger
	maxUpload int64
	ready     map[string]ReadyFunc
}

// New creates a new Handlers instance. ready checks are run by
// HandleReady under their map key.
func New(engine Engine, logger *zerolog.Logger, maxUpload int64, ready map[string]ReadyFunc) *Handlers {
	return &Handlers{
		engine:    engine,
		logger:    logger,
		maxUpload: maxUpload,
		ready:     ready,
	}
}

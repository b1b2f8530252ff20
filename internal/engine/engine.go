// Package engine implements campaign sequencing and dispatch: on each tick
// it decides which recipients are due for their next sequence step, caps the
// batch, renders templates and drives the message transport, recording
// durable Send rows with bounded retry and backoff.
package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayodele-o/outreach/internal/merge"
	"github.com/ayodele-o/outreach/internal/store"
	"github.com/ayodele-o/outreach/internal/transport"
)

// Retry policy: a step gets the original attempt plus maxRetries retries,
// with a short wait before the first retry and a long wait after that.
const (
	maxRetries     = 2
	firstRetryWait = 10 * time.Minute
	laterRetryWait = 60 * time.Minute
)

// Config holds engine settings.
type Config struct {
	// RatePerMin caps the number of sends dispatched per tick. This is a
	// per-tick batch cap, not a rolling-window limiter; callers own the
	// tick cadence.
	RatePerMin int
	Links      merge.Links
}

// Engine is the campaign sequencing and dispatch engine. One Engine may
// tick different campaigns concurrently; concurrent ticks for the same
// campaign are the caller's responsibility to prevent (see redis.TickLease).
type Engine struct {
	store      store.Store
	transport  transport.Transport
	body       merge.BodyRenderer
	config     Config
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// New creates an engine. Zero RatePerMin defaults to 60.
func New(st store.Store, tr transport.Transport, body merge.BodyRenderer, cfg Config, logger *zap.Logger) *Engine {
	if cfg.RatePerMin <= 0 {
		cfg.RatePerMin = 60
	}

	return &Engine{
		store:     st,
		transport: tr,
		body:      body,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

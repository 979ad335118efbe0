package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/apetrei/meteotab/internal/openmeteo"
)

// Refresher re-runs the pipeline on an interval and keeps the most recent
// successful result for serving. A failed refresh keeps the last good
// result in place.
type Refresher struct {
	pipeline *Pipeline
	query    openmeteo.Query
	logger   *zap.Logger

	mu     sync.RWMutex
	latest *Result
}

// NewRefresher creates a Refresher for a fixed query.
func NewRefresher(p *Pipeline, q openmeteo.Query, logger *zap.Logger) *Refresher {
	return &Refresher{pipeline: p, query: q, logger: logger}
}

// RunOnce executes the pipeline once and stores the result on success.
func (r *Refresher) RunOnce(ctx context.Context) error {
	result, err := r.pipeline.Run(ctx, r.query)
	if err != nil {
		r.logger.Warn("refresh failed; keeping last good result", zap.Error(err))
		return err
	}
	r.mu.Lock()
	r.latest = result
	r.mu.Unlock()
	return nil
}

// Latest returns the most recent successful result, or nil before the first
// successful run.
func (r *Refresher) Latest() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Run refreshes immediately and then on every interval tick until ctx is
// canceled. Returns ctx.Err() on cancellation.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) error {
	_ = r.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = r.RunOnce(ctx)
		}
	}
}

// Package pipeline orchestrates one conversion run: fetch the hourly
// response, materialize it in the representation picked at startup, and
// apply the cleaning rules.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/apetrei/meteotab/internal/frame"
	"github.com/apetrei/meteotab/internal/observability"
	"github.com/apetrei/meteotab/internal/openmeteo"
)

// Fetcher abstracts the upstream collaborator so the pipeline is testable
// without HTTP.
type Fetcher interface {
	FetchHourly(ctx context.Context, q openmeteo.Query) (frame.Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, q openmeteo.Query) (frame.Response, error)

func (f FetcherFunc) FetchHourly(ctx context.Context, q openmeteo.Query) (frame.Response, error) {
	return f(ctx, q)
}

// Result carries one run's cleaned dataset plus counters for reporting.
type Result struct {
	Data         frame.Dataset
	Mode         string // "rows" or "table"
	Materialized int
	Dropped      int
}

// Pipeline wires the fetcher, the tabular engine decision, and the cleaner.
type Pipeline struct {
	fetcher Fetcher
	engine  frame.Engine // nil: row materialization unconditionally
	logger  *zap.Logger
}

// New creates a Pipeline. engine may be nil when the tabular engine was not
// detected; the pipeline then produces the row representation.
func New(fetcher Fetcher, engine frame.Engine, logger *zap.Logger) *Pipeline {
	return &Pipeline{fetcher: fetcher, engine: engine, logger: logger}
}

// Run executes fetch → materialize → clean for one query. The table
// representation is preferred when an engine is present, falling back to
// rows on ErrEngineUnavailable. A bad descriptor aborts this response only.
func (p *Pipeline) Run(ctx context.Context, q openmeteo.Query) (*Result, error) {
	resp, err := p.fetcher.FetchHourly(ctx, q)
	if err != nil {
		observability.PipelineRunsTotal.WithLabelValues("error").Inc()
		p.logger.Warn("fetch failed",
			zap.String("category", string(openmeteo.CategorizeError(err))),
			zap.Error(err))
		return nil, fmt.Errorf("fetch hourly data: %w", err)
	}

	ds, mode, err := p.materialize(resp, q.Hourly)
	if err != nil {
		observability.PipelineRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	materialized := ds.Len()
	observability.RecordsMaterializedTotal.WithLabelValues(mode).Add(float64(materialized))

	cleaned := frame.Clean(ds)
	dropped := materialized - cleaned.Len()
	if dropped > 0 {
		observability.RecordsDroppedTotal.Add(float64(dropped))
	}
	observability.PipelineRunsTotal.WithLabelValues("success").Inc()

	p.logger.Info("pipeline run complete",
		zap.String("mode", mode),
		zap.Int("materialized", materialized),
		zap.Int("dropped", dropped),
	)

	return &Result{
		Data:         cleaned,
		Mode:         mode,
		Materialized: materialized,
		Dropped:      dropped,
	}, nil
}

func (p *Pipeline) materialize(resp frame.Response, keys []string) (frame.Dataset, string, error) {
	if p.engine != nil {
		tbl, err := frame.MaterializeTable(p.engine, resp, keys)
		switch {
		case err == nil:
			return tbl, "table", nil
		case errors.Is(err, frame.ErrEngineUnavailable):
			p.logger.Warn("tabular engine unavailable, falling back to rows")
		default:
			return nil, "", fmt.Errorf("materialize table: %w", err)
		}
	}

	rows, err := frame.MaterializeRows(resp, keys)
	if err != nil {
		return nil, "", fmt.Errorf("materialize rows: %w", err)
	}
	return rows, "rows", nil
}

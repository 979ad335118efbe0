// Package preview renders a quick terminal chart of one measurement column.
package preview

import (
	"errors"
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/apetrei/meteotab/internal/frame"
)

// GraphType selects the chart shape.
type GraphType string

const (
	Linear    GraphType = "linear"
	Bar       GraphType = "bar"
	Scatter   GraphType = "scatter"
	Pie       GraphType = "pie"
	Histogram GraphType = "histogram"
)

// ErrUnknownGraphType is returned by ParseGraphType for names outside the enum.
var ErrUnknownGraphType = errors.New("unknown graph type")

// ErrUnsupportedGraph is returned by Render for enum members that have no
// renderer yet. Only linear is implemented.
var ErrUnsupportedGraph = errors.New("graph type not implemented")

// ErrColumnNotFound is returned when the requested column is absent.
var ErrColumnNotFound = errors.New("column not found")

// ErrNoValues is returned when there is nothing to plot.
var ErrNoValues = errors.New("no values to plot")

// ParseGraphType maps a flag value onto the enum.
func ParseGraphType(s string) (GraphType, error) {
	switch GraphType(s) {
	case Linear, Bar, Scatter, Pie, Histogram:
		return GraphType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGraphType, s)
	}
}

// Options tune the rendered chart. Zero values fall back to the renderer's
// defaults.
type Options struct {
	Height  int
	Width   int
	Caption string
}

// Render draws the values as the requested graph type.
func Render(values []float64, gt GraphType, opts Options) (string, error) {
	if gt != Linear {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedGraph, gt)
	}
	if len(values) == 0 {
		return "", ErrNoValues
	}

	var plotOpts []asciigraph.Option
	if opts.Height > 0 {
		plotOpts = append(plotOpts, asciigraph.Height(opts.Height))
	}
	if opts.Width > 0 {
		plotOpts = append(plotOpts, asciigraph.Width(opts.Width))
	}
	if opts.Caption != "" {
		plotOpts = append(plotOpts, asciigraph.Caption(opts.Caption))
	}
	return asciigraph.Plot(values, plotOpts...), nil
}

// ColumnValues extracts one column from a dataset as float64 values.
// Datasets are expected to be cleaned first, so measurement cells are
// float64; anything else is an error rather than a silent skip.
func ColumnValues(d frame.Dataset, column string) ([]float64, error) {
	switch data := d.(type) {
	case *frame.Table:
		if !data.HasColumn(column) {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
		}
		return cellsToFloats(data.Column(column), column)
	case frame.Rows:
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
		}
		cells := make([]any, len(data))
		for i, rec := range data {
			v, ok := rec[column]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
			}
			cells[i] = v
		}
		return cellsToFloats(cells, column)
	default:
		return nil, fmt.Errorf("unsupported dataset type %T", d)
	}
}

func cellsToFloats(cells []any, column string) ([]float64, error) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		f, ok := c.(float64)
		if !ok {
			return nil, fmt.Errorf("column %q cell %d is %T, not float64", column, i, c)
		}
		out[i] = f
	}
	return out, nil
}

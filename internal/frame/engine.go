package frame

import (
	"errors"
	"time"

	"github.com/apetrei/meteotab/internal/series"
)

// ErrEngineUnavailable is returned when table materialization is attempted
// without a tabular engine. Recoverable: callers fall back to
// MaterializeRows.
var ErrEngineUnavailable = errors.New("tabular engine unavailable; use row materialization instead")

// Engine is the tabular materialization capability. Detection happens once
// at startup so callers decide the row-vs-table strategy up front instead of
// catching a failure deep inside materialization.
type Engine interface {
	Materialize(resp Response, keys []string) (*Table, error)
}

// DetectEngine probes for a tabular engine and returns it, or
// ErrEngineUnavailable. The built-in columnar engine is always compiled in;
// the indirection exists so configuration can disable it and callers handle
// absence uniformly.
func DetectEngine(enabled bool) (Engine, error) {
	if !enabled {
		return nil, ErrEngineUnavailable
	}
	return columnarEngine{}, nil
}

// MaterializeTable materializes resp through eng. A nil engine reports
// ErrEngineUnavailable so call sites that skipped detection still get the
// documented fallback signal.
func MaterializeTable(eng Engine, resp Response, keys []string) (*Table, error) {
	if eng == nil {
		return nil, ErrEngineUnavailable
	}
	return eng.Materialize(resp, keys)
}

// columnarEngine is the built-in engine backed by Table.
type columnarEngine struct{}

// Materialize produces the column-oriented equivalent of MaterializeRows
// with two derived columns the row form leaves out: date formatted as
// YYYY-MM-DD and hour formatted as HH:MM, both from the timestamp in UTC.
// Column order is [date, hour, latitude, longitude, <variables>].
func (columnarEngine) Materialize(resp Response, keys []string) (*Table, error) {
	h := resp.Hourly()
	axis, err := series.BuildAxis(series.Descriptor{
		Start:    h.Time(),
		End:      h.TimeEnd(),
		Interval: h.Interval(),
	})
	if err != nil {
		return nil, err
	}

	values, lens := alignedVariables(h, keys)
	m := series.UsableLength(len(axis), lens)

	columns := make([]string, 0, 4+len(keys))
	columns = append(columns, KeyDate, KeyHour, KeyLatitude, KeyLongitude)
	columns = append(columns, keys...)
	t := NewTable(columns)

	lat, lon := resp.Latitude(), resp.Longitude()
	row := make(map[string]any, len(columns))
	for idx := 0; idx < m; idx++ {
		ts := time.Unix(axis[idx], 0).UTC()
		row[KeyDate] = ts.Format("2006-01-02")
		row[KeyHour] = ts.Format("15:04")
		row[KeyLatitude] = lat
		row[KeyLongitude] = lon
		for i, k := range keys {
			row[k] = values[i][idx]
		}
		t.AppendRow(row)
	}
	return t, nil
}

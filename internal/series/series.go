// Package series builds hourly time axes from compact descriptors and
// aligns parallel value series to a common usable length.
package series

import "errors"

// ErrInvalidDescriptor is returned when a descriptor carries a non-positive
// interval. This is the only structurally invalid input the package reports.
var ErrInvalidDescriptor = errors.New("invalid time-series descriptor: interval must be positive")

// Descriptor is the compact encoding of a time axis: epoch-second start and
// end plus a step in seconds. The axis is the half-open range [Start, End)
// stepped by Interval; End itself is excluded.
type Descriptor struct {
	Start    int64
	End      int64
	Interval int64
}

// BuildAxis expands d into the ordered timestamp sequence
// Start, Start+Interval, Start+2*Interval, ... strictly less than End.
// Pure function of its input; an empty range yields an empty axis.
func BuildAxis(d Descriptor) ([]int64, error) {
	if d.Interval <= 0 {
		return nil, ErrInvalidDescriptor
	}
	if d.End <= d.Start {
		return []int64{}, nil
	}
	n := (d.End - d.Start + d.Interval - 1) / d.Interval
	axis := make([]int64, 0, n)
	for ts := d.Start; ts < d.End; ts += d.Interval {
		axis = append(axis, ts)
	}
	return axis, nil
}

// UsableLength returns the common usable length of a time axis of length
// axisLen and variable series of the given lengths: the minimum of them all.
// With no variable series the axis length stands. Mismatched lengths are
// absorbed here rather than surfaced as errors; provider responses may
// legitimately differ by a sample near range boundaries. Zero is a valid
// result and means an empty materialization, not a failure.
func UsableLength(axisLen int, seriesLens []int) int {
	m := axisLen
	for _, l := range seriesLens {
		if l < m {
			m = l
		}
	}
	if m < 0 {
		m = 0
	}
	return m
}

package frame

import (
	"math"
	"strconv"
	"strings"
)

// Dataset is the contract shared by the two materialized representations:
// a cleaned copy with the same shape. Dispatch happens through the interface
// at the call site; the cleaning rules themselves live in the shared helpers
// below and apply identically to rows and tables.
type Dataset interface {
	// Cleaned returns a new dataset with the quality rules applied. The
	// receiver is never mutated and surviving rows keep their input order.
	Cleaned() Dataset
	// Len returns the number of rows.
	Len() int
}

// Clean applies the data-quality rules to d and returns the cleaned copy.
// Cleaning is idempotent: Clean(Clean(d)) equals Clean(d).
//
// The rules, identical for both representations:
//  1. every field outside the fixed metadata set is a measurement;
//  2. a row whose measurements are all missing is dropped, before any
//     coercion;
//  3. surviving measurement values are coerced to float64, with unparseable
//     or missing values replaced by 0;
//  4. latitude/longitude are coerced with a 0 fallback but never cause row
//     removal;
//  5. a dataset with no measurement fields is returned as an unchanged copy.
func Clean(d Dataset) Dataset {
	if d == nil {
		return nil
	}
	return d.Cleaned()
}

// Cleaned implements Dataset for the row representation. Measurement keys
// are taken from the first record, matching the materializers' uniform-key
// output.
func (r Rows) Cleaned() Dataset {
	if len(r) == 0 {
		return Rows{}
	}

	keys := make([]string, 0, len(r[0]))
	for k := range r[0] {
		keys = append(keys, k)
	}
	measures := MeasurementKeys(keys)

	out := make(Rows, 0, len(r))
	for _, rec := range r {
		if len(measures) > 0 && allMissing(rec, measures) {
			continue
		}
		clone := make(Record, len(rec))
		for k, v := range rec {
			clone[k] = v
		}
		for _, k := range measures {
			clone[k] = coerceMeasurement(clone[k])
		}
		coerceCoordinates(clone)
		out = append(out, clone)
	}
	return out
}

// Cleaned implements Dataset for the column-oriented representation. Column
// order is preserved exactly.
func (t *Table) Cleaned() Dataset {
	measures := MeasurementKeys(t.columns)

	out := NewTable(t.columns)
	row := make(map[string]any, len(t.columns))
	for i := 0; i < t.length; i++ {
		if len(measures) > 0 && rowAllMissing(t, i, measures) {
			continue
		}
		for _, c := range t.columns {
			row[c] = t.data[c][i]
		}
		out.AppendRow(row)
		j := out.length - 1
		for _, c := range measures {
			out.set(c, j, coerceMeasurement(out.data[c][j]))
		}
		for _, c := range []string{KeyLatitude, KeyLongitude} {
			if out.HasColumn(c) {
				out.set(c, j, coerceCoordinate(out.data[c][j]))
			}
		}
	}
	return out
}

// isMissing reports the missing marker: the explicit nil absence or a
// numeric value failing the NaN self-inequality test. Non-numeric values
// (e.g. stray strings) are not missing; they are handled by coercion.
func isMissing(v any) bool {
	if v == nil {
		return true
	}
	switch n := v.(type) {
	case float64:
		return n != n
	case float32:
		return n != n
	}
	return false
}

func allMissing(rec Record, measures []string) bool {
	for _, k := range measures {
		if !isMissing(rec[k]) {
			return false
		}
	}
	return true
}

func rowAllMissing(t *Table, i int, measures []string) bool {
	for _, c := range measures {
		if !isMissing(t.data[c][i]) {
			return false
		}
	}
	return true
}

// coerceMeasurement converts v to float64; anything unparseable or missing
// becomes the NaN sentinel, which is then substituted with 0.
func coerceMeasurement(v any) float64 {
	f, ok := toFloat(v)
	if !ok || f != f {
		return 0
	}
	return f
}

// coerceCoordinate is the latitude/longitude variant of the same rule:
// value substitution only, never row removal.
func coerceCoordinate(v any) float64 {
	return coerceMeasurement(v)
}

func coerceCoordinates(rec Record) {
	for _, k := range []string{KeyLatitude, KeyLongitude} {
		if v, ok := rec[k]; ok {
			rec[k] = coerceCoordinate(v)
		}
	}
}

// toFloat attempts a numeric interpretation of v. Strings are parsed after
// trimming; a parsed "NaN" string yields the sentinel and ends up as 0 after
// substitution.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return math.NaN(), false
		}
		return f, true
	}
	return math.NaN(), false
}

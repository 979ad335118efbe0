package frame

import "github.com/apetrei/meteotab/internal/series"

// MaterializeRows converts resp into one Record per aligned timestamp. keys
// names the requested hourly variables in response order. date carries the
// raw epoch-second timestamp and hour is left nil; deriving the formatted
// date/hour pair is the table representation's job. latitude/longitude are
// the response's fixed coordinates repeated on every record.
//
// Returns series.ErrInvalidDescriptor when the response's hourly interval is
// not positive. Length mismatches between the time axis and the variable
// arrays are truncated silently to the common minimum; an empty alignment
// yields empty Rows, not an error.
func MaterializeRows(resp Response, keys []string) (Rows, error) {
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

	lat, lon := resp.Latitude(), resp.Longitude()
	rows := make(Rows, 0, m)
	for idx := 0; idx < m; idx++ {
		rec := Record{
			KeyDate:      axis[idx],
			KeyHour:      nil,
			KeyLatitude:  lat,
			KeyLongitude: lon,
		}
		for i, k := range keys {
			rec[k] = values[i][idx]
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// alignedVariables fetches every requested variable array once and reports
// their lengths for alignment.
func alignedVariables(h Hourly, keys []string) ([][]float64, []int) {
	values := make([][]float64, len(keys))
	lens := make([]int, len(keys))
	for i := range keys {
		values[i] = h.Variables(i)
		lens[i] = len(values[i])
	}
	return values, lens
}

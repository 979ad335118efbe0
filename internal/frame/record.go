// Package frame materializes hourly provider responses into row-oriented or
// column-oriented datasets and applies uniform data-quality rules to both.
package frame

// Fixed metadata field names. Every other field on a record or table is a
// measurement.
const (
	KeyDate      = "date"
	KeyHour      = "hour"
	KeyLatitude  = "latitude"
	KeyLongitude = "longitude"
	KeyTime      = "time"
)

// metadataKeys is the fixed field set excluded from measurement handling.
var metadataKeys = map[string]struct{}{
	KeyDate:      {},
	KeyHour:      {},
	KeyLatitude:  {},
	KeyLongitude: {},
	KeyTime:      {},
}

// Record is a single observation: the fixed metadata fields plus one entry
// per requested variable. date carries raw epoch seconds in the row
// representation; formatting is the consumer's concern.
type Record map[string]any

// Rows is the row-oriented representation of a materialized response.
type Rows []Record

// Len returns the number of records.
func (r Rows) Len() int { return len(r) }

// IsMetadata reports whether key belongs to the fixed metadata set.
func IsMetadata(key string) bool {
	_, ok := metadataKeys[key]
	return ok
}

// MeasurementKeys filters keys down to measurement fields, preserving order.
func MeasurementKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !IsMetadata(k) {
			out = append(out, k)
		}
	}
	return out
}

// Package openmeteo is the HTTP collaborator that fetches hourly archive
// data from the Open-Meteo API and exposes it through the compact
// time-series surface the materializers consume.
package openmeteo

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/apetrei/meteotab/internal/frame"
)

// HourlyResponse is a decoded Open-Meteo hourly payload. It satisfies the
// materializers' Response interface: a (start, end, interval) descriptor,
// parallel value arrays in requested-variable order, and fixed coordinates.
// Absent samples (JSON null) carry the NaN missing sentinel.
type HourlyResponse struct {
	lat, lon             float64
	start, end, interval int64
	values               [][]float64
}

// Hourly returns the compact hourly block.
func (r *HourlyResponse) Hourly() frame.Hourly { return hourlyBlock{r} }

// Latitude returns the response's fixed latitude.
func (r *HourlyResponse) Latitude() float64 { return r.lat }

// Longitude returns the response's fixed longitude.
func (r *HourlyResponse) Longitude() float64 { return r.lon }

type hourlyBlock struct{ r *HourlyResponse }

func (h hourlyBlock) Time() int64     { return h.r.start }
func (h hourlyBlock) TimeEnd() int64  { return h.r.end }
func (h hourlyBlock) Interval() int64 { return h.r.interval }

// Variables returns the value array for the i-th requested variable, or nil
// when the payload did not carry it. Out-of-range indices return nil; length
// mismatches are the aligner's concern.
func (h hourlyBlock) Variables(i int) []float64 {
	if i < 0 || i >= len(h.r.values) {
		return nil
	}
	return h.r.values[i]
}

// apiPayload mirrors the JSON shape returned with timeformat=unixtime. The
// hourly block is kept raw so requested variables can be decoded null-aware.
type apiPayload struct {
	Latitude  float64                    `json:"latitude"`
	Longitude float64                    `json:"longitude"`
	Hourly    map[string]json.RawMessage `json:"hourly"`
}

// parseHourlyPayload decodes body into an HourlyResponse for the given
// requested-variable order.
func parseHourlyPayload(body []byte, keys []string) (*HourlyResponse, error) {
	var p apiPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var times []int64
	if raw, ok := p.Hourly["time"]; ok {
		if err := json.Unmarshal(raw, &times); err != nil {
			return nil, fmt.Errorf("parse hourly time: %w", err)
		}
	}

	r := &HourlyResponse{lat: p.Latitude, lon: p.Longitude}
	r.start, r.end, r.interval = deriveDescriptor(times)

	r.values = make([][]float64, len(keys))
	for i, k := range keys {
		raw, ok := p.Hourly[k]
		if !ok {
			continue
		}
		var vals []*float64
		if err := json.Unmarshal(raw, &vals); err != nil {
			return nil, fmt.Errorf("parse hourly %s: %w", k, err)
		}
		out := make([]float64, len(vals))
		for j, v := range vals {
			if v == nil {
				out[j] = math.NaN()
			} else {
				out[j] = *v
			}
		}
		r.values[i] = out
	}
	return r, nil
}

// deriveDescriptor rebuilds the compact (start, end, interval) encoding from
// the explicit timestamp array. The API returns evenly spaced hourly
// samples; a single-sample or empty array falls back to a one-hour step.
func deriveDescriptor(times []int64) (start, end, interval int64) {
	interval = 3600
	if len(times) == 0 {
		return 0, 0, interval
	}
	start = times[0]
	if len(times) > 1 && times[1] > times[0] {
		interval = times[1] - times[0]
	}
	end = times[len(times)-1] + interval
	return start, end, interval
}

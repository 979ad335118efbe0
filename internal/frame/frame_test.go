package frame

import (
	"math"
	"testing"
)

// fakeResponse implements Response for tests with a fixed descriptor,
// coordinates, and per-variable value arrays.
type fakeResponse struct {
	start, end, interval int64
	lat, lon             float64
	vars                 [][]float64
}

type fakeHourly struct{ r *fakeResponse }

func (r *fakeResponse) Hourly() Hourly     { return fakeHourly{r} }
func (r *fakeResponse) Latitude() float64  { return r.lat }
func (r *fakeResponse) Longitude() float64 { return r.lon }

func (h fakeHourly) Time() int64     { return h.r.start }
func (h fakeHourly) TimeEnd() int64  { return h.r.end }
func (h fakeHourly) Interval() int64 { return h.r.interval }
func (h fakeHourly) Variables(i int) []float64 {
	if i < 0 || i >= len(h.r.vars) {
		return nil
	}
	return h.r.vars[i]
}

// TestMaterializeRows verifies record count, metadata fields, raw epoch
// date, nil hour, and per-variable values.
func TestMaterializeRows(t *testing.T) {
	resp := &fakeResponse{
		start: 0, end: 4, interval: 1,
		lat: 47.0, lon: 28.8,
		vars: [][]float64{{10.0, 11.0, 12.0, 13.0}},
	}

	rows, err := MaterializeRows(resp, []string{"temperature"})
	if err != nil {
		t.Fatalf("MaterializeRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("MaterializeRows() len = %d, want 4", len(rows))
	}
	for i, rec := range rows {
		if got := rec[KeyDate]; got != int64(i) {
			t.Errorf("row %d date = %v, want %d", i, got, i)
		}
		if rec[KeyHour] != nil {
			t.Errorf("row %d hour = %v, want nil", i, rec[KeyHour])
		}
		if rec[KeyLatitude] != 47.0 || rec[KeyLongitude] != 28.8 {
			t.Errorf("row %d coordinates = %v/%v", i, rec[KeyLatitude], rec[KeyLongitude])
		}
		if got := rec["temperature"]; got != 10.0+float64(i) {
			t.Errorf("row %d temperature = %v", i, got)
		}
	}
}

// TestMaterializeRows_Truncation verifies silent alignment to the shortest
// of the time axis and the variable arrays.
func TestMaterializeRows_Truncation(t *testing.T) {
	resp := &fakeResponse{
		start: 0, end: 5, interval: 1,
		vars: [][]float64{
			{1, 2, 3, 4, 5},
			{10, 20, 30},
		},
	}

	rows, err := MaterializeRows(resp, []string{"a", "b"})
	if err != nil {
		t.Fatalf("MaterializeRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("MaterializeRows() len = %d, want 3", len(rows))
	}
	if rows[2]["a"] != 3.0 || rows[2]["b"] != 30.0 {
		t.Errorf("last row = a:%v b:%v, want a:3 b:30", rows[2]["a"], rows[2]["b"])
	}
}

// TestMaterializeRows_InvalidInterval verifies descriptor validation
// propagates from the axis builder.
func TestMaterializeRows_InvalidInterval(t *testing.T) {
	resp := &fakeResponse{start: 0, end: 4, interval: 0}
	if _, err := MaterializeRows(resp, nil); err == nil {
		t.Fatal("MaterializeRows() error = nil, want ErrInvalidDescriptor")
	}
}

// TestMaterializeRows_EmptyAlignment verifies that a zero usable length
// yields empty rows, not an error.
func TestMaterializeRows_EmptyAlignment(t *testing.T) {
	resp := &fakeResponse{
		start: 0, end: 5, interval: 1,
		vars: [][]float64{{}},
	}
	rows, err := MaterializeRows(resp, []string{"a"})
	if err != nil {
		t.Fatalf("MaterializeRows() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("MaterializeRows() len = %d, want 0", len(rows))
	}
}

// TestMaterializeTable verifies the column order invariant, derived
// date/hour formatting in UTC, and value placement.
func TestMaterializeTable(t *testing.T) {
	eng, err := DetectEngine(true)
	if err != nil {
		t.Fatalf("DetectEngine() error = %v", err)
	}

	resp := &fakeResponse{
		start: 1700000000, end: 1700000000 + 2*3600, interval: 3600,
		lat: 47.0, lon: 28.8,
		vars: [][]float64{{1.5, 2.5}},
	}

	tbl, err := MaterializeTable(eng, resp, []string{"rain"})
	if err != nil {
		t.Fatalf("MaterializeTable() error = %v", err)
	}

	wantCols := []string{"date", "hour", "latitude", "longitude", "rain"}
	cols := tbl.Columns()
	if len(cols) != len(wantCols) {
		t.Fatalf("Columns() = %v, want %v", cols, wantCols)
	}
	for i := range cols {
		if cols[i] != wantCols[i] {
			t.Fatalf("Columns() = %v, want %v", cols, wantCols)
		}
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}

	// 1700000000 is 2023-11-14 22:13:20 UTC.
	if got := tbl.Column("date")[0]; got != "2023-11-14" {
		t.Errorf("date[0] = %v, want 2023-11-14", got)
	}
	if got := tbl.Column("hour")[0]; got != "22:13" {
		t.Errorf("hour[0] = %v, want 22:13", got)
	}
	if got := tbl.Column("hour")[1]; got != "23:13" {
		t.Errorf("hour[1] = %v, want 23:13", got)
	}
	if got := tbl.Column("rain")[1]; got != 2.5 {
		t.Errorf("rain[1] = %v, want 2.5", got)
	}
	if got := tbl.Column("latitude")[1]; got != 47.0 {
		t.Errorf("latitude[1] = %v, want 47", got)
	}
}

// TestMaterializeTable_NoEngine verifies the documented fallback signal.
func TestMaterializeTable_NoEngine(t *testing.T) {
	if _, err := DetectEngine(false); err != ErrEngineUnavailable {
		t.Errorf("DetectEngine(false) error = %v, want ErrEngineUnavailable", err)
	}
	resp := &fakeResponse{start: 0, end: 1, interval: 1}
	if _, err := MaterializeTable(nil, resp, nil); err != ErrEngineUnavailable {
		t.Errorf("MaterializeTable(nil) error = %v, want ErrEngineUnavailable", err)
	}
}

// TestMaterializeTable_Truncation verifies the table form applies the same
// silent alignment policy as the row form.
func TestMaterializeTable_Truncation(t *testing.T) {
	eng, _ := DetectEngine(true)
	resp := &fakeResponse{
		start: 0, end: 5 * 3600, interval: 3600,
		vars: [][]float64{{1, 2, 3, 4, 5}, {10, 20, 30}},
	}
	tbl, err := MaterializeTable(eng, resp, []string{"a", "b"})
	if err != nil {
		t.Fatalf("MaterializeTable() error = %v", err)
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tbl.Len())
	}
}

// TestEndToEnd_RowsThenClean materializes a four-sample response where one
// temperature is NaN but humidity is present throughout: every record has a
// recoverable measurement, so cleaning keeps all four and defaults the NaN.
func TestEndToEnd_RowsThenClean(t *testing.T) {
	resp := &fakeResponse{
		start: 0, end: 4, interval: 1,
		lat: 47.0, lon: 28.8,
		vars: [][]float64{
			{10.0, math.NaN(), 12.0, 13.0},
			{80.0, 81.0, 82.0, 83.0},
		},
	}

	rows, err := MaterializeRows(resp, []string{"temperature", "humidity"})
	if err != nil {
		t.Fatalf("MaterializeRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("materialized %d rows, want 4", len(rows))
	}

	cleaned, ok := Clean(rows).(Rows)
	if !ok {
		t.Fatal("Clean(Rows) did not return Rows")
	}
	if len(cleaned) != 4 {
		t.Fatalf("cleaned %d rows, want 4 (no record is all-missing)", len(cleaned))
	}
	if got := cleaned[1]["temperature"]; got != 0.0 {
		t.Errorf("cleaned[1].temperature = %v, want 0", got)
	}
	if got := cleaned[1]["humidity"]; got != 81.0 {
		t.Errorf("cleaned[1].humidity = %v, want 81", got)
	}
	if got := cleaned[3]["temperature"]; got != 13.0 {
		t.Errorf("cleaned[3].temperature = %v, want 13", got)
	}
}

// TestEndToEnd_SingleVariableNaNDrops is the companion case: when the NaN
// value is the record's only measurement, the all-missing filter removes it.
func TestEndToEnd_SingleVariableNaNDrops(t *testing.T) {
	resp := &fakeResponse{
		start: 0, end: 4, interval: 1,
		lat: 47.0, lon: 28.8,
		vars: [][]float64{{10.0, math.NaN(), 12.0, 13.0}},
	}

	rows, err := MaterializeRows(resp, []string{"temperature"})
	if err != nil {
		t.Fatalf("MaterializeRows() error = %v", err)
	}

	cleaned := Clean(rows).(Rows)
	if len(cleaned) != 3 {
		t.Fatalf("cleaned %d rows, want 3", len(cleaned))
	}
	if got := cleaned[1]["temperature"]; got != 12.0 {
		t.Errorf("cleaned[1].temperature = %v, want 12", got)
	}
}

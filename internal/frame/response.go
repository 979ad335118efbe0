package frame

// Response is the surface the materializers need from a provider response.
// The response is borrowed read-only for the duration of one materialization
// call and never mutated. openmeteo.HourlyResponse implements it.
type Response interface {
	Hourly() Hourly
	Latitude() float64
	Longitude() float64
}

// Hourly is the compact hourly time-series block: a (start, end, interval)
// descriptor in epoch seconds plus parallel value arrays addressed by the
// position of the variable in the caller's requested-variable list.
// Individual arrays may differ in length from each other and from the time
// axis; materialization truncates to the common minimum.
type Hourly interface {
	Time() int64
	TimeEnd() int64
	Interval() int64
	Variables(i int) []float64
}

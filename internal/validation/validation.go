package validation

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// ErrLatitudeOutOfRange is returned when latitude is outside [-90, 90].
var ErrLatitudeOutOfRange = errors.New("latitude out of range [-90, 90]")

// ErrLongitudeOutOfRange is returned when longitude is outside [-180, 180].
var ErrLongitudeOutOfRange = errors.New("longitude out of range [-180, 180]")

// ErrNoVariables is returned when no hourly variables were requested.
var ErrNoVariables = errors.New("at least one hourly variable is required")

// ErrInvalidVariableName is returned when a variable name is empty or
// contains disallowed characters.
var ErrInvalidVariableName = errors.New("invalid hourly variable name")

// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

// ErrDateRangeInverted is returned when the end date precedes the start date.
var ErrDateRangeInverted = errors.New("end date precedes start date")

// ValidateCoordinates checks latitude/longitude bounds.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return ErrLatitudeOutOfRange
	}
	if lon < -180 || lon > 180 {
		return ErrLongitudeOutOfRange
	}
	return nil
}

// ValidateVariables trims each requested variable name and restricts to
// lowercase letters, digits and underscore (the Open-Meteo naming scheme,
// e.g. temperature_2m). Returns the trimmed list or an error.
func ValidateVariables(vars []string) ([]string, error) {
	if len(vars) == 0 {
		return nil, ErrNoVariables
	}
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, ErrInvalidVariableName
		}
		for _, r := range s {
			if !isAllowedVariableRune(r) {
				return nil, ErrInvalidVariableName
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// isAllowedVariableRune returns true for lowercase letters, digits and underscore.
func isAllowedVariableRune(r rune) bool {
	if unicode.IsLower(r) || unicode.IsDigit(r) {
		return true
	}
	return r == '_'
}

// ValidateDateRange checks both dates parse as YYYY-MM-DD and start is not
// after end. Empty dates are allowed (the API then picks its own window).
func ValidateDateRange(start, end string) error {
	var from, to time.Time
	var err error
	if start != "" {
		if from, err = time.Parse("2006-01-02", start); err != nil {
			return ErrInvalidDate
		}
	}
	if end != "" {
		if to, err = time.Parse("2006-01-02", end); err != nil {
			return ErrInvalidDate
		}
	}
	if start != "" && end != "" && to.Before(from) {
		return ErrDateRangeInverted
	}
	return nil
}

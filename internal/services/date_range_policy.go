package services

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrRangeFromDateInvalid = errors.New("range invalid from date")
	ErrRangeToDateInvalid   = errors.New("range invalid to date")
	ErrRangeInvalid         = errors.New("range invalid")
)

// ParseDayRange parses optional YYYY-MM-DD bounds. The upper bound covers the
// whole day.
func ParseDayRange(rawFrom string, rawTo string, location *time.Location) (*time.Time, *time.Time, error) {
	if location == nil {
		location = time.UTC
	}
	fromRaw := strings.TrimSpace(rawFrom)
	toRaw := strings.TrimSpace(rawTo)

	var from *time.Time
	if fromRaw != "" {
		parsedFrom, err := time.ParseInLocation("2006-01-02", fromRaw, location)
		if err != nil {
			return nil, nil, ErrRangeFromDateInvalid
		}
		normalizedFrom := parsedFrom.UTC()
		from = &normalizedFrom
	}

	var to *time.Time
	if toRaw != "" {
		parsedTo, err := time.ParseInLocation("2006-01-02", toRaw, location)
		if err != nil {
			return nil, nil, ErrRangeToDateInvalid
		}
		normalizedTo := parsedTo.AddDate(0, 0, 1).Add(-time.Nanosecond).UTC()
		to = &normalizedTo
	}

	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, ErrRangeInvalid
	}

	return from, to, nil
}

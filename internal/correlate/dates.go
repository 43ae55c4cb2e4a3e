package correlate

import "time"

const (
	dayLayout   = "2006-01-02"
	stampLayout = "2006-01-02T15:04:05"
)

// ParseDay validates a calendar date and returns the [start, end) bounds of
// that day in UTC. Invalid input is a ValidationError; no store is touched.
func ParseDay(s string) (time.Time, time.Time, error) {
	d, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, Validationf("invalid date %q, expected 2006-01-02", s)
	}
	return d, d.AddDate(0, 0, 1), nil
}

// ParseStamp validates a full timestamp. Accepts a bare calendar date as
// well, which is interpreted as midnight UTC.
func ParseStamp(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(stampLayout, s, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dayLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, Validationf("invalid timestamp %q, expected 2006-01-02T15:04:05", s)
}

// ParseRange validates a from/to pair into [start, end) bounds. An empty
// "to" widens the range to the end of the "from" day.
func ParseRange(from, to string) (time.Time, time.Time, error) {
	start, err := ParseStamp(from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to == "" {
		return start, start.AddDate(0, 0, 1), nil
	}
	end, err := ParseStamp(to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, Validationf("range end %q is not after start %q", to, from)
	}
	return start, end, nil
}

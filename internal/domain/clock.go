package domain

import "time"

const TimeLayout = "2006-01-02T15:04:05Z"

// DefaultReviewDays is the review horizon for newly promoted objects.
const DefaultReviewDays = 7

type Clock func() time.Time

// Now returns the current UTC time at second precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// InDays adds n calendar days in UTC.
func InDays(t time.Time, n int) time.Time {
	return t.UTC().AddDate(0, 0, n)
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(time.Second), nil
}

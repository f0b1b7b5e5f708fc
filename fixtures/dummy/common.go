package dummy

import "time"

var DummyCreatedAt = time.Date(2022, time.December, 31, 23, 59, 0, 0, time.UTC)

func ptr[T any](t T) *T {
	return &t
}

func date(year int, month time.Month, day int) *time.Time {
	return ptr(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

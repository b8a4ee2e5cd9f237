package clock

import "time"

// Clock is injected wherever wall time matters: issue dates, session expiry
// and access periods.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

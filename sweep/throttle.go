package sweep

import "time"

// skipThrottler rate limits progress reporting. Ok reports whether at least d
// has passed since the last accepted call, and always accepts the first call.
type skipThrottler struct {
	d    time.Duration
	last time.Time
}

func newSkipThrottler(d time.Duration) *skipThrottler {
	return &skipThrottler{d: d}
}

func (tt *skipThrottler) Ok() bool {
	now := time.Now()
	if now.Before(tt.last.Add(tt.d)) {
		return false
	}

	tt.last = now
	return true
}

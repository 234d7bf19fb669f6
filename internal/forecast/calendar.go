package forecast

import "time"

// FutureTimestamps returns horizon timestamps spaced cadenceDays apart,
// starting one step after last.
func FutureTimestamps(last time.Time, horizon, cadenceDays int) []time.Time {
	if horizon <= 0 {
		return nil
	}
	out := make([]time.Time, horizon)
	for i := range out {
		out[i] = last.AddDate(0, 0, cadenceDays*(i+1))
	}
	return out
}

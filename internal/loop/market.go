package loop

import "time"

// Regular session in the trading timezone. 06:30 to 13:00 matches US equity
// hours as seen from the US west coast.
const (
	openHour      = 6
	openMinute    = 30
	sessionEndHr  = 13
	sessionEndMin = 0
)

// marketOpen reports whether t falls inside the regular session. t must
// already be in the trading timezone. Exchange holidays are not modeled; the
// swarm simply finds nothing to do on them.
func marketOpen(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	mins := t.Hour()*60 + t.Minute()
	return mins >= openHour*60+openMinute && mins < sessionEndHr*60+sessionEndMin
}

package monitor

import "time"

// InQuietWindow reports whether now falls inside the [start, end) window,
// both given as "15:04" wall-clock times in loc. A window crossing midnight
// (start > end) wraps, e.g. 23:00 to 07:00.
func InQuietWindow(now time.Time, start, end string, loc *time.Location) bool {
	if start == "" || end == "" {
		return false
	}

	startT, err := time.Parse("15:04", start)
	if err != nil {
		return false
	}
	endT, err := time.Parse("15:04", end)
	if err != nil {
		return false
	}

	local := now.In(loc)
	minutes := local.Hour()*60 + local.Minute()
	startMin := startT.Hour()*60 + startT.Minute()
	endMin := endT.Hour()*60 + endT.Minute()

	if startMin <= endMin {
		return minutes >= startMin && minutes < endMin
	}
	return minutes >= startMin || minutes < endMin
}

package utils

import (
	"math"
	"time"
)

// TimeFromSeconds converts fractional seconds since the unix epoch, as used by ROS stamps and
// keyframe rows, into a time.Time. Sub-nanosecond precision is rounded away.
func TimeFromSeconds(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC()
}

// SecondsFromTime is the inverse of TimeFromSeconds.
func SecondsFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// TimeFromSecsNsecs builds a time from the split representation carried in ROS headers.
func TimeFromSecsNsecs(secs, nsecs int64) time.Time {
	return time.Unix(secs, nsecs).UTC()
}

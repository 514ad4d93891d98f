package domain

import (
	"regexp"
	"strconv"
	"time"
)

// DefaultJobDuration is used when an estimate cannot be parsed.
const DefaultJobDuration = 2 * time.Hour

var durationRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:-\s*(\d+(?:\.\d+)?))?\s*(hours?|hrs?|minutes?|mins?)`)

// ParseWorkEstimate turns contractor-facing estimates like "2-4 hours",
// "90 minutes", or "1 hour" into a duration. Ranges are averaged. The
// second return is false when the text was unparseable and the default was
// used.
func ParseWorkEstimate(s string) (time.Duration, bool) {
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return DefaultJobDuration, false
	}

	lo, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return DefaultJobDuration, false
	}
	val := lo
	if m[2] != "" {
		hi, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return DefaultJobDuration, false
		}
		val = (lo + hi) / 2
	}

	unit := time.Hour
	if m[3][0] == 'm' || m[3][0] == 'M' {
		unit = time.Minute
	}

	d := time.Duration(val * float64(unit))
	if d <= 0 {
		return DefaultJobDuration, false
	}
	return d, true
}

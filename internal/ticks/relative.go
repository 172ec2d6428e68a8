package ticks

import (
	"strconv"
	"strings"
	"time"
)

// MaxTime is the sentinel "+infinity" absolute time meaning "live", used
// for startTimeConstraint/stopTimeConstraint when no explicit bound was
// given.
var MaxTime = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// ParseRelative parses a timestamp string per the grammar documented in
// original_source's ParseRelativeTimestamp and spec.md's configuration
// table: "*" evaluates to now, "*-10m"/"*+2d" etc. apply a signed offset
// with a unit suffix of s, m, h or d, and anything else is parsed as an
// absolute RFC3339 timestamp. An empty string yields MaxTime (live).
func ParseRelative(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return MaxTime
	}
	if s == "*" {
		return now
	}
	if strings.HasPrefix(s, "*") {
		offset, ok := parseOffset(s[1:])
		if !ok {
			return MaxTime
		}
		return now.Add(offset)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	return MaxTime
}

// parseOffset parses a signed duration of the form "-10m", "+2d", "-1h",
// mirroring the s|m|h|d suffix grammar of the teacher's ParseStringTime,
// extended here with sign handling and day units via time.Duration math.
func parseOffset(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	sign := time.Duration(1)
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}

	unit := s[len(s)-1]
	numPart := s[:len(s)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, false
	}

	var unitDuration time.Duration
	switch strings.ToLower(string(unit)) {
	case "s":
		unitDuration = time.Second
	case "m":
		unitDuration = time.Minute
	case "h":
		unitDuration = time.Hour
	case "d":
		unitDuration = 24 * time.Hour
	default:
		return 0, false
	}

	return sign * time.Duration(n) * unitDuration, true
}

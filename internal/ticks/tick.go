// Package ticks implements the STTP time model: 100ns ticks since
// 0001-01-01 UTC, with the top two bits reserved for leap-second
// metadata, plus the relative-time and key/value grammars used to parse
// subscription connection strings.
//
// Grounded on original_source/src/lib/Convert.h (ToTicks, FromTicks,
// IsLeapSecond, SetLeapSecond, TimestampIsReasonable, ParseRelativeTimestamp,
// ParseKeyValuePairs) and on the teacher's internal/utils/time_utils.go,
// whose s|m|h|d suffix grammar is reused for the relative-time offsets.
package ticks

import (
	"math"
	"time"
)

// Tick is a 100ns tick count since 0001-01-01 00:00:00 UTC, the .NET-style
// epoch used on the STTP wire. Bit 63 carries a leap-second flag and bit 62
// a negative-leap-second flag; both must be masked off before arithmetic.
type Tick int64

const ticksPerSecond = 10_000_000

// epoch is time.Time's zero value, which is exactly 0001-01-01 00:00:00 UTC.
var epoch = time.Time{}

// epochUnix is epoch expressed in Unix seconds.
var epochUnix = epoch.Unix()

const (
	leapSecondFlag         = int64(math.MinInt64)
	negativeLeapSecondFlag = int64(1) << 62
	valueMask              = ^(leapSecondFlag | negativeLeapSecondFlag)
)

// FromTime converts a time.Time into a Tick with no leap-second bits set.
func FromTime(t time.Time) Tick {
	return Tick((t.Unix()-epochUnix)*ticksPerSecond + int64(t.Nanosecond())/100)
}

// Time returns the UTC time.Time corresponding to the tick, ignoring any
// leap-second bits (callers that care about leap seconds should inspect
// IsLeapSecond/IsNegativeLeapSecond first).
func (t Tick) Time() time.Time {
	v := int64(t) & valueMask
	return time.Unix(v/ticksPerSecond+epochUnix, (v%ticksPerSecond)*100).UTC()
}

// Value strips the leap-second bits, returning the plain 100ns tick count.
func (t Tick) Value() Tick {
	return Tick(int64(t) & valueMask)
}

// IsLeapSecond reports whether bit 63 is set.
func (t Tick) IsLeapSecond() bool {
	return int64(t)&leapSecondFlag != 0
}

// WithLeapSecond returns t with bit 63 set.
func (t Tick) WithLeapSecond() Tick {
	return Tick(int64(t) | leapSecondFlag)
}

// IsNegativeLeapSecond reports whether bit 62 is set.
func (t Tick) IsNegativeLeapSecond() bool {
	return int64(t)&negativeLeapSecondFlag != 0
}

// WithNegativeLeapSecond returns t with bit 62 set.
func (t Tick) WithNegativeLeapSecond() Tick {
	return Tick(int64(t) | negativeLeapSecondFlag)
}

// Now returns the current UTC time as a Tick.
func Now() Tick {
	return FromTime(time.Now().UTC())
}

// IsReasonable reports whether value falls within [now-lag, now+lead],
// matching original_source's TimestampIsReasonable. Leap-second bits are
// stripped from both value and now before comparison.
func IsReasonable(value, now Tick, lag, lead time.Duration) bool {
	v := value.Value().Time()
	n := now.Value().Time()
	return !v.Before(n.Add(-lag)) && !v.After(n.Add(lead))
}

package session

import (
	"strconv"
	"time"

	"github.com/life-stream-dev/go-sttp-publisher/internal/ticks"
)

// parseSubscriptionKeyValues applies the recognized Subscribe
// connection-string keys documented in spec.md §4.3's table onto a
// fresh defaultSubscriptionParams, matching SubscriberConnection.cpp's
// HandleSubscribe: every Subscribe resets to the documented defaults
// and a key the caller omits takes that default rather than carrying
// forward whatever the previous subscription on this session used.
func parseSubscriptionKeyValues(kv map[string]string) subscriptionParams {
	params := defaultSubscriptionParams()
	now := time.Now().UTC()

	if v, ok := kv["includetime"]; ok {
		params.includeTime = parseBool(v, params.includeTime)
	}
	if v, ok := kv["uselocalclockasrealtime"]; ok {
		params.useLocalClockAsRealTime = parseBool(v, params.useLocalClockAsRealTime)
	}
	if v, ok := kv["enabletimereasonabilitycheck"]; ok {
		params.enableTimeReasonabilityCheck = parseBool(v, params.enableTimeReasonabilityCheck)
	}
	if v, ok := kv["lagtime"]; ok {
		if d, ok := parseSeconds(v); ok {
			params.lagTime = d
		}
	}
	if v, ok := kv["leadtime"]; ok {
		if d, ok := parseSeconds(v); ok {
			params.leadTime = d
		}
	}
	if v, ok := kv["publishinterval"]; ok {
		if d, ok := parseSeconds(v); ok {
			params.publishInterval = d
		}
	}
	if v, ok := kv["usemillisecondresolution"]; ok {
		params.useMillisecondResolution = parseBool(v, params.useMillisecondResolution)
	}
	if v, ok := kv["throttled"]; ok {
		params.trackLatestMeasurements = parseBool(v, params.trackLatestMeasurements)
	}
	if v, ok := kv["requestnanvaluefilter"]; ok {
		params.isNaNFiltered = parseBool(v, params.isNaNFiltered)
	}
	if v, ok := kv["starttimeconstraint"]; ok {
		params.startTimeConstraint = ticks.ParseRelative(v, now)
	}
	if v, ok := kv["stoptimeconstraint"]; ok {
		params.stopTimeConstraint = ticks.ParseRelative(v, now)
	}
	if v, ok := kv["processinginterval"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			params.processingInterval = int32(n)
		}
	}
	if v, ok := kv["assemblyinfo"]; ok {
		params.assemblyInfo = v
	}

	return params
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func parseSeconds(v string) (time.Duration, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(f * float64(time.Second)), true
}

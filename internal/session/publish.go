package session

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/life-stream-dev/go-sttp-publisher/internal/cache"
	"github.com/life-stream-dev/go-sttp-publisher/internal/compress"
	"github.com/life-stream-dev/go-sttp-publisher/internal/logger"
	"github.com/life-stream-dev/go-sttp-publisher/internal/ticks"
	"github.com/life-stream-dev/go-sttp-publisher/internal/wire"
)

// flagBadTime marks a measurement whose timestamp failed the
// reasonableness check; its value has been replaced with NaN before
// publication rather than withheld, matching the throttled-mode
// handling spec.md §4.3 describes.
const flagBadTime uint32 = 0x00020000

// PublishMeasurements is the live-subscription entry point: for a
// throttled subscription it only updates the latest-measurement map
// (the throttle timer does the actual publishing), otherwise it
// publishes immediately via the active encoder.
func (s *Session) PublishMeasurements(measurements []compress.Measurement) error {
	if !s.IsSubscribed() {
		return nil
	}

	s.mu.Lock()
	throttled := s.params.trackLatestMeasurements
	enableCheck := s.params.enableTimeReasonabilityCheck
	isTemporal := s.params.startTimeConstraint.Before(maxTime)
	lag, lead := s.params.lagTime, s.params.leadTime
	useLocalClock := s.params.useLocalClockAsRealTime
	s.mu.Unlock()

	if throttled {
		s.latestLock.Lock()
		for _, m := range measurements {
			s.latest[m.SignalID] = m
		}
		s.latestLock.Unlock()
		return nil
	}

	for _, m := range measurements {
		if enableCheck && !isTemporal {
			now := ticks.Now()
			if !useLocalClock {
				now = ticks.Tick(s.observedLatest())
			}
			if !ticks.IsReasonable(ticks.Tick(m.Timestamp), now, lag, lead) {
				logger.DebugF("[%s] measurement %s outside reasonableness window; latest timestamp not advanced", s.connID, m.SignalID)
				continue
			}
		}
		s.trackLatestTimestamp(m.Timestamp)
	}

	return s.publish(measurements)
}

func (s *Session) observedLatest() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestTimestamp
}

// trackLatestTimestamp opportunistically advances latestTimestamp,
// called whenever a measurement passed (or skipped) the reasonableness
// check, per spec.md §4.5.
func (s *Session) trackLatestTimestamp(t int64) {
	s.mu.Lock()
	if t > s.latestTimestamp {
		s.latestTimestamp = t
	}
	s.mu.Unlock()
}

// publishThrottled implements spec.md §4.3's throttled-publication
// timer body: clone out-of-window measurements as NaN/BadTime rather
// than dropping them, then publish via the active encoder.
func (s *Session) publishThrottled(measurements []compress.Measurement) error {
	s.mu.Lock()
	enableCheck := s.params.enableTimeReasonabilityCheck
	isTemporal := s.params.startTimeConstraint.Before(maxTime)
	lag, lead := s.params.lagTime, s.params.leadTime
	s.mu.Unlock()

	now := ticks.Now()
	out := make([]compress.Measurement, len(measurements))
	for i, m := range measurements {
		if enableCheck && !isTemporal && !ticks.IsReasonable(ticks.Tick(m.Timestamp), now, lag, lead) {
			m.Value = math.NaN()
			m.Flags |= flagBadTime
		}
		out[i] = m
	}
	return s.publish(out)
}

// publish drives the compact or TSSC encoder over measurements and
// flushes the resulting packets, matching spec.md §4.5.
func (s *Session) publish(measurements []compress.Measurement) error {
	if len(measurements) == 0 {
		return nil
	}

	if err := s.sendDataStartTimeOnce(); err != nil {
		return err
	}

	current := s.swap.Current()

	s.mu.Lock()
	isNaNFiltered := s.params.isNaNFiltered
	includeTime := s.params.includeTime
	useTSSC := modesWantTSSC(s.modes) && !s.forceTSSCDisabled
	s.mu.Unlock()

	if useTSSC {
		return s.publishTSSC(measurements, current, isNaNFiltered)
	}
	return s.publishCompact(measurements, current, isNaNFiltered, includeTime)
}

func (s *Session) publishCompact(measurements []compress.Measurement, current *cache.SignalIndexCache, isNaNFiltered, includeTime bool) error {
	compactor := compress.NewCompactor(includeTime)
	for _, m := range measurements {
		runtimeID := current.RuntimeID(m.SignalID)
		if runtimeID == cache.UnknownRuntimeID {
			continue
		}
		if isNaNFiltered && math.IsNaN(m.Value) {
			continue
		}
		compactor.Add(runtimeID, m)
	}

	for _, packet := range compactor.Flush() {
		if err := s.Enqueue(wire.ResponseDataPacket, wire.CommandSubscribe, packet); err != nil {
			return err
		}
	}
	s.recordPublishStats()
	return nil
}

func (s *Session) publishTSSC(measurements []compress.Measurement, current *cache.SignalIndexCache, isNaNFiltered bool) error {
	s.tsscLock.Lock()
	if s.tsscReset {
		s.tssc.Reset()
		s.tsscReset = false
	}
	encoder := s.tssc
	s.tsscLock.Unlock()

	var packets [][]byte
	for _, m := range measurements {
		runtimeID := current.RuntimeID(m.SignalID)
		if runtimeID == cache.UnknownRuntimeID {
			continue
		}
		if isNaNFiltered && math.IsNaN(m.Value) {
			continue
		}

		if !encoder.TryAddMeasurement(runtimeID, m) {
			packets = append(packets, encoder.Bytes())
			encoder.TryAddMeasurement(runtimeID, m)
		}
	}
	if encoder.Count() > 0 {
		packets = append(packets, encoder.Bytes())
	}

	for _, packet := range packets {
		if err := s.Enqueue(wire.ResponseDataPacket, wire.CommandSubscribe, packet); err != nil {
			return err
		}
	}
	s.recordPublishStats()
	return nil
}

func (s *Session) sendDataStartTimeOnce() error {
	s.mu.Lock()
	alreadySent := s.startTimeSent
	s.startTimeSent = true
	s.mu.Unlock()
	if alreadySent {
		return nil
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(ticks.Now()))
	return s.Enqueue(wire.ResponseDataStartTime, wire.CommandSubscribe, buf)
}

func (s *Session) recordPublishStats() {
	s.stats.RecordPublish(time.Now())
	s.mu.Lock()
	s.lastPublishTime = time.Now()
	s.mu.Unlock()
}

package session

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/life-stream-dev/go-sttp-publisher/internal/compress"
	"github.com/life-stream-dev/go-sttp-publisher/internal/ticks"
	"github.com/life-stream-dev/go-sttp-publisher/internal/wire"
	uuid "github.com/satori/go.uuid"
)

const (
	pingInterval        = 5 * time.Second
	baseTimeRotationMs  = 60 * time.Second
	baseTimeRotationUs  = 420 * time.Second
	minThrottleInterval = 1 * time.Second
)

// StartTimers launches the session's keep-alive ping timer, which runs
// for the session's whole lifetime, and records ctx as the parent for
// the subscription-scoped timers restartSubscriptionTimers creates
// later. Unlike the ping timer, base-time rotation and throttled
// publish have no defaults worth running before a Subscribe has parsed
// real settings, so they start out idle.
func (s *Session) StartTimers(ctx context.Context) {
	s.timersMu.Lock()
	s.parentCtx = ctx
	s.timersMu.Unlock()

	go func() {
		_ = s.runPingTimer(ctx)
	}()
}

// restartSubscriptionTimers stops any base-time-rotation and
// throttled-publish timers from a previous Subscribe on this session
// and starts fresh ones against params, mirroring
// SubscriberConnection.cpp's HandleSubscribe, which stops and recreates
// these same two timers from the settings of each new Subscribe rather
// than reusing whatever was running before.
func (s *Session) restartSubscriptionTimers(params subscriptionParams) {
	s.timersMu.Lock()
	if s.subTimersCancel != nil {
		s.subTimersCancel()
	}
	ctx, cancel := context.WithCancel(s.parentCtx)
	s.subTimersCancel = cancel
	s.timersMu.Unlock()

	go func() { _ = s.runBaseTimeRotationTimer(ctx, params, s.policy) }()
	go func() { _ = s.runThrottledPublishTimer(ctx, params) }()
}

func (s *Session) runPingTimer(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			if s.IsStopped() {
				return nil
			}
			if err := s.Enqueue(wire.ResponseNoOP, wire.CommandDefineOperationalModes, nil); err != nil {
				return err
			}
		}
	}
}

func (s *Session) runBaseTimeRotationTimer(ctx context.Context, params subscriptionParams, policy Policy) error {
	if !(policy.UseBaseTimeOffsets && params.includeTime) {
		return nil
	}

	interval := baseTimeRotationUs
	if params.useMillisecondResolution {
		interval = baseTimeRotationMs
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			if s.IsStopped() {
				return nil
			}
			s.rotateBaseTime(interval)
		}
	}
}

func (s *Session) rotateBaseTime(interval time.Duration) {
	s.mu.Lock()
	useLocalClock := s.params.useLocalClockAsRealTime
	latest := s.latestTimestamp
	s.mu.Unlock()

	var realTime int64
	if useLocalClock {
		realTime = int64(ticks.Now())
	} else {
		realTime = latest
	}
	if realTime == 0 {
		return
	}

	s.baseTime.mu.Lock()
	if !s.baseTime.initialized {
		s.baseTime.offsets[0] = realTime
		s.baseTime.offsets[1] = realTime + int64(interval/100)
		s.baseTime.timeIndex = 0
		s.baseTime.initialized = true
	} else {
		oldIndex := s.baseTime.timeIndex
		s.baseTime.timeIndex ^= 1
		s.baseTime.offsets[oldIndex] = realTime + int64(interval/100)
	}
	timeIndex := s.baseTime.timeIndex
	offsets := s.baseTime.offsets
	s.baseTime.mu.Unlock()

	payload := make([]byte, 4+8+8)
	binary.BigEndian.PutUint32(payload[0:4], timeIndex)
	binary.BigEndian.PutUint64(payload[4:12], uint64(offsets[0]))
	binary.BigEndian.PutUint64(payload[12:20], uint64(offsets[1]))

	_ = s.Enqueue(wire.ResponseUpdateBaseTimes, wire.CommandDefineOperationalModes, payload)
}

func (s *Session) runThrottledPublishTimer(ctx context.Context, params subscriptionParams) error {
	if !params.trackLatestMeasurements {
		return nil
	}

	period := params.publishInterval
	if params.lagTime > period {
		period = params.lagTime
	}
	if period < minThrottleInterval {
		period = minThrottleInterval
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			if s.IsStopped() {
				return nil
			}
			s.publishThrottledSnapshot()
		}
	}
}

func (s *Session) publishThrottledSnapshot() {
	s.latestLock.Lock()
	snapshot := make(map[uuid.UUID]compress.Measurement, len(s.latest))
	for id, m := range s.latest {
		snapshot[id] = m
	}
	s.latestLock.Unlock()

	measurements := make([]compress.Measurement, 0, len(snapshot))
	for _, m := range snapshot {
		measurements = append(measurements, m)
	}
	_ = s.publishThrottled(measurements)
}

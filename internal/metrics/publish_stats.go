// Package metrics supplies ambient, non-protocol telemetry: rolling
// statistics over each session's publish cadence, logged at debug level
// when the session stops. Nothing here is observed by the wire protocol.
package metrics

import (
	"sync"
	"time"

	"github.com/life-stream-dev/go-sttp-publisher/internal/logger"
	"github.com/montanaflynn/stats"
)

const defaultWindowSize = 256

// PublishStats keeps a bounded rolling window of inter-publish-call
// gaps for one session and reports mean/stddev on demand.
type PublishStats struct {
	mu         sync.Mutex
	windowSize int
	gapsMs     []float64
	lastCall   time.Time
}

// NewPublishStats starts an empty window sized to defaultWindowSize.
func NewPublishStats() *PublishStats {
	return &PublishStats{windowSize: defaultWindowSize}
}

// RecordPublish marks a publish call, recording the gap since the
// previous call once there has been one.
func (p *PublishStats) RecordPublish(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.lastCall.IsZero() {
		gap := now.Sub(p.lastCall).Seconds() * 1000
		p.gapsMs = append(p.gapsMs, gap)
		if len(p.gapsMs) > p.windowSize {
			p.gapsMs = p.gapsMs[len(p.gapsMs)-p.windowSize:]
		}
	}
	p.lastCall = now
}

// MeanStdDev returns the rolling window's mean and standard deviation
// in milliseconds. ok is false until at least two samples have been
// recorded.
func (p *PublishStats) MeanStdDev() (mean, stddev float64, ok bool) {
	p.mu.Lock()
	samples := append([]float64(nil), p.gapsMs...)
	p.mu.Unlock()

	if len(samples) < 2 {
		return 0, 0, false
	}

	mean, err := stats.Mean(samples)
	if err != nil {
		return 0, 0, false
	}
	stddev, err = stats.StandardDeviation(samples)
	if err != nil {
		return 0, 0, false
	}
	return mean, stddev, true
}

// LogSummary emits the current mean/stddev at debug level, tagged with
// connID for correlation with the session's other log lines.
// Session.Stop calls it once, when the session ends; nothing calls it
// while publishing.
func (p *PublishStats) LogSummary(connID string) {
	mean, stddev, ok := p.MeanStdDev()
	if !ok {
		return
	}
	logger.DebugF("publish cadence for %s: mean=%.2fms stddev=%.2fms", connID, mean, stddev)
}

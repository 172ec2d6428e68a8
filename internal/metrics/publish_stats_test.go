package metrics

import (
	"testing"
	"time"
)

func TestMeanStdDevRequiresTwoSamples(t *testing.T) {
	p := NewPublishStats()
	p.RecordPublish(time.Now())

	if _, _, ok := p.MeanStdDev(); ok {
		t.Fatal("MeanStdDev should report ok=false with fewer than two gaps recorded")
	}
}

func TestMeanStdDevComputesOverGaps(t *testing.T) {
	p := NewPublishStats()
	base := time.Now()

	p.RecordPublish(base)
	p.RecordPublish(base.Add(1 * time.Second))
	p.RecordPublish(base.Add(2 * time.Second))

	mean, _, ok := p.MeanStdDev()
	if !ok {
		t.Fatal("expected ok=true after three publishes")
	}
	if mean < 900 || mean > 1100 {
		t.Errorf("mean = %.2fms, want close to 1000ms", mean)
	}
}

func TestWindowIsBounded(t *testing.T) {
	p := &PublishStats{windowSize: 3}
	base := time.Now()

	for i := 0; i < 10; i++ {
		p.RecordPublish(base.Add(time.Duration(i) * time.Second))
	}

	if len(p.gapsMs) > 3 {
		t.Errorf("len(gapsMs) = %d, want <= 3", len(p.gapsMs))
	}
}

package publisher

import (
	"testing"

	"github.com/life-stream-dev/go-sttp-publisher/internal/config"
	"github.com/life-stream-dev/go-sttp-publisher/internal/metadata"
)

func newEmptyDataset() metadata.Dataset {
	return metadata.NewMemoryDataset("test", nil)
}

func TestPolicyFromConfig(t *testing.T) {
	var cfg config.Config
	cfg.Publisher.AllowTemporalSubscriptions = true
	cfg.Publisher.ForceNaNValueFilter = true
	cfg.Publisher.UseBaseTimeOffsets = true

	p := policyFromConfig(cfg)

	if !p.AllowTemporalSubscriptions {
		t.Fatal("expected AllowTemporalSubscriptions to carry over")
	}
	if !p.ForceNaNValueFilter {
		t.Fatal("expected ForceNaNValueFilter to carry over")
	}
	if !p.UseBaseTimeOffsets {
		t.Fatal("expected UseBaseTimeOffsets to carry over")
	}
	if p.AllowNaNValueFilter {
		t.Fatal("expected AllowNaNValueFilter to default false")
	}
}

func TestNewAssemblesEvaluatorAndRoutes(t *testing.T) {
	var cfg config.Config
	cfg.Publisher.MaxConcurrentSessions = 10

	p := New(cfg, newEmptyDataset())
	if p.evaluator == nil {
		t.Fatal("expected evaluator to be constructed")
	}
	if p.routes == nil {
		t.Fatal("expected routing table to be constructed")
	}
	if p.server == nil {
		t.Fatal("expected transport server to be constructed")
	}
}

// Package publisher wires configuration, metadata, routing, the session
// registry, and transport into a running STTP publisher process.
// Grounded on the teacher's cmd/mqtt-broker/main.go assembly order
// (config -> logger -> event.Cleaner -> database -> server), generalized
// with a reverse-connection dialer loop for spec.md §4.7/§9.
package publisher

import (
	"context"
	"time"

	"github.com/life-stream-dev/go-sttp-publisher/internal/config"
	"github.com/life-stream-dev/go-sttp-publisher/internal/logger"
	"github.com/life-stream-dev/go-sttp-publisher/internal/metadata"
	"github.com/life-stream-dev/go-sttp-publisher/internal/registry"
	"github.com/life-stream-dev/go-sttp-publisher/internal/routing"
	"github.com/life-stream-dev/go-sttp-publisher/internal/session"
	"github.com/life-stream-dev/go-sttp-publisher/internal/transport"
)

// reverseRedialInterval is how long DialAndMaintainReverse waits before
// retrying a reverse connection that just disconnected.
const reverseRedialInterval = 5 * time.Second

// Publisher holds everything a running process needs beyond the
// per-connection Session state: the shared metadata dataset, the
// routing table, and the transport server.
type Publisher struct {
	cfg       config.Config
	dataset   metadata.Dataset
	evaluator metadata.Evaluator
	routes    *routing.Table
	server    *transport.Server
}

// New assembles a Publisher from already-loaded config and a connected
// metadata dataset (typically *metadata.MongoDataset from
// ConnectMongoDataset, or an in-memory dataset in tests).
func New(cfg config.Config, dataset metadata.Dataset) *Publisher {
	evaluator := metadata.NewSimpleEvaluator(dataset)
	routes := routing.NewTable()
	policy := policyFromConfig(cfg)
	server := transport.New(evaluator, routes, policy, cfg.Publisher.MaxConcurrentSessions)

	return &Publisher{
		cfg:       cfg,
		dataset:   dataset,
		evaluator: evaluator,
		routes:    routes,
		server:    server,
	}
}

func policyFromConfig(cfg config.Config) session.Policy {
	return session.Policy{
		AllowTemporalSubscriptions: cfg.Publisher.AllowTemporalSubscriptions,
		AllowNaNValueFilter:        cfg.Publisher.AllowNaNValueFilter,
		ForceNaNValueFilter:        cfg.Publisher.ForceNaNValueFilter,
		UseBaseTimeOffsets:         cfg.Publisher.UseBaseTimeOffsets,
		CipherKeysEnabled:          cfg.Publisher.CipherKeysEnabled,
	}
}

// Run starts the inbound accept loop and every configured
// reverse-connection dialer, blocking until ctx is canceled.
func (p *Publisher) Run(ctx context.Context) error {
	for _, addr := range p.cfg.Publisher.ReverseConnections {
		go p.maintainReverseConnection(ctx, addr)
	}

	return p.server.Serve(ctx, p.cfg.Publisher.CommandChannelPort)
}

// maintainReverseConnection implements spec.md §4.7's autoReconnect
// callback: redial addr after every disconnect (successful or not),
// waiting reverseRedialInterval between attempts, until ctx is canceled.
func (p *Publisher) maintainReverseConnection(ctx context.Context, addr string) {
	var reconnect func()
	redial := func() {
		if _, err := p.server.DialReverse(ctx, addr, reconnect); err != nil {
			logger.WarnF("reverse connection to %s failed: %v", addr, err)
			reconnect()
		}
	}
	reconnect = func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(reverseRedialInterval):
		}
		redial()
	}
	redial()
}

// ActiveSessions reports every currently registered subscriber
// connection, used by admin tooling and tests.
func (p *Publisher) ActiveSessions() []registry.SessionSummary {
	return registry.Get().Sessions()
}

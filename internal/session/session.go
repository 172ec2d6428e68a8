package session

import (
	"context"
	"sync"
	"time"

	"github.com/life-stream-dev/go-sttp-publisher/internal/cache"
	"github.com/life-stream-dev/go-sttp-publisher/internal/compress"
	"github.com/life-stream-dev/go-sttp-publisher/internal/metadata"
	"github.com/life-stream-dev/go-sttp-publisher/internal/metrics"
	"github.com/life-stream-dev/go-sttp-publisher/internal/routing"
	"github.com/life-stream-dev/go-sttp-publisher/internal/wire"
	uuid "github.com/satori/go.uuid"
)

// ChannelWriter is the transport-provided single-writer queue pair a
// session publishes through. EnqueueCommand feeds the reliable TCP
// command channel; EnqueueData feeds the optional unreliable UDP data
// channel. Both preserve enqueue order and keep only the head of the
// queue in flight.
type ChannelWriter interface {
	EnqueueCommand(data []byte) error
	EnqueueData(data []byte) error
	DataChannelActive() bool
	Close() error
}

// subscriptionParams holds the negotiated Subscribe parameters,
// spec.md §3's "Subscription parameters" block.
type subscriptionParams struct {
	includeTime                  bool
	useLocalClockAsRealTime      bool
	enableTimeReasonabilityCheck bool
	lagTime                      time.Duration
	leadTime                     time.Duration
	publishInterval              time.Duration
	useMillisecondResolution     bool
	trackLatestMeasurements      bool
	isNaNFiltered                bool
	startTimeConstraint          time.Time
	stopTimeConstraint           time.Time
	processingInterval           int32
	assemblyInfo                 string
}

func defaultSubscriptionParams() subscriptionParams {
	return subscriptionParams{
		includeTime:                  true,
		enableTimeReasonabilityCheck: true,
		lagTime:                      10 * time.Second,
		leadTime:                     5 * time.Second,
		publishInterval:              1 * time.Second,
		startTimeConstraint:          maxTime,
		stopTimeConstraint:           maxTime,
		processingInterval:           -1,
	}
}

// baseTimeOffsets is the rotating pair of base timestamps compact mode
// uses when includeTime is set and base-time offsets are enabled.
type baseTimeOffsets struct {
	mu          sync.Mutex
	initialized bool
	offsets     [2]int64
	timeIndex   uint32
}

// Session is one accepted subscriber connection's full state machine.
type Session struct {
	connID     string
	remoteAddr string

	subscriberID uuid.UUID
	instanceID   uuid.UUID

	modes    wire.OperationalModes
	encoding wire.Encoding
	version  byte

	mu                 sync.Mutex
	validated          bool
	connectionAccepted bool
	subscribed         bool
	stopped            bool
	disconnecting      bool

	cmdBytesSent      int64
	dataBytesSent     int64
	measurementsSent  int64
	lastPublishTime   time.Time
	latestTimestamp   int64
	startTimeSent     bool
	temporalCanceled  bool
	forceTSSCDisabled bool

	params                 subscriptionParams
	pendingDataChannelPort int

	swap      *cache.SwapState
	baseTime  baseTimeOffsets
	tsscLock  sync.Mutex
	tssc      *compress.BlockEncoder
	tsscReset bool

	latestLock sync.Mutex
	latest     map[uuid.UUID]compress.Measurement

	writer    ChannelWriter
	evaluator metadata.Evaluator
	routes    *routing.Table
	policy    Policy
	stats     *metrics.PublishStats

	stopOnce sync.Once
	stopCh   chan struct{}

	// timersMu guards parentCtx and subTimersCancel: runPingTimer runs
	// for the session's whole lifetime, but runBaseTimeRotationTimer and
	// runThrottledPublishTimer are stopped and recreated from
	// handleSubscribe with the freshly parsed params, matching
	// SubscriberConnection.cpp's HandleSubscribe.
	timersMu        sync.Mutex
	parentCtx       context.Context
	subTimersCancel context.CancelFunc

	// disconnectThreadMutex and connectActionMutex serialize lifecycle
	// transitions for reverse-connection mode, per spec.md §4.7/§5: a
	// detached disconnect task must never race a pending connect.
	disconnectThreadMutex sync.Mutex
	connectActionMutex    sync.Mutex
	disposed              bool
	autoReconnect         func()
}

var maxTime = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// New constructs a session for a freshly accepted connection. subscriberID
// and instanceID are 128-bit UUIDs generated here, matching spec.md §3's
// "generated at construction".
func New(connID, remoteAddr string, writer ChannelWriter, evaluator metadata.Evaluator, routes *routing.Table, policy Policy) (*Session, error) {
	subscriberID := uuid.NewV4()
	instanceID := uuid.NewV4()

	return &Session{
		connID:       connID,
		remoteAddr:   remoteAddr,
		subscriberID: subscriberID,
		instanceID:   instanceID,
		params:       defaultSubscriptionParams(),
		latest:       make(map[uuid.UUID]compress.Measurement),
		writer:       writer,
		evaluator:    evaluator,
		routes:       routes,
		policy:       policy,
		stats:        metrics.NewPublishStats(),
		stopCh:       make(chan struct{}),
	}, nil
}

// SubscriberID implements registry.Session.
func (s *Session) SubscriberID() uuid.UUID { return s.subscriberID }

// ConnectionID implements registry.Session.
func (s *Session) ConnectionID() string { return s.connID }

// RemoteAddr implements registry.Session.
func (s *Session) RemoteAddr() string { return s.remoteAddr }

// InstanceID returns the session's instance UUID.
func (s *Session) InstanceID() uuid.UUID { return s.instanceID }

// IsValidated reports whether DefineOperationalModes has succeeded.
func (s *Session) IsValidated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validated
}

// IsSubscribed reports whether a Subscribe has succeeded and not yet
// been superseded by Unsubscribe/Stop.
func (s *Session) IsSubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}

// IsStopped reports whether StopConnection has already run.
func (s *Session) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// StopSignal returns a channel closed once the session stops, for
// timers and the read loop to select on.
func (s *Session) StopSignal() <-chan struct{} {
	return s.stopCh
}

// TakePendingDataChannelPort returns the UDP port requested by the most
// recent Subscribe and clears it, so the transport layer binds the data
// channel exactly once per request. Returns ok=false if no bind is
// pending.
func (s *Session) TakePendingDataChannelPort() (port int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingDataChannelPort == 0 {
		return 0, false
	}
	port = s.pendingDataChannelPort
	s.pendingDataChannelPort = 0
	return port, true
}

// Enqueue implements registry.Session: frames a response and pushes it
// to the appropriate channel, UDP for DataPacket/BufferBlock when the
// data channel is active, TCP command channel otherwise.
func (s *Session) Enqueue(code wire.ResponseCode, cmd wire.CommandCode, data []byte) error {
	useData := (code == wire.ResponseDataPacket || code == wire.ResponseBufferBlock) && s.writer.DataChannelActive()

	if useData {
		frame := wire.EncodeDataChannelFrame(code, cmd, data)
		s.mu.Lock()
		s.dataBytesSent += int64(len(frame))
		s.mu.Unlock()
		return s.writer.EnqueueData(frame)
	}

	frame := wire.EncodeResponseFrame(code, cmd, data)
	s.mu.Lock()
	s.cmdBytesSent += int64(len(frame))
	s.mu.Unlock()
	return s.writer.EnqueueCommand(frame)
}

package session

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/life-stream-dev/go-sttp-publisher/internal/cache"
	"github.com/life-stream-dev/go-sttp-publisher/internal/compress"
	"github.com/life-stream-dev/go-sttp-publisher/internal/logger"
	"github.com/life-stream-dev/go-sttp-publisher/internal/ticks"
	"github.com/life-stream-dev/go-sttp-publisher/internal/wire"
)

// subscribeFlagSynchronized is the reserved flags bit rejecting
// synchronized subscriptions, which this publisher does not support.
const subscribeFlagSynchronized = 0x01

// Dispatch routes one decoded command frame to its handler, enforcing
// the pre-validation gate: before DefineOperationalModes succeeds, only
// DefineOperationalModes itself is accepted.
func (s *Session) Dispatch(cmd wire.CommandCode, payload []byte) error {
	if !s.IsValidated() && cmd != wire.CommandDefineOperationalModes {
		_ = s.Enqueue(wire.ResponseFailed, cmd, []byte("session has not completed DefineOperationalModes"))
		s.delayedStop()
		return fmt.Errorf("command %s received before validation", cmd)
	}

	switch cmd {
	case wire.CommandDefineOperationalModes:
		return s.handleDefineOperationalModes(payload)
	case wire.CommandSubscribe:
		return s.handleSubscribe(payload)
	case wire.CommandUnsubscribe:
		return s.handleUnsubscribe()
	case wire.CommandMetadataRefresh:
		return s.handleMetadataRefresh()
	case wire.CommandUpdateProcessingInterval:
		return s.handleUpdateProcessingInterval(payload)
	case wire.CommandConfirmUpdateSignalIndexCache:
		return s.handleConfirmUpdateSignalIndexCache()
	case wire.CommandRotateCipherKeys:
		return s.handleRotateCipherKeys()
	case wire.CommandConfirmNotification, wire.CommandConfirmBufferBlock, wire.CommandConfirmUpdateBaseTimes:
		return nil // accepted no-ops, per spec decision
	default:
		if cmd.IsUserCommand() {
			return s.Enqueue(wire.ResponseUserResponse, cmd, payload)
		}
		_ = s.Enqueue(wire.ResponseFailed, cmd, []byte("unknown command"))
		return fmt.Errorf("unknown command code %v", cmd)
	}
}

// handleDefineOperationalModes implements spec.md §4.2.
func (s *Session) handleDefineOperationalModes(payload []byte) error {
	if len(payload) < 4 {
		return s.fail(wire.CommandDefineOperationalModes, "DefineOperationalModes payload too short")
	}
	modes := wire.OperationalModes(binary.BigEndian.Uint32(payload[0:4]))
	version := modes.Version()
	if version < 1 || version > 3 {
		_ = s.fail(wire.CommandDefineOperationalModes, fmt.Sprintf("unsupported protocol version %d", version))
		s.delayedStop()
		return fmt.Errorf("unsupported protocol version %d", version)
	}

	encoding, ok := wire.EncodingFromModes(uint32(modes))
	if !ok {
		logger.WarnF("[%s] unrecognized encoding bits in modes 0x%08x, falling back to UTF8", s.connID, uint32(modes))
	}

	s.mu.Lock()
	s.modes = modes
	s.encoding = encoding
	s.version = version
	s.mu.Unlock()

	s.swap = cache.NewSwapState(version)

	s.mu.Lock()
	s.validated = true
	s.connectionAccepted = true
	s.mu.Unlock()

	accepted := fmt.Sprintf("STTP v%d client connection accepted, instance %s", version, s.instanceID)
	return s.Enqueue(wire.ResponseSucceeded, wire.CommandDefineOperationalModes, []byte(accepted))
}

// handleSubscribe implements spec.md §4.3.
func (s *Session) handleSubscribe(payload []byte) error {
	if len(payload) < 5 {
		return s.fail(wire.CommandSubscribe, "Subscribe payload too short")
	}
	flags := payload[0]
	if flags&subscribeFlagSynchronized != 0 {
		return s.fail(wire.CommandSubscribe, "synchronized subscriptions are not supported")
	}

	byteLength := binary.BigEndian.Uint32(payload[1:5])
	if len(payload) < int(5+byteLength) {
		return s.fail(wire.CommandSubscribe, "Subscribe payload shorter than declared connection string length")
	}
	connectionString, err := s.encodingOrUTF8().Decode(payload[5 : 5+byteLength])
	if err != nil {
		return s.fail(wire.CommandSubscribe, "failed to decode connection string: "+err.Error())
	}

	if s.IsSubscribed() {
		s.cancelTemporalIfNeeded()
	}

	kv := ticks.ParseKeyValuePairs(connectionString)
	params := parseSubscriptionKeyValues(kv)

	if params.startTimeConstraint.After(params.stopTimeConstraint) {
		return s.fail(wire.CommandSubscribe, "start time constraint is after stop time constraint")
	}
	isTemporal := params.startTimeConstraint.Before(maxTime)
	if isTemporal && !s.policy.AllowTemporalSubscriptions {
		return s.fail(wire.CommandSubscribe,
			"subscriber requested a temporal subscription, but the publisher does not support temporal subscriptions")
	}

	if s.policy.ForceNaNValueFilter {
		params.isNaNFiltered = true
	} else if !s.policy.AllowNaNValueFilter {
		params.isNaNFiltered = false
	}

	dataChannelPort, dataChannelRequested := parseDataChannelPort(kv["datachannel"])
	disableTSSC := dataChannelRequested && modesWantTSSC(s.modesSnapshot())
	if disableTSSC {
		logger.WarnF("[%s] TSSC is stateful and cannot survive UDP loss; disabling compression for this subscription", s.connID)
	}

	filterExpression := kv["filterexpression"]
	rows, err := s.evaluator.Evaluate(filterExpression)
	if err != nil {
		return s.fail(wire.CommandSubscribe, err.Error())
	}

	newCache := cache.Build(rows)

	s.mu.Lock()
	s.params = params
	s.temporalCanceled = false
	s.forceTSSCDisabled = disableTSSC
	s.tssc = compress.NewBlockEncoder()
	s.startTimeSent = false
	if dataChannelRequested {
		s.pendingDataChannelPort = dataChannelPort
	}
	s.mu.Unlock()

	s.restartSubscriptionTimers(params)

	toSend, shouldSend, tsscReset := s.swap.Propose(newCache)
	if shouldSend {
		if err := s.Enqueue(wire.ResponseUpdateSignalIndexCache, wire.CommandSubscribe, toSend.Serialize()); err != nil {
			return err
		}
		s.routes.UpdateSubscriber(s.subscriberID, toSend.SignalIDs())
	}
	if tsscReset {
		s.requestTSSCReset()
	}

	if isTemporal {
		logger.InfoF("[%s] temporal subscription requested: %s to %s", s.connID, params.startTimeConstraint, params.stopTimeConstraint)
	}

	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()

	return s.Enqueue(wire.ResponseSucceeded, wire.CommandSubscribe, []byte(params.assemblyInfo))
}

func (s *Session) handleUnsubscribe() error {
	s.cancelTemporalIfNeeded()

	s.mu.Lock()
	s.subscribed = false
	s.mu.Unlock()

	s.routes.RemoveSubscriber(s.subscriberID)
	return s.Enqueue(wire.ResponseSucceeded, wire.CommandUnsubscribe, nil)
}

func (s *Session) handleMetadataRefresh() error {
	rows := s.evaluator.Dataset().Rows()
	logger.DebugF("[%s] metadata refresh: %d rows available", s.connID, len(rows))
	return s.Enqueue(wire.ResponseSucceeded, wire.CommandMetadataRefresh, nil)
}

func (s *Session) handleUpdateProcessingInterval(payload []byte) error {
	if len(payload) < 4 {
		return s.fail(wire.CommandUpdateProcessingInterval, "UpdateProcessingInterval payload too short")
	}
	interval := int32(binary.BigEndian.Uint32(payload[0:4]))

	s.mu.Lock()
	s.params.processingInterval = interval
	s.mu.Unlock()

	return s.Enqueue(wire.ResponseSucceeded, wire.CommandUpdateProcessingInterval, nil)
}

// handleConfirmUpdateSignalIndexCache implements spec.md §4.4's
// acknowledgment half of the swap protocol.
func (s *Session) handleConfirmUpdateSignalIndexCache() error {
	applied, tsscReset, followUp, followUpShouldSend := s.swap.Confirm()
	if applied != nil {
		s.routes.UpdateSubscriber(s.subscriberID, applied.SignalIDs())
	}
	if tsscReset {
		s.requestTSSCReset()
	}
	if followUpShouldSend {
		if err := s.Enqueue(wire.ResponseUpdateSignalIndexCache, wire.CommandConfirmUpdateSignalIndexCache, followUp.Serialize()); err != nil {
			return err
		}
		s.routes.UpdateSubscriber(s.subscriberID, followUp.SignalIDs())
	}
	return nil
}

// handleRotateCipherKeys implements the Policy.CipherKeysEnabled gate:
// a publisher that hasn't enabled cipher key rotation rejects the
// request instead of silently accepting it.
func (s *Session) handleRotateCipherKeys() error {
	if !s.policy.CipherKeysEnabled {
		return s.fail(wire.CommandRotateCipherKeys, "cipher key rotation is not enabled on this publisher")
	}
	return s.Enqueue(wire.ResponseSucceeded, wire.CommandRotateCipherKeys, nil)
}

func (s *Session) fail(cmd wire.CommandCode, message string) error {
	_ = s.Enqueue(wire.ResponseFailed, cmd, []byte(message))
	return fmt.Errorf("%s: %s", cmd, message)
}

// delayedStop gives a just-sent Failed response time to flush before the
// session is torn down, per spec.md §4.1's pre-validation gate and §4.2's
// version-rejection path.
func (s *Session) delayedStop() {
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.Stop()
	}()
}

func (s *Session) encodingOrUTF8() wire.Encoding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoding
}

func (s *Session) modesSnapshot() wire.OperationalModes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modes
}

// parseDataChannelPort reads the nested port/localport key out of the
// dataChannel connection-string value, per spec.md §4.3's
// "dataChannel | nested k/v; when present and contains port or
// localport, establish UDP data channel".
func parseDataChannelPort(raw string) (port int, requested bool) {
	if raw == "" {
		return 0, false
	}
	nested := ticks.ParseKeyValuePairs(raw)
	value, ok := nested["port"]
	if !ok {
		value, ok = nested["localport"]
	}
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

func modesWantTSSC(modes wire.OperationalModes) bool {
	return modes.UsesTSSC()
}

func (s *Session) requestTSSCReset() {
	s.tsscLock.Lock()
	s.tsscReset = true
	s.tsscLock.Unlock()
}

// cancelTemporalIfNeeded implements spec.md §4.6: fires
// TemporalSubscriptionCanceled (here, logged; no external dispatcher is
// wired beyond the protocol's own ProcessingComplete response) at most
// once per subscription.
func (s *Session) cancelTemporalIfNeeded() {
	s.mu.Lock()
	isTemporal := s.params.startTimeConstraint.Before(maxTime)
	alreadyCanceled := s.temporalCanceled
	s.temporalCanceled = true
	s.mu.Unlock()

	if !isTemporal || alreadyCanceled {
		return
	}

	_ = s.Enqueue(wire.ResponseProcessingComplete, wire.CommandSubscribe, nil)
	logger.InfoF("[%s] temporal subscription canceled", s.connID)
}

package session

import (
	"context"

	"github.com/life-stream-dev/go-sttp-publisher/internal/logger"
	"github.com/life-stream-dev/go-sttp-publisher/internal/registry"
)

// Start registers the session in the process-wide registry and starts
// its keep-alive timer, mirroring the teacher's AddConnection step in
// ConnectionManager except keyed by subscriber ID rather than client ID.
// The base-time-rotation and throttled-publish timers do not start here:
// they are (re)created from handleSubscribe once a Subscribe supplies
// the settings that govern them.
func (s *Session) Start(ctx context.Context) {
	registry.Get().Register(s)
	s.StartTimers(ctx)
	logger.InfoF("[%s] session started, remote=%s", s.connID, s.remoteAddr)
}

// Stop tears the session down exactly once: unsubscribes, clears the
// registry entry, stops timers, and closes the underlying channels. It
// is safe to call from the read loop, a timer goroutine, or
// delayedStop, and safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		wasSubscribed := s.subscribed
		s.subscribed = false
		s.validated = false
		s.stopped = true
		s.disconnecting = true
		s.mu.Unlock()

		if wasSubscribed {
			s.routes.RemoveSubscriber(s.subscriberID)
		}

		close(s.stopCh)
		registry.Get().Unregister(s.subscriberID)

		s.timersMu.Lock()
		if s.subTimersCancel != nil {
			s.subTimersCancel()
		}
		s.timersMu.Unlock()

		if err := s.writer.Close(); err != nil {
			logger.WarnF("[%s] error closing channels: %v", s.connID, err)
		}

		s.stats.LogSummary(s.connID)
		logger.InfoF("[%s] session stopped", s.connID)
	})
}

// StartReverseConnection implements spec.md §4.7's reverse-connection
// mode: the publisher dials out to the subscriber instead of accepting
// an inbound connection. dial is called synchronously and must return a
// ready ChannelWriter; on success the session is registered and started
// exactly as an inbound connection would be. autoReconnect, if non-nil,
// is invoked by Disconnect once cleanup finishes, unless the session was
// already marked disposed.
func (s *Session) StartReverseConnection(ctx context.Context, dial func() (ChannelWriter, error), autoReconnect func()) error {
	s.connectActionMutex.Lock()
	defer s.connectActionMutex.Unlock()

	writer, err := dial()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.writer = writer
	s.autoReconnect = autoReconnect
	s.mu.Unlock()

	s.Start(ctx)
	return nil
}

// Disconnect runs StopConnection in a detached goroutine guarded by
// disconnectThreadMutex, then fires autoReconnect unless the session has
// been disposed in the meantime, mirroring the teacher's Cleaner.Init
// idempotent-shutdown pattern.
func (s *Session) Disconnect() {
	go func() {
		s.disconnectThreadMutex.Lock()
		defer s.disconnectThreadMutex.Unlock()

		s.Stop()

		s.mu.Lock()
		disposed := s.disposed
		reconnect := s.autoReconnect
		s.mu.Unlock()

		if !disposed && reconnect != nil {
			reconnect()
		}
	}()
}

// Dispose marks the session as permanently torn down, suppressing any
// pending autoReconnect callback, then stops it.
func (s *Session) Dispose() {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
	s.Stop()
}

// Package transport implements the publisher's TCP accept loop, the
// per-session command-frame read/dispatch loop, and the UDP data-channel
// binder. Grounded on the teacher's internal/server package
// (StartServer, handleConnection, server_utils.go's send/isNetClosedError/
// handleReadError), restructured around STTP's 4-byte length-prefixed
// command frames and internal/session.Session instead of MQTT packets.
package transport

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/life-stream-dev/go-sttp-publisher/internal/logger"
	"github.com/life-stream-dev/go-sttp-publisher/internal/metadata"
	"github.com/life-stream-dev/go-sttp-publisher/internal/routing"
	"github.com/life-stream-dev/go-sttp-publisher/internal/session"
	"github.com/life-stream-dev/go-sttp-publisher/internal/wire"
	"golang.org/x/sync/semaphore"
)

// Server accepts inbound subscriber connections on the command-channel
// TCP port and drives each one's read/dispatch loop. The teacher's raw
// `make(chan struct{}, 10000)` accept-throttle is generalized to
// semaphore.Weighted so the concurrency ceiling is configurable.
type Server struct {
	evaluator metadata.Evaluator
	routes    *routing.Table
	policy    session.Policy

	sem *semaphore.Weighted
	ln  net.Listener
}

// New constructs a Server bound to no socket yet; call Serve to accept.
func New(evaluator metadata.Evaluator, routes *routing.Table, policy session.Policy, maxConcurrentSessions int64) *Server {
	if maxConcurrentSessions <= 0 {
		maxConcurrentSessions = 10000
	}
	return &Server{
		evaluator: evaluator,
		routes:    routes,
		policy:    policy,
		sem:       semaphore.NewWeighted(maxConcurrentSessions),
	}
}

// Serve listens on port and accepts connections until ctx is canceled,
// mirroring the teacher's StartServer accept loop.
func (s *Server) Serve(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	s.ln = ln
	logger.InfoF("STTP publisher listening on %s", ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if Classify(err) == ErrorClassLocalClosed {
				return nil
			}
			logger.ErrorF("accept error: %v", err)
			continue
		}

		if !s.sem.TryAcquire(1) {
			logger.WarnF("rejecting connection from %s: session limit reached", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}

		go func(c net.Conn) {
			defer s.sem.Release(1)
			s.handleConnection(ctx, c)
		}(conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	connID := conn.RemoteAddr().String()
	remoteAddr := stripDualStackPrefix(hostOnly(connID))
	writer := NewChannelWriter(conn, connID)

	sess, err := session.New(connID, remoteAddr, writer, s.evaluator, s.routes, s.policy)
	if err != nil {
		logger.ErrorF("[%s] failed to construct session: %v", connID, err)
		_ = conn.Close()
		return
	}

	sess.Start(ctx)

	logger.InfoF("[%s] accepted subscriber connection", connID)
	runReadLoop(ctx, conn, sess, connID, writer, sess.Dispose)
}

// runReadLoop implements spec.md §4.1's frame loop: read one
// length-prefixed command frame at a time, dispatch it, and bind the
// UDP data channel once a Subscribe asks for one. Stops on read error,
// session.Stop, or ctx cancellation, running onExit exactly once before
// returning (sess.Dispose for inbound connections, sess.Disconnect for
// reverse connections so autoReconnect fires).
func runReadLoop(ctx context.Context, conn net.Conn, sess *session.Session, connID string, writer *ChannelWriter, onExit func()) {
	defer onExit()

	for {
		select {
		case <-sess.StopSignal():
			return
		case <-ctx.Done():
			return
		default:
		}

		cmd, payload, err := wire.ReadCommandFrame(conn, sess.IsValidated())
		if err != nil {
			LogReadError(connID, err)
			return
		}

		if err := sess.Dispatch(cmd, payload); err != nil {
			logger.DebugF("[%s] dispatch error: %v", connID, err)
		}

		if port, ok := sess.TakePendingDataChannelPort(); ok {
			bindDataChannel(writer, conn, port, connID)
		}
	}
}

// bindDataChannel implements spec.md §4.3's UDP channel setup: bind to
// the local interface address of the command socket, connect to the
// remote address on the subscriber-supplied port.
func bindDataChannel(writer *ChannelWriter, conn net.Conn, port int, connID string) {
	remoteHost := stripDualStackPrefix(hostOnly(conn.RemoteAddr().String()))
	remoteAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(remoteHost, strconv.Itoa(port)))
	if err != nil {
		logger.ErrorF("[%s] failed to resolve data channel address: %v", connID, err)
		return
	}

	localHost := stripDualStackPrefix(hostOnly(conn.LocalAddr().String()))
	pc, err := net.ListenPacket("udp", net.JoinHostPort(localHost, "0"))
	if err != nil {
		logger.ErrorF("[%s] failed to bind data channel socket: %v", connID, err)
		return
	}

	writer.BindDataChannel(pc, remoteAddr, connID)
	logger.InfoF("[%s] UDP data channel bound to %s", connID, remoteAddr.String())
}

func hostOnly(hostPort string) string {
	host, _, err := net.SplitHostPort(hostPort)
	if err != nil {
		return hostPort
	}
	return host
}

func stripDualStackPrefix(host string) string {
	return strings.TrimPrefix(host, "::ffff:")
}

// DialReverse implements spec.md §4.7's reverse-connection mode: the
// publisher dials out to the subscriber's listening address instead of
// accepting an inbound connection, then behaves exactly like an inbound
// session once connected. autoReconnect is invoked after a reverse
// session disconnects, unless the session was explicitly disposed.
func (s *Server) DialReverse(ctx context.Context, addr string, autoReconnect func()) (*session.Session, error) {
	var (
		activeConn   net.Conn
		activeWriter *ChannelWriter
	)
	dial := func() (session.ChannelWriter, error) {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, err
		}
		activeConn = conn
		activeWriter = NewChannelWriter(conn, addr)
		return activeWriter, nil
	}

	sess, err := session.New(addr, addr, nil, s.evaluator, s.routes, s.policy)
	if err != nil {
		return nil, err
	}
	if err := sess.StartReverseConnection(ctx, dial, autoReconnect); err != nil {
		return nil, err
	}

	go runReadLoop(ctx, activeConn, sess, addr, activeWriter, sess.Disconnect)
	return sess, nil
}

package transport

import (
	"net"
	"sync"

	"github.com/life-stream-dev/go-sttp-publisher/internal/logger"
)

// send writes data to conn in full, retrying partial writes exactly like
// the teacher's internal/connection/message_sender.go Send.
func send(conn net.Conn, data []byte, connID string) error {
	total := 0
	for total < len(data) {
		n, err := conn.Write(data[total:])
		if err != nil {
			return err
		}
		total += n
	}
	logger.DebugF("[%s] sent %d bytes", connID, total)
	return nil
}

// commandQueue is the single-writer TCP command-channel queue: only the
// head of the queue is ever in flight, and EnqueueCommand blocks the
// caller only long enough to push onto the channel, never for the
// write itself (spec.md §5's "only the head of a queue is in flight").
type commandQueue struct {
	conn   net.Conn
	connID string
	queue  chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newCommandQueue(conn net.Conn, connID string) *commandQueue {
	q := &commandQueue{
		conn:   conn,
		connID: connID,
		queue:  make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *commandQueue) run() {
	for {
		select {
		case frame, ok := <-q.queue:
			if !ok {
				return
			}
			if err := send(q.conn, frame, q.connID); err != nil {
				logger.WarnF("[%s] command write failed: %v", q.connID, err)
			}
		case <-q.done:
			return
		}
	}
}

func (q *commandQueue) enqueue(frame []byte) error {
	select {
	case <-q.done:
		return net.ErrClosed
	default:
	}
	select {
	case q.queue <- frame:
		return nil
	case <-q.done:
		return net.ErrClosed
	}
}

func (q *commandQueue) close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return q.conn.Close()
}

// dataQueue is the UDP data-channel queue. It idle-waits on a condition
// variable when no writes are pending and is resumed on each enqueue,
// per spec.md §5's suspension-point (b): "only the head of a queue is in
// flight; subsequent enqueues defer until completion." Grounded on
// message_sender.go's Send, adapted from net.Conn to net.PacketConn.
type dataQueue struct {
	pc         net.PacketConn
	remoteAddr net.Addr
	connID     string

	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool
}

func newDataQueue(pc net.PacketConn, remoteAddr net.Addr, connID string) *dataQueue {
	q := &dataQueue{pc: pc, remoteAddr: remoteAddr, connID: connID}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *dataQueue) run() {
	for {
		q.mu.Lock()
		for len(q.queue) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed && len(q.queue) == 0 {
			q.mu.Unlock()
			return
		}
		frame := q.queue[0]
		q.queue = q.queue[1:]
		q.mu.Unlock()

		if _, err := q.pc.WriteTo(frame, q.remoteAddr); err != nil {
			logger.WarnF("[%s] data write failed: %v", q.connID, err)
		}
	}
}

func (q *dataQueue) enqueue(frame []byte) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return net.ErrClosed
	}
	q.queue = append(q.queue, frame)
	q.mu.Unlock()
	q.cond.Signal()
	return nil
}

func (q *dataQueue) close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	return q.pc.Close()
}

// ChannelWriter implements session.ChannelWriter over a TCP command
// socket and an optional UDP data socket, satisfying spec.md §4.3's dual
// TCP/UDP channel discipline: data packets prefer the UDP channel once
// bound, falling back to TCP otherwise.
type ChannelWriter struct {
	commands *commandQueue
	data     *dataQueue // nil until BindDataChannel succeeds
	mu       sync.Mutex
}

// NewChannelWriter wraps an accepted TCP connection as a command-only
// writer. BindDataChannel attaches a UDP data channel later, once the
// subscriber's Subscribe request names a data channel.
func NewChannelWriter(conn net.Conn, connID string) *ChannelWriter {
	return &ChannelWriter{commands: newCommandQueue(conn, connID)}
}

// BindDataChannel attaches a UDP data-channel queue, called once the
// subscriber's connection string supplies a dataChannel port.
func (w *ChannelWriter) BindDataChannel(pc net.PacketConn, remoteAddr net.Addr, connID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = newDataQueue(pc, remoteAddr, connID)
}

func (w *ChannelWriter) EnqueueCommand(data []byte) error {
	return w.commands.enqueue(data)
}

// EnqueueData pushes onto the UDP data channel. The caller checks
// DataChannelActive first, per session.Session.Enqueue's dispatch, so
// this is only reached once BindDataChannel has run.
func (w *ChannelWriter) EnqueueData(data []byte) error {
	w.mu.Lock()
	dq := w.data
	w.mu.Unlock()
	if dq == nil {
		return net.ErrClosed
	}
	return dq.enqueue(data)
}

func (w *ChannelWriter) DataChannelActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.data != nil
}

func (w *ChannelWriter) Close() error {
	w.mu.Lock()
	dq := w.data
	w.mu.Unlock()

	err := w.commands.close()
	if dq != nil {
		if dErr := dq.close(); dErr != nil && err == nil {
			err = dErr
		}
	}
	return err
}

package transport

import (
	"errors"
	"io"
	"net"
	"os"

	"github.com/life-stream-dev/go-sttp-publisher/internal/logger"
	"github.com/life-stream-dev/go-sttp-publisher/internal/wire"
)

// ErrorClass buckets a transport-level failure into one of the five
// categories the read/dispatch loop reacts to differently, generalizing
// the teacher's ad hoc isNetClosedError/handleReadError pair
// (internal/server/server_utils.go) into a single taxonomy shared by the
// TCP command loop and the UDP data-channel writer.
type ErrorClass int

const (
	// ErrorClassNone means err was nil.
	ErrorClassNone ErrorClass = iota
	// ErrorClassPeerClosed means the peer ended the connection cleanly.
	ErrorClassPeerClosed
	// ErrorClassLocalClosed means our own side closed the socket, e.g.
	// because StopConnection already ran.
	ErrorClassLocalClosed
	// ErrorClassTimeout means a read/write deadline expired.
	ErrorClassTimeout
	// ErrorClassProtocol means the frame was well-formed at the transport
	// level but violated STTP framing rules (oversized pre-validation
	// payload, empty frame).
	ErrorClassProtocol
	// ErrorClassOther is any failure that doesn't fit the above.
	ErrorClassOther
)

// Classify assigns err to one of the ErrorClass buckets.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ErrorClassNone
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrorClassPeerClosed
	case errors.Is(err, net.ErrClosed):
		return ErrorClassLocalClosed
	case errors.Is(err, wire.ErrOversizedPreValidationFrame), errors.Is(err, wire.ErrEmptyFrame):
		return ErrorClassProtocol
	case os.IsTimeout(err):
		return ErrorClassTimeout
	default:
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Timeout() {
			return ErrorClassTimeout
		}
		return ErrorClassOther
	}
}

// LogReadError reports a read failure at the severity its class
// deserves, mirroring handleReadError's switch in server_utils.go.
func LogReadError(connID string, err error) {
	switch Classify(err) {
	case ErrorClassPeerClosed:
		logger.InfoF("[%s] peer closed connection", connID)
	case ErrorClassLocalClosed:
		logger.DebugF("[%s] local socket already closed", connID)
	case ErrorClassTimeout:
		logger.WarnF("[%s] read timed out", connID)
	default:
		logger.ErrorF("[%s] error reading command frame: %v", connID, err)
	}
}

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrOversizedPreValidationFrame is returned by ReadCommandFrame when an
// unvalidated session sends a payload larger than the defense threshold
// (spec.md §4.1: "if !validated and payloadSize > 8192+headerSize").
var ErrOversizedPreValidationFrame = errors.New("possible invalid protocol detected, payload exceeds pre-validation limit")

// ErrEmptyFrame is returned when a command frame carries zero payload
// bytes, which cannot contain even a command code.
var ErrEmptyFrame = errors.New("command frame has no payload")

const maxPreValidationPayload = 8192 + PayloadHeaderSize

// ReadCommandFrame reads one length-prefixed frame from the command
// channel and splits it into its one-byte command code and the
// remaining command-specific bytes. Before the session is validated,
// oversized frames are rejected outright as a defense against
// non-protocol traffic (spec.md §4.1, end-to-end scenario 6).
func ReadCommandFrame(r io.Reader, validated bool) (CommandCode, []byte, error) {
	var header [PayloadHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	payloadSize := binary.BigEndian.Uint32(header[:])

	if !validated && payloadSize > maxPreValidationPayload {
		return 0, nil, ErrOversizedPreValidationFrame
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	if len(payload) == 0 {
		return 0, nil, ErrEmptyFrame
	}

	return CommandCode(payload[0]), payload[1:], nil
}

// EncodeResponseFrame encodes a TCP command-channel response frame:
// totalSize|responseCode|commandCode|dataSize|data (spec.md §4.1).
func EncodeResponseFrame(code ResponseCode, cmd CommandCode, data []byte) []byte {
	dataSize := len(data)
	totalSize := ResponseHeaderSize + 4 + dataSize

	buf := make([]byte, PayloadHeaderSize+totalSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(totalSize))
	buf[4] = byte(code)
	buf[5] = byte(cmd)
	binary.BigEndian.PutUint32(buf[6:10], uint32(dataSize))
	copy(buf[10:], data)
	return buf
}

// DecodeResponseFrame parses the bytes written by EncodeResponseFrame,
// excluding the leading totalSize prefix (the caller is expected to have
// already consumed it via the length-prefixed transport framing). It is
// the client-side counterpart used by the framing round-trip tests.
func DecodeResponseFrame(body []byte) (code ResponseCode, cmd CommandCode, data []byte, err error) {
	if len(body) < ResponseHeaderSize+4 {
		return 0, 0, nil, fmt.Errorf("response frame too short: %d bytes", len(body))
	}
	code = ResponseCode(body[0])
	cmd = CommandCode(body[1])
	dataSize := binary.BigEndian.Uint32(body[2:6])
	if int(dataSize) != len(body)-6 {
		return 0, 0, nil, fmt.Errorf("response frame dataSize mismatch: header says %d, have %d", dataSize, len(body)-6)
	}
	data = body[6:]
	return code, cmd, data, nil
}

// EncodeDataChannelFrame encodes a UDP data-channel frame: identical to a
// TCP response frame but without the leading totalSize prefix, since
// datagram boundaries already carry the length (spec.md §4.1).
func EncodeDataChannelFrame(code ResponseCode, cmd CommandCode, data []byte) []byte {
	buf := make([]byte, ResponseHeaderSize+4+len(data))
	buf[0] = byte(code)
	buf[1] = byte(cmd)
	binary.BigEndian.PutUint32(buf[2:6], uint32(len(data)))
	copy(buf[6:], data)
	return buf
}

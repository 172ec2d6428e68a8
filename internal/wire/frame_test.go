package wire

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestReadCommandFrame(t *testing.T) {
	payload := append([]byte{byte(CommandSubscribe)}, []byte("hello")...)
	header := make([]byte, PayloadHeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))

	r := bytes.NewReader(append(header, payload...))
	cmd, rest, err := ReadCommandFrame(r, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != CommandSubscribe {
		t.Errorf("cmd = %v, want Subscribe", cmd)
	}
	if string(rest) != "hello" {
		t.Errorf("rest = %q, want hello", rest)
	}
}

func TestReadCommandFrameRejectsOversizedPreValidation(t *testing.T) {
	header := make([]byte, PayloadHeaderSize)
	binary.BigEndian.PutUint32(header, 1_048_576)

	r := bytes.NewReader(header)
	_, _, err := ReadCommandFrame(r, false)
	if err != ErrOversizedPreValidationFrame {
		t.Fatalf("err = %v, want ErrOversizedPreValidationFrame", err)
	}
}

func TestResponseFrameRoundTrip(t *testing.T) {
	data := []byte("STTP v2 client connection accepted")
	encoded := EncodeResponseFrame(ResponseSucceeded, CommandDefineOperationalModes, data)

	totalSize := binary.BigEndian.Uint32(encoded[0:4])
	if int(totalSize) != len(encoded)-PayloadHeaderSize {
		t.Fatalf("totalSize %d does not match frame length %d", totalSize, len(encoded)-PayloadHeaderSize)
	}

	code, cmd, got, err := DecodeResponseFrame(encoded[PayloadHeaderSize:])
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if code != ResponseSucceeded {
		t.Errorf("code = %v, want Succeeded", code)
	}
	if cmd != CommandDefineOperationalModes {
		t.Errorf("cmd = %v, want DefineOperationalModes", cmd)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("data = %q, want %q", got, data)
	}
}

func TestDataChannelFrameHasNoTotalSizePrefix(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	encoded := EncodeDataChannelFrame(ResponseDataPacket, CommandSubscribe, data)

	if len(encoded) != ResponseHeaderSize+4+len(data) {
		t.Fatalf("unexpected frame length %d", len(encoded))
	}
	if ResponseCode(encoded[0]) != ResponseDataPacket {
		t.Errorf("first byte should be the response code with no length prefix")
	}
}

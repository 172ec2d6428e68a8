package compress

import (
	"bytes"
	"encoding/binary"
	"testing"

	uuid "github.com/satori/go.uuid"
)

func mustUUID(t *testing.T) uuid.UUID {
	id, err := uuid.NewV4()
	if err != nil {
		t.Fatalf("uuid.NewV4() error: %v", err)
	}
	return id
}

func TestCompactorFlushesOnAdd(t *testing.T) {
	c := NewCompactor(true)
	c.Add(0, Measurement{SignalID: mustUUID(t), Timestamp: 100, Value: 60.0})
	c.Add(1, Measurement{SignalID: mustUUID(t), Timestamp: 200, Value: 61.0})

	packets := c.Flush()
	if len(packets) != 1 {
		t.Fatalf("len(packets) = %d, want 1", len(packets))
	}

	packet := packets[0]
	if packet[0] != compactFlag {
		t.Errorf("packet flag = %d, want compactFlag", packet[0])
	}
	count := int32(binary.BigEndian.Uint32(packet[1:5]))
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestCompactorSplitsOversizedBatch(t *testing.T) {
	c := NewCompactor(true)
	perMeasurement := 4 + 4 + 8 + 8 // runtimeID + flags + timestamp + value

	n := MaxPacketSize/perMeasurement + 5
	for i := 0; i < n; i++ {
		c.Add(int32(i), Measurement{SignalID: mustUUID(t), Timestamp: int64(i), Value: float64(i)})
	}

	packets := c.Flush()
	if len(packets) < 2 {
		t.Fatalf("expected the oversized batch to split into multiple packets, got %d", len(packets))
	}
	for _, p := range packets {
		if len(p) > MaxPacketSize {
			t.Errorf("packet of %d bytes exceeds MaxPacketSize", len(p))
		}
	}
}

func TestBlockEncoderSequenceAdvancesAndSkipsZero(t *testing.T) {
	e := NewBlockEncoder()
	e.TryAddMeasurement(0, Measurement{SignalID: mustUUID(t)})

	if e.SequenceNumber() != 0 {
		t.Fatalf("SequenceNumber() before any flush = %d, want 0", e.SequenceNumber())
	}

	e.sequence = 0xFFFF
	_ = e.Bytes()
	if e.SequenceNumber() == 0 {
		t.Error("sequence number must skip 0 on wraparound, since 0 means reset")
	}
}

func TestBlockEncoderResetClearsSequence(t *testing.T) {
	e := NewBlockEncoder()
	e.TryAddMeasurement(0, Measurement{SignalID: mustUUID(t)})
	_ = e.Bytes()

	e.Reset()
	if e.SequenceNumber() != 0 {
		t.Errorf("SequenceNumber() after Reset() = %d, want 0", e.SequenceNumber())
	}
}

func TestBlockEncoderRejectsWhenFull(t *testing.T) {
	e := &BlockEncoder{maxBlockMeasurements: 1}
	if !e.TryAddMeasurement(0, Measurement{SignalID: mustUUID(t)}) {
		t.Fatal("first measurement should fit")
	}
	if e.TryAddMeasurement(1, Measurement{SignalID: mustUUID(t)}) {
		t.Fatal("block should reject once full")
	}
}

func TestGZipRoundTrip(t *testing.T) {
	data := []byte("compact packet payload bytes go here")
	wrapped, err := GZipWrap(data)
	if err != nil {
		t.Fatalf("GZipWrap error: %v", err)
	}
	unwrapped, err := GZipUnwrap(wrapped)
	if err != nil {
		t.Fatalf("GZipUnwrap error: %v", err)
	}
	if !bytes.Equal(unwrapped, data) {
		t.Errorf("round trip = %q, want %q", unwrapped, data)
	}
}

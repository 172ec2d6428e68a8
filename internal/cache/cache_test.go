package cache

import (
	"testing"

	"github.com/life-stream-dev/go-sttp-publisher/internal/metadata"
	uuid "github.com/satori/go.uuid"
)

func mustUUID(t *testing.T) uuid.UUID {
	id, err := uuid.NewV4()
	if err != nil {
		t.Fatalf("uuid.NewV4() error: %v", err)
	}
	return id
}

func TestBuildAssignsDenseRuntimeIDs(t *testing.T) {
	rows := []metadata.Row{
		{SignalID: mustUUID(t), Source: "PMU1"},
		{SignalID: mustUUID(t), Source: "PMU2"},
		{SignalID: mustUUID(t), Source: "PMU3"},
	}
	c := Build(rows)

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	for i, row := range rows {
		if got := c.RuntimeID(row.SignalID); got != int32(i) {
			t.Errorf("RuntimeID(%v) = %d, want %d", row.SignalID, got, i)
		}
	}
}

func TestUnknownSignalMapsToSentinel(t *testing.T) {
	c := Build([]metadata.Row{{SignalID: mustUUID(t)}})
	if got := c.RuntimeID(mustUUID(t)); got != UnknownRuntimeID {
		t.Errorf("RuntimeID(unknown) = %d, want %d", got, UnknownRuntimeID)
	}
}

func TestVersion1InstallsImmediately(t *testing.T) {
	s := NewSwapState(1)
	c := Build([]metadata.Row{{SignalID: mustUUID(t)}})

	toSend, shouldSend, tsscReset := s.Propose(c)
	if !shouldSend || !tsscReset {
		t.Fatalf("version 1 propose should send immediately and request a TSSC reset")
	}
	if toSend.CacheIndex() != 0 {
		t.Errorf("CacheIndex() = %d, want 0", toSend.CacheIndex())
	}
	if s.Current() != toSend {
		t.Errorf("version 1 should install the cache as current without waiting for confirmation")
	}
}

func TestVersion2FirstCacheIsIndexZero(t *testing.T) {
	s := NewSwapState(2)
	c := Build([]metadata.Row{{SignalID: mustUUID(t)}})

	toSend, shouldSend, tsscReset := s.Propose(c)
	if !shouldSend {
		t.Fatal("first propose on an idle swap state should send")
	}
	if tsscReset {
		t.Fatal("version >= 2 should not request a TSSC reset before confirmation")
	}
	if toSend.CacheIndex() != 0 {
		t.Errorf("first transmitted cache index = %d, want 0", toSend.CacheIndex())
	}
	if s.Current() != nil {
		t.Fatal("cache should not become current before confirmation")
	}
}

func TestVersion2ConfirmPromotesNext(t *testing.T) {
	s := NewSwapState(2)
	c := Build([]metadata.Row{{SignalID: mustUUID(t)}})
	s.Propose(c)

	applied, tsscReset, followUp, followUpShouldSend := s.Confirm()
	if applied == nil || !tsscReset {
		t.Fatal("confirm should promote next to current and request a TSSC reset")
	}
	if followUpShouldSend || followUp != nil {
		t.Fatal("no pending cache was staged, so confirm should not produce a follow-up")
	}
	if s.Current() != applied {
		t.Error("Current() should report the newly promoted cache")
	}
}

func TestVersion2PendingCoalesces(t *testing.T) {
	s := NewSwapState(2)
	first := Build([]metadata.Row{{SignalID: mustUUID(t)}})
	second := Build([]metadata.Row{{SignalID: mustUUID(t)}, {SignalID: mustUUID(t)}})
	third := Build([]metadata.Row{{SignalID: mustUUID(t)}, {SignalID: mustUUID(t)}, {SignalID: mustUUID(t)}})

	s.Propose(first)

	_, shouldSend, _ := s.Propose(second)
	if shouldSend {
		t.Fatal("a swap already in flight should not send immediately")
	}
	_, shouldSend, _ = s.Propose(third)
	if shouldSend {
		t.Fatal("a second pending cache should coalesce, not send")
	}

	_, _, followUp, followUpShouldSend := s.Confirm()
	if !followUpShouldSend || followUp == nil {
		t.Fatal("confirming the in-flight swap should immediately stage the coalesced pending cache")
	}
	if followUp.Len() != third.Len() {
		t.Errorf("follow-up cache has %d signals, want %d (only the latest pending should survive)", followUp.Len(), third.Len())
	}
}

func TestSerializeLeadingByteIsCacheIndex(t *testing.T) {
	c := Build([]metadata.Row{{SignalID: mustUUID(t)}}).withCacheIndex(1)
	data := c.Serialize()
	if data[0] != 1 {
		t.Errorf("Serialize()[0] = %d, want 1", data[0])
	}
}

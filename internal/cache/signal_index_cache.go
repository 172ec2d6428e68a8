// Package cache implements the signal index cache and its two-generation
// swap protocol: the server-assigned compact runtime-ID table a
// subscriber decodes data packets against, and the handshake that lets
// the server replace it without racing an in-flight publication.
package cache

import (
	"encoding/binary"

	"github.com/life-stream-dev/go-sttp-publisher/internal/metadata"
	uuid "github.com/satori/go.uuid"
)

// UnknownRuntimeID is the sentinel returned when a signal ID has no
// runtime ID in a cache.
const UnknownRuntimeID int32 = -1

// Entry is one row of a SignalIndexCache: the metadata a runtime ID
// resolves to.
type Entry struct {
	SignalID uuid.UUID
	Source   string
	ID       uint64
}

// SignalIndexCache is the dense runtimeID -> {SignalID, Source, ID}
// table negotiated for one subscription, plus the reverse lookup the
// publication pipeline needs on every measurement.
type SignalIndexCache struct {
	cacheIndex byte
	entries    []Entry
	bySignalID map[uuid.UUID]int32
}

// Build assigns runtime IDs 0..N-1 to rows in declaration order and
// populates the reverse lookup. cacheIndex is filled in later by the
// swap state machine, once it knows which generation slot this cache
// will occupy.
func Build(rows []metadata.Row) *SignalIndexCache {
	entries := make([]Entry, len(rows))
	bySignalID := make(map[uuid.UUID]int32, len(rows))

	for i, row := range rows {
		entries[i] = Entry{SignalID: row.SignalID, Source: row.Source, ID: uint64(i)}
		bySignalID[row.SignalID] = int32(i)
	}

	return &SignalIndexCache{entries: entries, bySignalID: bySignalID}
}

// RuntimeID returns the runtime ID for a signal, or UnknownRuntimeID if
// the cache does not carry that signal.
func (c *SignalIndexCache) RuntimeID(signalID uuid.UUID) int32 {
	if c == nil {
		return UnknownRuntimeID
	}
	if id, ok := c.bySignalID[signalID]; ok {
		return id
	}
	return UnknownRuntimeID
}

// Entry returns the entry at a runtime ID. ok is false for an
// out-of-range ID.
func (c *SignalIndexCache) Entry(runtimeID int32) (Entry, bool) {
	if c == nil || runtimeID < 0 || int(runtimeID) >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[runtimeID], true
}

// Len reports the number of signals in the cache.
func (c *SignalIndexCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// CacheIndex reports the one-bit generation number this cache is
// currently tagged with.
func (c *SignalIndexCache) CacheIndex() byte {
	if c == nil {
		return 0
	}
	return c.cacheIndex
}

// SignalIDs returns every signal ID in runtime-ID order, used when the
// cache is handed to external routing tables after a confirmed swap.
func (c *SignalIndexCache) SignalIDs() []uuid.UUID {
	if c == nil {
		return nil
	}
	ids := make([]uuid.UUID, len(c.entries))
	for i, e := range c.entries {
		ids[i] = e.SignalID
	}
	return ids
}

// Serialize renders the cache to the wire format expected by
// UpdateSignalIndexCache: a leading cacheIndex byte, a count, then each
// entry's runtime ID, signal ID, source, and numeric ID.
func (c *SignalIndexCache) Serialize() []byte {
	if c == nil {
		return []byte{0, 0, 0, 0, 0}
	}

	buf := make([]byte, 0, 5+len(c.entries)*(4+16+4+8))
	buf = append(buf, c.cacheIndex)

	countBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(countBuf, uint32(len(c.entries)))
	buf = append(buf, countBuf...)

	for i, e := range c.entries {
		runtimeIDBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(runtimeIDBuf, uint32(i))
		buf = append(buf, runtimeIDBuf...)
		buf = append(buf, e.SignalID.Bytes()...)

		sourceLenBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(sourceLenBuf, uint32(len(e.Source)))
		buf = append(buf, sourceLenBuf...)
		buf = append(buf, []byte(e.Source)...)

		idBuf := make([]byte, 8)
		binary.BigEndian.PutUint64(idBuf, e.ID)
		buf = append(buf, idBuf...)
	}
	return buf
}

// withCacheIndex returns a shallow copy of c tagged with index, used by
// the swap state machine when staging a freshly built cache into next
// or installing it as current.
func (c *SignalIndexCache) withCacheIndex(index byte) *SignalIndexCache {
	clone := *c
	clone.cacheIndex = index
	return &clone
}

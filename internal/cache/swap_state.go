package cache

import "sync"

// SwapState is the per-session state machine driving the two-generation
// cache swap: current is what the client is decoding against, next is a
// staged cache awaiting ConfirmUpdateSignalIndexCache, and pending holds
// a newer subscription that arrived before next was acknowledged
// (coalesced: only the latest pending survives).
//
// Two locks guard disjoint state so a publish in progress never blocks
// behind a subscribe, and vice versa: signalIndexCacheLock covers
// current/next/the two indices, pendingSignalIndexCacheLock covers
// pending alone.
type SwapState struct {
	signalIndexCacheLock sync.RWMutex
	current              *SignalIndexCache
	next                 *SignalIndexCache
	currentCacheIndex    byte
	nextCacheIndex       byte

	pendingSignalIndexCacheLock sync.Mutex
	pending                     *SignalIndexCache

	version byte
}

// NewSwapState prepares the state machine for a session's negotiated
// protocol version. Versions at or above 2 use the double-buffered
// handshake, so the first transmitted cache must carry index 0: seeding
// currentCacheIndex=1 makes the first nextCacheIndex 1^1=0.
func NewSwapState(version byte) *SwapState {
	s := &SwapState{version: version}
	if version > 1 {
		s.currentCacheIndex = 1
	}
	return s
}

// Current returns the cache the client is currently decoding against.
func (s *SwapState) Current() *SignalIndexCache {
	s.signalIndexCacheLock.RLock()
	defer s.signalIndexCacheLock.RUnlock()
	return s.current
}

// Propose stages a newly built cache for transmission. For version 1
// sessions there is no handshake: the cache installs immediately and
// tsscReset is always true. For version >= 2, it follows spec's
// two-generation protocol: if no swap is in flight, the cache becomes
// next and must be sent; otherwise it replaces any existing pending
// cache and nothing is sent yet.
func (s *SwapState) Propose(newCache *SignalIndexCache) (toSend *SignalIndexCache, shouldSend bool, tsscReset bool) {
	if s.version == 1 {
		s.signalIndexCacheLock.Lock()
		newCache = newCache.withCacheIndex(0)
		s.current = newCache
		s.currentCacheIndex = 0
		s.signalIndexCacheLock.Unlock()
		return newCache, true, true
	}

	s.signalIndexCacheLock.Lock()
	defer s.signalIndexCacheLock.Unlock()

	if s.next == nil {
		s.nextCacheIndex = s.currentCacheIndex ^ 1
		s.next = newCache.withCacheIndex(s.nextCacheIndex)

		s.pendingSignalIndexCacheLock.Lock()
		s.pending = nil
		s.pendingSignalIndexCacheLock.Unlock()

		return s.next, true, false
	}

	s.pendingSignalIndexCacheLock.Lock()
	s.pending = newCache
	s.pendingSignalIndexCacheLock.Unlock()
	return nil, false, false
}

// Confirm processes a ConfirmUpdateSignalIndexCache from the client. If
// a swap was in flight, it promotes next to current and reports
// tsscReset=true along with the signal IDs routing tables must be told
// about. If a pending cache had coalesced while next was unacknowledged,
// followUp/followUpShouldSend carry the next round of the handshake the
// caller must send, exactly as if Propose had just been called again.
func (s *SwapState) Confirm() (applied *SignalIndexCache, tsscReset bool, followUp *SignalIndexCache, followUpShouldSend bool) {
	s.signalIndexCacheLock.Lock()
	if s.next != nil {
		s.current = s.next
		s.currentCacheIndex = s.nextCacheIndex
		s.next = nil
		applied = s.current
		tsscReset = true
	}
	s.signalIndexCacheLock.Unlock()

	s.pendingSignalIndexCacheLock.Lock()
	pending := s.pending
	s.pending = nil
	s.pendingSignalIndexCacheLock.Unlock()

	if pending != nil {
		followUp, followUpShouldSend, _ = s.Propose(pending)
	}
	return applied, tsscReset, followUp, followUpShouldSend
}

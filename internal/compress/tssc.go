package compress

import "encoding/binary"

// TSSCVersion is the version byte a flushed TSSC packet carries,
// matching the value the reference encoder has used since its first
// revision.
const TSSCVersion byte = 85

// TSSCEncoder drives one block of the time-series special compression
// scheme. The internal bit-packing (the delta/Huffman-ish stage real
// TSSC uses) is intentionally out of scope; BlockEncoder below
// implements only the documented wire shape
// (flags, count, version, sequence, block) with a simple fixed-width
// block body, so the publication pipeline and its flush/retry/sequence
// bookkeeping are fully exercised and testable without claiming
// bit-exact compatibility with the reference bitstream.
type TSSCEncoder interface {
	Reset()
	TryAddMeasurement(runtimeID int32, m Measurement) bool
	Bytes() []byte
	SequenceNumber() uint16
}

// BlockEncoder is the default TSSCEncoder. It bounds each block to
// maxBlockMeasurements entries instead of a real bit budget; once full,
// TryAddMeasurement reports false so the caller flushes and retries on
// a fresh block.
type BlockEncoder struct {
	maxBlockMeasurements int
	block                []byte
	count                int32
	sequence             uint16
}

const defaultMaxBlockMeasurements = 1024

// NewBlockEncoder constructs a BlockEncoder with the default per-block
// measurement ceiling.
func NewBlockEncoder() *BlockEncoder {
	return &BlockEncoder{maxBlockMeasurements: defaultMaxBlockMeasurements}
}

// Reset clears the working block and rewinds the sequence number to 0,
// used when the session's tsscResetRequested flag fires.
func (e *BlockEncoder) Reset() {
	e.block = nil
	e.count = 0
	e.sequence = 0
}

// TryAddMeasurement appends one measurement to the working block,
// returning false without modifying state once the block is full.
func (e *BlockEncoder) TryAddMeasurement(runtimeID int32, m Measurement) bool {
	if int(e.count) >= e.maxBlockMeasurements {
		return false
	}
	e.block = append(e.block, encodeCompactMeasurement(runtimeID, m, true)...)
	e.count++
	return true
}

// Bytes renders the current block as a flushed TSSC packet:
// flags, count, version, sequence, encodedBlock. The sequence number
// advances on every flush and skips 0 on wraparound, since 0 is
// reserved to mean "encoder was just reset".
func (e *BlockEncoder) Bytes() []byte {
	packet := make([]byte, 0, 1+4+1+2+len(e.block))
	packet = append(packet, compressedFlag)

	countBuf := make([]byte, 4)
	bigEndianPutInt32(countBuf, e.count)
	packet = append(packet, countBuf...)
	packet = append(packet, TSSCVersion)

	seqBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(seqBuf, e.sequence)
	packet = append(packet, seqBuf...)
	packet = append(packet, e.block...)

	e.sequence++
	if e.sequence == 0 {
		e.sequence = 1
	}
	e.block = nil
	e.count = 0
	return packet
}

// SequenceNumber reports the sequence number that will be stamped on
// the next flushed block.
func (e *BlockEncoder) SequenceNumber() uint16 {
	return e.sequence
}

// Count reports how many measurements are in the working block,
// letting callers decide whether a final flush is needed.
func (e *BlockEncoder) Count() int32 {
	return e.count
}

// Package compress implements the publication-pipeline packet encoders:
// the size-bounded compact packer, a TSSC block driver, and a GZip
// wrap/unwrap pair. The publication pipeline does not call the GZip
// wrapper.
package compress

import (
	"encoding/binary"
	"math"

	uuid "github.com/satori/go.uuid"
)

// Measurement is one published sample: the signal it belongs to, its
// tick timestamp (with leap-second bits already folded in by the
// caller), state flags, and value.
type Measurement struct {
	SignalID  uuid.UUID
	Timestamp int64
	Flags     uint32
	Value     float64
}

// WithNaN returns a copy of m with Value replaced by NaN and BadTime
// ORed into Flags, used by the throttled publication timer when a
// latest measurement falls outside the reasonableness window.
func (m Measurement) WithNaN(badTimeFlag uint32) Measurement {
	m.Value = math.NaN()
	m.Flags |= badTimeFlag
	return m
}

// encodeCompactMeasurement renders one measurement in the compact wire
// format: runtimeID, flags, optional timestamp, then the value. The
// timestamp, when includeTime selects it, is always the absolute tick
// value; base-time offsets are not applied.
func encodeCompactMeasurement(runtimeID int32, m Measurement, includeTime bool) []byte {
	size := 4 + 4 + 8
	if includeTime {
		size += 8
	}
	buf := make([]byte, size)

	binary.BigEndian.PutUint32(buf[0:4], uint32(runtimeID))
	binary.BigEndian.PutUint32(buf[4:8], m.Flags)
	offset := 8
	if includeTime {
		binary.BigEndian.PutUint64(buf[8:16], uint64(m.Timestamp))
		offset = 16
	}
	binary.BigEndian.PutUint64(buf[offset:offset+8], math.Float64bits(m.Value))
	return buf
}

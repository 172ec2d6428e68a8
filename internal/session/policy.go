// Package session implements the per-subscriber connection state
// machine: negotiated operational modes, subscription parameters, the
// signal-index-cache swap, base-time rotation, throttled publication,
// and the lifecycle transitions between them.
//
// Grounded on the teacher's internal/connection/connection_manager.go
// and internal/database/session_data.go, generalized from MQTT client
// session bookkeeping to the STTP subscriber state machine.
package session

// Policy carries the publisher-wide settings that gate per-session
// behavior, sourced from config.Config.Publisher.
type Policy struct {
	AllowTemporalSubscriptions bool
	AllowNaNValueFilter        bool
	ForceNaNValueFilter        bool
	UseBaseTimeOffsets         bool
	CipherKeysEnabled          bool
}

// Package wire implements STTP's command-channel/data-channel frame
// codecs and the command/response byte-code tables.
//
// Grounded on the teacher's internal/mqtt (PacketType/PacketTypeMap enum
// style, ReadPacket/DecodeRemainingLength framing) restructured for
// STTP's fixed 4-byte big-endian length prefix (spec.md §4.1, §6) instead
// of MQTT's variable-length remaining-length encoding.
package wire

// CommandCode identifies a one-byte command sent by the subscriber on the
// command channel (spec.md §4.1, §6).
type CommandCode byte

const (
	CommandSubscribe CommandCode = iota + 0x00
	CommandUnsubscribe
	CommandMetadataRefresh
	CommandRotateCipherKeys
	CommandUpdateProcessingInterval
	CommandDefineOperationalModes
	CommandConfirmUpdateSignalIndexCache
	CommandConfirmNotification
	CommandConfirmBufferBlock
	CommandConfirmUpdateBaseTimes
)

const commandUserCommandBase CommandCode = 0xD0

// UserCommand returns the code for UserCommandNN, 0 <= n <= 15.
func UserCommand(n int) CommandCode {
	return commandUserCommandBase + CommandCode(n)
}

// IsUserCommand reports whether code falls in the UserCommand00..15 range.
func (c CommandCode) IsUserCommand() bool {
	return c >= commandUserCommandBase && c <= commandUserCommandBase+15
}

var commandNames = map[CommandCode]string{
	CommandSubscribe:                     "Subscribe",
	CommandUnsubscribe:                   "Unsubscribe",
	CommandMetadataRefresh:                "MetadataRefresh",
	CommandRotateCipherKeys:               "RotateCipherKeys",
	CommandUpdateProcessingInterval:       "UpdateProcessingInterval",
	CommandDefineOperationalModes:         "DefineOperationalModes",
	CommandConfirmUpdateSignalIndexCache:  "ConfirmUpdateSignalIndexCache",
	CommandConfirmNotification:            "ConfirmNotification",
	CommandConfirmBufferBlock:             "ConfirmBufferBlock",
	CommandConfirmUpdateBaseTimes:         "ConfirmUpdateBaseTimes",
}

func (c CommandCode) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	if c.IsUserCommand() {
		return "UserCommand"
	}
	return "Unknown"
}

// ResponseCode identifies a one-byte response code sent by the publisher.
type ResponseCode byte

const (
	ResponseSucceeded ResponseCode = iota
	ResponseFailed
	ResponseDataPacket
	ResponseUpdateSignalIndexCache
	ResponseUpdateBaseTimes
	ResponseBufferBlock
	ResponseProcessingComplete
	ResponseDataStartTime
	ResponseNoOP
	ResponseUserResponse
)

var responseNames = map[ResponseCode]string{
	ResponseSucceeded:              "Succeeded",
	ResponseFailed:                 "Failed",
	ResponseDataPacket:             "DataPacket",
	ResponseUpdateSignalIndexCache: "UpdateSignalIndexCache",
	ResponseUpdateBaseTimes:        "UpdateBaseTimes",
	ResponseBufferBlock:            "BufferBlock",
	ResponseProcessingComplete:     "ProcessingComplete",
	ResponseDataStartTime:          "DataStartTime",
	ResponseNoOP:                   "NoOP",
	ResponseUserResponse:           "UserResponse",
}

func (c ResponseCode) String() string {
	if name, ok := responseNames[c]; ok {
		return name
	}
	return "Unknown"
}

// PacketFlag identifies the flag byte leading a published data packet
// (spec.md §4.5).
type PacketFlag byte

const (
	PacketFlagCompact    PacketFlag = 0x00
	PacketFlagCompressed PacketFlag = 0x02
)

// TSSCVersion is the version byte stamped into every TSSC-flushed packet.
const TSSCVersion = 85

// MaxPacketSize bounds the serialized-measurement payload of a single
// compact/TSSC data packet (spec.md §6).
const MaxPacketSize = 32768

// PayloadHeaderSize is the size of the length prefix on a command frame.
const PayloadHeaderSize = 4

// ResponseHeaderSize is the size of the responseCode+commandCode prefix
// on a response frame.
const ResponseHeaderSize = 2

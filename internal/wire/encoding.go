package wire

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding identifies the string encoding negotiated in
// DefineOperationalModes (spec.md §3, §6).
type Encoding byte

const (
	EncodingUTF8 Encoding = iota
	EncodingUTF16LE
	EncodingUTF16BE
)

func (e Encoding) String() string {
	switch e {
	case EncodingUTF8:
		return "UTF8"
	case EncodingUTF16LE:
		return "UTF16LE"
	case EncodingUTF16BE:
		return "UTF16BE"
	default:
		return "Unknown"
	}
}

// Encode renders s as bytes in the receiver's encoding. UTF-16 variants
// are always written as 2 bytes per code unit on the wire, independent of
// host wide-char size (spec.md §6).
func (e Encoding) Encode(s string) ([]byte, error) {
	switch e {
	case EncodingUTF8:
		return []byte(s), nil
	case EncodingUTF16LE:
		out, _, err := transform.Bytes(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder(), []byte(s))
		return out, err
	case EncodingUTF16BE:
		out, _, err := transform.Bytes(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder(), []byte(s))
		return out, err
	default:
		return nil, fmt.Errorf("unknown encoding %v", e)
	}
}

// Decode parses b as the receiver's encoding into a Go string.
func (e Encoding) Decode(b []byte) (string, error) {
	switch e {
	case EncodingUTF8:
		return string(b), nil
	case EncodingUTF16LE:
		out, _, err := transform.Bytes(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder(), b)
		return string(out), err
	case EncodingUTF16BE:
		out, _, err := transform.Bytes(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), b)
		return string(out), err
	default:
		return "", fmt.Errorf("unknown encoding %v", e)
	}
}

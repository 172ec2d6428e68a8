package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// GZipWrap compresses data with gzip. The publication pipeline does not
// call it: published packets are sent unwrapped even when
// CompressPayloadData is set and the algorithm submask selects GZip.
func GZipWrap(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("gzip wrap failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip wrap failed: %w", err)
	}
	return buf.Bytes(), nil
}

// GZipUnwrap reverses GZipWrap.
func GZipUnwrap(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip unwrap failed: %w", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gzip unwrap failed: %w", err)
	}
	return out, nil
}

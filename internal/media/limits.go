package media

import (
	"fmt"
	"io"
)

const (
	// MaxAssetBytes is the default per-attachment size limit.
	MaxAssetBytes int64 = 10 * 1024 * 1024
)

// ReadAllWithLimit reads from reader and rejects payloads larger than maxBytes.
func ReadAllWithLimit(reader io.Reader, maxBytes int64) ([]byte, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be greater than 0")
	}
	limited := &io.LimitedReader{
		R: reader,
		N: maxBytes + 1,
	}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, maxBytes)
	}
	return data, nil
}

// EstimateDecodedSize returns the decoded length of a base64 payload without
// decoding it.
func EstimateDecodedSize(payload string) int64 {
	n := int64(len(payload))
	if n == 0 {
		return 0
	}
	padding := int64(0)
	for i := len(payload) - 1; i >= 0 && payload[i] == '='; i-- {
		padding++
	}
	return n*3/4 - padding
}
